package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doeshing/askcmd/internal/domain"
)

type staticInfo struct{ info domain.SystemInfo }

func (s staticInfo) Collect(context.Context) domain.SystemInfo { return s.info }

func newTestSource(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPSource(Options{
		Settings: domain.ProposalSettings{
			Endpoint:    server.URL,
			Model:       "test-model",
			Temperature: 0.2,
			MaxTokens:   -1,
			AuthEnvVar:  "ASKCMD_TEST_TOKEN",
		},
		SystemInfo: staticInfo{info: domain.SystemInfo{OSName: "Ubuntu 24.04 LTS", Arch: "x86_64"}},
		HTTPClient: server.Client(),
	})
}

func writeData(t *testing.T, w http.ResponseWriter, proposal string) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]string{"data": proposal}); err != nil {
		t.Error(err)
	}
}

func TestProposeSendsPayloadAndDecodesData(t *testing.T) {
	t.Setenv("ASKCMD_TEST_TOKEN", "tok")
	var got requestBody
	var auth string
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeData(t, w, `{"commands":["ls -la","du -sh ."],"dangerous":false,"sudo_required":true,
			"description":"list files","options":[{"option_name":"-a","description":"show hidden","sudo_required":true}]}`)
	})

	proposal, err := source.Propose(context.Background(), "show files")
	if err != nil {
		t.Fatalf("Propose error: %v", err)
	}
	if len(proposal.Commands) != 2 || proposal.Commands[1] != "du -sh ." {
		t.Fatalf("unexpected commands %v", proposal.Commands)
	}
	if !proposal.SudoRequired || proposal.Dangerous || proposal.Description != "list files" {
		t.Fatalf("unexpected flags %+v", proposal)
	}
	if len(proposal.Options) != 1 || proposal.Options[0].Name != "-a" || !proposal.Options[0].SudoRequired {
		t.Fatalf("unexpected options %+v", proposal.Options)
	}

	if got.Model != "test-model" || got.Temperature != 0.2 || got.MaxTokens != -1 {
		t.Fatalf("unexpected payload %+v", got)
	}
	if len(got.Inputs) != 1 || got.Inputs[0].Role != "user" || got.Inputs[0].Content != "show files" {
		t.Fatalf("unexpected inputs %+v", got.Inputs)
	}
	if !strings.HasPrefix(got.PromptSystem, "Ubuntu 24.04 LTS (x86_64)") || !strings.Contains(got.PromptSystem, "JSON object only") {
		t.Fatalf("unexpected system prompt %q", got.PromptSystem)
	}
	if auth != "Bearer tok" {
		t.Fatalf("unexpected auth header %q", auth)
	}
}

func TestProposeNon200IsSourceError(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := source.Propose(context.Background(), "anything")
	var srcErr *domain.ProposalSourceError
	if !errors.As(err, &srcErr) || srcErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected ProposalSourceError with 502, got %v", err)
	}
}

func TestProposeMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":         `oops`,
		"missing data":     `{"result":"x"}`,
		"data not json":    `{"data":"{not json"}`,
		"missing commands": `{"data":"{\"dangerous\":true}"}`,
		"empty commands":   `{"data":"{\"commands\":[]}"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := source.Propose(context.Background(), "q")
			var srcErr *domain.ProposalSourceError
			if !errors.As(err, &srcErr) {
				t.Fatalf("expected ProposalSourceError, got %v", err)
			}
		})
	}
}

func TestDecodeResponseAcceptsInlineObject(t *testing.T) {
	proposal, err := DecodeResponse([]byte(`{"data":{"commands":["uptime"],"dangerous":true}}`))
	if err != nil {
		t.Fatalf("DecodeResponse error: %v", err)
	}
	if len(proposal.Commands) != 1 || !proposal.Dangerous || proposal.SudoRequired {
		t.Fatalf("unexpected proposal %+v", proposal)
	}
}

func TestReviseSendsFeedbackQuery(t *testing.T) {
	var got requestBody
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeData(t, w, `{"commands":["true"]}`)
	})

	_, err := source.Revise(context.Background(), domain.FeedbackRequest{
		Goal:        "fail on purpose",
		LastCommand: "false",
		Tried:       []string{"false"},
		Output:      "STDOUT:\n\nSTDERR:\n",
		ExitCode:    1,
		Executed:    true,
	})
	if err != nil {
		t.Fatalf("Revise error: %v", err)
	}
	query := got.Inputs[0].Content
	for _, want := range []string{"[Goal]\nfail on purpose", "`false`", "ReturnCode: 1"} {
		if !strings.Contains(query, want) {
			t.Fatalf("feedback query missing %q:\n%s", want, query)
		}
	}
}

func TestBuildFeedbackQueryWithoutResult(t *testing.T) {
	query := BuildFeedbackQuery(domain.FeedbackRequest{
		Goal:        "clean up",
		LastCommand: "./cleanup.sh",
		Tried:       []string{"ls", "./cleanup.sh"},
		Note:        "invalid command: Direct script execution not allowed",
	})
	for _, want := range []string{"ReturnCode: n/a", "Direct script execution not allowed", "`ls`\n`./cleanup.sh`"} {
		if !strings.Contains(query, want) {
			t.Fatalf("feedback query missing %q:\n%s", want, query)
		}
	}
}
