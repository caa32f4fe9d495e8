// Package ai talks to the remote proposal source.
//
// The source receives a system context (host summary plus a fixed JSON-only
// instruction) and a single user message, and answers with a JSON body whose
// "data" field is itself a JSON-encoded proposal.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

const maxResponseBytes = 4 << 20

// ErrNoCommands is returned when a proposal lists no commands.
var ErrNoCommands = errors.New("proposal has no commands")

// Options configures an HTTPSource.
type Options struct {
	Settings   domain.ProposalSettings
	SystemInfo ports.SystemInfoCollector
	Logger     ports.Logger
	HTTPClient *http.Client
}

// HTTPSource implements ports.ProposalSource over a single POST endpoint.
type HTTPSource struct {
	settings   domain.ProposalSettings
	sysinfo    ports.SystemInfoCollector
	logger     ports.Logger
	httpClient *http.Client
}

// NewHTTPSource builds a source, filling defaults for unset settings.
func NewHTTPSource(opts Options) *HTTPSource {
	settings := opts.Settings
	if settings.Endpoint == "" {
		settings.Endpoint = domain.DefaultProposalEndpoint
	}
	if settings.Model == "" {
		settings.Model = domain.DefaultProposalModel
	}
	if settings.MaxTokens == 0 {
		settings.MaxTokens = domain.DefaultMaxTokens
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := domain.DefaultProposalTimeout
		if settings.TimeoutSeconds > 0 {
			timeout = time.Duration(settings.TimeoutSeconds) * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{
		settings:   settings,
		sysinfo:    opts.SystemInfo,
		logger:     opts.Logger,
		httpClient: client,
	}
}

// Endpoint returns the URL proposals are requested from.
func (s *HTTPSource) Endpoint() string {
	return s.settings.Endpoint
}

// Propose implements ports.ProposalSource.
func (s *HTTPSource) Propose(ctx context.Context, query string) (domain.CommandProposal, error) {
	return s.request(ctx, query)
}

// Revise implements ports.ProposalSource by sending the feedback query.
func (s *HTTPSource) Revise(ctx context.Context, feedback domain.FeedbackRequest) (domain.CommandProposal, error) {
	return s.request(ctx, BuildFeedbackQuery(feedback))
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Temperature  float64   `json:"temperature"`
	Model        string    `json:"model"`
	MaxTokens    int       `json:"max_tokens"`
	PromptSystem string    `json:"prompt_system"`
	Inputs       []message `json:"inputs"`
}

func (s *HTTPSource) request(ctx context.Context, query string) (domain.CommandProposal, error) {
	var info domain.SystemInfo
	if s.sysinfo != nil {
		info = s.sysinfo.Collect(ctx)
	}

	body, err := json.Marshal(requestBody{
		Temperature:  s.settings.Temperature,
		Model:        s.settings.Model,
		MaxTokens:    s.settings.MaxTokens,
		PromptSystem: SystemPrompt(info),
		Inputs:       []message{{Role: "user", Content: query}},
	})
	if err != nil {
		return domain.CommandProposal{}, &domain.ProposalSourceError{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.CommandProposal{}, &domain.ProposalSourceError{Err: fmt.Errorf("create HTTP request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := s.authToken(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	s.debug("requesting proposal", map[string]interface{}{"endpoint": s.settings.Endpoint, "query_len": len(query)})
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return domain.CommandProposal{}, &domain.ProposalSourceError{Err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return domain.CommandProposal{}, &domain.ProposalSourceError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.CommandProposal{}, &domain.ProposalSourceError{Err: fmt.Errorf("read response body: %w", err)}
	}

	proposal, err := DecodeResponse(raw)
	if err != nil {
		return domain.CommandProposal{}, &domain.ProposalSourceError{Err: err}
	}
	s.debug("proposal received", map[string]interface{}{
		"commands":      len(proposal.Commands),
		"dangerous":     proposal.Dangerous,
		"sudo_required": proposal.SudoRequired,
	})
	return proposal, nil
}

func (s *HTTPSource) authToken() string {
	if s.settings.AuthEnvVar == "" {
		return ""
	}
	return os.Getenv(s.settings.AuthEnvVar)
}

func (s *HTTPSource) debug(msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, fields)
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type wireOption struct {
	OptionName   string `json:"option_name"`
	OptionType   string `json:"option_type"`
	Replacer     string `json:"replacer"`
	Description  string `json:"description"`
	SudoRequired bool   `json:"sudo_required"`
	Dangerous    bool   `json:"dangerous"`
}

type wireProposal struct {
	Commands     *[]string    `json:"commands"`
	Options      []wireOption `json:"options"`
	Dangerous    bool         `json:"dangerous"`
	SudoRequired bool         `json:"sudo_required"`
	Description  string       `json:"description"`
}

// DecodeResponse parses the response envelope. The "data" field is normally a
// JSON string holding the proposal; an inline object is accepted as well.
func DecodeResponse(raw []byte) (domain.CommandProposal, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.CommandProposal{}, fmt.Errorf("decode response: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return domain.CommandProposal{}, errors.New("decode response: missing data field")
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return domain.CommandProposal{}, fmt.Errorf("decode data: %w", err)
		}
		data = []byte(inner)
	}

	var wire wireProposal
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.CommandProposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	if wire.Commands == nil {
		return domain.CommandProposal{}, errors.New("decode proposal: missing commands field")
	}

	proposal := domain.CommandProposal{
		Dangerous:    wire.Dangerous,
		SudoRequired: wire.SudoRequired,
		Description:  strings.TrimSpace(wire.Description),
	}
	for _, cmd := range *wire.Commands {
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			proposal.Commands = append(proposal.Commands, cmd)
		}
	}
	if len(proposal.Commands) == 0 {
		return domain.CommandProposal{}, ErrNoCommands
	}
	for _, opt := range wire.Options {
		proposal.Options = append(proposal.Options, domain.OptionHint{
			Name:         opt.OptionName,
			Type:         opt.OptionType,
			Replacer:     opt.Replacer,
			Description:  opt.Description,
			SudoRequired: opt.SudoRequired,
			Dangerous:    opt.Dangerous,
		})
	}
	return proposal, nil
}

var _ ports.ProposalSource = (*HTTPSource)(nil)
