package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/doeshing/askcmd/internal/domain"
)

// fakeLines replays scripted answers. interruptAnswer simulates Ctrl-C and
// running out of answers yields io.EOF.
type fakeLines struct {
	answers []string
	prompts []string
	secrets []string
}

const interruptAnswer = "<interrupt>"

func (f *fakeLines) next(prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.answers) == 0 {
		return "", io.EOF
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	if answer == interruptAnswer {
		return "", ErrInterrupt
	}
	return answer, nil
}

func (f *fakeLines) ReadLine(prompt string) (string, error) {
	return f.next(prompt)
}

func (f *fakeLines) ReadSecret(prompt string) (string, error) {
	secret, err := f.next(prompt)
	if err == nil {
		f.secrets = append(f.secrets, secret)
	}
	return secret, err
}

func (f *fakeLines) Close() error {
	return nil
}

func TestChooseAcceptsListedChoice(t *testing.T) {
	lines := &fakeLines{answers: []string{" Retry "}}
	p := NewPrompter(lines, io.Discard)

	got, err := p.Choose(context.Background(), "Command failed.", []string{"continue", "retry", "abort"}, "abort")
	if err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	if got != "retry" {
		t.Fatalf("expected retry, got %q", got)
	}
	if !strings.Contains(lines.prompts[0], "[continue/retry/abort] (abort)") {
		t.Fatalf("unexpected prompt %q", lines.prompts[0])
	}
}

func TestChooseEmptySelectsDefault(t *testing.T) {
	p := NewPrompter(&fakeLines{answers: []string{""}}, io.Discard)
	got, err := p.Choose(context.Background(), "Execute these commands?", []string{"y", "n", "?"}, "n")
	if err != nil || got != "n" {
		t.Fatalf("expected default n, got %q (%v)", got, err)
	}
}

func TestChooseReasksOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	lines := &fakeLines{answers: []string{"maybe", "y"}}
	p := NewPrompter(lines, &out)

	got, err := p.Choose(context.Background(), "Execute these commands?", []string{"y", "n", "?"}, "n")
	if err != nil || got != "y" {
		t.Fatalf("expected y, got %q (%v)", got, err)
	}
	if len(lines.prompts) != 2 {
		t.Fatalf("expected two prompts, got %d", len(lines.prompts))
	}
	if !strings.Contains(out.String(), "y, n, ?") {
		t.Fatalf("expected hint listing choices, got %q", out.String())
	}
}

func TestChooseInterruptSelectsDefault(t *testing.T) {
	p := NewPrompter(&fakeLines{answers: []string{interruptAnswer}}, io.Discard)
	got, err := p.Choose(context.Background(), "q", []string{"d", "r"}, "d")
	if err != nil || got != "d" {
		t.Fatalf("expected default d on interrupt, got %q (%v)", got, err)
	}
}

func TestChooseEOFIsError(t *testing.T) {
	p := NewPrompter(&fakeLines{}, io.Discard)
	if _, err := p.Choose(context.Background(), "q", []string{"y", "n"}, "n"); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	p := NewPrompter(&fakeLines{answers: []string{"Y", ""}}, io.Discard)
	if ok, err := p.Confirm(context.Background(), "Continue?", false); err != nil || !ok {
		t.Fatalf("expected true, got %v (%v)", ok, err)
	}
	if ok, err := p.Confirm(context.Background(), "Continue?", false); err != nil || ok {
		t.Fatalf("expected default false, got %v (%v)", ok, err)
	}
}

func TestSecretReaderMapsInterrupt(t *testing.T) {
	reader := SecretReader{Lines: &fakeLines{answers: []string{"hunter2", interruptAnswer}}}
	secret, err := reader.ReadSecret("Password: ")
	if err != nil || secret != "hunter2" {
		t.Fatalf("unexpected secret %q (%v)", secret, err)
	}
	if _, err := reader.ReadSecret("Password: "); !errors.Is(err, domain.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
}

func TestPlainReaderReturnsFinalLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	r := NewPlainReader(strings.NewReader("first\r\nlast"), &out)

	for _, want := range []string{"first", "last"} {
		got, err := r.ReadLine(">> ")
		if err != nil || got != want {
			t.Fatalf("expected %q, got %q (%v)", want, got, err)
		}
	}
	if _, err := r.ReadLine(">> "); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if out.String() != ">> >> >> " {
		t.Fatalf("unexpected prompts %q", out.String())
	}
}
