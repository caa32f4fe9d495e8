package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

// ErrInterrupt is returned by a LineReader when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// LineReader reads user input. All terminal input goes through one reader so
// a readline instance never competes with another stdin consumer.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
	Close() error
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// NewLineReader returns a readline-backed reader on a terminal and a plain
// buffered reader otherwise.
func NewLineReader(historyFile string) (LineReader, error) {
	if !IsInteractive() {
		return NewPlainReader(os.Stdin, os.Stdout), nil
	}
	return NewReadlineReader(historyFile)
}

// ReadlineReader wraps chzyer/readline for line editing and, when a history
// file is configured, persistent history.
type ReadlineReader struct {
	rl *readline.Instance
}

// NewReadlineReader sets up readline with history at historyFile.
func NewReadlineReader(historyFile string) (*ReadlineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		UniqueEditLine:    false,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &ReadlineReader{rl: rl}, nil
}

// ReadLine implements LineReader.
func (r *ReadlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", ErrInterrupt
	case err != nil:
		return "", err
	}
	return line, nil
}

// ReadSecret implements LineReader without echoing input.
func (r *ReadlineReader) ReadSecret(prompt string) (string, error) {
	secret, err := r.rl.ReadPassword(prompt)
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", ErrInterrupt
	case err != nil:
		return "", err
	}
	return string(secret), nil
}

// Close releases the terminal.
func (r *ReadlineReader) Close() error {
	return r.rl.Close()
}

// PlainReader reads lines from any io.Reader; used for pipes and tests.
type PlainReader struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

// NewPlainReader builds a reader over in, writing prompts to out.
func NewPlainReader(in io.Reader, out io.Writer) *PlainReader {
	return &PlainReader{in: bufio.NewReader(in), raw: in, out: out}
}

// ReadLine implements LineReader. A final line without a newline is returned
// before io.EOF.
func (p *PlainReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret implements LineReader. On a terminal input is not echoed.
func (p *PlainReader) ReadSecret(prompt string) (string, error) {
	if f, ok := p.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return p.ReadLine(prompt)
}

// Close implements LineReader.
func (p *PlainReader) Close() error {
	return nil
}

// SecretReader adapts a LineReader to ports.SecretReader.
type SecretReader struct {
	Lines LineReader
}

// ReadSecret implements ports.SecretReader. Ctrl-C is reported as
// domain.ErrInterrupted so the session treats it like an interrupted command.
func (s SecretReader) ReadSecret(prompt string) (string, error) {
	secret, err := s.Lines.ReadSecret(prompt)
	if errors.Is(err, ErrInterrupt) {
		return "", domain.ErrInterrupted
	}
	return secret, err
}

var (
	_ LineReader         = (*ReadlineReader)(nil)
	_ LineReader         = (*PlainReader)(nil)
	_ ports.SecretReader = SecretReader{}
)
