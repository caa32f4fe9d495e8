package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

// ErrUnparsable is returned when a command cannot be split into arguments.
var ErrUnparsable = errors.New("command cannot be tokenized")

// shellTokens are characters that only a shell can interpret correctly.
const shellTokens = "|<>;&$`*?~(){}[]\n"

// exitNotFound mirrors the shell's "command not found" status.
const exitNotFound = 127

// LocalRunner runs commands on the host, through the shell only when needed.
type LocalRunner struct {
	shell     []string
	goos      string
	waitDelay time.Duration
}

// NewLocalRunner builds a runner. An empty or "auto" shell resolves to $SHELL,
// then /bin/sh, or cmd /C on Windows.
func NewLocalRunner(shell string) *LocalRunner {
	return &LocalRunner{
		shell:     resolveShell(shell, runtime.GOOS),
		goos:      runtime.GOOS,
		waitDelay: time.Second,
	}
}

// Shell returns the interpreter invocation used for the shell path.
func (r *LocalRunner) Shell() []string {
	out := make([]string, len(r.shell))
	copy(out, r.shell)
	return out
}

// Run implements ports.ProcessRunner.
func (r *LocalRunner) Run(ctx context.Context, spec ports.ProcessSpec) (domain.ExecutionResult, error) {
	argv, err := r.argv(spec)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if spec.Stdin != "" {
		c.Stdin = strings.NewReader(spec.Stdin)
	}
	c.WaitDelay = r.waitDelay

	start := time.Now()
	err = c.Run()
	result := domain.ExecutionResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		result.ExitCode = exitNotFound
		result.Stderr += err.Error()
		return result, nil
	default:
		return result, err
	}
}

// UsesShell reports whether command would take the shell path.
func (r *LocalRunner) UsesShell(command string) bool {
	return r.goos == "windows" || NeedsShell(command)
}

// NeedsShell reports whether command carries pipe, redirection or other
// shell-only syntax.
func NeedsShell(command string) bool {
	return strings.ContainsAny(command, shellTokens)
}

func (r *LocalRunner) argv(spec ports.ProcessSpec) ([]string, error) {
	if len(spec.Argv) > 0 {
		return spec.Argv, nil
	}
	if spec.Shell || r.UsesShell(spec.Command) {
		return append(r.Shell(), spec.Command), nil
	}
	args, err := shellquote.Split(spec.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no arguments", ErrUnparsable)
	}
	return args, nil
}

func resolveShell(shell, goos string) []string {
	if goos == "windows" {
		if shell == "" || shell == "auto" {
			return []string{"cmd", "/C"}
		}
		return []string{shell, "/C"}
	}
	if shell == "" || shell == "auto" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell, "-c"}
}

var _ ports.ProcessRunner = (*LocalRunner)(nil)
