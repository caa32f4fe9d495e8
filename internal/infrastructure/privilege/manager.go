// Package privilege caches the elevation secret and runs commands through the
// platform elevation wrapper.
package privilege

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

// SecretPrompt is shown when the cached credential is missing or expired.
const SecretPrompt = "Please enter sudo password: "

// DefaultWrapper reads the secret from stdin and never relies on sudo's own
// timestamp cache, so the secret is always consumed.
var DefaultWrapper = []string{"sudo", "-S", "-k", "-p", ""}

// DefaultIncorrectPatterns identify a rejected secret in the wrapper's stderr.
var DefaultIncorrectPatterns = []string{"incorrect password", "sorry, try again"}

// Options configures a Manager.
type Options struct {
	Secrets ports.SecretReader
	Runner  ports.ProcessRunner
	Logger  ports.Logger
	Clock   ports.Clock
	// Wrapper is the elevation command prefix; empty disables elevation.
	Wrapper []string
	// Shell is the interpreter invocation, e.g. ["/bin/sh", "-c"].
	Shell             []string
	IncorrectPatterns []string
	// AlreadyElevated skips the wrapper entirely.
	AlreadyElevated bool
}

// Manager owns the cached credential. It is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	cred domain.PrivilegeCredential

	secrets  ports.SecretReader
	runner   ports.ProcessRunner
	logger   ports.Logger
	now      ports.Clock
	wrapper  []string
	shell    []string
	patterns []string
	elevated bool
}

// NewManager builds a Manager, filling defaults for the host platform.
func NewManager(opts Options) *Manager {
	m := &Manager{
		secrets:  opts.Secrets,
		runner:   opts.Runner,
		logger:   opts.Logger,
		now:      opts.Clock,
		wrapper:  opts.Wrapper,
		shell:    opts.Shell,
		patterns: opts.IncorrectPatterns,
		elevated: opts.AlreadyElevated,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.wrapper == nil && runtime.GOOS != "windows" {
		m.wrapper = append([]string(nil), DefaultWrapper...)
	}
	if len(m.shell) == 0 {
		m.shell = []string{"/bin/sh", "-c"}
	}
	if len(m.patterns) == 0 {
		m.patterns = DefaultIncorrectPatterns
	}
	lowered := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		lowered[i] = strings.ToLower(p)
	}
	m.patterns = lowered
	return m
}

// RunningAsRoot reports whether the process already has an effective uid of 0.
func RunningAsRoot() bool {
	return runtime.GOOS != "windows" && os.Geteuid() == 0
}

// Acquire returns the cached secret while it is younger than the TTL and
// otherwise prompts for a new one, replacing the cache.
func (m *Manager) Acquire(_ context.Context) (string, error) {
	if m.elevated {
		return "", nil
	}
	if len(m.wrapper) == 0 {
		return "", domain.ErrElevationUnsupported
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.cred.ValidAt(now) {
		return m.cred.Secret, nil
	}
	if m.secrets == nil {
		return "", errors.New("privilege: no secret reader configured")
	}
	secret, err := m.secrets.ReadSecret(SecretPrompt)
	if err != nil {
		return "", err
	}
	m.cred = domain.PrivilegeCredential{Secret: secret, AcquiredAt: now}
	m.log("elevation credential cached", nil)
	return secret, nil
}

// Invalidate drops the cached credential.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cred = domain.PrivilegeCredential{}
	m.mu.Unlock()
}

// Cached reports whether a reusable credential is held at the current time.
func (m *Manager) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred.ValidAt(m.now())
}

// RunElevated runs command through the wrapper with secret on stdin. A secret
// rejected by the wrapper invalidates the cache and yields a CredentialError.
func (m *Manager) RunElevated(ctx context.Context, command string, secret string) (domain.ExecutionResult, error) {
	if m.runner == nil {
		return domain.ExecutionResult{}, errors.New("privilege: no process runner configured")
	}
	command = stripElevationPrefix(command)

	spec := ports.ProcessSpec{Command: command}
	if m.elevated {
		spec.Shell = true
		result, err := m.runner.Run(ctx, spec)
		return m.classify(command, result, err, false)
	}
	if len(m.wrapper) == 0 {
		return domain.ExecutionResult{}, domain.ErrElevationUnsupported
	}

	argv := make([]string, 0, len(m.wrapper)+len(m.shell)+1)
	argv = append(argv, m.wrapper...)
	argv = append(argv, m.shell...)
	argv = append(argv, command)
	spec.Argv = argv
	spec.Stdin = secret + "\n"

	result, err := m.runner.Run(ctx, spec)
	return m.classify(command, result, err, true)
}

func (m *Manager) classify(command string, result domain.ExecutionResult, err error, wrapped bool) (domain.ExecutionResult, error) {
	if err != nil || result.ExitCode == 0 {
		return result, err
	}
	if wrapped && m.incorrectSecret(result.Stderr) {
		m.Invalidate()
		m.log("elevation credential rejected", map[string]interface{}{"exit_code": result.ExitCode})
		return result, &domain.CredentialError{ExitCode: result.ExitCode}
	}
	return result, &domain.CommandError{Command: command, ExitCode: result.ExitCode}
}

func (m *Manager) incorrectSecret(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, p := range m.patterns {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (m *Manager) log(msg string, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, fields)
	}
}

// stripElevationPrefix removes a leading "sudo" so the wrapper is not doubled.
// A sudo carrying its own flags (sudo -u postgres ...) is kept whole; it then
// runs inside the already elevated shell.
func stripElevationPrefix(command string) string {
	trimmed := strings.TrimSpace(command)
	if rest, ok := strings.CutPrefix(trimmed, "sudo "); ok {
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, "-") {
			return trimmed
		}
		return rest
	}
	return trimmed
}

var _ ports.PrivilegeManager = (*Manager)(nil)
