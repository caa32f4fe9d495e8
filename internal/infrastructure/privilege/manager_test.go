package privilege

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

type countingSecrets struct {
	secrets []string
	prompts int
}

func (c *countingSecrets) ReadSecret(string) (string, error) {
	c.prompts++
	if len(c.secrets) == 0 {
		return "", errors.New("no more secrets")
	}
	s := c.secrets[0]
	c.secrets = c.secrets[1:]
	return s, nil
}

type recordingRunner struct {
	specs  []ports.ProcessSpec
	result domain.ExecutionResult
}

func (r *recordingRunner) Run(_ context.Context, spec ports.ProcessSpec) (domain.ExecutionResult, error) {
	r.specs = append(r.specs, spec)
	return r.result, nil
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestManager(secrets *countingSecrets, runner *recordingRunner, clock *fakeClock) *Manager {
	return NewManager(Options{
		Secrets: secrets,
		Runner:  runner,
		Clock:   clock.Now,
		Wrapper: []string{"sudo", "-S", "-k", "-p", ""},
		Shell:   []string{"/bin/sh", "-c"},
	})
}

func TestAcquireReusesCredentialWithinTTL(t *testing.T) {
	secrets := &countingSecrets{secrets: []string{"hunter2"}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(secrets, &recordingRunner{}, clock)

	first, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	clock.now = clock.now.Add(domain.CredentialTTL - time.Second)
	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if first != "hunter2" || second != "hunter2" {
		t.Fatalf("unexpected secrets %q %q", first, second)
	}
	if secrets.prompts != 1 {
		t.Fatalf("expected one prompt, got %d", secrets.prompts)
	}
}

func TestAcquirePromptsAgainAfterTTL(t *testing.T) {
	secrets := &countingSecrets{secrets: []string{"old", "new"}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(secrets, &recordingRunner{}, clock)

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(domain.CredentialTTL + time.Second)
	got, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "new" || secrets.prompts != 2 {
		t.Fatalf("expected re-prompt, got %q after %d prompts", got, secrets.prompts)
	}
	if m.cred.AcquiredAt != clock.now {
		t.Fatal("expected acquisition time to be overwritten")
	}
	clock.now = clock.now.Add(time.Minute)
	if !m.Cached() {
		t.Fatal("expected refreshed credential to remain cached")
	}
}

func TestRunElevatedWrapsCommandAndFeedsSecret(t *testing.T) {
	runner := &recordingRunner{result: domain.ExecutionResult{Stdout: "root\n"}}
	m := newTestManager(&countingSecrets{}, runner, &fakeClock{now: time.Now()})

	result, err := m.RunElevated(context.Background(), "sudo whoami", "hunter2")
	if err != nil {
		t.Fatalf("RunElevated error: %v", err)
	}
	if result.Stdout != "root\n" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	spec := runner.specs[0]
	want := []string{"sudo", "-S", "-k", "-p", "", "/bin/sh", "-c", "whoami"}
	if len(spec.Argv) != len(want) {
		t.Fatalf("argv = %q, want %q", spec.Argv, want)
	}
	for i := range want {
		if spec.Argv[i] != want[i] {
			t.Fatalf("argv = %q, want %q", spec.Argv, want)
		}
	}
	if spec.Stdin != "hunter2\n" {
		t.Fatalf("stdin = %q", spec.Stdin)
	}
}

func TestRunElevatedKeepsSudoWithFlags(t *testing.T) {
	runner := &recordingRunner{}
	m := newTestManager(&countingSecrets{}, runner, &fakeClock{now: time.Now()})

	if _, err := m.RunElevated(context.Background(), "sudo -u postgres psql -c 'select 1'", "hunter2"); err != nil {
		t.Fatalf("RunElevated error: %v", err)
	}
	argv := runner.specs[0].Argv
	if got := argv[len(argv)-1]; got != "sudo -u postgres psql -c 'select 1'" {
		t.Fatalf("shell command = %q", got)
	}
}

func TestRunElevatedIncorrectSecretInvalidatesCache(t *testing.T) {
	secrets := &countingSecrets{secrets: []string{"wrong", "right"}}
	runner := &recordingRunner{result: domain.ExecutionResult{
		Stderr:   "Sorry, try again.\nsudo: 1 incorrect password attempt\n",
		ExitCode: 1,
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(secrets, runner, clock)

	secret, _ := m.Acquire(context.Background())
	_, err := m.RunElevated(context.Background(), "apt update", secret)
	var credErr *domain.CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialError, got %v", err)
	}
	if m.Cached() {
		t.Fatal("expected cache to be invalidated")
	}
	if got, _ := m.Acquire(context.Background()); got != "right" {
		t.Fatalf("expected fresh prompt, got %q", got)
	}
}

func TestRunElevatedCommandFailureKeepsCache(t *testing.T) {
	secrets := &countingSecrets{secrets: []string{"pw"}}
	runner := &recordingRunner{result: domain.ExecutionResult{Stderr: "E: not found", ExitCode: 100}}
	m := newTestManager(secrets, runner, &fakeClock{now: time.Unix(1_700_000_000, 0)})

	secret, _ := m.Acquire(context.Background())
	_, err := m.RunElevated(context.Background(), "apt install nothing", secret)
	var cmdErr *domain.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 100 {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if !m.Cached() {
		t.Fatal("command failure must not invalidate the credential")
	}
}

func TestElevationUnsupportedWithoutWrapper(t *testing.T) {
	m := NewManager(Options{Wrapper: []string{}, Runner: &recordingRunner{}})
	if _, err := m.Acquire(context.Background()); !errors.Is(err, domain.ErrElevationUnsupported) {
		t.Fatalf("expected ErrElevationUnsupported, got %v", err)
	}
	if _, err := m.RunElevated(context.Background(), "whoami", ""); !errors.Is(err, domain.ErrElevationUnsupported) {
		t.Fatalf("expected ErrElevationUnsupported, got %v", err)
	}
}

func TestAlreadyElevatedSkipsWrapper(t *testing.T) {
	secrets := &countingSecrets{}
	runner := &recordingRunner{}
	m := NewManager(Options{Secrets: secrets, Runner: runner, AlreadyElevated: true})

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RunElevated(context.Background(), "sudo id -u", ""); err != nil {
		t.Fatal(err)
	}
	if secrets.prompts != 0 {
		t.Fatal("root must not be prompted")
	}
	spec := runner.specs[0]
	if len(spec.Argv) != 0 || spec.Command != "id -u" || spec.Stdin != "" {
		t.Fatalf("unexpected spec %+v", spec)
	}
}

func TestStripElevationPrefix(t *testing.T) {
	tests := map[string]string{
		"sudo apt update":       "apt update",
		"  sudo  ls ":           "ls",
		"apt update":            "apt update",
		"sudoedit /etc/x":       "sudoedit /etc/x",
		"sudo -u postgres psql": "sudo -u postgres psql",
		"sudo  -E make install": "sudo  -E make install",
	}
	for in, want := range tests {
		if got := stripElevationPrefix(in); got != want {
			t.Errorf("stripElevationPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
