package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInterrupted is returned when the user interrupts a running command.
	ErrInterrupted = errors.New("command interrupted")
	// ErrElevationUnsupported is returned when no elevation mechanism exists for the platform.
	ErrElevationUnsupported = errors.New("privilege elevation not supported on this platform")
)

// ValidationError rejects a command before it runs.
type ValidationError struct {
	Command string
	Reason  string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Reason
}

// DangerDeclinedError records that the user refused a flagged command.
type DangerDeclinedError struct {
	Command  string
	Keywords []string
}

func (e *DangerDeclinedError) Error() string {
	return fmt.Sprintf("dangerous operation declined (%s)", strings.Join(e.Keywords, ", "))
}

// CredentialError means elevation failed because the secret was wrong.
type CredentialError struct {
	ExitCode int
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("incorrect elevation credential (exit %d)", e.ExitCode)
}

// CommandError means the process ran and exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command exited with code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command exited with code %d", e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ProposalSourceError wraps any failure talking to the proposal source.
type ProposalSourceError struct {
	StatusCode int
	Err        error
}

func (e *ProposalSourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("proposal source returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("proposal source: %v", e.Err)
}

func (e *ProposalSourceError) Unwrap() error {
	return e.Err
}
