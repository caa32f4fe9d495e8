// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The session orchestrator depends only on these
// interfaces, so a scripted harness can stand in for the terminal, the proposal
// source and the host processes.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., ProposalSource, CommandExecutor)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Suspension points: every interactive question goes through Prompter
package ports

import (
	"context"
	"time"

	"github.com/doeshing/askcmd/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.askcmd/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ProposalSource turns a natural-language query into a structured proposal.
type ProposalSource interface {
	Propose(ctx context.Context, query string) (domain.CommandProposal, error)
	// Revise asks again with the failure context of a session.
	Revise(ctx context.Context, feedback domain.FeedbackRequest) (domain.CommandProposal, error)
}

// SystemInfoCollector detects host details for the proposal system context.
type SystemInfoCollector interface {
	Collect(context.Context) domain.SystemInfo
}

// SafetyValidator performs static checks on a command string.
type SafetyValidator interface {
	// Validate returns ok=false and the first matching reason for a rejected command.
	Validate(command string) (bool, string)
	// ScanDangerous returns the dangerous keywords found in command. It never rejects.
	ScanDangerous(command string) []string
}

// ProcessSpec describes one process launch.
type ProcessSpec struct {
	Command string
	// Shell forces the shell-capable path even without pipe/redirect tokens.
	Shell bool
	// Argv, when set, is launched directly and Command is only informational.
	Argv  []string
	Stdin string
}

// ProcessRunner launches host processes and captures their output.
// A non-zero exit is reported through ExecutionResult.ExitCode with a nil error.
type ProcessRunner interface {
	Run(ctx context.Context, spec ProcessSpec) (domain.ExecutionResult, error)
}

// PrivilegeManager owns the cached elevation credential.
type PrivilegeManager interface {
	Acquire(ctx context.Context) (string, error)
	Invalidate()
	RunElevated(ctx context.Context, command string, secret string) (domain.ExecutionResult, error)
}

// CommandExecutor validates, confirms and runs a single command.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, sudoRequired, isDangerous bool) (domain.Outcome, error)
}

// Prompter is the suspension point for every interactive question.
// A scripted implementation can replace the terminal in tests.
type Prompter interface {
	// Choose asks until one of choices is given; empty input selects def.
	Choose(ctx context.Context, question string, choices []string, def string) (string, error)
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

// SecretReader reads a secret without echoing it.
type SecretReader interface {
	ReadSecret(prompt string) (string, error)
}

// Presenter renders session events for the user.
type Presenter interface {
	ShowProposal(domain.CommandProposal)
	ShowHelp(domain.CommandProposal)
	ShowExecuting(index, total int, command string)
	ShowDanger(command string, keywords []string)
	ShowResult(domain.Outcome)
	Notice(msg string)
	Warn(msg string)
	Error(msg string, err error)
	// Busy starts a cosmetic activity indicator and returns its stop function.
	Busy(label string) func()
}

// Journal persists executed commands for later inspection.
type Journal interface {
	Save(domain.JournalRecord) error
	Records(limit int, search string) ([]domain.JournalRecord, error)
	Clear() error
	ExportJSON(dest string) error
	Path() string
}

// Clock returns the current time.
type Clock func() time.Time

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
