// Package session drives one natural-language goal from proposal to
// completion: confirm, execute each command in order, and feed failures back
// to the proposal source when the user asks for a retry.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

// Status is how a session ended.
type Status int

const (
	// StatusDone means every command succeeded and the user chose done.
	StatusDone Status = iota
	// StatusDeclined means the user did not execute the proposal.
	StatusDeclined
	// StatusAborted means the user aborted mid-list; history was cleared.
	StatusAborted
	// StatusIssues means the list ran to its end with at least one failure.
	StatusIssues
	// StatusSourceFailed means the proposal source could not answer.
	StatusSourceFailed
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusDeclined:
		return "declined"
	case StatusAborted:
		return "aborted"
	case StatusIssues:
		return "issues"
	case StatusSourceFailed:
		return "source_failed"
	default:
		return "unknown"
	}
}

// Prompt texts and choices.
const (
	QuestionExecute  = "Execute these commands?"
	QuestionFailure  = "Command failed. What would you like to do?"
	QuestionResume   = "Continue with remaining commands?"
	QuestionFinished = "All commands completed. Done, or retry with feedback? (d: done, r: retry)"

	ChoiceYes      = "y"
	ChoiceNo       = "n"
	ChoiceHelp     = "?"
	ChoiceContinue = "continue"
	ChoiceRetry    = "retry"
	ChoiceAbort    = "abort"
	ChoiceDone     = "d"
	ChoiceRevise   = "r"
)

// Result summarises a finished session.
type Result struct {
	Status  Status
	Session *domain.SessionState
}

// Service is the session loop and retry orchestrator.
type Service struct {
	Source    ports.ProposalSource
	Executor  ports.CommandExecutor
	Prompter  ports.Prompter
	Presenter ports.Presenter
	Logger    ports.Logger
	// Journal is optional; when set every executor outcome is recorded.
	Journal ports.Journal
	Clock   ports.Clock
	NewID   func() string
	// InterruptScope derives the context a single command runs under. The
	// default cancels it on os.Interrupt.
	InterruptScope func(context.Context) (context.Context, context.CancelFunc)
}

// Run executes one goal. The returned error is reserved for prompt I/O
// failures and cancellation of ctx; everything else is reported through the
// Presenter and summarised in Result.
func (s *Service) Run(ctx context.Context, goal string) (Result, error) {
	if s.Source == nil || s.Executor == nil || s.Prompter == nil || s.Presenter == nil || s.Logger == nil {
		return Result{}, errors.New("session.Service dependencies not satisfied")
	}

	state := domain.NewSessionState(s.newID(), goal)
	result := Result{Session: state}
	s.Logger.Debug("session started", map[string]interface{}{"session_id": state.ID})

	proposal, err := s.ask(ctx, func(ctx context.Context) (domain.CommandProposal, error) {
		return s.Source.Propose(ctx, goal)
	})
	if err != nil {
		return s.sourceFailure(ctx, result, err)
	}

	for {
		s.Presenter.ShowProposal(proposal)

		execute, err := s.confirm(ctx, proposal)
		if err != nil {
			return result, err
		}
		if !execute {
			result.Status = StatusDeclined
			return result, nil
		}

		next, status, err := s.executeAll(ctx, state, proposal)
		if err != nil {
			return result, err
		}
		if next == nil {
			result.Status = status
			return result, nil
		}
		proposal = *next
	}
}

// confirm loops on the y/n/? question until the user answers y or n.
func (s *Service) confirm(ctx context.Context, proposal domain.CommandProposal) (bool, error) {
	for {
		choice, err := s.Prompter.Choose(ctx, QuestionExecute, []string{ChoiceYes, ChoiceNo, ChoiceHelp}, ChoiceNo)
		if err != nil {
			return false, err
		}
		switch choice {
		case ChoiceHelp:
			s.Presenter.ShowHelp(proposal)
		case ChoiceYes:
			return true, nil
		default:
			return false, nil
		}
	}
}

// executeAll runs every command of proposal. It returns a revised proposal
// when the user asked for a retry, otherwise the final status.
func (s *Service) executeAll(ctx context.Context, state *domain.SessionState, proposal domain.CommandProposal) (*domain.CommandProposal, Status, error) {
	s.Presenter.Notice("Starting command execution...")
	total := len(proposal.Commands)
	hadFailure := false

	for i, command := range proposal.Commands {
		state.Record(command)
		s.Presenter.ShowExecuting(i+1, total, command)

		runCtx, stop := s.interruptScope(ctx)
		outcome, err := s.Executor.Execute(runCtx, command, proposal.SudoRequired, proposal.Dangerous)
		stop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}

		if errors.Is(err, domain.ErrInterrupted) {
			state.Observe(outcome)
			s.journal(state, command, proposal, outcome)
			s.Presenter.Warn("Command interrupted.")
			resume, err := s.Prompter.Confirm(ctx, QuestionResume, false)
			if err != nil {
				return nil, 0, err
			}
			if !resume {
				state.Clear()
				s.Presenter.Warn("Execution aborted by user.")
				return nil, StatusAborted, nil
			}
			hadFailure = true
			continue
		}
		if err != nil {
			return nil, 0, err
		}

		state.Observe(outcome)
		s.journal(state, command, proposal, outcome)
		s.Presenter.ShowResult(outcome)
		if outcome.Success() {
			continue
		}

		hadFailure = true
		action, err := s.Prompter.Choose(ctx, QuestionFailure, []string{ChoiceContinue, ChoiceRetry, ChoiceAbort}, ChoiceAbort)
		if err != nil {
			return nil, 0, err
		}
		switch action {
		case ChoiceRetry:
			return s.revise(ctx, state)
		case ChoiceContinue:
			continue
		default:
			state.Clear()
			s.Presenter.Warn("Execution aborted by user.")
			return nil, StatusAborted, nil
		}
	}

	if hadFailure {
		s.Presenter.Warn("Some commands encountered issues.")
		return nil, StatusIssues, nil
	}

	s.Presenter.Notice("All commands executed successfully.")
	choice, err := s.Prompter.Choose(ctx, QuestionFinished, []string{ChoiceDone, ChoiceRevise}, ChoiceDone)
	if err != nil {
		return nil, 0, err
	}
	if choice == ChoiceRevise {
		return s.revise(ctx, state)
	}
	return nil, StatusDone, nil
}

// revise sends the feedback query built from state. A source failure ends the
// session so the user can start over at the top-level prompt.
func (s *Service) revise(ctx context.Context, state *domain.SessionState) (*domain.CommandProposal, Status, error) {
	feedback := state.Feedback()
	s.Logger.Debug("requesting revision", map[string]interface{}{
		"session_id": state.ID,
		"tried":      len(feedback.Tried),
		"executed":   feedback.Executed,
		"exit_code":  feedback.ExitCode,
	})
	proposal, err := s.ask(ctx, func(ctx context.Context) (domain.CommandProposal, error) {
		return s.Source.Revise(ctx, feedback)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		s.Presenter.Error("Could not get a revised proposal", err)
		return nil, StatusSourceFailed, nil
	}
	return &proposal, 0, nil
}

func (s *Service) ask(ctx context.Context, call func(context.Context) (domain.CommandProposal, error)) (domain.CommandProposal, error) {
	stop := s.Presenter.Busy("Thinking...")
	defer stop()
	return call(ctx)
}

func (s *Service) sourceFailure(ctx context.Context, result Result, err error) (Result, error) {
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	s.Logger.Warn("proposal source failed", map[string]interface{}{"error": err.Error()})
	s.Presenter.Error("Could not get a proposal", err)
	result.Status = StatusSourceFailed
	return result, nil
}

func (s *Service) journal(state *domain.SessionState, command string, proposal domain.CommandProposal, outcome domain.Outcome) {
	if s.Journal == nil {
		return
	}
	record := domain.JournalRecord{
		Timestamp:    s.now(),
		SessionID:    state.ID,
		Goal:         state.Goal,
		Command:      command,
		Outcome:      outcome.Kind.String(),
		SudoRequired: proposal.SudoRequired,
		Dangerous:    proposal.Dangerous,
	}
	if outcome.Result != nil {
		record.ExitCode = outcome.Result.ExitCode
		record.DurationMS = outcome.Result.DurationMS
	}
	if err := s.Journal.Save(record); err != nil {
		s.Logger.Warn("journal save failed", map[string]interface{}{"error": err.Error(), "path": s.Journal.Path()})
	}
}

func (s *Service) interruptScope(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.InterruptScope != nil {
		return s.InterruptScope(ctx)
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Describe renders a one-line summary of result for logs.
func Describe(result Result) string {
	if result.Session == nil {
		return result.Status.String()
	}
	return fmt.Sprintf("%s (%d commands tried)", result.Status, len(result.Session.History))
}
