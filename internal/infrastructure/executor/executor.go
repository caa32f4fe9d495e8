package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

const dangerQuestion = "Are you absolutely sure you want to proceed?"

// Executor runs one proposed command: validate, confirm danger, elevate if
// required, run, classify.
type Executor struct {
	Validator ports.SafetyValidator
	Runner    ports.ProcessRunner
	Privilege ports.PrivilegeManager
	Prompter  ports.Prompter
	Presenter ports.Presenter
	Logger    ports.Logger
	// Timeout bounds a single run; zero means no bound beyond ctx.
	Timeout time.Duration
}

// Execute implements ports.CommandExecutor. A Rejected outcome has a nil
// result; a Failed outcome carries the captured output. The error return is
// reserved for interruption (domain.ErrInterrupted) and prompt failures.
func (e *Executor) Execute(ctx context.Context, command string, sudoRequired, isDangerous bool) (domain.Outcome, error) {
	if e.Validator == nil || e.Runner == nil || e.Prompter == nil || e.Presenter == nil || e.Logger == nil {
		return domain.Outcome{}, errors.New("executor.Executor dependencies not satisfied")
	}

	if ok, reason := e.Validator.Validate(command); !ok {
		e.Logger.Warn("command rejected", map[string]interface{}{"command": command, "reason": reason})
		return domain.Rejected(&domain.ValidationError{Command: command, Reason: reason}), nil
	}

	if keywords := e.Validator.ScanDangerous(command); len(keywords) > 0 && !isDangerous {
		e.Logger.Info("dangerous keywords detected", map[string]interface{}{"keywords": keywords})
		e.Presenter.ShowDanger(command, keywords)
		proceed, err := e.Prompter.Confirm(ctx, dangerQuestion, false)
		if err != nil {
			return domain.Outcome{}, err
		}
		if !proceed {
			return domain.Rejected(&domain.DangerDeclinedError{Command: command, Keywords: keywords}), nil
		}
	}

	var secret string
	if sudoRequired {
		if e.Privilege == nil {
			return domain.Rejected(domain.ErrElevationUnsupported), nil
		}
		// Ask for the credential before the busy indicator starts.
		s, err := e.Privilege.Acquire(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrElevationUnsupported) {
				return domain.Rejected(err), nil
			}
			if errors.Is(err, domain.ErrInterrupted) {
				return domain.Rejected(err), err
			}
			return domain.Outcome{}, err
		}
		secret = s
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	stop := e.Presenter.Busy("Executing command...")
	var (
		result domain.ExecutionResult
		err    error
	)
	if sudoRequired {
		result, err = e.Privilege.RunElevated(runCtx, command, secret)
	} else {
		result, err = e.Runner.Run(runCtx, ports.ProcessSpec{Command: command})
	}
	stop()

	return e.classify(ctx, command, result, err)
}

func (e *Executor) classify(ctx context.Context, command string, result domain.ExecutionResult, err error) (domain.Outcome, error) {
	fields := map[string]interface{}{"command": command, "exit_code": result.ExitCode, "duration_ms": result.DurationMS}

	if err != nil {
		var (
			credErr *domain.CredentialError
			cmdErr  *domain.CommandError
		)
		switch {
		case ctx.Err() != nil:
			e.Logger.Warn("command interrupted", fields)
			return domain.Failed(result, domain.ErrInterrupted), domain.ErrInterrupted
		case errors.Is(err, context.DeadlineExceeded):
			e.Logger.Warn("command timed out", fields)
			return domain.Failed(result, &domain.CommandError{
				Command:  command,
				ExitCode: result.ExitCode,
				Err:      fmt.Errorf("timed out after %s", e.Timeout),
			}), nil
		case errors.Is(err, ErrUnparsable):
			e.Logger.Warn("command rejected", map[string]interface{}{"command": command, "error": err.Error()})
			return domain.Rejected(&domain.ValidationError{Command: command, Reason: err.Error()}), nil
		case errors.As(err, &credErr):
			e.Logger.Warn("elevation credential rejected", fields)
			return domain.Failed(result, credErr), nil
		case errors.As(err, &cmdErr):
			e.Logger.Info("command failed", fields)
			return domain.Failed(result, cmdErr), nil
		default:
			e.Logger.Error("command launch failed", err, fields)
			if result.ExitCode == 0 {
				result.ExitCode = -1
			}
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
			return domain.Failed(result, &domain.CommandError{Command: command, ExitCode: result.ExitCode, Err: err}), nil
		}
	}

	if result.ExitCode != 0 {
		e.Logger.Info("command failed", fields)
		return domain.Failed(result, &domain.CommandError{Command: command, ExitCode: result.ExitCode}), nil
	}
	e.Logger.Debug("command succeeded", fields)
	return domain.Succeeded(result), nil
}

var _ ports.CommandExecutor = (*Executor)(nil)
