package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/askcmd/internal/application/session"
	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

const topLevelPrompt = ">> "

// SessionRunner runs one goal to completion.
type SessionRunner interface {
	Run(ctx context.Context, goal string) (session.Result, error)
}

// REPL is the top-level query loop.
type REPL struct {
	Lines    LineReader
	Sessions SessionRunner
	Renderer *Renderer
	Logger   ports.Logger
}

// Run reads goals until an exit token, Ctrl-C or end of input. Session errors
// are reported and the loop continues; only cancellation of ctx ends it early.
func (r *REPL) Run(ctx context.Context) error {
	r.Renderer.Banner()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.Lines.ReadLine(topLevelPrompt)
		if errors.Is(err, ErrInterrupt) || errors.Is(err, io.EOF) {
			r.Renderer.Warn("Exiting...")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		goal := strings.TrimSpace(line)
		if IsExitToken(goal) {
			r.Renderer.Warn("Exiting...")
			return nil
		}
		if goal == "" {
			r.Renderer.Error("Please enter a question.", nil)
			continue
		}

		if err := r.runOnce(ctx, goal); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				r.Renderer.Warn("Exiting...")
				return nil
			}
			r.Renderer.Error("Session ended unexpectedly", err)
		}
	}
}

// RunOnce runs a single goal; used by the one-shot ask command.
func (r *REPL) RunOnce(ctx context.Context, goal string) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return errors.New("question must not be empty")
	}
	return r.runOnce(ctx, goal)
}

func (r *REPL) runOnce(ctx context.Context, goal string) error {
	result, err := r.Sessions.Run(ctx, goal)
	if r.Logger != nil {
		r.Logger.Debug("session finished", map[string]interface{}{"result": session.Describe(result)})
	}
	return err
}

// IsExitToken reports whether input is one of the exit words, ignoring case.
func IsExitToken(input string) bool {
	for _, token := range domain.ExitTokens {
		if strings.EqualFold(input, token) {
			return true
		}
	}
	return false
}
