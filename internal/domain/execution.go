package domain

import "strings"

// ExecutionResult is what one command run produced.
type ExecutionResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMS int64
}

// FeedbackText renders the captured streams the way they are sent back to
// the proposal source.
func (r ExecutionResult) FeedbackText() string {
	var b strings.Builder
	b.WriteString("STDOUT:\n")
	b.WriteString(r.Stdout)
	b.WriteString("\nSTDERR:\n")
	b.WriteString(r.Stderr)
	return b.String()
}

// OutcomeKind tags the result of one Executor call.
type OutcomeKind int

const (
	// OutcomeSucceeded means the command ran and exited with 0.
	OutcomeSucceeded OutcomeKind = iota
	// OutcomeRejected means the command never ran; Result is nil.
	OutcomeRejected
	// OutcomeFailed means the command ran and failed; Result holds its output.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of executing a single command.
type Outcome struct {
	Kind   OutcomeKind
	Result *ExecutionResult
	// Err classifies rejections and failures (ValidationError,
	// DangerDeclinedError, CredentialError, CommandError).
	Err error
}

// Success mirrors the boolean half of the executor contract.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSucceeded
}

// Succeeded builds a success outcome.
func Succeeded(result ExecutionResult) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Result: &result}
}

// Rejected builds an outcome for a command that never ran.
func Rejected(err error) Outcome {
	return Outcome{Kind: OutcomeRejected, Err: err}
}

// Failed builds an outcome for a command that ran and failed.
func Failed(result ExecutionResult, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Result: &result, Err: err}
}
