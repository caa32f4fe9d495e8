package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/infrastructure/ai"
	"github.com/doeshing/askcmd/internal/pkg/logger"
)

type fakeSource struct {
	proposals []domain.CommandProposal
	err       error
	queries   []string
	feedbacks []domain.FeedbackRequest
}

func (f *fakeSource) next() (domain.CommandProposal, error) {
	if f.err != nil {
		return domain.CommandProposal{}, f.err
	}
	if len(f.proposals) == 0 {
		return domain.CommandProposal{}, errors.New("no more proposals")
	}
	p := f.proposals[0]
	f.proposals = f.proposals[1:]
	return p, nil
}

func (f *fakeSource) Propose(_ context.Context, query string) (domain.CommandProposal, error) {
	f.queries = append(f.queries, query)
	return f.next()
}

func (f *fakeSource) Revise(_ context.Context, feedback domain.FeedbackRequest) (domain.CommandProposal, error) {
	f.feedbacks = append(f.feedbacks, feedback)
	f.queries = append(f.queries, ai.BuildFeedbackQuery(feedback))
	return f.next()
}

type execCall struct {
	command                 string
	sudoRequired, dangerous bool
}

type fakeExecutor struct {
	outcomes map[string]domain.Outcome
	errs     map[string]error
	calls    []execCall
}

func (f *fakeExecutor) Execute(_ context.Context, command string, sudoRequired, isDangerous bool) (domain.Outcome, error) {
	f.calls = append(f.calls, execCall{command, sudoRequired, isDangerous})
	if err := f.errs[command]; err != nil {
		return f.outcomes[command], err
	}
	if outcome, ok := f.outcomes[command]; ok {
		return outcome, nil
	}
	return domain.Succeeded(domain.ExecutionResult{Stdout: command + "\n"}), nil
}

type scriptedPrompter struct {
	answers   []string
	questions []string
}

func (p *scriptedPrompter) pop(question, def string) (string, error) {
	p.questions = append(p.questions, question)
	if len(p.answers) == 0 {
		return def, nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (p *scriptedPrompter) Choose(_ context.Context, question string, _ []string, def string) (string, error) {
	return p.pop(question, def)
}

func (p *scriptedPrompter) Confirm(_ context.Context, question string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	answer, err := p.pop(question, d)
	return answer == "y", err
}

type recordingPresenter struct {
	proposals int
	helps     int
	results   []domain.Outcome
	notices   []string
	warnings  []string
	errors    []error
}

func (p *recordingPresenter) ShowProposal(domain.CommandProposal) { p.proposals++ }
func (p *recordingPresenter) ShowHelp(domain.CommandProposal)     { p.helps++ }
func (p *recordingPresenter) ShowExecuting(int, int, string)      {}
func (p *recordingPresenter) ShowDanger(string, []string)         {}
func (p *recordingPresenter) Notice(msg string)                   { p.notices = append(p.notices, msg) }
func (p *recordingPresenter) Warn(msg string)                     { p.warnings = append(p.warnings, msg) }
func (p *recordingPresenter) Error(_ string, err error)           { p.errors = append(p.errors, err) }
func (p *recordingPresenter) Busy(string) func()                  { return func() {} }

func (p *recordingPresenter) ShowResult(outcome domain.Outcome) {
	p.results = append(p.results, outcome)
}

type memoryJournal struct{ records []domain.JournalRecord }

func (m *memoryJournal) Save(r domain.JournalRecord) error {
	m.records = append(m.records, r)
	return nil
}

func (m *memoryJournal) Records(int, string) ([]domain.JournalRecord, error) {
	return m.records, nil
}

func (m *memoryJournal) Clear() error {
	m.records = nil
	return nil
}

func (m *memoryJournal) ExportJSON(string) error { return nil }
func (m *memoryJournal) Path() string            { return "memory" }

type harness struct {
	source    *fakeSource
	executor  *fakeExecutor
	prompter  *scriptedPrompter
	presenter *recordingPresenter
	journal   *memoryJournal
	service   *Service
}

func newHarness(proposals []domain.CommandProposal, answers ...string) *harness {
	h := &harness{
		source:    &fakeSource{proposals: proposals},
		executor:  &fakeExecutor{outcomes: map[string]domain.Outcome{}, errs: map[string]error{}},
		prompter:  &scriptedPrompter{answers: answers},
		presenter: &recordingPresenter{},
		journal:   &memoryJournal{},
	}
	h.service = &Service{
		Source:    h.source,
		Executor:  h.executor,
		Prompter:  h.prompter,
		Presenter: h.presenter,
		Logger:    logger.Nop{},
		Journal:   h.journal,
		NewID:     func() string { return "session-1" },
		InterruptScope: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
	}
	return h
}

func proposalOf(commands ...string) domain.CommandProposal {
	return domain.CommandProposal{Commands: commands}
}

func failed(code int) domain.Outcome {
	return domain.Failed(domain.ExecutionResult{Stderr: "boom\n", ExitCode: code}, &domain.CommandError{ExitCode: code})
}

func TestRunAllSucceedDone(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("echo hello", "echo bye")}, "y", "d")

	result, err := h.service.Run(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != StatusDone {
		t.Fatalf("expected done, got %s", result.Status)
	}
	if len(h.executor.calls) != 2 || h.executor.calls[0].command != "echo hello" || h.executor.calls[1].command != "echo bye" {
		t.Fatalf("commands not executed in order: %+v", h.executor.calls)
	}
	if got := result.Session.Tried(); len(got) != 2 {
		t.Fatalf("expected both commands in history, got %v", got)
	}
	if len(h.journal.records) != 2 || h.journal.records[0].SessionID != "session-1" {
		t.Fatalf("expected journal records, got %+v", h.journal.records)
	}
	if h.source.queries[0] != "say hello" {
		t.Fatalf("unexpected first query %q", h.source.queries[0])
	}
}

func TestRunDeclineDefaultsToNo(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("ls")})

	result, err := h.service.Run(context.Background(), "list")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != StatusDeclined || len(h.executor.calls) != 0 {
		t.Fatalf("expected declined without execution, got %s and %d calls", result.Status, len(h.executor.calls))
	}
}

func TestRunHelpThenExecute(t *testing.T) {
	p := proposalOf("ls")
	p.Description = "list"
	h := newHarness([]domain.CommandProposal{p}, "?", "?", "y", "d")

	if _, err := h.service.Run(context.Background(), "list"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if h.presenter.helps != 2 || len(h.executor.calls) != 1 {
		t.Fatalf("expected two help views then execution, got helps=%d calls=%d", h.presenter.helps, len(h.executor.calls))
	}
}

func TestRunPassesProposalFlagsToExecutor(t *testing.T) {
	p := proposalOf("apt update")
	p.SudoRequired = true
	p.Dangerous = true
	h := newHarness([]domain.CommandProposal{p}, "y", "d")

	if _, err := h.service.Run(context.Background(), "update"); err != nil {
		t.Fatal(err)
	}
	call := h.executor.calls[0]
	if !call.sudoRequired || !call.dangerous {
		t.Fatalf("flags not forwarded: %+v", call)
	}
}

func TestRunFailureRetrySendsFeedback(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("false"), proposalOf("true")}, "y", "retry", "y", "d")
	h.executor.outcomes["false"] = failed(1)

	result, err := h.service.Run(context.Background(), "fail on purpose")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != StatusDone {
		t.Fatalf("expected done after retry, got %s", result.Status)
	}
	if len(h.source.feedbacks) != 1 {
		t.Fatalf("expected one revision, got %d", len(h.source.feedbacks))
	}
	query := h.source.queries[1]
	for _, want := range []string{"`false`", "ReturnCode: 1", "fail on purpose"} {
		if !strings.Contains(query, want) {
			t.Fatalf("feedback query missing %q:\n%s", want, query)
		}
	}
	if got := result.Session.Tried(); len(got) != 2 || got[0] != "false" || got[1] != "true" {
		t.Fatalf("history should span retries, got %v", got)
	}
	if h.presenter.proposals != 2 {
		t.Fatalf("expected revised proposal to be shown, got %d", h.presenter.proposals)
	}
}

func TestRunFailureDefaultAborts(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("false", "echo never")}, "y")
	h.executor.outcomes["false"] = failed(1)

	result, err := h.service.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusAborted {
		t.Fatalf("expected aborted, got %s", result.Status)
	}
	if len(h.executor.calls) != 1 {
		t.Fatalf("remaining commands must not run, got %d calls", len(h.executor.calls))
	}
	if len(result.Session.History) != 0 {
		t.Fatal("abort must clear history")
	}
}

func TestRunFailureContinueRunsRemaining(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("false", "echo after")}, "y", "continue")
	h.executor.outcomes["false"] = failed(1)

	result, err := h.service.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusIssues {
		t.Fatalf("expected issues, got %s", result.Status)
	}
	if len(h.executor.calls) != 2 {
		t.Fatalf("expected remaining command to run, got %d calls", len(h.executor.calls))
	}
	if last := h.presenter.warnings[len(h.presenter.warnings)-1]; last != "Some commands encountered issues." {
		t.Fatalf("unexpected final warning %q", last)
	}
}

func TestRunRejectedCommandFeedsNote(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("./setup.sh"), proposalOf("sh setup.sh")}, "y", "retry", "n")
	h.executor.outcomes["./setup.sh"] = domain.Rejected(&domain.ValidationError{Command: "./setup.sh", Reason: "Direct script execution not allowed"})

	if _, err := h.service.Run(context.Background(), "run setup"); err != nil {
		t.Fatal(err)
	}
	feedback := h.source.feedbacks[0]
	if feedback.Executed || !strings.Contains(feedback.Note, "Direct script execution not allowed") {
		t.Fatalf("unexpected feedback %+v", feedback)
	}
	if !strings.Contains(h.source.queries[1], "ReturnCode: n/a") {
		t.Fatalf("expected n/a return code:\n%s", h.source.queries[1])
	}
}

func TestRunSuccessRetryWithFeedback(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("ls"), proposalOf("ls -la")}, "y", "r", "y", "d")

	result, err := h.service.Run(context.Background(), "show everything")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusDone || len(h.source.feedbacks) != 1 {
		t.Fatalf("expected one revision then done, got %s / %d", result.Status, len(h.source.feedbacks))
	}
	fb := h.source.feedbacks[0]
	if !fb.Executed || fb.ExitCode != 0 || fb.LastCommand != "ls" || !strings.Contains(fb.Output, "STDOUT:\nls\n") {
		t.Fatalf("unexpected feedback %+v", fb)
	}
}

func TestRunInterruptDeclinedAborts(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("sleep 100", "echo later")}, "y", "n")
	h.executor.outcomes["sleep 100"] = domain.Failed(domain.ExecutionResult{ExitCode: -1}, domain.ErrInterrupted)
	h.executor.errs["sleep 100"] = domain.ErrInterrupted

	result, err := h.service.Run(context.Background(), "wait")
	if err != nil {
		t.Fatalf("interrupt must not end the process: %v", err)
	}
	if result.Status != StatusAborted || len(h.executor.calls) != 1 {
		t.Fatalf("expected aborted after one call, got %s / %d", result.Status, len(h.executor.calls))
	}
	if h.prompter.questions[1] != QuestionResume {
		t.Fatalf("expected resume question, got %q", h.prompter.questions[1])
	}
}

func TestRunInterruptResumed(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("sleep 100", "echo later")}, "y", "y")
	h.executor.outcomes["sleep 100"] = domain.Failed(domain.ExecutionResult{ExitCode: -1}, domain.ErrInterrupted)
	h.executor.errs["sleep 100"] = domain.ErrInterrupted

	result, err := h.service.Run(context.Background(), "wait")
	if err != nil {
		t.Fatal(err)
	}
	if len(h.executor.calls) != 2 || result.Status != StatusIssues {
		t.Fatalf("expected remaining command to run, got %d calls / %s", len(h.executor.calls), result.Status)
	}
}

func TestRunProposalSourceErrorIsReported(t *testing.T) {
	h := newHarness(nil)
	h.source.err = &domain.ProposalSourceError{StatusCode: 500}

	result, err := h.service.Run(context.Background(), "anything")
	if err != nil {
		t.Fatalf("source errors are not fatal: %v", err)
	}
	if result.Status != StatusSourceFailed || len(h.presenter.errors) != 1 {
		t.Fatalf("expected reported source failure, got %s / %v", result.Status, h.presenter.errors)
	}
}

func TestRunReviseFailureReturnsToTopLevel(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("false")}, "y", "retry")
	h.executor.outcomes["false"] = failed(2)

	result, err := h.service.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSourceFailed {
		t.Fatalf("expected source failure, got %s", result.Status)
	}
}

func TestRunPromptErrorPropagates(t *testing.T) {
	h := newHarness([]domain.CommandProposal{proposalOf("ls")})
	h.service.Prompter = failingPrompter{}

	if _, err := h.service.Run(context.Background(), "list"); err == nil {
		t.Fatal("expected prompt error")
	}
}

type failingPrompter struct{}

func (failingPrompter) Choose(context.Context, string, []string, string) (string, error) {
	return "", errors.New("stdin closed")
}

func (failingPrompter) Confirm(context.Context, string, bool) (bool, error) {
	return false, errors.New("stdin closed")
}
