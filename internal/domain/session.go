package domain

// SessionState is the working memory of one natural-language goal.
// History is append-only until the session is cleared.
type SessionState struct {
	ID      string
	Goal    string
	History []string
	// LastResult is nil until a command has actually run.
	LastResult *ExecutionResult
	// LastNote explains why the most recent command produced no result.
	LastNote string
}

// NewSessionState starts a session for goal.
func NewSessionState(id, goal string) *SessionState {
	return &SessionState{ID: id, Goal: goal}
}

// Record appends an attempted command to the history.
func (s *SessionState) Record(command string) {
	s.History = append(s.History, command)
}

// Observe folds an executor outcome into the session.
func (s *SessionState) Observe(outcome Outcome) {
	if outcome.Result != nil {
		result := *outcome.Result
		s.LastResult = &result
		s.LastNote = ""
		return
	}
	s.LastResult = nil
	if outcome.Err != nil {
		s.LastNote = outcome.Err.Error()
	}
}

// LastCommand returns the most recently attempted command.
func (s *SessionState) LastCommand() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1]
}

// Tried returns a copy of the history.
func (s *SessionState) Tried() []string {
	out := make([]string, len(s.History))
	copy(out, s.History)
	return out
}

// Clear drops history and observations.
func (s *SessionState) Clear() {
	s.History = nil
	s.LastResult = nil
	s.LastNote = ""
}

// FeedbackRequest carries what the proposal source needs to revise a proposal.
type FeedbackRequest struct {
	Goal        string
	LastCommand string
	Tried       []string
	Output      string
	// ExitCode is meaningful only when Executed is true.
	ExitCode int
	Executed bool
	Note     string
}

// Feedback snapshots the session for a retry query.
func (s *SessionState) Feedback() FeedbackRequest {
	req := FeedbackRequest{
		Goal:        s.Goal,
		LastCommand: s.LastCommand(),
		Tried:       s.Tried(),
		Note:        s.LastNote,
	}
	if s.LastResult != nil {
		req.Executed = true
		req.ExitCode = s.LastResult.ExitCode
		req.Output = s.LastResult.FeedbackText()
	}
	return req
}
