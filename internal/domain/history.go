package domain

import "time"

// JournalRecord captures one executed (or rejected) command for auditing.
// Journal records are never read back into a session.
type JournalRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Goal         string    `json:"goal"`
	Command      string    `json:"command"`
	Outcome      string    `json:"outcome"`
	ExitCode     int       `json:"exit_code"`
	SudoRequired bool      `json:"sudo_required"`
	Dangerous    bool      `json:"dangerous"`
	DurationMS   int64     `json:"duration_ms"`
}
