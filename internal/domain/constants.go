package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultProposalTimeout bounds one call to the proposal source
	DefaultProposalTimeout = 60 * time.Second
	// DefaultCommandTimeout bounds one command execution
	DefaultCommandTimeout = 10 * time.Minute
	// DefaultProbeTimeout is used for quick environment probes
	DefaultProbeTimeout = 2 * time.Second
)

// Proposal source defaults
const (
	DefaultProposalEndpoint = "https://xyevph4z54ojekrgfjnekkuxta0ddbkl.lambda-url.eu-central-1.on.aws/generate"
	DefaultProposalModel    = "claude-3-5-sonnet-20241022"
	DefaultTemperature      = 0.2
	// DefaultMaxTokens of -1 lets the proposal source decide
	DefaultMaxTokens = -1
)

// History constants
const (
	// DefaultHistoryLimit is the default number of journal records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
)

// Exit tokens accepted at the top-level prompt (case-insensitive).
var ExitTokens = []string{"exit", "quit", "q"}
