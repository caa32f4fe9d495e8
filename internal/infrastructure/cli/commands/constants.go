package commands

// AnnotationConfig on a command tells the root how much of the container it
// needs. Commands without it require a valid configuration.
const (
	AnnotationConfig = "askcmd/config"
	ConfigOptional   = "optional"
	ConfigNone       = "none"
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrJournalDisabled          = "journal disabled; set journal.enabled: true in the config file"
	ErrGuardrailUnavailable     = "danger rules unavailable"
	ErrRulesFileNotConfigured   = "security.rules_file is not set"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgNoHistoryRecorded  = "No history recorded yet."
	MsgHistoryCleared     = "History cleared."
)
