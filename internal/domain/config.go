package domain

// Config mirrors ~/.askcmd/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version" mapstructure:"config_format_version"`
	Proposal            ProposalSettings  `yaml:"proposal" mapstructure:"proposal"`
	Security            SecuritySettings  `yaml:"security" mapstructure:"security"`
	Execution           ExecutionSettings `yaml:"execution" mapstructure:"execution"`
	Journal             JournalSettings   `yaml:"journal" mapstructure:"journal"`
	UI                  UISettings        `yaml:"ui" mapstructure:"ui"`
}

// ProposalSettings configures the remote proposal source.
type ProposalSettings struct {
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint"`
	Model          string  `yaml:"model" mapstructure:"model"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	AuthEnvVar     string  `yaml:"auth_env_var" mapstructure:"auth_env_var"`
}

// SecuritySettings points at the optional danger rules file.
type SecuritySettings struct {
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell                       string   `yaml:"shell" mapstructure:"shell"`
	TimeoutSeconds              int      `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	ElevationCommand            []string `yaml:"elevation_command" mapstructure:"elevation_command"`
	IncorrectCredentialPatterns []string `yaml:"incorrect_credential_patterns" mapstructure:"incorrect_credential_patterns"`
}

// JournalSettings controls the execution journal.
type JournalSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// UISettings controls the terminal surface.
type UISettings struct {
	Color string `yaml:"color" mapstructure:"color"`

	// HistoryFile persists typed goals across runs; empty keeps them in memory.
	HistoryFile string `yaml:"history_file" mapstructure:"history_file"`
}
