// Package config loads ~/.askcmd/config.yaml through viper.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/doeshing/askcmd/internal/application/config"
	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/pkg/filesystem"
	"github.com/doeshing/askcmd/internal/ports"
)

const (
	envPrefix     = "ASKCMD"
	envConfigPath = "ASKCMD_CONFIG"
	configVersion = "1"
)

// FileLoader loads YAML configuration from ~/.askcmd/config.yaml
// (overridable via ASKCMD_CONFIG or an explicit path).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Path returns the file the loader reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(envConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.AppDir(), "config.yaml")
}

// Load implements ports.ConfigProvider. A missing file is created from defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, fmt.Errorf("create config dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := writeDefault(path, DefaultConfig()); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg = hydrate(cfg)
	if err := appconfig.Validate(cfg); err != nil {
		return domain.Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults := DefaultConfig()

	v.SetDefault("config_format_version", defaults.ConfigFormatVersion)
	v.SetDefault("proposal.endpoint", defaults.Proposal.Endpoint)
	v.SetDefault("proposal.model", defaults.Proposal.Model)
	v.SetDefault("proposal.temperature", defaults.Proposal.Temperature)
	v.SetDefault("proposal.max_tokens", defaults.Proposal.MaxTokens)
	v.SetDefault("proposal.timeout_seconds", defaults.Proposal.TimeoutSeconds)
	v.SetDefault("proposal.auth_env_var", defaults.Proposal.AuthEnvVar)
	v.SetDefault("security.rules_file", defaults.Security.RulesFile)
	v.SetDefault("execution.shell", defaults.Execution.Shell)
	v.SetDefault("execution.timeout_seconds", defaults.Execution.TimeoutSeconds)
	v.SetDefault("execution.elevation_command", defaults.Execution.ElevationCommand)
	v.SetDefault("execution.incorrect_credential_patterns", defaults.Execution.IncorrectCredentialPatterns)
	v.SetDefault("journal.enabled", defaults.Journal.Enabled)
	v.SetDefault("journal.path", defaults.Journal.Path)
	v.SetDefault("ui.color", defaults.UI.Color)
	v.SetDefault("ui.history_file", defaults.UI.HistoryFile)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("proposal.endpoint", "ASKCMD_PROPOSAL_ENDPOINT", "API_URL")
	return v
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: configVersion,
		Proposal: domain.ProposalSettings{
			Endpoint:       domain.DefaultProposalEndpoint,
			Model:          domain.DefaultProposalModel,
			Temperature:    domain.DefaultTemperature,
			MaxTokens:      domain.DefaultMaxTokens,
			TimeoutSeconds: int(domain.DefaultProposalTimeout.Seconds()),
		},
		Security: domain.SecuritySettings{
			RulesFile: "~/.askcmd/guardrail.yaml",
		},
		Execution: domain.ExecutionSettings{
			Shell:                       "auto",
			TimeoutSeconds:              int(domain.DefaultCommandTimeout.Seconds()),
			ElevationCommand:            []string{"sudo", "-S", "-k", "-p", ""},
			IncorrectCredentialPatterns: []string{"incorrect password", "sorry, try again"},
		},
		Journal: domain.JournalSettings{
			Enabled: false,
			Path:    "~/.askcmd/history/history.db",
		},
		UI: domain.UISettings{
			Color:       "auto",
			HistoryFile: "",
		},
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg domain.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

func hydrate(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = configVersion
	}
	cfg.Security.RulesFile = filesystem.ExpandPath(cfg.Security.RulesFile)
	cfg.Journal.Path = filesystem.ExpandPath(cfg.Journal.Path)
	cfg.UI.HistoryFile = filesystem.ExpandPath(cfg.UI.HistoryFile)
	cfg.UI.Color = strings.ToLower(cfg.UI.Color)
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
