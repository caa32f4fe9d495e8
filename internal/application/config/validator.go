package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/doeshing/askcmd/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validateProposal(cfg.Proposal); err != nil {
		return err
	}
	if err := validateExecution(cfg.Execution); err != nil {
		return err
	}
	if err := validateJournal(cfg.Journal); err != nil {
		return err
	}
	return validateUI(cfg.UI)
}

func validateProposal(p domain.ProposalSettings) error {
	if p.Endpoint == "" {
		return errors.New("proposal.endpoint must be set")
	}
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return fmt.Errorf("proposal.endpoint invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("proposal.endpoint must be an http(s) URL, got %s", p.Endpoint)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("proposal.temperature must be within [0, 2], got %v", p.Temperature)
	}
	if p.TimeoutSeconds < 0 {
		return errors.New("proposal.timeout_seconds must be >= 0")
	}
	return nil
}

func validateExecution(e domain.ExecutionSettings) error {
	if e.TimeoutSeconds < 0 {
		return errors.New("execution.timeout_seconds must be >= 0")
	}
	if len(e.ElevationCommand) > 0 && strings.TrimSpace(e.ElevationCommand[0]) == "" {
		return errors.New("execution.elevation_command must start with a program name")
	}
	return nil
}

func validateJournal(j domain.JournalSettings) error {
	if j.Enabled && j.Path == "" {
		return errors.New("journal.path must be set when the journal is enabled")
	}
	return nil
}

func validateUI(ui domain.UISettings) error {
	switch strings.ToLower(ui.Color) {
	case "", "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("ui.color must be auto|always|never, got %s", ui.Color)
	}
}
