package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

// RulesLoader parses the danger rules file; a missing file is not an error.
type RulesLoader func(path string) (ports.SafetyValidator, error)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Rules          RulesLoader
	Collector      ports.SystemInfoCollector
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Elevated reports that the process already runs with full privileges.
	Elevated bool
}

// Run executes checks and returns a report. The error is set when the config
// cannot be loaded, since no other check is meaningful without it.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded (format %s)", cfg.ConfigFormatVersion)))

	checks = append(checks, s.rulesCheck(cfg.Security.RulesFile))
	checks = append(checks, s.elevationCheck(cfg.Execution.ElevationCommand))
	checks = append(checks, s.endpointCheck(cfg.Proposal))
	checks = append(checks, journalCheck(cfg.Journal))

	if s.Collector != nil {
		info := s.Collector.Collect(ctx)
		checks = append(checks, ok("System info", fmt.Sprintf("%s, shell %s, tools: %d", info.Summary(), info.Shell, len(info.Tools))))
	}

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) rulesCheck(path string) domain.HealthCheck {
	if s.Rules == nil {
		return warn("Danger rules", "rules loader not initialized")
	}
	if _, err := s.Rules(path); err != nil {
		return fail("Danger rules", err.Error())
	}
	if path == "" {
		return ok("Danger rules", "built-in keywords only")
	}
	if _, err := os.Stat(path); err != nil {
		return ok("Danger rules", fmt.Sprintf("built-in keywords only (%s not found)", path))
	}
	return ok("Danger rules", fmt.Sprintf("loaded %s", path))
}

func (s *Service) elevationCheck(wrapper []string) domain.HealthCheck {
	if s.Elevated {
		return ok("Elevation", "running as root, no wrapper needed")
	}
	if len(wrapper) == 0 {
		return warn("Elevation", "disabled; commands that need sudo will be rejected")
	}
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	resolved, err := lookPath(wrapper[0])
	if err != nil {
		return fail("Elevation", fmt.Sprintf("%s not found on PATH", wrapper[0]))
	}
	return ok("Elevation", resolved)
}

func (s *Service) endpointCheck(settings domain.ProposalSettings) domain.HealthCheck {
	endpoint := strings.TrimSpace(settings.Endpoint)
	if endpoint == "" {
		return fail("Proposal source", "endpoint not configured")
	}
	if settings.AuthEnvVar != "" {
		getenv := s.Getenv
		if getenv == nil {
			getenv = os.Getenv
		}
		if getenv(settings.AuthEnvVar) == "" {
			return warn("Proposal source", fmt.Sprintf("%s missing for %s", settings.AuthEnvVar, endpoint))
		}
	}
	return ok("Proposal source", endpoint)
}

func journalCheck(settings domain.JournalSettings) domain.HealthCheck {
	if !settings.Enabled {
		return ok("Journal", "disabled")
	}
	dir := filepath.Dir(settings.Path)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return fail("Journal", fmt.Sprintf("cannot create %s: %v", dir, err))
	}
	probe, err := os.CreateTemp(dir, ".askcmd-probe-*")
	if err != nil {
		return fail("Journal", fmt.Sprintf("%s not writable: %v", dir, err))
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return ok("Journal", settings.Path)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
