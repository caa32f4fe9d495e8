package domain

// HealthStatus indicates doctor check outcomes.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck captures a single diagnostic result.
type HealthCheck struct {
	Name    string
	Status  HealthStatus
	Details string
}

// HealthReport aggregates checks.
type HealthReport struct {
	Checks []HealthCheck
}

// Failed reports whether any check ended in error.
func (r HealthReport) Failed() bool {
	for _, check := range r.Checks {
		if check.Status == HealthError {
			return true
		}
	}
	return false
}

// SystemInfo describes the host for the proposal source's system context.
type SystemInfo struct {
	OSName     string
	OS         string
	Arch       string
	Shell      string
	WorkingDir string
	Tools      []string
}

// Summary renders the one-line form prefixed to the system prompt.
func (s SystemInfo) Summary() string {
	name := s.OSName
	if name == "" {
		name = s.OS
	}
	if s.Arch == "" {
		return name
	}
	return name + " (" + s.Arch + ")"
}
