package app

import (
	"context"
	"io"
	"time"

	"github.com/doeshing/askcmd/internal/application/doctor"
	"github.com/doeshing/askcmd/internal/application/session"
	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/infrastructure/ai"
	"github.com/doeshing/askcmd/internal/infrastructure/config"
	"github.com/doeshing/askcmd/internal/infrastructure/executor"
	"github.com/doeshing/askcmd/internal/infrastructure/history"
	"github.com/doeshing/askcmd/internal/infrastructure/privilege"
	"github.com/doeshing/askcmd/internal/infrastructure/security"
	"github.com/doeshing/askcmd/internal/infrastructure/sysinfo"
	"github.com/doeshing/askcmd/internal/pkg/logger"
	"github.com/doeshing/askcmd/internal/ports"
)

// Options selects how the container is built.
type Options struct {
	Verbose    bool
	ConfigPath string
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	Logger        ports.Logger
	Guardrail     *security.Guardrail
	Runner        *executor.LocalRunner
	Collector     *sysinfo.Collector
	Source        *ai.HTTPSource
	Journal       ports.Journal
	DoctorService *doctor.Service
}

// Terminal holds the interactive adapters a session needs.
type Terminal struct {
	Prompter  ports.Prompter
	Presenter ports.Presenter
	Secrets   ports.SecretReader
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	c := &Container{}
	if err := c.Init(ctx, opts); err != nil {
		return c, err
	}
	return c, nil
}

// Init populates c. The config loader, logger and doctor service are set
// before the config is loaded, so diagnostics still work when loading fails.
func (c *Container) Init(ctx context.Context, opts Options) error {
	c.ConfigLoader = config.NewFileLoader(opts.ConfigPath)
	c.Logger = logger.NewStd(opts.Verbose)
	c.Collector = sysinfo.NewCollector()
	c.DoctorService = &doctor.Service{
		ConfigProvider: c.ConfigLoader,
		Rules:          loadRules,
		Collector:      c.Collector,
		Elevated:       privilege.RunningAsRoot(),
	}

	cfg, err := c.ConfigLoader.Load(ctx)
	if err != nil {
		return err
	}
	c.Config = cfg

	guardrail, err := security.NewGuardrail(cfg.Security.RulesFile)
	if err != nil {
		c.Logger.Warn("danger rules unusable, using built-in keywords", map[string]interface{}{
			"path":  cfg.Security.RulesFile,
			"error": err.Error(),
		})
		if guardrail, err = security.NewGuardrail(""); err != nil {
			return err
		}
	}
	c.Guardrail = guardrail

	c.Runner = executor.NewLocalRunner(cfg.Execution.Shell)
	c.Source = ai.NewHTTPSource(ai.Options{
		Settings:   cfg.Proposal,
		SystemInfo: c.Collector,
		Logger:     c.Logger,
	})
	if cfg.Journal.Enabled {
		c.Journal = history.Open(cfg.Journal.Path, c.Logger)
	}
	return nil
}

// NewSession wires the executor, privilege manager and orchestrator around
// the given terminal adapters.
func (c *Container) NewSession(t Terminal) *session.Service {
	wrapper := c.Config.Execution.ElevationCommand
	if len(wrapper) == 0 {
		wrapper = []string{}
	}
	manager := privilege.NewManager(privilege.Options{
		Secrets:           t.Secrets,
		Runner:            c.Runner,
		Logger:            c.Logger,
		Wrapper:           wrapper,
		Shell:             c.Runner.Shell(),
		IncorrectPatterns: c.Config.Execution.IncorrectCredentialPatterns,
		AlreadyElevated:   privilege.RunningAsRoot(),
	})

	var timeout time.Duration
	if c.Config.Execution.TimeoutSeconds > 0 {
		timeout = time.Duration(c.Config.Execution.TimeoutSeconds) * time.Second
	}

	return &session.Service{
		Source: c.Source,
		Executor: &executor.Executor{
			Validator: c.Guardrail,
			Runner:    c.Runner,
			Privilege: manager,
			Prompter:  t.Prompter,
			Presenter: t.Presenter,
			Logger:    c.Logger,
			Timeout:   timeout,
		},
		Prompter:  t.Prompter,
		Presenter: t.Presenter,
		Logger:    c.Logger,
		Journal:   c.Journal,
	}
}

// Close releases the journal.
func (c *Container) Close() error {
	if closer, ok := c.Journal.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func loadRules(path string) (ports.SafetyValidator, error) {
	return security.NewGuardrail(path)
}
