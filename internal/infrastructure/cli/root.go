package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/askcmd/internal/app"
	"github.com/doeshing/askcmd/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The container is populated once
// flags are parsed, before any subcommand runs.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container := &app.Container{}
	appOpts := app.Options{Verbose: opts.Verbose}

	root := &cobra.Command{
		Use:   "askcmd",
		Short: "askcmd - natural language to shell commands",
		Long:  "askcmd turns a question into shell commands, confirms them with you and runs them with safety checks.",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initContainer(cmd, container, appOpts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return container.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, container, "")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetContext(ctx)

	root.PersistentFlags().BoolVar(&appOpts.Verbose, "debug", opts.Verbose, "Enable verbose logging")
	root.PersistentFlags().StringVar(&appOpts.ConfigPath, "config", "", "Config file (default ~/.askcmd/config.yaml)")

	root.AddCommand(newAskCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewGuardrailCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root, nil
}

func newAskCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question...]",
		Short: "Run a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, container, strings.Join(args, " "))
		},
	}
}

func initContainer(cmd *cobra.Command, container *app.Container, opts app.Options) error {
	need := cmd.Annotations[commands.AnnotationConfig]
	if need == commands.ConfigNone {
		return nil
	}
	err := container.Init(cmd.Context(), opts)
	if err != nil && need != commands.ConfigOptional {
		return err
	}
	return nil
}

// runInteractive starts the REPL, or a single session when goal is set.
func runInteractive(cmd *cobra.Command, container *app.Container, goal string) error {
	lines, err := NewLineReader(container.Config.UI.HistoryFile)
	if err != nil {
		return err
	}
	defer lines.Close()

	out := cmd.OutOrStdout()
	renderer := NewRenderer(out, container.Config.UI.Color)
	prompter := NewPrompter(lines, out)
	sessions := container.NewSession(app.Terminal{
		Prompter:  prompter,
		Presenter: renderer,
		Secrets:   SecretReader{Lines: lines},
	})

	repl := &REPL{
		Lines:    lines,
		Sessions: sessions,
		Renderer: renderer,
		Logger:   container.Logger,
	}
	if goal != "" {
		return repl.RunOnce(cmd.Context(), goal)
	}
	return repl.Run(cmd.Context())
}
