package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/askcmd/assets"
	"github.com/doeshing/askcmd/internal/app"
	"github.com/doeshing/askcmd/internal/domain"
)

// NewGuardrailCommand creates the guardrail command with status and init subcommands
func NewGuardrailCommand(container *app.Container) *cobra.Command {
	guardrailCmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Inspect the danger rules",
	}

	guardrailCmd.AddCommand(
		newGuardrailStatusCommand(container),
		newGuardrailInitCommand(container),
	)

	return guardrailCmd
}

// newGuardrailStatusCommand shows the active keywords and patterns
func newGuardrailStatusCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show active danger keywords and patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showGuardrailStatus(cmd.OutOrStdout(), container)
		},
	}
}

// newGuardrailInitCommand writes the starter rules file
func newGuardrailInitCommand(container *app.Container) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter rules file to security.rules_file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeRulesTemplate(cmd.OutOrStdout(), container.Config.Security.RulesFile, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing rules file")
	return cmd
}

// showGuardrailStatus prints the rules file location and every active rule
func showGuardrailStatus(out io.Writer, container *app.Container) error {
	if container.Guardrail == nil {
		return fmt.Errorf(ErrGuardrailUnavailable)
	}

	rulesFile := container.Config.Security.RulesFile
	switch {
	case rulesFile == "":
		fmt.Fprintln(out, "Rules file: (none)")
	case fileExists(rulesFile):
		fmt.Fprintf(out, "Rules file: %s\n", rulesFile)
	default:
		fmt.Fprintf(out, "Rules file: %s (not found, run `askcmd guardrail init`)\n", rulesFile)
	}

	fmt.Fprintln(out, "Danger keywords:")
	for _, keyword := range container.Guardrail.Keywords() {
		fmt.Fprintf(out, "  %s\n", keyword)
	}
	if patterns := container.Guardrail.Patterns(); len(patterns) > 0 {
		fmt.Fprintln(out, "Danger patterns:")
		for _, pattern := range patterns {
			fmt.Fprintf(out, "  %s (%s)\n", pattern.Pattern, pattern.Message)
		}
	}
	return nil
}

// writeRulesTemplate writes the embedded starter rules to path
func writeRulesTemplate(out io.Writer, path string, force bool) error {
	if path == "" {
		return fmt.Errorf(ErrRulesFileNotConfigured)
	}
	if fileExists(path) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, assets.DefaultGuardrailYAML, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	fmt.Fprintf(out, "Wrote starter rules to %s\n", path)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
