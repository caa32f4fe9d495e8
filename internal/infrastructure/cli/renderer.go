package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

const (
	panelTitle     = "🤖 Command to Execute"
	outputRule     = "══════════════════════════════════════"
	outputHeader   = "═══════════ Command Output ═══════════"
	failureHeader  = "═══════════ Command Failed ═══════════"
	colorAlways    = "always"
	colorNever     = "never"
	subtitleDanger = "🚨 High Risk Command!"
	subtitleSudo   = "🔒 Requires Sudo"
	subtitleSafe   = "✨ Safe to Execute"
)

var indicatorPrefix = map[domain.RiskIndicator]string{
	domain.RiskDangerousSudo: "🚨🔒 ",
	domain.RiskDangerous:     "🚨 ",
	domain.RiskSudo:          "🔒 ",
	domain.RiskPlain:         "🟢 ",
}

// Renderer implements ports.Presenter on a terminal.
type Renderer struct {
	out     io.Writer
	spinner *Spinner
	colored bool

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
	bold   *color.Color

	lg *lipgloss.Renderer
}

// NewRenderer builds a renderer writing to out. mode is auto, always or never;
// auto follows fatih/color's terminal and NO_COLOR detection.
func NewRenderer(out io.Writer, mode string) *Renderer {
	colored := ColorEnabled(mode)
	r := &Renderer{
		out:     out,
		spinner: NewSpinner(out),
		colored: colored,
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		red:     color.New(color.FgRed),
		cyan:    color.New(color.FgCyan, color.Bold),
		bold:    color.New(color.Bold),
		lg:      lipgloss.NewRenderer(out),
	}
	for _, c := range []*color.Color{r.green, r.yellow, r.red, r.cyan, r.bold} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// ColorEnabled resolves a ui.color mode.
func ColorEnabled(mode string) bool {
	switch strings.ToLower(mode) {
	case colorAlways:
		return true
	case colorNever:
		return false
	default:
		return !color.NoColor
	}
}

// ShowProposal prints the command panel with per-line risk prefixes.
func (r *Renderer) ShowProposal(p domain.CommandProposal) {
	prefix := indicatorPrefix[p.Indicator()]
	lines := make([]string, 0, len(p.Commands))
	for _, cmd := range p.Commands {
		lines = append(lines, prefix+r.cyan.Sprint(cmd))
	}

	var status []string
	if p.Dangerous {
		status = append(status, r.red.Sprint(subtitleDanger))
	}
	if p.SudoRequired {
		status = append(status, r.yellow.Sprint(subtitleSudo))
	}
	if len(status) == 0 {
		status = append(status, r.green.Sprint(subtitleSafe))
	}

	border := "10"
	if p.Dangerous {
		border = "9"
	}
	panel := r.lg.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	title := r.lg.NewStyle().Bold(true)
	if r.colored {
		panel = panel.BorderForeground(lipgloss.Color(border))
		title = title.Foreground(lipgloss.Color(border))
	}

	body := strings.Join(lines, "\n")
	content := lipgloss.JoinVertical(lipgloss.Left,
		title.Render(panelTitle),
		"",
		body,
		"",
		strings.Join(status, " "),
	)
	fmt.Fprintln(r.out, panel.Render(content))
}

// ShowHelp prints the description and option hints.
func (r *Renderer) ShowHelp(p domain.CommandProposal) {
	if !p.HasHelp() {
		r.Notice("No additional information for this command.")
		return
	}
	if p.Description != "" {
		fmt.Fprintln(r.out)
		r.yellow.Fprintln(r.out, "📝 Command Description:")
		fmt.Fprintf(r.out, "╰─➤ %s\n\n", p.Description)
	}
	if len(p.Options) > 0 {
		r.yellow.Fprintln(r.out, "⚙️  Options:")
		for _, opt := range p.Options {
			fmt.Fprintf(r.out, "╰─➤ %s: %s\n", opt.Name, opt.Description)
		}
	}
}

// ShowExecuting announces the command about to run.
func (r *Renderer) ShowExecuting(index, total int, command string) {
	fmt.Fprintf(r.out, "\n%s %s\n", r.bold.Sprintf("[%d/%d]", index, total), r.cyan.Sprint(command))
}

// ShowDanger warns about dangerous keywords before confirmation.
func (r *Renderer) ShowDanger(command string, keywords []string) {
	r.red.Fprintln(r.out, "⚠️  WARNING: This command contains dangerous operations!")
	fmt.Fprintf(r.out, "Detected keywords: %s\n", strings.Join(keywords, ", "))
}

// ShowResult prints captured output for successes and failures and the
// reason for rejections.
func (r *Renderer) ShowResult(o domain.Outcome) {
	switch o.Kind {
	case domain.OutcomeSucceeded:
		r.showOutput(o.Result)
	case domain.OutcomeFailed:
		r.showFailure(o)
	case domain.OutcomeRejected:
		r.showRejection(o.Err)
	}
}

func (r *Renderer) showOutput(res *domain.ExecutionResult) {
	if res == nil || (res.Stdout == "" && res.Stderr == "") {
		return
	}
	fmt.Fprintln(r.out)
	r.green.Fprintln(r.out, outputHeader)
	if res.Stdout != "" {
		r.green.Fprintln(r.out, "📝 Output:")
		fmt.Fprintln(r.out, strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintln(r.out)
		r.yellow.Fprintln(r.out, "⚠️ Warnings/Errors:")
		fmt.Fprintln(r.out, strings.TrimRight(res.Stderr, "\n"))
	}
	r.green.Fprintln(r.out, outputRule)
}

func (r *Renderer) showFailure(o domain.Outcome) {
	var credErr *domain.CredentialError
	if errors.As(o.Err, &credErr) {
		r.red.Fprintln(r.out, "❌ Incorrect password. The cached credential was cleared.")
	}
	fmt.Fprintln(r.out)
	r.red.Fprintln(r.out, failureHeader)
	exitCode := 0
	if o.Result != nil {
		exitCode = o.Result.ExitCode
	}
	r.red.Fprintf(r.out, "❌ Exit code: %d\n", exitCode)
	if o.Result != nil && o.Result.Stdout != "" {
		fmt.Fprintln(r.out)
		r.yellow.Fprintln(r.out, "📝 Output before failure:")
		fmt.Fprintln(r.out, strings.TrimRight(o.Result.Stdout, "\n"))
	}
	if o.Result != nil && o.Result.Stderr != "" {
		fmt.Fprintln(r.out)
		r.red.Fprintln(r.out, "❌ Error message:")
		fmt.Fprintln(r.out, strings.TrimRight(o.Result.Stderr, "\n"))
	}
	r.red.Fprintln(r.out, outputRule)
}

func (r *Renderer) showRejection(err error) {
	var (
		validationErr *domain.ValidationError
		declinedErr   *domain.DangerDeclinedError
	)
	switch {
	case errors.As(err, &validationErr):
		r.red.Fprintf(r.out, "❌ Command rejected: %s\n", validationErr.Reason)
	case errors.As(err, &declinedErr):
		r.yellow.Fprintln(r.out, "Operation cancelled.")
	case errors.Is(err, domain.ErrElevationUnsupported):
		r.red.Fprintln(r.out, "❌ This command requires elevated privileges, which are not available here.")
	case err != nil:
		r.red.Fprintf(r.out, "❌ Command not executed: %v\n", err)
	}
}

// Notice prints an informational line.
func (r *Renderer) Notice(msg string) {
	r.green.Fprintln(r.out, msg)
}

// Warn prints a warning line.
func (r *Renderer) Warn(msg string) {
	r.yellow.Fprintln(r.out, msg)
}

// Error prints an error line.
func (r *Renderer) Error(msg string, err error) {
	if err == nil {
		r.red.Fprintf(r.out, "❌ %s\n", msg)
		return
	}
	r.red.Fprintf(r.out, "❌ %s: %v\n", msg, err)
}

// Busy starts the spinner with label. Without colour support the label is
// printed once instead of animated.
func (r *Renderer) Busy(label string) func() {
	if !r.colored {
		fmt.Fprintln(r.out, label)
		return func() {}
	}
	r.spinner.Start(label)
	return r.spinner.Stop
}

// Banner prints the welcome panel shown on interactive start.
func (r *Renderer) Banner() {
	text := strings.Join([]string{
		r.bold.Sprint("✨ AI Command Assistant ✨"),
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━",
		"🤖 Ask commands in natural language",
		"🚪 Type 'exit', 'quit', or 'q' to close",
		"",
		"📍 Command Indicators:",
		"   🟢 " + r.green.Sprint("(>)") + " Normal Command",
		"   🔒 " + r.yellow.Sprint("($)") + " Requires Sudo",
		"   🚨 " + r.red.Sprint("(!)") + " High Risk Command",
	}, "\n")
	style := r.lg.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if r.colored {
		style = style.BorderForeground(lipgloss.Color("10"))
	}
	fmt.Fprintln(r.out, style.Render(text))
}

var _ ports.Presenter = (*Renderer)(nil)
