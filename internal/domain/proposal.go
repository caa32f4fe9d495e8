// Package domain defines core business entities and value objects for askcmd.
//
// The types here describe what the proposal source suggests, what running a
// command produced, and the state carried through one natural-language goal.
// The domain layer is independent of infrastructure concerns.
package domain

// CommandProposal is one structured answer from the proposal source.
// Commands run in order and all of them are expected to run.
type CommandProposal struct {
	Commands     []string
	Options      []OptionHint
	Dangerous    bool
	SudoRequired bool
	Description  string
}

// OptionHint describes a tunable part of a proposed command.
type OptionHint struct {
	Name         string
	Type         string
	Replacer     string
	Description  string
	SudoRequired bool
	Dangerous    bool
}

// RiskIndicator summarises the proposal-level risk flags for display.
type RiskIndicator string

const (
	RiskPlain         RiskIndicator = "plain"
	RiskSudo          RiskIndicator = "sudo"
	RiskDangerous     RiskIndicator = "dangerous"
	RiskDangerousSudo RiskIndicator = "dangerous_sudo"
)

// Indicator derives the display indicator from the proposal flags.
func (p CommandProposal) Indicator() RiskIndicator {
	switch {
	case p.Dangerous && p.SudoRequired:
		return RiskDangerousSudo
	case p.Dangerous:
		return RiskDangerous
	case p.SudoRequired:
		return RiskSudo
	default:
		return RiskPlain
	}
}

// HasHelp reports whether there is anything to show for the help choice.
func (p CommandProposal) HasHelp() bool {
	return p.Description != "" || len(p.Options) > 0
}
