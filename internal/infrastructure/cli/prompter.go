package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/doeshing/askcmd/internal/ports"
)

// Prompter implements ports.Prompter over a LineReader.
type Prompter struct {
	in  LineReader
	out io.Writer
}

// NewPrompter constructs a prompter reading from in and reporting to out.
func NewPrompter(in LineReader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Choose asks until one of choices is typed. Empty input and Ctrl-C select def.
func (p *Prompter) Choose(ctx context.Context, question string, choices []string, def string) (string, error) {
	prompt := fmt.Sprintf("%s [%s] (%s): ", question, strings.Join(choices, "/"), def)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := p.in.ReadLine(color.YellowString(prompt))
		if errors.Is(err, ErrInterrupt) {
			return def, nil
		}
		if err != nil {
			return "", err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" {
			return def, nil
		}
		for _, choice := range choices {
			if answer == strings.ToLower(choice) {
				return choice, nil
			}
		}
		fmt.Fprintf(p.out, "Please select one of the available options: %s\n", strings.Join(choices, ", "))
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	defChoice := "n"
	if def {
		defChoice = "y"
	}
	answer, err := p.Choose(ctx, question, []string{"y", "n"}, defChoice)
	if err != nil {
		return false, err
	}
	return answer == "y", nil
}

var _ ports.Prompter = (*Prompter)(nil)
