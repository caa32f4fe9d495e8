package assets

import (
	_ "embed"
)

// DefaultGuardrailYAML contains the embedded starter danger rules written by
// `askcmd guardrail init`.
//
//go:embed defaults/guardrail.yaml
var DefaultGuardrailYAML []byte
