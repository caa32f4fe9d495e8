package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/askcmd/internal/pkg/filesystem"
	"github.com/doeshing/askcmd/internal/ports"
)

// Rejection reasons returned by Validate.
const (
	ReasonEmpty         = "Empty command"
	ReasonScript        = "Direct script execution not allowed"
	ReasonPipeToShell   = "Pipe to shell not allowed"
	ReasonPathTraversal = "Path traversal not allowed"
)

// Guardrail implements the SafetyValidator port.
type Guardrail struct {
	keywords []string
	patterns []compiledPattern
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based rule loaded from the rules file.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerKeywords []string        `yaml:"danger_keywords"`
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

var (
	pipeToShell = regexp.MustCompile(`\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`)
	// nullRedirect matches redirects into /dev/null, which are not device writes.
	nullRedirect = regexp.MustCompile(`[0-9&]?>>?\s*/dev/null\b`)
	redirectGap  = regexp.MustCompile(`>\s*/`)
)

// NewGuardrail builds a validator with the built-in keyword list plus any
// keywords and patterns found in the rules file at path.
func NewGuardrail(path string) (*Guardrail, error) {
	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}

	g := &Guardrail{keywords: DefaultKeywords()}
	for _, keyword := range rules.Rules.DangerKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && !contains(g.keywords, keyword) {
			g.keywords = append(g.keywords, keyword)
		}
	}
	for _, pattern := range rules.Rules.DangerPatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile danger pattern %q: %w", pattern.Pattern, err)
		}
		g.patterns = append(g.patterns, compiledPattern{re: re, rule: pattern})
	}
	return g, nil
}

// Validate implements ports.SafetyValidator. Checks run in a fixed order and
// the first failing check wins.
func (g *Guardrail) Validate(command string) (bool, string) {
	if strings.TrimSpace(command) == "" {
		return false, ReasonEmpty
	}
	if strings.HasPrefix(strings.TrimLeft(command, " \t"), "./") {
		return false, ReasonScript
	}
	if strings.Contains(command, "| sh") || strings.Contains(command, "| bash") || pipeToShell.MatchString(command) {
		return false, ReasonPipeToShell
	}
	if strings.Contains(command, "../") || strings.Contains(command, `..\`) {
		return false, ReasonPathTraversal
	}
	return true, ""
}

// ScanDangerous implements ports.SafetyValidator. The scan is a case-insensitive
// substring match; it only flags and never rejects.
func (g *Guardrail) ScanDangerous(command string) []string {
	normalized := strings.ToLower(command)
	normalized = nullRedirect.ReplaceAllString(normalized, "")
	normalized = redirectGap.ReplaceAllString(normalized, "> /")

	var found []string
	for _, keyword := range g.keywords {
		if strings.Contains(normalized, keyword) {
			found = append(found, keyword)
		}
	}
	for _, pattern := range g.patterns {
		if pattern.re.MatchString(command) {
			label := pattern.rule.Message
			if label == "" {
				label = pattern.rule.Pattern
			}
			if !contains(found, label) {
				found = append(found, label)
			}
		}
	}
	return found
}

// Keywords returns the active keyword list.
func (g *Guardrail) Keywords() []string {
	out := make([]string, len(g.keywords))
	copy(out, g.keywords)
	return out
}

// Patterns returns the patterns loaded from the rules file.
func (g *Guardrail) Patterns() []DangerPattern {
	out := make([]DangerPattern, 0, len(g.patterns))
	for _, p := range g.patterns {
		out = append(out, p.rule)
	}
	return out
}

// DefaultKeywords is the fixed built-in danger list, lower-cased.
func DefaultKeywords() []string {
	return []string{
		"rm -rf",
		"rm -fr",
		"mkfs",
		"dd if=",
		"of=/dev/",
		"tee /dev/sd",
		"tee /dev/nvme",
		":(){",
		"> /dev/",
		"> /proc/",
		"> /sys/",
		"chmod -r 777",
		"chmod -r 000",
	}
}

func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(filesystem.ExpandPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rules, nil
		}
		return RulesFile{}, err
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

var _ ports.SafetyValidator = (*Guardrail)(nil)
