package ai

import (
	"fmt"
	"strings"

	"github.com/doeshing/askcmd/internal/domain"
)

const instructionPrompt = `
Your goal is to write command-line scripts that can be used on this operating system.
- Generate commands that satisfy the user's request so they can be executed directly.
- The user may ask you to fix or rewrite a previous command.
  - Study the provided command and its output, reason about cause and effect, and decide what must change.
  - When fixing an error, consider several possible causes and try a different approach.

[Output format rules]
1. Output a JSON object only. Do not add any explanation, sentence or extra text.
2. Top-level fields are commands, options and, when needed, other extension fields.
  - e.g. { "commands": ["...", "..."], "options": [...], "dangerous": false, "sudo_required": false, "description": "..." }
3. Put the command(s) that must actually run in the commands field.
  - Write each command on exactly one line, including pipes (|) and redirections (>, >>).
4. The options field is optional and has this shape:
   "options": [ { "option_name": "...", "option_type": "...", "replacer": "...", "description": "..." }, ... ]
   Add "dangerous": true or "sudo_required": true to an option when it applies.
5. Set "dangerous" to true for destructive or irreversible operations and "sudo_required" to true when elevated privileges are needed.
`

// SystemPrompt renders the system context: the host summary followed by the
// fixed JSON-only instruction text.
func SystemPrompt(info domain.SystemInfo) string {
	var b strings.Builder
	b.WriteString(info.Summary())
	if info.Shell != "" {
		fmt.Fprintf(&b, "\nShell: %s", info.Shell)
	}
	if info.WorkingDir != "" {
		fmt.Fprintf(&b, "\nDirectory: %s", info.WorkingDir)
	}
	if len(info.Tools) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s", strings.Join(info.Tools, ", "))
	}
	b.WriteString(instructionPrompt)
	return b.String()
}

// BuildFeedbackQuery renders the retry query. It always lists every command
// already tried so the source does not propose them again.
func BuildFeedbackQuery(req domain.FeedbackRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n[Goal]\n%s\n\n", req.Goal)
	fmt.Fprintf(&b, "[FIX or REVISE]\ncommand:\n`%s`\n", req.LastCommand)
	if req.Executed {
		fmt.Fprintf(&b, "ReturnCode: %d\n", req.ExitCode)
		fmt.Fprintf(&b, "Refer to the following output:\n```%s```\n\n", req.Output)
	} else {
		b.WriteString("ReturnCode: n/a\n")
		note := req.Note
		if note == "" {
			note = "the command did not run"
		}
		fmt.Fprintf(&b, "The command was not executed: %s\n\n", note)
	}
	b.WriteString("The following commands have already been tried:\n")
	tried := make([]string, 0, len(req.Tried))
	for _, cmd := range req.Tried {
		tried = append(tried, "`"+cmd+"`")
	}
	b.WriteString(strings.Join(tried, "\n"))
	return b.String()
}
