package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"aireviewer/internal/scan"
	"aireviewer/internal/summarize"
)

// DefaultOutputLanguage is the natural language of report text unless
// configured otherwise.
const DefaultOutputLanguage = "Simplified Chinese"

// CharsPerToken converts the prompt token budget into a character budget.
const CharsPerToken = 4

const truncationMarker = "\n...[context truncated due to length]..."

// Artifacts is everything gathered for one run before the report call.
type Artifacts struct {
	Overview   string                  `json:"overview"`
	Candidates []scan.FileCandidate    `json:"candidates"`
	Summaries  []summarize.FileSummary `json:"summaries"`
}

// Compose builds the report prompt in the default output language.
func Compose(requirements string, a Artifacts, maxChars int) string {
	return ComposeIn(DefaultOutputLanguage, requirements, a, maxChars)
}

// ComposeIn builds the report prompt. Output longer than maxChars runes is
// cut to maxChars-100 runes and marked; maxChars <= 0 disables the limit.
func ComposeIn(language, requirements string, a Artifacts, maxChars int) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Task")
	line("Analyze the repository and map implementation details to the requested features.")
	line("")
	line("## Requirements")
	line("%s", strings.TrimSpace(requirements))
	line("")
	line("## Repository Overview")
	if a.Overview != "" {
		line("%s", a.Overview)
	} else {
		line("(overview truncated)")
	}
	line("")
	line("## File Summaries")

	if len(a.Summaries) == 0 {
		line("No summaries available; rely on repository overview and prior knowledge.")
	}
	for _, s := range a.Summaries {
		line("### %s", s.RelPath)
		line("Language: %s", s.Language)
		line("%s", s.Summary)
		line("")
		if len(s.Symbols) == 0 {
			continue
		}
		line("Symbols with line ranges:")
		for _, sym := range s.Symbols {
			lines := fmt.Sprintf("%d-%d", sym.StartLine, sym.EndLine)
			if sym.StartLine == sym.EndLine {
				lines = fmt.Sprintf("%d", sym.StartLine)
			}
			line("- %s (%s) lines %s", sym.Name, sym.Kind, lines)
		}
		line("")
	}

	line("## Output Format")
	line("Return a JSON object with:")
	line("- feature_analysis: array of objects with feature_description (string, %s) and implementation_location (array with file, function, lines).", language)
	line("- execution_plan_suggestion: string with concise instructions to run the project in %s.", language)
	line("Use the symbol table above to cite precise function or method names and provide line numbers or ranges.")
	line("Do not leave function or lines as null; if only a single line is known, use that number.")
	b.WriteString("Only output JSON without additional commentary.")

	return truncate(b.String(), maxChars)
}

func truncate(prompt string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(prompt) <= maxChars {
		return prompt
	}
	keep := maxChars - 100
	if keep < 0 {
		keep = 0
	}
	n := 0
	for i := range prompt {
		if n == keep {
			return prompt[:i] + truncationMarker
		}
		n++
	}
	return prompt + truncationMarker
}
