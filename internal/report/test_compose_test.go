package report

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"aireviewer/internal/summarize"
	"aireviewer/internal/symbols"
)

func TestCompose_Sections(t *testing.T) {
	art := Artifacts{
		Overview: "├─ app.py",
		Summaries: []summarize.FileSummary{{
			RelPath:  "app.py",
			Language: "Python",
			Summary:  "Flask entrypoint.",
			Symbols: []symbols.SymbolInfo{
				{Name: "App", Kind: symbols.KindClass, StartLine: 1, EndLine: 4},
				{Name: "App.run", Kind: symbols.KindFunction, StartLine: 5, EndLine: 5},
			},
		}},
	}
	p := Compose("  Users can log in.\n", art, 0)

	assert.True(t, strings.HasPrefix(p, "# Task\nAnalyze the repository"))
	assert.Contains(t, p, "## Requirements\nUsers can log in.\n\n## Repository Overview\n├─ app.py\n")
	assert.Contains(t, p, "### app.py\nLanguage: Python\nFlask entrypoint.\n\nSymbols with line ranges:\n")
	assert.Contains(t, p, "- App (class) lines 1-4\n")
	assert.Contains(t, p, "- App.run (function) lines 5\n")
	assert.Contains(t, p, "feature_description (string, Simplified Chinese)")
	assert.True(t, strings.HasSuffix(p, "Only output JSON without additional commentary."))
	assert.NotContains(t, p, "No summaries available")
}

func TestCompose_Placeholders(t *testing.T) {
	p := Compose("req", Artifacts{}, 0)
	assert.Contains(t, p, "## Repository Overview\n(overview truncated)\n")
	assert.Contains(t, p, "## File Summaries\nNo summaries available; rely on repository overview and prior knowledge.\n")
}

func TestCompose_NoSymbolBlockWhenEmpty(t *testing.T) {
	art := Artifacts{Summaries: []summarize.FileSummary{{RelPath: "README.md", Language: "Markdown", Summary: "docs"}}}
	p := Compose("req", art, 0)
	assert.NotContains(t, p, "Symbols with line ranges:")
}

func TestComposeIn_OutputLanguage(t *testing.T) {
	p := ComposeIn("English", "req", Artifacts{}, 0)
	assert.Contains(t, p, "feature_description (string, English)")
	assert.Contains(t, p, "run the project in English.")
	assert.NotContains(t, p, "Simplified Chinese")
}

func TestCompose_Truncates(t *testing.T) {
	art := Artifacts{Overview: strings.Repeat("├─ 文件.py\n", 2000)}
	full := Compose("req", art, 0)
	p := Compose("req", art, 1000)

	assert.True(t, strings.HasSuffix(p, truncationMarker))
	body := strings.TrimSuffix(p, truncationMarker)
	assert.Equal(t, 900, utf8.RuneCountInString(body))
	assert.True(t, strings.HasPrefix(full, body))
	assert.True(t, utf8.ValidString(p))
}

func TestCompose_TinyBudget(t *testing.T) {
	p := Compose("req", Artifacts{}, 50)
	assert.Equal(t, truncationMarker, p)
}

func TestCompose_FitsUntouched(t *testing.T) {
	full := Compose("req", Artifacts{}, 0)
	assert.Equal(t, full, Compose("req", Artifacts{}, utf8.RuneCountInString(full)))
}
