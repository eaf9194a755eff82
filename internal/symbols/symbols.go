// Package symbols locates classes, functions and methods in source text
// with line-oriented patterns instead of a parser.
//
// Only languages with a registered Extractor yield symbols; everything else
// yields none. A missing symbol costs less than a symbol that does not exist,
// since reports cite these names verbatim.
package symbols

import (
	"sort"
	"strings"

	"aireviewer/internal/textutil"
)

// Kind classifies a symbol.
type Kind string

const (
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// SymbolInfo is a declared symbol and the line range it is assumed to cover.
// Lines are 1-based and inclusive.
type SymbolInfo struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Extractor finds declarations in the lines of a single file. Implementations
// only set StartLine; Extract fills in EndLine.
type Extractor interface {
	Extract(lines []string) []SymbolInfo
}

var extractors = map[string]Extractor{
	"TypeScript": braceExtractor{},
	"JavaScript": braceExtractor{},
	"Python":     indentExtractor{},
}

// Register installs ext for a language, replacing any existing extractor.
// It is not safe to call concurrently with Extract.
func Register(language string, ext Extractor) {
	extractors[language] = ext
}

// Supported reports whether language has an extractor.
func Supported(language string) bool {
	_, ok := extractors[language]
	return ok
}

// Extract returns the symbols of text ordered by start line.
func Extract(text, language string) []SymbolInfo {
	ext, ok := extractors[language]
	if !ok {
		return nil
	}
	lines := textutil.SplitLines(text)
	syms := ext.Extract(lines)
	total := len(lines)
	if total == 0 {
		total = 1
	}
	FillLineEnds(syms, total)
	return syms
}

// FillLineEnds sorts syms by start line and sets each end line to the line
// before the next symbol starts, or totalLines for the last one. An end line
// never precedes its own start line.
func FillLineEnds(syms []SymbolInfo, totalLines int) {
	sort.SliceStable(syms, func(i, j int) bool { return syms[i].StartLine < syms[j].StartLine })
	for i := range syms {
		if i+1 < len(syms) {
			syms[i].EndLine = max(syms[i].StartLine, syms[i+1].StartLine-1)
		} else {
			syms[i].EndLine = max(syms[i].StartLine, totalLines)
		}
	}
}

// qualify joins an enclosing class and a member name with a dot.
func qualify(class, name string) string {
	class = strings.TrimSpace(class)
	if class == "" {
		return name
	}
	return class + "." + name
}
