package symbols

import (
	"regexp"

	"aireviewer/internal/textutil"
)

var (
	rePyClass = regexp.MustCompile(`^\s*class\s+([A-Za-z0-9_]+)`)
	rePyDef   = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z0-9_]+)\s*\(`)
)

type indentScope struct {
	name   string
	indent int
}

// indentExtractor handles languages whose scopes follow indentation
// (Python). Every def is reported as a function, qualified with the
// innermost enclosing class.
type indentExtractor struct{}

func (indentExtractor) Extract(lines []string) []SymbolInfo {
	var (
		syms  []SymbolInfo
		stack []indentScope
	)
	for i, line := range lines {
		// blank lines never close a scope
		if textutil.IsBlank(line) {
			continue
		}
		lineNo := i + 1
		indent := textutil.IndentWidth(line)
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}

		if m := rePyClass.FindStringSubmatch(line); m != nil {
			stack = append(stack, indentScope{name: m[1], indent: indent})
			syms = append(syms, SymbolInfo{Name: m[1], Kind: KindClass, StartLine: lineNo})
			continue
		}
		if m := rePyDef.FindStringSubmatch(line); m != nil {
			name := m[1]
			if len(stack) > 0 {
				name = qualify(stack[len(stack)-1].name, name)
			}
			syms = append(syms, SymbolInfo{Name: name, Kind: KindFunction, StartLine: lineNo})
		}
	}
	return syms
}
