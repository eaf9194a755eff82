package symbols

import (
	"regexp"
	"strings"
)

var (
	// class Name
	reClass = regexp.MustCompile(`\bclass\s+([A-Za-z0-9_]+)`)
	// function Name(
	reBraceFunc = regexp.MustCompile(`\bfunction\s+([A-Za-z0-9_]+)\s*\(`)
	// [public|protected|private] [static] [async] name(
	reBraceMethod = regexp.MustCompile(`^\s*(?:(?:public|protected|private)\s+)?(?:static\s+)?(?:async\s+)?([A-Za-z0-9_]+)\s*\(`)
	// [modifiers] name = [async] (
	reBraceArrow = regexp.MustCompile(`^\s*(?:(?:public|protected|private)\s+)?(?:static\s+)?([A-Za-z0-9_]+)\s*=\s*(?:async\s*)?\(`)
)

// Statement keywords that look like "name(" at the start of a line.
var notMethodNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "await": true, "typeof": true,
	"super": true, "new": true, "do": true, "else": true, "throw": true,
}

type classScope struct {
	name string
	// the class body is open while brace depth stays at or above bodyDepth
	bodyDepth int
}

// braceExtractor handles languages whose scopes are delimited by braces
// (TypeScript, JavaScript). Functions declared with the function keyword are
// always reported unqualified; methods are only reported inside a class.
type braceExtractor struct{}

func (braceExtractor) Extract(lines []string) []SymbolInfo {
	var (
		syms  []SymbolInfo
		depth int
		stack []classScope
	)
	for i, line := range lines {
		lineNo := i + 1
		delta := strings.Count(line, "{") - strings.Count(line, "}")

		if m := reClass.FindStringSubmatch(line); m != nil {
			stack = append(stack, classScope{name: m[1], bodyDepth: depth + max(delta, 1)})
			syms = append(syms, SymbolInfo{Name: m[1], Kind: KindClass, StartLine: lineNo})
		} else if len(stack) > 0 {
			current := stack[len(stack)-1].name
			if name := methodName(line); name != "" {
				syms = append(syms, SymbolInfo{Name: qualify(current, name), Kind: KindMethod, StartLine: lineNo})
			}
		}

		if m := reBraceFunc.FindStringSubmatch(line); m != nil {
			syms = append(syms, SymbolInfo{Name: m[1], Kind: KindFunction, StartLine: lineNo})
		}

		depth += delta
		for len(stack) > 0 && depth < stack[len(stack)-1].bodyDepth {
			stack = stack[:len(stack)-1]
		}
	}
	return syms
}

func methodName(line string) string {
	if m := reBraceMethod.FindStringSubmatch(line); m != nil && !notMethodNames[m[1]] {
		return m[1]
	}
	if m := reBraceArrow.FindStringSubmatch(line); m != nil && !notMethodNames[m[1]] {
		return m[1]
	}
	return ""
}
