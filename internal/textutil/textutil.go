package textutil

import "strings"

// SplitLines splits text on \n, \r\n and \r. A trailing line break does not
// produce an extra empty line, so "a\nb\n" yields ["a", "b"].
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// IndentWidth returns the number of leading space or tab characters.
func IndentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// IsBlank reports whether line holds only whitespace.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
