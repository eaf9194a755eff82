// Package chunk splits file text into line-numbered pieces that fit a
// token budget.
package chunk

import (
	"fmt"
	"strings"

	"aireviewer/internal/textutil"
)

// Counter measures text in model tokens.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// CodeChunk is a contiguous run of decorated lines. Lines are 1-based and
// inclusive.
type CodeChunk struct {
	Text      string
	StartLine int
	EndLine   int
}

// DecorateLine prefixes a source line with its zero-padded line number.
func DecorateLine(lineNo int, line string) string {
	return fmt.Sprintf("%04d: %s", lineNo, line)
}

// Split greedily packs decorated lines into chunks of at most maxTokens,
// measured per line (decorated text plus a newline). A line that alone
// exceeds the budget still gets its own chunk. The chunks cover every line
// exactly once, in order. Empty text yields no chunks.
func Split(text string, maxTokens int, counter Counter) []CodeChunk {
	lines := textutil.SplitLines(text)
	if len(lines) == 0 {
		return nil
	}

	var (
		chunks  []CodeChunk
		current []string
		tokens  int
		start   = 1
	)
	flush := func(end int) {
		chunks = append(chunks, CodeChunk{
			Text:      strings.Join(current, "\n"),
			StartLine: start,
			EndLine:   end,
		})
		current = current[:0]
		tokens = 0
	}

	for i, line := range lines {
		lineNo := i + 1
		decorated := DecorateLine(lineNo, line)
		cost := counter.Count(decorated + "\n")

		if len(current) > 0 && tokens+cost > maxTokens {
			flush(lineNo - 1)
		}
		if len(current) == 0 {
			start = lineNo
		}
		current = append(current, decorated)
		tokens += cost
	}
	if len(current) > 0 {
		flush(len(lines))
	}
	return chunks
}
