// Package summarize turns prioritized candidate files into per-file
// natural-language summaries with symbol tables attached.
package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"aireviewer/internal/chunk"
	"aireviewer/internal/llm"
	"aireviewer/internal/safeio"
	"aireviewer/internal/scan"
	"aireviewer/internal/symbols"
)

// FileSummary is the combined summary of one candidate.
type FileSummary struct {
	Path     string               `json:"path"`
	RelPath  string               `json:"relative_path"`
	Language string               `json:"language"`
	Summary  string               `json:"summary"`
	Symbols  []symbols.SymbolInfo `json:"symbols"`
}

// Outcome is the result for one candidate: either a Summary or the reason
// the file was skipped.
type Outcome struct {
	Candidate scan.FileCandidate
	Summary   *FileSummary
	Skipped   string
}

func (o Outcome) OK() bool { return o.Summary != nil }

type Options struct {
	MaxTokensPerChunk int
	MaxOutputTokens   int
	Temperature       *float64
	// OutputLanguage is the natural language the summaries are written in.
	OutputLanguage string
	// Workers bounds concurrent files; <= 1 processes them one by one.
	Workers int
}

type Summarizer struct {
	client  llm.LLMClient
	counter chunk.Counter
	opts    Options
	log     *log.Logger
}

// New builds a Summarizer. A nil logger uses log.Default().
func New(client llm.LLMClient, counter chunk.Counter, opts Options, logger *log.Logger) *Summarizer {
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(opts.OutputLanguage) == "" {
		opts.OutputLanguage = "Simplified Chinese"
	}
	return &Summarizer{client: client, counter: counter, opts: opts, log: logger}
}

// Summarize returns the summaries of every file that produced at least one
// chunk summary, in candidate order.
func (s *Summarizer) Summarize(ctx context.Context, fsys *safeio.SafeFS, candidates []scan.FileCandidate, requirements string) []FileSummary {
	var out []FileSummary
	for _, o := range s.Run(ctx, fsys, candidates, requirements) {
		if o.OK() {
			out = append(out, *o.Summary)
		}
	}
	return out
}

// Run processes every candidate and reports one Outcome per candidate, in
// candidate order. It never fails: unreadable files and failed service
// calls become skipped outcomes.
func (s *Summarizer) Run(ctx context.Context, fsys *safeio.SafeFS, candidates []scan.FileCandidate, requirements string) []Outcome {
	outs := make([]Outcome, len(candidates))
	if s.opts.Workers <= 1 {
		for i, c := range candidates {
			outs[i] = s.file(ctx, fsys, c, requirements)
		}
		return outs
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			outs[i] = s.file(ctx, fsys, c, requirements)
			return nil
		})
	}
	_ = g.Wait()
	return outs
}

func (s *Summarizer) file(ctx context.Context, fsys *safeio.SafeFS, c scan.FileCandidate, requirements string) Outcome {
	skip := func(reason string) Outcome {
		s.log.Printf("summarize: skip %s: %s", c.RelPath, reason)
		return Outcome{Candidate: c, Skipped: reason}
	}
	if err := ctx.Err(); err != nil {
		return skip(err.Error())
	}

	text, err := fsys.ReadText(c.Path)
	if err != nil {
		return skip(fmt.Sprintf("read: %v", err))
	}
	chunks := chunk.Split(text, s.opts.MaxTokensPerChunk, s.counter)
	if len(chunks) == 0 {
		return Outcome{Candidate: c, Skipped: "empty file"}
	}
	syms := symbols.Extract(text, c.Language)

	parts := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		cctx := llm.WithPhase(ctx, fmt.Sprintf("summarize:%s#%d", c.RelPath, i+1))
		out, err := s.client.Complete(cctx, llm.Request{
			System:          SystemPrompt(s.opts.OutputLanguage),
			User:            UserPrompt(requirements, c, ch),
			MaxOutputTokens: s.opts.MaxOutputTokens,
			Temperature:     s.opts.Temperature,
		})
		if err != nil {
			s.log.Printf("summarize: %s lines %d-%d failed: %v", c.RelPath, ch.StartLine, ch.EndLine, err)
			continue
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	if len(parts) == 0 {
		return skip(fmt.Sprintf("all %d chunks failed", len(chunks)))
	}

	return Outcome{Candidate: c, Summary: &FileSummary{
		Path:     c.Path,
		RelPath:  c.RelPath,
		Language: c.Language,
		Summary:  Combine(parts),
		Symbols:  syms,
	}}
}

// Combine merges chunk summaries. One summary is returned verbatim; more
// become a "Key points" bullet list in chunk order.
func Combine(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	var b strings.Builder
	b.WriteString("Key points:")
	for _, p := range parts {
		b.WriteString("\n- ")
		b.WriteString(strings.TrimSpace(p))
	}
	return b.String()
}

func SystemPrompt(outputLanguage string) string {
	return "You are a senior software engineer assisting with code comprehension. " +
		"Produce a concise summary highlighting interfaces, side-effects, " +
		"key logic, dependencies, and potential relation to the provided requirements. " +
		"Respond in " + outputLanguage + "."
}

func UserPrompt(requirements string, c scan.FileCandidate, ch chunk.CodeChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem description:\n%s\n\n", strings.TrimSpace(requirements))
	fmt.Fprintf(&b, "File: %s\n", c.RelPath)
	fmt.Fprintf(&b, "Language: %s\n\n", c.Language)
	fmt.Fprintf(&b, "Chunk lines: %d-%d\n\n", ch.StartLine, ch.EndLine)
	fmt.Fprintf(&b, "Code chunk (line numbers included):\n```%s\n%s\n```", strings.ToLower(c.Language), ch.Text)
	return b.String()
}
