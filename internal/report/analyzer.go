package report

import (
	"context"
	"fmt"
	"log"
	"strings"

	"aireviewer/internal/chunk"
	"aireviewer/internal/llm"
	"aireviewer/internal/safeio"
	"aireviewer/internal/scan"
	"aireviewer/internal/summarize"
)

type Options struct {
	Scan      scan.Options
	Summarize summarize.Options
	// MaxPromptTokens bounds the report prompt at CharsPerToken chars per token.
	MaxPromptTokens   int
	ReportTemperature *float64
	OutputLanguage    string
}

// Analyzer runs the whole pipeline for one directory: select, summarize,
// compose, request and validate.
type Analyzer struct {
	client  llm.LLMClient
	counter chunk.Counter
	opts    Options
	log     *log.Logger
}

func NewAnalyzer(client llm.LLMClient, counter chunk.Counter, opts Options, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(opts.OutputLanguage) == "" {
		opts.OutputLanguage = DefaultOutputLanguage
	}
	if opts.Summarize.OutputLanguage == "" {
		opts.Summarize.OutputLanguage = opts.OutputLanguage
	}
	return &Analyzer{client: client, counter: counter, opts: opts, log: logger}
}

// Gather selects and summarizes candidates under root and renders the
// directory overview. Only an unreadable root is an error.
func (a *Analyzer) Gather(ctx context.Context, root, requirements string) (Artifacts, error) {
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return Artifacts{}, fmt.Errorf("open repository: %w", err)
	}
	candidates, err := scan.Select(fsys.Root(), a.opts.Scan)
	if err != nil {
		return Artifacts{}, fmt.Errorf("select candidates: %w", err)
	}
	a.log.Printf("analyze: %d candidate files under %s", len(candidates), fsys.Root())

	sum := summarize.New(a.client, a.counter, a.opts.Summarize, a.log)
	summaries := sum.Summarize(ctx, fsys, candidates, requirements)
	a.log.Printf("analyze: summarized %d/%d files", len(summaries), len(candidates))

	overview, err := scan.Overview(fsys.Root())
	if err != nil {
		a.log.Printf("analyze: overview failed: %v", err)
		overview = ""
	}
	return Artifacts{Overview: overview, Candidates: candidates, Summaries: summaries}, nil
}

// Analyze returns a validated Report or an error. Failures of the report
// call itself are always *Error.
func (a *Analyzer) Analyze(ctx context.Context, root, requirements string) (Report, error) {
	art, err := a.Gather(ctx, root, requirements)
	if err != nil {
		return nil, err
	}
	return a.Report(ctx, requirements, art)
}

// Report composes the prompt from art and requests the final report.
func (a *Analyzer) Report(ctx context.Context, requirements string, art Artifacts) (Report, error) {
	prompt := ComposeIn(a.opts.OutputLanguage, requirements, art, a.opts.MaxPromptTokens*CharsPerToken)
	raw, err := a.client.Complete(llm.WithPhase(ctx, "report"), llm.Request{
		System:      ReportSystemPrompt(a.opts.OutputLanguage),
		User:        prompt,
		Temperature: a.opts.ReportTemperature,
		JSON:        true,
	})
	if err != nil {
		a.log.Printf("analyze: report request failed: %v", err)
		return nil, &Error{Reason: "Failed to generate report", Err: err}
	}
	return Validate(raw)
}

func ReportSystemPrompt(language string) string {
	return "You are an AI code analyst. " +
		"Map user-facing features to the exact implementation locations in the repository. " +
		"Only cite files and functions that demonstrably exist in the supplied context. " +
		"All natural-language content must be written in " + language + "."
}
