// Package app wires configuration into a ready-to-use analyzer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"aireviewer/internal/archive"
	"aireviewer/internal/config"
	"aireviewer/internal/llm"
	"aireviewer/internal/report"
	"aireviewer/internal/scan"
	"aireviewer/internal/summarize"
)

type Options struct {
	// Fake replaces the live model with llm.FakeClient.
	Fake bool
	// DumpPrompts, when set, receives every prompt and response.
	DumpPrompts string
	Logger      *log.Logger
}

type App struct {
	Config   *config.Config
	Client   llm.LLMClient
	Analyzer *report.Analyzer
	// Archives is nil unless an archive store is configured.
	Archives *archive.S3Store

	closers []func() error
}

// New builds the client stack, ledgers and analyzer described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Config: cfg}

	base, err := newBaseClient(ctx, cfg, opts.Fake)
	if err != nil {
		return nil, err
	}
	counter := llm.CounterForModel(cfg.LLM.Model)

	mws := []llm.Middleware{llm.WithLogging(logger)}
	if dir := strings.TrimSpace(opts.DumpPrompts); dir != "" {
		mws = append(mws, llm.WithHooks(&llm.PromptSaver{Dir: dir}))
	}
	if p := strings.TrimSpace(cfg.UsageLedgerPath); p != "" {
		mws = append(mws, llm.WithUsage(llm.NewFileLedger(p), counter))
		logger.Printf("usage ledger: file %s", p)
	}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := llm.OpenPostgresLedger(dsn)
		if err != nil {
			return nil, fmt.Errorf("open usage database: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		mws = append(mws, llm.WithUsage(pg, counter))
		logger.Printf("usage ledger: postgres")
	}
	mws = append(mws,
		llm.Retry(cfg.LLM.RetryAttempts, 500*time.Millisecond),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	)
	a.Client = llm.Wrap(base, mws...)
	a.closers = append(a.closers, a.Client.Close)

	if cfg.Archive.Enabled() {
		store, err := archive.NewS3Store(archive.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to initialize archive store: %w", err)
		}
		logger.Printf("archive store: s3 bucket=%s endpoint=%s", cfg.Archive.Bucket, cfg.Archive.Endpoint)
		a.Archives = store
	}

	a.Analyzer = report.NewAnalyzer(a.Client, counter, AnalyzerOptions(cfg), logger)
	return a, nil
}

func newBaseClient(ctx context.Context, cfg *config.Config, fake bool) (llm.LLMClient, error) {
	if fake {
		return llm.NewFakeClient(), nil
	}
	cli, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	return cli, nil
}

// AnalyzerOptions maps configuration onto pipeline options.
func AnalyzerOptions(cfg *config.Config) report.Options {
	return report.Options{
		Scan: scan.Options{
			MaxCandidateFiles: cfg.Analysis.MaxCandidateFiles,
			MaxFileBytes:      cfg.Analysis.MaxFileBytes,
			RespectGitignore:  cfg.Analysis.RespectGitignore,
		},
		Summarize: summarize.Options{
			MaxTokensPerChunk: cfg.Analysis.MaxTokensPerChunk,
			MaxOutputTokens:   cfg.LLM.SummaryMaxOutputTokens,
			Temperature:       llm.Temperature(cfg.LLM.SummarizeTemperature),
			OutputLanguage:    cfg.Analysis.OutputLanguage,
			Workers:           cfg.Analysis.Workers,
		},
		MaxPromptTokens:   cfg.Analysis.MaxPromptTokens,
		ReportTemperature: llm.Temperature(cfg.LLM.ReportTemperature),
		OutputLanguage:    cfg.Analysis.OutputLanguage,
	}
}

// Close releases clients and database handles.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
