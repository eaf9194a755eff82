package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireviewer/internal/config"
)

func TestNew_FakeStackRunsEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.UsageLedgerPath = filepath.Join(t.TempDir(), "usage.json")
	dump := t.TempDir()
	var logs bytes.Buffer

	a, err := New(context.Background(), cfg, Options{Fake: true, DumpPrompts: dump, Logger: log.New(&logs, "", 0)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Nil(t, a.Archives)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("def main():\n    pass\n"), 0o644))

	rep, err := a.Analyzer.Analyze(context.Background(), root, "run the app")
	require.NoError(t, err)
	assert.Equal(t, "fake plan", rep["execution_plan_suggestion"])

	assert.FileExists(t, filepath.Join(dump, "prompt", "report.txt"))
	b, err := os.ReadFile(cfg.UsageLedgerPath)
	require.NoError(t, err)
	var ledger map[string]any
	require.NoError(t, json.Unmarshal(b, &ledger))
	assert.Contains(t, ledger, "days")
	assert.Contains(t, logs.String(), "LLM request (report)")
}

func TestNew_LiveClientNeedsKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""
	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "api key")
}

func TestNew_ArchiveStoreConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Endpoint = "localhost:9000"
	cfg.Archive.AccessKey = "minio"
	cfg.Archive.SecretKey = "minio123"
	a, err := New(context.Background(), cfg, Options{Fake: true, Logger: log.New(&bytes.Buffer{}, "", 0)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.NotNil(t, a.Archives)

	cfg.Archive.SecretKey = ""
	_, err = New(context.Background(), cfg, Options{Fake: true, Logger: log.New(&bytes.Buffer{}, "", 0)})
	assert.ErrorContains(t, err, "archive store")
}

func TestAnalyzerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Workers = 3
	opts := AnalyzerOptions(cfg)
	assert.Equal(t, 200, opts.Scan.MaxCandidateFiles)
	assert.Equal(t, 3, opts.Summarize.Workers)
	assert.Equal(t, 300, opts.Summarize.MaxOutputTokens)
	assert.Equal(t, 0.1, *opts.Summarize.Temperature)
	assert.Equal(t, 0.0, *opts.ReportTemperature)
	assert.Equal(t, 10_000, opts.MaxPromptTokens)
}
