package cli

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "USAGE_LEDGER_PATH", "DATABASE_URL", "ARCHIVE_S3_ENDPOINT", "MAX_CANDIDATE_FILES"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	h := New()
	var stdout, stderr bytes.Buffer
	h.rootCmd.SetOut(&stdout)
	h.rootCmd.SetErr(&stderr)
	err := h.Execute(args)
	return stdout.String(), stderr.String(), err
}

func repo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "app.py"), []byte("class App:\n    def run(self):\n        pass\n"), 0o644))
	return root
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "reviewer "+Version+"\n", out)
}

func TestAnalyze_RepoToStdout(t *testing.T) {
	isolate(t)
	out, stderr, err := run(t, "analyze", "--fake", "--repo", repo(t), "--problem", "run the app")
	require.NoError(t, err)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "fake plan", rep["execution_plan_suggestion"])
	assert.Contains(t, stderr, "1 candidates, 1 summaries")
}

func TestAnalyze_ZipToFileWithArtifacts(t *testing.T) {
	isolate(t)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("proj/main.ts")
	require.NoError(t, err)
	_, _ = w.Write([]byte("export function main() {}\n"))
	require.NoError(t, zw.Close())

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "repo.zip")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0o644))
	reqPath := filepath.Join(dir, "req.md")
	require.NoError(t, os.WriteFile(reqPath, []byte("# Features\n- start"), 0o644))
	outPath := filepath.Join(dir, "out", "report.json")
	artPath := filepath.Join(dir, "out", "artifacts.json")

	_, stderr, err := run(t, "analyze", "--fake", "--zip", zipPath, "--requirements", reqPath, "--out", outPath, "--artifacts", artPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Report written to "+outPath)
	assert.FileExists(t, outPath)

	b, err := os.ReadFile(artPath)
	require.NoError(t, err)
	var art struct {
		Candidates []struct {
			RelPath string `json:"relative_path"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(b, &art))
	require.Len(t, art.Candidates, 1)
	assert.Equal(t, "proj/main.ts", art.Candidates[0].RelPath)
}

func TestAnalyze_FlagValidation(t *testing.T) {
	isolate(t)
	root := repo(t)

	_, _, err := run(t, "analyze", "--fake", "--problem", "x")
	assert.ErrorContains(t, err, "exactly one of --repo or --zip")

	_, _, err = run(t, "analyze", "--fake", "--repo", root, "--zip", "a.zip", "--problem", "x")
	assert.ErrorContains(t, err, "exactly one of --repo or --zip")

	_, _, err = run(t, "analyze", "--fake", "--repo", root)
	assert.ErrorContains(t, err, "--requirements or --problem is required")

	_, _, err = run(t, "analyze", "--fake", "--repo", root, "--problem", "x", "--requirements", "r.md")
	assert.ErrorContains(t, err, "not both")
}

func TestAnalyze_LiveWithoutKeyFails(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "analyze", "--repo", repo(t), "--problem", "x")
	assert.ErrorContains(t, err, "api key")
}

func TestAnalyze_BadConfig(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "--config", "missing.yaml", "analyze", "--fake", "--repo", repo(t), "--problem", "x")
	assert.ErrorContains(t, err, "loading configuration")
}
