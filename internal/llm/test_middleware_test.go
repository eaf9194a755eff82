package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flaky fails the first n calls with err, then answers "ok".
func flaky(n int, err error) *FakeClient {
	f := NewFakeClient()
	calls := 0
	f.Respond = func(ctx context.Context, req Request) (string, error) {
		calls++
		if calls <= n {
			return "", err
		}
		return "ok", nil
	}
	return f
}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	inner := flaky(2, errors.New("503"))
	cli := Wrap(inner, Retry(3, time.Millisecond))

	out, err := cli.Complete(context.Background(), Request{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Len(t, inner.Calls(), 3)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := flaky(10, errors.New("boom"))
	cli := Wrap(inner, Retry(3, time.Millisecond))

	_, err := cli.Complete(context.Background(), Request{})
	require.EqualError(t, err, "boom")
	assert.Len(t, inner.Calls(), 3)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	inner := flaky(10, NewPermanentError(errors.New("bad key")))
	cli := Wrap(inner, Retry(5, time.Millisecond))

	_, err := cli.Complete(context.Background(), Request{})
	var pErr *PermanentError
	require.ErrorAs(t, err, &pErr)
	assert.Len(t, inner.Calls(), 1)
}

func TestRetry_StopsOnCanceledContext(t *testing.T) {
	inner := flaky(10, errors.New("slow"))
	cli := Wrap(inner, Retry(5, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := cli.Complete(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, inner.Calls(), 1)
}

type tagClient struct {
	next LLMClient
	tag  string
	seen *[]string
}

func (c *tagClient) Name() string { return c.next.Name() }
func (c *tagClient) Close() error { return c.next.Close() }
func (c *tagClient) Complete(ctx context.Context, req Request) (string, error) {
	*c.seen = append(*c.seen, c.tag)
	return c.next.Complete(ctx, req)
}

func TestWrap_AppliesLeftToRight(t *testing.T) {
	var seen []string
	tag := func(s string) Middleware {
		return func(next LLMClient) LLMClient { return &tagClient{next: next, tag: s, seen: &seen} }
	}
	cli := Wrap(NewFakeClient(), tag("A"), nil, tag("B"))
	_, err := cli.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestWithLogging_LogsPhaseAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	inner := flaky(1, errors.New("quota"))
	cli := Wrap(inner, WithLogging(logger))

	ctx := WithPhase(context.Background(), "summarize:a.py#1")
	_, _ = cli.Complete(ctx, Request{User: "hello"})
	_, _ = cli.Complete(ctx, Request{User: "hello"})

	out := buf.String()
	assert.Contains(t, out, "LLM request (summarize:a.py#1): 5 bytes")
	assert.Contains(t, out, "LLM error (summarize:a.py#1): quota")
	assert.Contains(t, out, "LLM response (summarize:a.py#1)")
}

func TestPhaseFrom_DefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
	assert.Equal(t, "report", PhaseFrom(WithPhase(context.Background(), "report")))
}

func TestPromptSaver_WritesPromptAndResponse(t *testing.T) {
	dir := t.TempDir()
	saver := &PromptSaver{Dir: dir}
	cli := Wrap(NewFakeClient(), WithHooks(saver))

	ctx := WithPhase(context.Background(), "summarize:src/app.py#1")
	_, err := cli.Complete(ctx, Request{System: "sys", User: "File: src/app.py"})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "prompt", "summarize_src_app.py_1.txt"))
	require.NoError(t, err)
	got := string(b)
	assert.Contains(t, got, "[SYSTEM]\nsys")
	assert.Contains(t, got, "[USER]\nFile: src/app.py")
	assert.Contains(t, got, "[RESPONSE]\nfake summary")
}

func TestPromptSaver_RecordsErrors(t *testing.T) {
	dir := t.TempDir()
	cli := Wrap(flaky(1, errors.New("down")), WithHooks(&PromptSaver{Dir: dir}))
	_, _ = cli.Complete(context.Background(), Request{User: "x"})

	b, err := os.ReadFile(filepath.Join(dir, "prompt", "unknown.txt"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "ERROR: down"))
}

func TestFakeClient_DefaultResponses(t *testing.T) {
	f := NewFakeClient()
	js, err := f.Complete(context.Background(), Request{JSON: true})
	require.NoError(t, err)
	assert.Contains(t, js, `"feature_analysis"`)

	txt, err := f.Complete(context.Background(), Request{User: "File: a.go\nmore"})
	require.NoError(t, err)
	assert.Contains(t, txt, "File: a.go")
	assert.NotContains(t, txt, "more")
	assert.Len(t, f.Calls(), 2)
}
