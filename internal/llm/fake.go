package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeClient returns deterministic responses for offline runs and tests.
// Respond, when set, decides each answer; otherwise JSON requests get a
// minimal valid report and text requests get a one-line summary.
type FakeClient struct {
	Respond func(ctx context.Context, req Request) (string, error)

	mu    sync.Mutex
	calls []Request
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls returns a copy of every request received so far.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(ctx, req)
	}
	if req.JSON {
		return `{"feature_analysis":[],"execution_plan_suggestion":"fake plan"}`, nil
	}
	first := req.User
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return fmt.Sprintf("fake summary (%d bytes): %s", len(req.User), first), nil
}
