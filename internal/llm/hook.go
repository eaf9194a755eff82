package llm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type phaseKey struct{}

// WithPhase tags ctx with the pipeline phase issuing the call, such as
// "summarize:src/app.py#2" or "report".
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(phaseKey{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// PromptHook observes every call passing through WithHooks.
type PromptHook interface {
	Before(ctx context.Context, phase string, req Request)
	After(ctx context.Context, phase string, out string, err error)
}

// WithHooks runs each hook around the wrapped call.
func WithHooks(hooks ...PromptHook) Middleware {
	return func(next LLMClient) LLMClient {
		return &hooked{next: next, hooks: hooks}
	}
}

type hooked struct {
	next  LLMClient
	hooks []PromptHook
}

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) Complete(ctx context.Context, req Request) (string, error) {
	phase := PhaseFrom(ctx)
	for _, hk := range h.hooks {
		hk.Before(ctx, phase, req)
	}
	out, err := h.next.Complete(ctx, req)
	for _, hk := range h.hooks {
		hk.After(ctx, phase, out, err)
	}
	return out, err
}

// PromptSaver persists prompts and raw responses to Dir/prompt/<phase>.txt.
type PromptSaver struct {
	Dir string

	mu sync.Mutex
}

func (p *PromptSaver) Before(ctx context.Context, phase string, req Request) {
	var buf bytes.Buffer
	buf.WriteString("==== ")
	buf.WriteString(time.Now().Format(time.RFC3339))
	buf.WriteString(" ====\n[SYSTEM]\n")
	buf.WriteString(req.System)
	buf.WriteString("\n\n[USER]\n")
	buf.WriteString(req.User)
	buf.WriteString("\n\n")
	p.append(phase, buf.Bytes())
}

func (p *PromptSaver) After(ctx context.Context, phase string, out string, err error) {
	var buf bytes.Buffer
	buf.WriteString("[RESPONSE]\n")
	if err != nil {
		buf.WriteString("ERROR: " + err.Error() + "\n\n")
	} else {
		buf.WriteString(out)
		buf.WriteString("\n\n")
	}
	p.append(phase, buf.Bytes())
}

func (p *PromptSaver) append(phase string, b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := filepath.Join(p.Dir, "prompt")
	_ = os.MkdirAll(dir, 0o755)
	f, _ := os.OpenFile(filepath.Join(dir, phaseFileName(phase)+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if f != nil {
		_, _ = f.Write(b)
		_ = f.Close()
	}
}

// phaseFileName flattens a phase tag into a single path element.
func phaseFileName(phase string) string {
	if phase == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '#', ' ':
			return '_'
		}
		return r
	}, phase)
}
