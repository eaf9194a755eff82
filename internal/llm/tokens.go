package llm

import (
	"log"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is used for model ids tiktoken does not know, which
// includes every Gemini model.
const DefaultEncoding = "cl100k_base"

// TokenCounter reports how many tokens a text costs.
type TokenCounter interface {
	Count(text string) int
}

var (
	loaderOnce sync.Once
	counters   = mustCache(16)
)

func mustCache(n int) *lru.Cache[string, TokenCounter] {
	c, err := lru.New[string, TokenCounter](n)
	if err != nil {
		panic(err)
	}
	return c
}

// CounterForModel returns a tokenizer-backed counter for model. Encoders
// are cached per model id. When no BPE table can be loaded it falls back
// to ApproxCounter.
func CounterForModel(model string) TokenCounter {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if c, ok := counters.Get(model); ok {
		return c
	}
	c := resolveCounter(model)
	counters.Add(model, c)
	return c
}

func resolveCounter(model string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(DefaultEncoding)
	}
	if err != nil {
		log.Printf("tokens: no encoder for %q, using approximation: %v", model, err)
		return ApproxCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

// ApproxCounter estimates tokens as the larger of the word count and a
// quarter of the byte length.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	words := len(strings.Fields(text))
	quarter := (len(text) + 3) / 4
	if words > quarter {
		return words
	}
	return quarter
}
