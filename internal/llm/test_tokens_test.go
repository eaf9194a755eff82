package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApproxCounter(t *testing.T) {
	c := ApproxCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 0, c.Count("   \n"))
	// words win for short words
	assert.Equal(t, 4, c.Count("a b c d"))
	// bytes/4 wins for long tokens
	assert.Equal(t, 5, c.Count("abcdefghijklmnopqrst"))
}

func TestCounterForModel_CachesAndCounts(t *testing.T) {
	a := CounterForModel("gemini-2.5-flash")
	b := CounterForModel("gemini-2.5-flash")
	assert.True(t, a == b, "counter should be cached per model")

	n := a.Count("hello world, this is a tokenizer test")
	assert.Greater(t, n, 3)
	assert.Less(t, n, 40)
	assert.Equal(t, 0, a.Count(""))
}

func TestCounterForModel_KnownOpenAIModel(t *testing.T) {
	c := CounterForModel("gpt-4")
	assert.Greater(t, c.Count("func main() {}"), 0)
}
