package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb", []string{"a", "b"}},
		{"bare cr", "a\rb\r", []string{"a", "b"}},
		{"blank middle", "a\n\nb", []string{"a", "", "b"}},
		{"only newline", "\n", []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitLines(tc.in))
		})
	}
}

func TestIndentWidth(t *testing.T) {
	assert.Equal(t, 0, IndentWidth("def f():"))
	assert.Equal(t, 4, IndentWidth("    def f():"))
	assert.Equal(t, 1, IndentWidth("\tpass"))
	assert.True(t, IsBlank("   \t"))
	assert.False(t, IsBlank("  x"))
}
