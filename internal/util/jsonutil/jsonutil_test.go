package jsonutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"k": "<a> & 登录"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a> & 登录"}`, string(b))
}

func TestMarshalNoEscapeIndent(t *testing.T) {
	b, err := MarshalNoEscapeIndent(map[string]int{"a": 1}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))
}

func TestEncode_TrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []string{"x"}, ""))
	assert.Equal(t, "[\"x\"]\n", buf.String())
}
