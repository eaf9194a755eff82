package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview_DepthBoundAndNoise(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.py", "x = 1\n")
	write(t, root, "logo.png", "png")
	write(t, root, "src/app/service.py", "x = 1\n")
	write(t, root, "src/app/deep/too_deep.py", "x = 1\n")
	write(t, root, "node_modules/lib.js", "x\n")

	got, err := Overview(root)
	require.NoError(t, err)
	lines := strings.Split(got, "\n")

	assert.Equal(t, []string{
		"├─ main.py",
		"├─ node_modules/",
		"├─ src/",
		"  ├─ lib.js",
		"  ├─ app/",
		"    ├─ deep/",
		"    ├─ service.py",
	}, lines)
	assert.NotContains(t, got, "logo.png")
	assert.NotContains(t, got, "too_deep.py")
}

func TestOverview_Empty(t *testing.T) {
	got, err := Overview(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
