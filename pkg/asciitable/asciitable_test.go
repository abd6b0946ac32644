package asciitable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderAlignsColumns(t *testing.T) {
	out := Render([][]string{
		{"path", "size"},
		{"2024/01/data.csv", "128"},
		{"a.csv", "4096"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3)
	// the "size" column should start at the same byte offset on every line
	idx := strings.Index(lines[0], "size")
	assert.Equal(t, idx, strings.Index(lines[1], "128"))
	assert.Equal(t, idx, strings.Index(lines[2], "4096"))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Render(nil))
}
