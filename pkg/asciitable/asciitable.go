// Package asciitable renders simple aligned tables for the tempo CLI,
// grounded in goneat's pkg/ascii terminal-width helpers (ascii.go's
// StringWidth/Box), adapted from fixed single-box framing to a multi-column
// table so it stays aligned with multi-byte UTF-8 content (station codes,
// unicode attribute values) the way goneat's box drawing does.
package asciitable

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Render lays out rows (including the header as rows[0]) into a
// space-padded table whose columns stay aligned by display width rather
// than byte length.
func Render(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	cols := len(rows[0])
	widths := make([]int, cols)
	for _, row := range rows {
		for i, cell := range row {
			if i >= cols {
				continue
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i >= cols {
				continue
			}
			sb.WriteString(cell)
			if i < cols-1 {
				pad := widths[i] - runewidth.StringWidth(cell) + 2
				if pad < 1 {
					pad = 1
				}
				sb.WriteString(strings.Repeat(" ", pad))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
