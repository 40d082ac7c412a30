// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/c1au6i0/condathis/internal/mamba"
)

// columnGap separates table columns.
const columnGap = "  "

// writeTable prints rows under a styled header with columns padded to the
// widest cell. Trailing whitespace is trimmed from every line.
func (a *App) writeTable(header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Render(c) + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		return strings.TrimRight(strings.Join(parts, columnGap), " ")
	}

	var sb strings.Builder
	sb.WriteString(line(header, SubtitleStyle))
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(line(row, lipgloss.NewStyle()))
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(a.stdout, sb.String())
	return err
}

// relay copies captured output of a finished invocation to the CLI's own
// streams. Output already streamed live, or sent to files, is not repeated.
func (a *App) relay(res *mamba.Result, v mamba.Verbosity) {
	if res == nil || v.StreamsOutput() {
		return
	}
	if res.Stdout != "" {
		fmt.Fprint(a.stdout, res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(a.stderr, res.Stderr)
	}
}
