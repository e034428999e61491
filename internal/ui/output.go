package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Success.Render(current.SymDone+" "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Error.Render("✖ "+msg))
}

// Panel frames lines in the theme's border.
func Panel(lines []string) string {
	return lipgloss.NewStyle().
		Border(current.Border).
		BorderForeground(current.BorderFg).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// ProgressBar renders done/total as a bar of width cells in the theme's
// glyphs, followed by the percentage. An empty total reads as 0%.
func ProgressBar(done, total, width int) string {
	width = max(width, 5)
	var filled, pct int
	if total > 0 {
		done = min(max(done, 0), total)
		filled = done * width / total
		pct = done * 100 / total
	}
	bar := strings.Repeat(current.BarFill, filled) + strings.Repeat(current.BarEmpty, width-filled)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}
