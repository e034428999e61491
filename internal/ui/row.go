package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/idilsaglam/livetodo/internal/model"
)

// Row renders one todo on a single line: selection marker, checkbox, title.
// Titles wider than width are cut with an ellipsis.
func Row(it model.Item, width int, selected bool) string {
	box := current.Muted.Render(current.BoxUnchecked)
	title := it.Title
	if it.Complete {
		box = current.Success.Render(current.BoxChecked)
		title = current.Muted.Strikethrough(true).Render(title)
	}
	prefix := "  "
	if selected {
		prefix = current.Selected.Render("> ")
	}
	line := prefix + box + " " + title
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}

// Separator is the rule drawn between rows.
func Separator(width int) string {
	if width <= 0 {
		width = 1
	}
	return current.Muted.Render(strings.Repeat(current.Separator, width))
}

// Stats counts done and pending items for headers.
func Stats(items []model.Item) (done, pending int) {
	for _, it := range items {
		if it.Complete {
			done++
		} else {
			pending++
		}
	}
	return
}
