package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/livetodo/internal/model"
)

func TestFlatLinesTruncatesByCell(t *testing.T) {
	title := strings.Repeat("a", 76) + strings.Repeat("é", 10)
	lines := flatLines([]model.Item{{ID: "1", Title: title}})
	require.Len(t, lines, 1)

	line := ansi.Strip(lines[0])
	assert.True(t, utf8.ValidString(line), "invalid UTF-8: %q", line)
	assert.True(t, strings.HasSuffix(line, strings.Repeat("a", 76)+"é..."), line)
}

func TestFlatLinesKeepsShortTitles(t *testing.T) {
	lines := flatLines([]model.Item{{ID: "1", Title: "Crème brûlée"}})
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(ansi.Strip(lines[0]), "Crème brûlée"))
}
