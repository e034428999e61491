package ui

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/idilsaglam/livetodo/internal/model"
)

func TestRow(t *testing.T) {
	SetTheme("mono")
	t.Cleanup(func() { SetTheme("classic") })

	tests := []struct {
		name     string
		item     model.Item
		width    int
		selected bool
		want     string
	}{
		{name: "pending", item: model.Item{Title: "Buy milk"}, want: "  [ ] Buy milk"},
		{name: "selected", item: model.Item{Title: "Buy milk"}, selected: true, want: "> [ ] Buy milk"},
		{name: "complete", item: model.Item{Title: "Walk dog", Complete: true}, want: "  [x] Walk dog"},
		{name: "empty title", item: model.Item{}, want: "  [ ] "},
		{name: "truncated", item: model.Item{Title: "a very long title indeed"}, width: 12, want: "  [ ] a ver…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ansi.Strip(Row(tt.item, tt.width, tt.selected))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetThemeFallsBackToClassic(t *testing.T) {
	SetTheme("does-not-exist")
	assert.Equal(t, "classic", Current().Name)
	SetTheme("NEON")
	assert.Equal(t, "neon", Current().Name)
	SetTheme("classic")
}

func TestStats(t *testing.T) {
	done, pending := Stats([]model.Item{{Title: "a"}, {Title: "b", Complete: true}, {Title: "c"}})
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, pending)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░  50%", ProgressBar(1, 2, 10))
	assert.Equal(t, "░░░░░   0%", ProgressBar(0, 0, 1))
	assert.Equal(t, "█████ 100%", ProgressBar(7, 3, 5))
}

func TestProgressBarFollowsTheme(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")
	assert.Equal(t, "###..  60%", ProgressBar(3, 5, 5))
}

func TestOKAndFail(t *testing.T) {
	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "load: boom")
	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "added")
	assert.Contains(t, out, "✖ load: boom")
}
