// Package toast shows short-lived notifications on top of a Bubble Tea view.
// One toast is visible at a time; showing a new one replaces it.
package toast

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Kind is the toast flavour.
type Kind int

const (
	Success Kind = iota
	Error
)

// Position says where the screen should draw the toast.
type Position int

const (
	Top Position = iota
	Bottom
)

// DefaultDuration is how long a toast stays up when none is given.
const DefaultDuration = 4 * time.Second

// Toast is one notification.
type Toast struct {
	Kind     Kind
	Position Position
	Title    string
	Body     string
	Duration time.Duration
}

// expiredMsg hides the toast with the matching id.
type expiredMsg struct{ id int }

// Styles used to draw toasts.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Title   lipgloss.Style
}

// DefaultStyles returns bordered boxes: green for success, red for errors.
func DefaultStyles() Styles {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return Styles{
		Success: box.BorderForeground(lipgloss.Color("42")),
		Error:   box.BorderForeground(lipgloss.Color("9")),
		Title:   lipgloss.NewStyle().Bold(true),
	}
}

// Model holds the visible toast.
type Model struct {
	Styles   Styles
	Duration time.Duration

	current *Toast
	id      int
	shown   int
}

// New returns a Model with default styles.
func New(d time.Duration) Model {
	if d <= 0 {
		d = DefaultDuration
	}
	return Model{Styles: DefaultStyles(), Duration: d}
}

// Show replaces the visible toast and returns the command that hides it.
func (m Model) Show(t Toast) (Model, tea.Cmd) {
	if t.Duration <= 0 {
		t.Duration = m.Duration
	}
	m.id++
	m.shown++
	m.current = &t
	id := m.id
	return m, tea.Tick(t.Duration, func(time.Time) tea.Msg { return expiredMsg{id: id} })
}

// Update handles expiry. An expiry for an older toast is ignored.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if e, ok := msg.(expiredMsg); ok && e.id == m.id {
		m.current = nil
	}
	return m, nil
}

// Current returns the visible toast, if any.
func (m Model) Current() (Toast, bool) {
	if m.current == nil {
		return Toast{}, false
	}
	return *m.current, true
}

// Shown counts toasts shown over the model's lifetime.
func (m Model) Shown() int { return m.shown }

// Visible reports whether a toast is up at position p.
func (m Model) Visible(p Position) bool {
	return m.current != nil && m.current.Position == p
}

// View renders the visible toast, or "" when none is up.
func (m Model) View(width int) string {
	if m.current == nil {
		return ""
	}
	style := m.Styles.Success
	if m.current.Kind == Error {
		style = m.Styles.Error
	}
	if width > 4 {
		style = style.MaxWidth(width)
	}
	return style.Render(m.Styles.Title.Render(m.current.Title) + "\n" + m.current.Body)
}
