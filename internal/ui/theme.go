package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette, symbols and box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name string

	Title       lipgloss.Style
	Muted       lipgloss.Style
	Accent      lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Pending     lipgloss.Style
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	Selected    lipgloss.Style
	Button      lipgloss.Style

	Border    lipgloss.Border
	BorderFg  lipgloss.TerminalColor
	Separator string

	BoxUnchecked string
	BoxChecked   string
	SymDone      string
	SymPending   string
	BarFill      string
	BarEmpty     string
}

var current = classic()

// SetTheme switches the palette. Unknown names fall back to classic.
func SetTheme(name string) {
	switch strings.ToLower(name) {
	case "neon":
		current = neon()
	case "mono":
		current = mono()
	default:
		current = classic()
	}
}

// Current returns the active theme.
func Current() Theme { return current }

func classic() Theme {
	return Theme{
		Name:         "classic",
		Title:        lipgloss.NewStyle().Bold(true),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Accent:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Pending:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Header:       lipgloss.NewStyle().Background(lipgloss.Color("#5555cc")).Padding(0, 1),
		HeaderTitle:  lipgloss.NewStyle().Background(lipgloss.Color("#ffffff")).Foreground(lipgloss.Color("#000000")).Bold(true).Padding(0, 2),
		Selected:     lipgloss.NewStyle().Bold(true).Reverse(true),
		Button:       lipgloss.NewStyle().Foreground(lipgloss.Color("#5555cc")).Bold(true),
		Border:       lipgloss.RoundedBorder(),
		BorderFg:     lipgloss.Color("8"),
		Separator:    "─",
		BoxUnchecked: "☐",
		BoxChecked:   "☑",
		SymDone:      "✔",
		SymPending:   "•",
		BarFill:      "█",
		BarEmpty:     "░",
	}
}

func neon() Theme {
	t := classic()
	t.Name = "neon"
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	t.Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	t.Pending = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	t.Header = lipgloss.NewStyle().Background(lipgloss.Color("13")).Padding(0, 1)
	t.Button = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	t.BorderFg = lipgloss.Color("13")
	t.BoxUnchecked, t.BoxChecked = "◻", "◼"
	t.BarFill, t.BarEmpty = "▰", "▱"
	return t
}

func mono() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Name:         "mono",
		Title:        plain,
		Muted:        plain,
		Accent:       plain,
		Success:      plain,
		Error:        plain,
		Pending:      plain,
		Header:       plain,
		HeaderTitle:  plain,
		Selected:     plain,
		Button:       plain,
		Border:       lipgloss.NormalBorder(),
		BorderFg:     lipgloss.NoColor{},
		Separator:    "-",
		BoxUnchecked: "[ ]",
		BoxChecked:   "[x]",
		SymDone:      "x",
		SymPending:   "-",
		BarFill:      "#",
		BarEmpty:     ".",
	}
}
