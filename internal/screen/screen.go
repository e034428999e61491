// Package screen is the todo list screen: a live list fed by a collection
// subscription plus an input for adding items.
package screen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/store"
	"github.com/idilsaglam/livetodo/internal/toast"
	"github.com/idilsaglam/livetodo/internal/todo"
	"github.com/idilsaglam/livetodo/internal/ui"
)

const (
	headerTitle  = "TODOs List"
	inputLabel   = "New Todo"
	buttonLabel  = "➤ Add"
	defaultWidth = 80
	defaultHigh  = 24

	// rows taken by header, subtitle, input box and help without toasts
	chromeHeight = 8
)

// Service is what the screen needs from the todo layer.
type Service interface {
	Create(ctx context.Context, text string) (model.Item, error)
	Subscribe(ctx context.Context, fn func([]model.Item)) (store.Unsubscribe, error)
}

// SnapshotMsg replaces the whole list.
type SnapshotMsg struct {
	Items []model.Item
}

// addResultMsg reports how an insert went.
type addResultMsg struct {
	title string
	item  model.Item
	err   error
}

// Options tune the screen.
type Options struct {
	Logger        *log.Logger
	ToastDuration time.Duration
	Subtitle      string

	// ProgramOptions are appended to the defaults (alt screen, ctx).
	ProgramOptions []tea.ProgramOption
}

// Model is the Bubble Tea model for the screen.
type Model struct {
	ctx    context.Context
	svc    Service
	logger *log.Logger

	keys     keyMap
	help     help.Model
	subtitle string

	loading bool
	items   []model.Item
	list    list.Model
	input   textinput.Model
	toast   toast.Model

	width, height int
}

// New builds a screen in the loading state. Nothing is drawn until the
// first SnapshotMsg arrives.
func New(ctx context.Context, svc Service, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Subtitle == "" {
		opts.Subtitle = "List of TODOs!"
	}

	l := list.New(nil, rowDelegate{}, defaultWidth, defaultHigh)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.SetStatusBarItemName("todo", "todos")
	l.Styles.NoItems = ui.Current().Muted.Padding(0, 2)
	l.Styles.PaginationStyle = ui.Current().Muted.PaddingLeft(2)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 200
	ti.Focus()

	return Model{
		ctx:      ctx,
		svc:      svc,
		logger:   opts.Logger,
		keys:     defaultKeys(),
		help:     help.New(),
		subtitle: opts.Subtitle,
		loading:  true,
		list:     l,
		input:    ti,
		toast:    toast.New(opts.ToastDuration),
		width:    defaultWidth,
		height:   defaultHigh,
	}
}

// Run shows the screen until the user quits or ctx is done. The
// subscription is opened before the program starts and released on every
// way out of Run.
func Run(ctx context.Context, svc Service, opts Options) error {
	m := New(ctx, svc, opts)
	popts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts.ProgramOptions...)
	p := tea.NewProgram(m, popts...)

	unsub, err := svc.Subscribe(ctx, func(items []model.Item) {
		p.Send(SnapshotMsg{Items: items})
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsub()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(msg.Width, max(msg.Height-chromeHeight, 2))
		return m, nil

	case SnapshotMsg:
		m.loading = false
		m.items = msg.Items
		return m, m.list.SetItems(toListItems(msg.Items))

	case addResultMsg:
		if msg.err != nil {
			m.logger.Error("adding todo", "title", msg.title, "err", msg.err)
			return m.notify(toast.Error, toast.Bottom, "Error", "Failed to add todo!")
		}
		m.logger.Info("todo added", "id", msg.item.ID, "title", msg.title)
		m.input.SetValue("")
		return m.notify(toast.Success, toast.Top, "Success", fmt.Sprintf("%s added successfully!", msg.title))

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.loading {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Submit, m.keys.Add):
			return m.addTodo()
		case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.Page):
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.toast, cmd = m.toast.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// addTodo validates the input and, when it is not blank, returns the
// command that inserts it. The list itself only changes when the
// subscription delivers the insert.
func (m Model) addTodo() (Model, tea.Cmd) {
	title, err := todo.Normalize(m.input.Value())
	if err != nil {
		return m.notify(toast.Error, toast.Bottom, "Error", err.Error())
	}
	svc, ctx := m.svc, m.ctx
	return m, func() tea.Msg {
		it, err := svc.Create(ctx, title)
		return addResultMsg{title: title, item: it, err: err}
	}
}

func (m Model) notify(kind toast.Kind, pos toast.Position, title, body string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toast, cmd = m.toast.Show(toast.Toast{Kind: kind, Position: pos, Title: title, Body: body})
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.loading {
		return ""
	}
	t := ui.Current()
	w := m.width

	header := t.Header.Width(w).Align(lipgloss.Center).Render(t.HeaderTitle.Render(headerTitle))
	subtitle := " " + m.subtitle

	inputWidth := w * 8 / 10
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth - 6
	box := lipgloss.NewStyle().
		Border(t.Border).
		BorderForeground(t.BorderFg).
		Padding(0, 1).
		Width(inputWidth - 2).
		Render(t.Muted.Render(inputLabel) + "\n" + m.input.View())
	button := t.Button.Padding(0, 1).Render(buttonLabel)
	inputRow := lipgloss.JoinHorizontal(lipgloss.Bottom, box, button)

	helpLine := m.help.View(m.keys)

	var top, bottom string
	if m.toast.Visible(toast.Top) {
		top = lipgloss.PlaceHorizontal(w, lipgloss.Center, m.toast.View(w))
	}
	if m.toast.Visible(toast.Bottom) {
		bottom = lipgloss.PlaceHorizontal(w, lipgloss.Center, m.toast.View(w))
	}

	used := lipgloss.Height(header) + lipgloss.Height(subtitle) + lipgloss.Height(inputRow) + lipgloss.Height(helpLine)
	if top != "" {
		used += lipgloss.Height(top)
	}
	if bottom != "" {
		used += lipgloss.Height(bottom)
	}
	listHeight := m.height - used
	if listHeight < 2 {
		listHeight = 2
	}
	m.list.SetSize(w, listHeight)

	parts := []string{header}
	if top != "" {
		parts = append(parts, top)
	}
	parts = append(parts, subtitle, m.list.View())
	if bottom != "" {
		parts = append(parts, bottom)
	}
	parts = append(parts, inputRow, helpLine)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Loading reports whether the first snapshot is still outstanding.
func (m Model) Loading() bool { return m.loading }

// Items returns the list as last delivered.
func (m Model) Items() []model.Item { return m.items }

// Input returns the pending input text.
func (m Model) Input() string { return m.input.Value() }

// SetInput replaces the pending input text.
func (m *Model) SetInput(s string) { m.input.SetValue(s) }

// Toast returns the visible notification, if any.
func (m Model) Toast() (toast.Toast, bool) { return m.toast.Current() }

// ToastsShown counts notifications shown so far.
func (m Model) ToastsShown() int { return m.toast.Shown() }
