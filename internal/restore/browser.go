package restore

import (
	"fmt"
	"io"
	"strings"

	"github.com/aelpxy/dockup/internal/layout"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Back    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Confirm, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.All, k.None},
		{k.Confirm, k.Back, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous column")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all volumes")),
	None:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "select none")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "restore")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(30)

	focusedColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("213"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

type mode int

const (
	modeBrowse mode = iota
	modeConfirm
)

// Model is the bubbletea model of the restore browser. It never touches the
// store; it only produces a confirmed Selection.
type Model struct {
	state     *State
	root      string
	help      help.Model
	mode      mode
	confirmed bool
	notice    string
}

func NewModel(state *State, remoteRoot string) Model {
	return Model{
		state: state,
		root:  remoteRoot,
		help:  help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.mode == modeConfirm {
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch {
	case key.Matches(msg, keys.Quit), key.Matches(msg, keys.Back) && m.state.Focus() == ColumnProjects:
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.state.Up()
	case key.Matches(msg, keys.Down):
		m.state.Down()
	case key.Matches(msg, keys.Left), key.Matches(msg, keys.Back):
		m.state.Left()
	case key.Matches(msg, keys.Right):
		m.state.Right()
	case key.Matches(msg, keys.Toggle):
		m.state.Toggle()
	case key.Matches(msg, keys.All):
		m.state.SelectAll()
	case key.Matches(msg, keys.None):
		m.state.SelectNone()
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Confirm):
		if _, ok := m.state.Selection(); ok {
			m.mode = modeConfirm
		} else {
			m.notice = "select at least one item in the volumes column"
		}
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		m.mode = modeBrowse
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// Confirmed reports whether the user accepted the confirmation view.
func (m Model) Confirmed() bool {
	return m.confirmed
}

func (m Model) Selection() (Selection, bool) {
	if !m.confirmed {
		return Selection{}, false
	}
	return m.state.Selection()
}

func (m Model) View() string {
	if m.mode == modeConfirm {
		return m.confirmView()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("dockup restore"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.column(ColumnProjects, "Projects", m.projectRows()),
		m.column(ColumnDates, "Backups", m.dateRows()),
		m.column(ColumnVolumes, "Items", m.itemRows()),
	))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(warnStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d item(s) selected", m.state.SelectedCount())))
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) column(col Column, title string, rows []string) string {
	style := columnStyle
	if m.state.Focus() == col {
		style = focusedColumnStyle
	}

	lines := []string{labelStyle.Render(title)}
	if len(rows) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}
	cursor := m.state.Cursor(col)
	for i, row := range rows {
		if i == cursor {
			lines = append(lines, cursorStyle.Render("> "+row))
		} else {
			lines = append(lines, "  "+row)
		}
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) projectRows() []string {
	return m.state.Projects()
}

func (m Model) dateRows() []string {
	var rows []string
	for _, rec := range m.state.Dates() {
		rows = append(rows, fmt.Sprintf("%s %s", layout.DirName(rec), dimStyle.Render(string(rec.Kind))))
	}
	return rows
}

func (m Model) itemRows() []string {
	var rows []string
	for _, item := range m.state.Items() {
		mark := "[ ]"
		if m.state.IsSelected(item) {
			mark = "[x]"
		}
		label := item.Name
		if item.Repo {
			label = "REPO (application files)"
		} else {
			label += dimStyle.Render(" " + string(item.Volume.Kind))
		}
		rows = append(rows, mark+" "+label)
	}
	return rows
}

func (m Model) confirmView() string {
	sel, ok := m.state.Selection()
	if !ok {
		return ""
	}

	repo := "no"
	if sel.Repo {
		repo = "yes"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Confirm restore"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Project:"), valueStyle.Render(sel.Record.Name))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Backup:"), valueStyle.Render(layout.DirName(sel.Record)))
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("Repo:"), valueStyle.Render(repo))

	for _, step := range Steps(m.root, sel) {
		fmt.Fprintf(&b, "  %s -> %s\n", step.Name, step.Destination)
	}

	b.WriteString("\n")
	b.WriteString(warnStyle.Render("Existing data at every destination above will be deleted and replaced."))
	b.WriteString("\n")
	b.WriteString(warnStyle.Render("No snapshot of the current state is taken."))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("enter to restore, esc to go back, q to quit"))
	return b.String()
}

// ConsoleSink is the part of the logger the browser silences while it owns
// the terminal.
type ConsoleSink interface {
	Swap(w io.Writer) (restore func())
}

// Browse runs the interactive browser and returns the confirmed selection.
// ok is false when the user quit without confirming.
func Browse(state *State, remoteRoot string, sink ConsoleSink, opts ...tea.ProgramOption) (Selection, bool, error) {
	if sink != nil {
		restore := sink.Swap(io.Discard)
		defer restore()
	}

	p := tea.NewProgram(NewModel(state, remoteRoot), opts...)
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, fmt.Errorf("error running restore browser: %w", err)
	}

	model, ok := final.(Model)
	if !ok {
		return Selection{}, false, fmt.Errorf("could not type assert tea model to concrete type")
	}

	sel, ok := model.Selection()
	return sel, ok, nil
}
