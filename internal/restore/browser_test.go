package restore

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_ConfirmFlow(t *testing.T) {
	m := NewModel(NewState(testInventory()), "/backups")

	m, cmd := send(t, m,
		runes("l"), runes("l"),
		tea.KeyMsg{Type: tea.KeySpace},
		runes("j"),
		tea.KeyMsg{Type: tea.KeySpace},
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	assert.Nil(t, cmd)
	assert.Equal(t, modeConfirm, m.mode)

	view := m.View()
	assert.Contains(t, view, "Confirm restore")
	assert.Contains(t, view, "REPO -> /srv/blog")
	assert.Contains(t, view, "./data -> /srv/blog/./data")
	assert.Contains(t, view, "will be deleted and replaced")

	_, ok := m.Selection()
	assert.False(t, ok)

	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
	assert.True(t, m.Confirmed())

	sel, ok := m.Selection()
	require.True(t, ok)
	assert.True(t, sel.Repo)
	require.Len(t, sel.Volumes, 1)
	assert.Equal(t, "./data", sel.Volumes[0].Name)
}

func TestModel_EnterWithoutSelectionShowsNotice(t *testing.T) {
	m := NewModel(NewState(testInventory()), "/backups")

	m, cmd := send(t, m, runes("l"), runes("l"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Contains(t, m.View(), "select at least one item")

	m, _ = send(t, m, runes("j"))
	assert.NotContains(t, m.View(), "select at least one item")
}

func TestModel_EscBacksOutOfConfirm(t *testing.T) {
	m := NewModel(NewState(testInventory()), "/backups")

	m, _ = send(t, m, runes("l"), runes("l"), runes("a"), tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modeConfirm, m.mode)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, 3, m.state.SelectedCount())
	assert.False(t, m.Confirmed())
}

func TestModel_EscWalksBackThenQuits(t *testing.T) {
	m := NewModel(NewState(testInventory()), "/backups")

	m, _ = send(t, m, runes("l"), runes("l"), runes("a"))
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, isQuit(cmd))
	assert.Equal(t, ColumnDates, m.state.Focus())
	assert.Equal(t, 0, m.state.SelectedCount())

	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, isQuit(cmd))
	assert.Equal(t, ColumnProjects, m.state.Focus())

	_, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
}

func TestModel_QuitWithoutConfirming(t *testing.T) {
	m := NewModel(NewState(testInventory()), "/backups")

	m, cmd := send(t, m, runes("l"), runes("l"), tea.KeyMsg{Type: tea.KeySpace}, runes("q"))
	assert.True(t, isQuit(cmd))

	_, ok := m.Selection()
	assert.False(t, ok)
}

func TestModel_ViewListsColumns(t *testing.T) {
	m := NewModel(NewState(testInventory()), "/backups")
	m, _ = send(t, m, runes("l"), runes("l"))

	view := m.View()
	for _, want := range []string{"Projects", "Backups", "Items", "blog", "shop", "wiki", "REPO", "cache", "0 item(s) selected"} {
		assert.Contains(t, view, want)
	}
}
