package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/poll"
	"github.com/desertthunder/encore/internal/reconcile"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HomeView ViewState = iota
	SearchView
	EditorView
)

const snapshotTick = time.Second

// Searcher is the slice of the API client the search view needs.
type Searcher interface {
	SearchMusic(ctx context.Context, token, query string, itemType services.ItemType) (*services.SearchResults, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	session    *session.Manager
	api        Searcher
	nowPlaying *poll.Synchronizer[services.NowPlayingData]
	recent     *poll.Synchronizer[services.RecentlyPlayedItem]
	reconciler *reconcile.Reconciler
	selection  *reconcile.Selection

	width  int
	height int

	recentList  list.Model
	recentCount int

	searchInput   textinput.Model
	searchList    list.Model
	searchResults *services.SearchResults
	searching     bool
	searchErr     error

	editor editorModel

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, sess *session.Manager, api Searcher, nowPlaying *poll.Synchronizer[services.NowPlayingData], recent *poll.Synchronizer[services.RecentlyPlayedItem], rec *reconcile.Reconciler) *Model {
	search := textinput.New()
	search.Placeholder = "Search tracks, albums, artists..."
	search.CharLimit = 120

	recentList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	recentList.Title = "Recently Played"
	recentList.SetShowHelp(false)

	return &Model{
		ctx:         ctx,
		view:        HomeView,
		session:     sess,
		api:         api,
		nowPlaying:  nowPlaying,
		recent:      recent,
		reconciler:  rec,
		selection:   &reconcile.Selection{},
		recentList:  recentList,
		searchInput: search,
		editor:      newEditorModel(),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts both feed synchronizers and schedules the first snapshot read.
func (m *Model) Init() tea.Cmd {
	token := m.session.AccessToken()
	m.nowPlaying.Start(m.ctx, token)
	m.recent.Start(m.ctx, token)
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(snapshotTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recentList.SetSize(msg.Width-4, msg.Height-12)
		m.searchList.SetSize(msg.Width-4, msg.Height-10)
		m.editor.setSize(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case HomeView:
			return m.handleHomeKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case EditorView:
			return m.handleEditorKeys(msg)
		}

	case tickMsg:
		m.syncRecentList()
		return m, tick()

	case searchDoneMsg:
		m.searching = false
		m.searchErr = msg.err
		m.searchResults = msg.results
		m.searchList = list.New(searchItems(msg.results), list.NewDefaultDelegate(), m.width-4, m.height-10)
		m.searchList.Title = "Search Results"
		m.searchList.SetShowHelp(false)
		return m, nil

	case editorOpenedMsg:
		// A late fetch for an item the user already backed out of is ignored.
		current := m.selection.Current()
		if current == nil || current.ID != msg.itemID {
			return m, nil
		}
		m.editor.seed(m.reconciler)
		return m, nil

	case saveDoneMsg:
		m.editor.saving = false
		if msg.err == nil {
			m.editor.seed(m.reconciler)
			m.editor.saved = true
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case HomeView:
		return m.renderHome()
	case SearchView:
		return m.renderSearch()
	case EditorView:
		return m.renderEditor()
	default:
		return ""
	}
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.refresh):
		go m.nowPlaying.Refetch(m.ctx)
		go m.recent.Refetch(m.ctx)
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.recentList.SelectedItem().(recentItem); ok {
			if item := selected.selected(); item != nil {
				return m, m.openEditor(item)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.recentList, cmd = m.recentList.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchInput.Focused() {
		switch msg.String() {
		case "esc":
			m.searchInput.Blur()
			m.view = HomeView
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.searchInput.Value())
			if query == "" {
				return m, nil
			}
			m.searchInput.Blur()
			m.searching = true
			m.searchErr = nil
			return m, m.runSearch(query)
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.back):
		m.view = HomeView
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.searchList.SelectedItem().(searchItem); ok {
			return m, m.openEditor(selected.selected())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchList, cmd = m.searchList.Update(msg)
	return m, cmd
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.closeEditor()
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.editor.cycleFocus()
		return m, nil
	case key.Matches(msg, m.keys.save):
		if m.editor.saving {
			return m, nil
		}
		m.editor.push(m.reconciler)
		if m.reconciler.Clean() {
			return m, nil
		}
		m.editor.saving = true
		m.editor.saved = false
		return m, m.runSave()
	}

	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	cmd := m.editor.update(msg)
	m.editor.push(m.reconciler)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HomeView:
		m.recentList, cmd = m.recentList.Update(msg)
	case SearchView:
		m.searchList, cmd = m.searchList.Update(msg)
	}
	return m, cmd
}

// syncRecentList mirrors the feed snapshot into the bubbles list, preserving
// the cursor when the item count is unchanged.
func (m *Model) syncRecentList() {
	snap := m.recent.Snapshot()
	if len(snap.Items) == m.recentCount && m.recentCount > 0 {
		return
	}
	m.recentCount = len(snap.Items)

	items := make([]list.Item, len(snap.Items))
	for i, it := range snap.Items {
		items[i] = recentItem{item: it}
	}
	selected := m.recentList.Index()
	m.recentList.SetItems(items)
	if selected < len(items) {
		m.recentList.Select(selected)
	}
}

func (m *Model) runSearch(query string) tea.Cmd {
	token := m.session.AccessToken()
	return func() tea.Msg {
		results, err := m.api.SearchMusic(m.ctx, token, query, "")
		return searchDoneMsg{results: results, err: err}
	}
}

func (m *Model) openEditor(item *reconcile.SelectedItem) tea.Cmd {
	m.selection.Select(item)
	m.view = EditorView
	m.editor.reset(item)
	return func() tea.Msg {
		err := m.reconciler.Open(m.ctx, item)
		return editorOpenedMsg{itemID: item.ID, err: err}
	}
}

func (m *Model) closeEditor() {
	m.reconciler.Close()
	m.selection.Clear()
	m.editor.reset(nil)
	if m.searchResults != nil {
		m.view = SearchView
	} else {
		m.view = HomeView
	}
}

func (m *Model) runSave() tea.Cmd {
	return func() tea.Msg {
		err := m.reconciler.Save(m.ctx)
		return saveDoneMsg{err: err}
	}
}

// quit stops both synchronizers before exiting.
func (m *Model) quit() tea.Cmd {
	m.nowPlaying.Stop()
	m.recent.Stop()
	return tea.Quit
}

func (m *Model) renderHome() string {
	var b strings.Builder

	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n")
	b.WriteString(m.recentList.View())

	snap := m.recent.Snapshot()
	if snap.Err != "" {
		b.WriteString("\n" + styles.warn.Render(snap.Err))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.search, m.keys.refresh, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderNowPlaying() string {
	snap := m.nowPlaying.Snapshot()

	var body string
	switch {
	case snap.Loading && len(snap.Items) == 0:
		body = styles.dim.Render("Loading...")
	case snap.Err != "" && len(snap.Items) == 0:
		body = styles.warn.Render(snap.Err)
	case len(snap.Items) == 0 || snap.Items[0].TrackName == nil:
		body = styles.dim.Render("Nothing playing")
	default:
		np := snap.Items[0]
		state := "▶"
		if !np.IsPlaying {
			state = "⏸"
		}

		line := fmt.Sprintf("%s %s", state, styles.ok.Render(*np.TrackName))
		if len(np.Artists) > 0 {
			line += styles.dim.Render(" — " + strings.Join(np.Artists, ", "))
		}

		body = line
		if np.ProgressMS != nil && np.DurationMS != nil && *np.DurationMS > 0 {
			body += fmt.Sprintf("\n%s / %s", shared.FormatDuration(*np.ProgressMS), shared.FormatDuration(*np.DurationMS))
		}
	}

	title := styles.title.Render("Now Playing")
	return fmt.Sprintf("%s\n%s", title, styles.card.Render(body))
}

func (m *Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Search") + "\n")
	b.WriteString(m.searchInput.View() + "\n\n")

	switch {
	case m.searching:
		b.WriteString(styles.dim.Render("Searching..."))
	case m.searchErr != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Search failed: %v", m.searchErr)))
	case m.searchResults != nil:
		b.WriteString(m.searchList.View())
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderEditor() string {
	item := m.selection.Current()
	if item == nil {
		return ""
	}
	return m.editor.render(item, m.reconciler, m.help, m.keys)
}
