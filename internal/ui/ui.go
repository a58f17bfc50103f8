package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ArtistListView ViewState = iota
	MusicListView
	ConfirmDeleteView
)

// Browser is the part of the API client the TUI reads and deletes records with.
type Browser interface {
	ListArtists(ctx context.Context, page models.PageRequest) (*models.ArtistList, error)
	ListMusic(ctx context.Context, artistID int, page models.PageRequest) (*models.MusicList, error)
	DeleteArtist(ctx context.Context, id int) error
	DeleteMusic(ctx context.Context, id int) error
}

// pendingDelete is the record waiting for a y/n answer.
type pendingDelete struct {
	view  ViewState
	id    int
	label string
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	client Browser
	view   ViewState
	width  int
	height int

	artistReq  models.PageRequest
	artistPage models.Pagination
	artists    []models.Artist

	artist    *models.Artist
	musicReq  models.PageRequest
	musicPage models.Pagination
	music     []models.Music

	table     table.Model
	search    textinput.Model
	searching bool
	pending   *pendingDelete
	loading   bool
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model showing the first page of artists. A limit below 1 uses the
// API default page size.
func NewModel(ctx context.Context, client Browser, limit int) Model {
	req := models.PageRequest{Page: models.DefaultPage, Limit: limit}.Normalize()

	t := table.New(
		table.WithColumns(artistColumns()),
		table.WithFocused(true),
		table.WithHeight(req.Limit+1),
	)

	search := textinput.New()
	search.Placeholder = "name"
	search.Prompt = "/ "
	search.CharLimit = 64

	return Model{
		ctx:       ctx,
		client:    client,
		view:      ArtistListView,
		artistReq: req,
		musicReq:  req,
		table:     t,
		search:    search,
		loading:   true,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the first page of artists.
func (m Model) Init() tea.Cmd {
	return m.loadArtists(m.artistReq)
}

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		switch m.view {
		case ArtistListView:
			return m.handleArtistKeys(msg)
		case MusicListView:
			return m.handleMusicKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		}
	case artistsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		// A delete can empty the last page.
		if len(msg.list.Artists) == 0 && msg.req.Page > 1 {
			m.loading = true
			return m, m.loadArtists(msg.req.WithPage(msg.req.Page - 1))
		}
		m.err = nil
		m.artistReq = msg.req
		m.artistPage = msg.list.Pagination
		m.artists = msg.list.Artists
		if m.view == ArtistListView {
			m.showArtists()
		}
		return m, nil
	case musicLoadedMsg:
		if m.artist == nil || m.artist.ID != msg.artistID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if len(msg.list.Music) == 0 && msg.req.Page > 1 {
			m.loading = true
			return m, m.loadMusic(msg.artistID, msg.req.WithPage(msg.req.Page-1))
		}
		m.err = nil
		m.musicReq = msg.req
		m.musicPage = msg.list.Pagination
		m.music = msg.list.Music
		if m.view == MusicListView {
			m.showMusic()
		}
		return m, nil
	case deletedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Deleted %s", msg.label)
		return m.reload()
	}

	return m, nil
}

func (m Model) handleArtistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		a, ok := m.selectedArtist()
		if !ok {
			return m, nil
		}
		m.artist = &a
		m.music = nil
		m.musicPage = models.Pagination{}
		m.musicReq = models.PageRequest{Page: models.DefaultPage, Limit: m.artistReq.Limit}
		m.view = MusicListView
		m.status = ""
		m.showMusic()
		m.loading = true
		return m, m.loadMusic(a.ID, m.musicReq)
	case key.Matches(msg, m.keys.next):
		return m.turnPage(m.artistReq.Page + 1)
	case key.Matches(msg, m.keys.prev):
		return m.turnPage(m.artistReq.Page - 1)
	case key.Matches(msg, m.keys.search):
		return m.startSearch(m.artistReq.Search)
	case key.Matches(msg, m.keys.reload):
		return m.reload()
	case key.Matches(msg, m.keys.delete):
		a, ok := m.selectedArtist()
		if !ok {
			return m, nil
		}
		m.pending = &pendingDelete{view: ArtistListView, id: a.ID, label: a.Name}
		m.view = ConfirmDeleteView
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleMusicKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ArtistListView
		m.artist = nil
		m.status = ""
		m.showArtists()
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m.turnPage(m.musicReq.Page + 1)
	case key.Matches(msg, m.keys.prev):
		return m.turnPage(m.musicReq.Page - 1)
	case key.Matches(msg, m.keys.search):
		return m.startSearch(m.musicReq.Search)
	case key.Matches(msg, m.keys.reload):
		return m.reload()
	case key.Matches(msg, m.keys.delete):
		track, ok := m.selectedMusic()
		if !ok {
			return m, nil
		}
		m.pending = &pendingDelete{view: MusicListView, id: track.ID, label: track.Title}
		m.view = ConfirmDeleteView
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending == nil {
		m.view = ArtistListView
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.yes):
		pending := *m.pending
		m.pending = nil
		m.view = pending.view
		m.loading = true
		return m, m.deleteRecord(pending)
	case key.Matches(msg, m.keys.no):
		m.view = m.pending.view
		m.pending = nil
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		m.searching = false
		m.search.Blur()
		term := strings.TrimSpace(m.search.Value())
		m.loading = true
		if m.view == MusicListView && m.artist != nil {
			return m, m.loadMusic(m.artist.ID, m.musicReq.WithSearch(term))
		}
		return m, m.loadArtists(m.artistReq.WithSearch(term))
	case key.Matches(msg, m.keys.back):
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// turnPage loads page of the current list when the last pagination allows it.
func (m Model) turnPage(page int) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	if m.view == MusicListView && m.artist != nil {
		if !m.musicPage.CanGoTo(page) {
			return m, nil
		}
		m.loading = true
		return m, m.loadMusic(m.artist.ID, m.musicReq.WithPage(page))
	}
	if !m.artistPage.CanGoTo(page) {
		return m, nil
	}
	m.loading = true
	return m, m.loadArtists(m.artistReq.WithPage(page))
}

func (m Model) startSearch(current string) (tea.Model, tea.Cmd) {
	m.searching = true
	m.search.SetValue(current)
	m.search.CursorEnd()
	return m, m.search.Focus()
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	if m.view == MusicListView && m.artist != nil {
		return m, m.loadMusic(m.artist.ID, m.musicReq)
	}
	return m, m.loadArtists(m.artistReq)
}

func (m Model) loadArtists(req models.PageRequest) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		list, err := client.ListArtists(ctx, req)
		return artistsLoadedMsg{req: req, list: list, err: err}
	}
}

func (m Model) loadMusic(artistID int, req models.PageRequest) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		list, err := client.ListMusic(ctx, artistID, req)
		return musicLoadedMsg{artistID: artistID, req: req, list: list, err: err}
	}
}

func (m Model) deleteRecord(p pendingDelete) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		var err error
		if p.view == MusicListView {
			err = client.DeleteMusic(ctx, p.id)
		} else {
			err = client.DeleteArtist(ctx, p.id)
		}
		return deletedMsg{view: p.view, id: p.id, label: p.label, err: err}
	}
}

// showArtists swaps the table to artist rows. Rows are cleared first so that the column count never
// disagrees with the rows being rendered.
func (m *Model) showArtists() {
	m.table.SetRows(nil)
	m.table.SetColumns(artistColumns())
	m.table.SetRows(artistRows(m.artists))
	m.table.SetCursor(0)
}

func (m *Model) showMusic() {
	m.table.SetRows(nil)
	m.table.SetColumns(musicColumns())
	m.table.SetRows(musicRows(m.music))
	m.table.SetCursor(0)
}

func (m Model) selectedArtist() (models.Artist, bool) {
	i := m.table.Cursor()
	if m.view != ArtistListView || i < 0 || i >= len(m.artists) {
		return models.Artist{}, false
	}
	return m.artists[i], true
}

func (m Model) selectedMusic() (models.Music, bool) {
	i := m.table.Cursor()
	if m.view != MusicListView || i < 0 || i >= len(m.music) {
		return models.Music{}, false
	}
	return m.music[i], true
}

// View renders the current view.
func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case ConfirmDeleteView:
		b.WriteString(m.viewConfirm())
	case MusicListView:
		name := ""
		if m.artist != nil {
			name = m.artist.Name
		}
		b.WriteString(styles.title.Render("Music by " + name))
		b.WriteString("\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(pageLine(m.musicPage, m.musicReq, "tracks"))
	default:
		b.WriteString(styles.title.Render("Artists"))
		b.WriteString("\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(pageLine(m.artistPage, m.artistReq, "artists"))
	}
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		b.WriteString(styles.help.Render("Loading..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
		if shared.NeedsLogin(m.err) {
			b.WriteString(styles.warn.Render("Run `amsctl auth login` to start a new session."))
			b.WriteString("\n")
		}
	case m.status != "":
		b.WriteString(styles.ok.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewConfirm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Confirm Delete"))
	b.WriteString("\n")
	if m.pending != nil {
		what := "artist"
		if m.pending.view == MusicListView {
			what = "track"
		}
		b.WriteString(styles.warn.Render(fmt.Sprintf("Delete %s %q (id %d)?", what, m.pending.label, m.pending.id)))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.help.Render("y: yes • n: no"))
	return b.String()
}

func pageLine(p models.Pagination, req models.PageRequest, noun string) string {
	line := fmt.Sprintf("Page %d of %d • %d %s", req.Page, p.LastPage(), p.Total(), noun)
	if req.Search != "" {
		line += fmt.Sprintf(" • search %q", req.Search)
	}
	return styles.help.Render(line)
}
