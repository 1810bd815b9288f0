package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/repositories"
	"github.com/desertthunder/crosstune/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	SongListView
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	playlists    *repositories.PlaylistRepository
	songs        *repositories.SongRepository
	artists      *repositories.ArtistRepository
	syncer       *tasks.SyncCoordinator
	width        int
	height       int
	playlistList list.Model
	songList     list.Model
	selected     *models.Playlist
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.SyncResult
	syncErr      error
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies. The sync
// coordinator may be nil, in which case the browser is read-only.
func NewModel(
	ctx context.Context,
	playlists *repositories.PlaylistRepository,
	songs *repositories.SongRepository,
	artists *repositories.ArtistRepository,
	syncer *tasks.SyncCoordinator,
) *Model {
	return &Model{
		ctx:       ctx,
		view:      PlaylistListView,
		playlists: playlists,
		songs:     songs,
		artists:   artists,
		syncer:    syncer,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the imported playlists from the local database.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.songList.Width() == 0 {
			m.songList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case SongListView:
			return m.handleSongListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Imported Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case songsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = msg.playlist
		items := make([]list.Item, len(msg.items))
		for i, item := range msg.items {
			items[i] = item
		}
		m.songList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.songList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Name())
		m.songList.SetSize(m.width-4, m.height-8)
		m.view = SongListView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.syncErr = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case SongListView:
		return m.renderSongList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				return m, m.loadSongs(pl.playlist)
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "s":
		if m.syncer != nil {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = SongListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.syncErr = nil
		m.err = nil
		return m, m.loadPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case SongListView:
		m.songList, cmd = m.songList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.playlists.List(nil)
		return playlistsLoadedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) loadSongs(playlist *models.Playlist) tea.Cmd {
	return func() tea.Msg {
		songs, err := m.songs.ListByPlaylist(playlist.ID())
		if err != nil {
			return songsLoadedMsg{err: err}
		}

		// Artist rows repeat across songs, fetch each once.
		names := make(map[string]string)
		items := make([]songItem, len(songs))
		for i, song := range songs {
			name, ok := names[song.ArtistID()]
			if !ok {
				if artist, err := m.artists.Get(song.ArtistID()); err == nil {
					name = artist.Name()
				}
				names[song.ArtistID()] = name
			}
			items[i] = songItem{song: song, artist: name}
		}
		return songsLoadedMsg{playlist: playlist, items: items}
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progress := m.progressChan
	spotifyID := m.selected.SpotifyID()

	go func() {
		result, err := m.syncer.Sync(m.ctx, spotifyID, progress)
		m.result = result
		m.syncErr = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{result: m.result, err: m.syncErr}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.syncErr}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderSongList() string {
	helpKeys := []key.Binding{m.keys.sync, m.keys.back, m.keys.quit}
	if m.syncer == nil {
		helpKeys = []key.Binding{m.keys.back, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.songList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	verb := "Sync"
	if m.selected.Synced() {
		verb = "Re-check"
	}
	title := styles.title.Render(fmt.Sprintf("%s '%s' to Tidal?", verb, m.selected.Name()))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\n", m.selected.Name(), m.selected.TracksTotal())
	if m.selected.Synced() {
		info += styles.warn.Render("Already synced, this run will be skipped.") + "\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.CreatePlaylist:
		phase = "Creating playlist on Tidal..."
	case tasks.AddTracks:
		phase = fmt.Sprintf("Adding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Preparing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.syncErr != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to go back, q to quit", m.syncErr))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to go back, q to quit")
	}

	var title, info string
	if m.result.Skipped {
		title = styles.warn.Render("Already synced")
		info = fmt.Sprintf("\nPlaylist: %s\nTidal playlist: %s\n", m.selected.Name(), m.result.TidalPlaylistID)
	} else {
		title = styles.ok.Render("✓ Sync Complete!")
		info = fmt.Sprintf(
			"\nPlaylist: %s\nTidal playlist: %s\nTracks added: %d\n",
			m.selected.Name(),
			m.result.TidalPlaylistID,
			m.result.TracksAdded,
		)
		if m.result.TracksMissing > 0 {
			info += styles.warn.Render(fmt.Sprintf("Unmatched tracks left behind: %d", m.result.TracksMissing)) + "\n"
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
