package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/crosstune/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = songItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist *models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name() }
func (i playlistItem) Title() string       { return i.playlist.Name() }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", i.playlist.TracksTotal(), i.playlist.ImportStatus())
	if i.playlist.Synced() {
		desc = fmt.Sprintf("%s • synced", desc)
	}
	return desc
}

// songItem pairs a [models.Song] with its artist name for display.
type songItem struct {
	song   *models.Song
	artist string
}

func (i songItem) FilterValue() string { return i.song.Name() }
func (i songItem) Title() string       { return i.song.Name() }
func (i songItem) Description() string {
	if i.song.Matched() {
		return fmt.Sprintf("%s • ✓ %s", i.artist, i.song.TidalTrackName())
	}
	if len(i.song.LookupLog()) > 0 {
		return fmt.Sprintf("%s • ✗ no match", i.artist)
	}
	return fmt.Sprintf("%s • not looked up", i.artist)
}
