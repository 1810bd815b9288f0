package ui

import (
	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/tasks"
)

type playlistsLoadedMsg struct {
	playlists []*models.Playlist
	err       error
}

type songsLoadedMsg struct {
	playlist *models.Playlist
	items    []songItem
	err      error
}

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	result *tasks.SyncResult
	err    error
}
