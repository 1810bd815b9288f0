package tasks

import (
	"fmt"

	"github.com/desertthunder/crosstune/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	PersistTracks
	ResolveTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case PersistTracks:
		return "persist_tracks"
	case ResolveTracks:
		return "resolve_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist (%s) from Spotify...", name),
	}
}

func persistTrackUpdate(step, total int, title, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, artist, title),
	}
}

func resolveStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    0,
		Total:   total,
		Message: "Resolving tracks on Tidal...",
	}
}

func resolveTrackUpdate(step, total int, song *models.Song, matched bool) ProgressUpdate {
	marker := "✗"
	if matched {
		marker = "✓"
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, marker, song.Name()),
		Data:    song,
	}
}

func createPlaylistUpdate(name, targetID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", name, targetID),
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding tracks to Tidal playlist (%d/%d)...", step, total),
	}
}
