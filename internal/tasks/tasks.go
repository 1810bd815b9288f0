// package tasks implements the import, lookup, and sync stages of the
// playlist pipeline. Coordinators own orchestration only; persistence lives in
// repositories and catalog access behind the services interfaces.
package tasks

import (
	"context"

	"github.com/desertthunder/crosstune/internal/matching"
	"github.com/desertthunder/crosstune/internal/services"
)

// TrackResolver locates a source track's counterpart in the target catalog.
// Implemented by [matching.Resolver].
type TrackResolver interface {
	Resolve(ctx context.Context, track services.SourceTrack) matching.Resolution
}

// TargetWriter is the slice of [services.CatalogClient] the sync stage needs.
type TargetWriter interface {
	CreatePlaylist(ctx context.Context, name, description string) (*services.CreatedPlaylist, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// ImportResult summarizes one playlist import run.
type ImportResult struct {
	PlaylistID   string // local playlist id
	SpotifyID    string
	Name         string
	TracksTotal  int
	TracksStored int
	Refreshed    bool // re-import of an already completed playlist
}

// LookupResult summarizes one resolution run over a playlist.
type LookupResult struct {
	PlaylistID string
	Total      int // songs that needed resolution
	Matched    int
	Unmatched  int
	Failed     int // songs whose run ended in a transport error
}

// SyncResult summarizes one playlist sync run.
type SyncResult struct {
	PlaylistID      string
	TidalPlaylistID string
	TracksAdded     int
	TracksMissing   int // imported songs with no resolved counterpart
	Skipped         bool
}

// SyncAllResult aggregates sync runs across playlists.
type SyncAllResult struct {
	Playlists []SyncResult
	Synced    int
	Skipped   int
	Failed    int
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
