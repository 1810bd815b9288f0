package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/repositories"
	"github.com/desertthunder/crosstune/internal/shared"
)

// SyncCoordinator mirrors imported playlists into the target catalog.
//
// Each source playlist maps to at most one target playlist: the first sync
// creates it and records the id, every later sync is skipped. Only songs with
// a resolved counterpart are added; unresolved songs are counted, not synced.
type SyncCoordinator struct {
	target    TargetWriter
	playlists *repositories.PlaylistRepository
	songs     *repositories.SongRepository
	logger    *log.Logger
}

// NewSyncCoordinator wires a SyncCoordinator over the given target writer and
// repositories. The logger may be nil.
func NewSyncCoordinator(
	target TargetWriter,
	playlists *repositories.PlaylistRepository,
	songs *repositories.SongRepository,
	logger *log.Logger,
) *SyncCoordinator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncCoordinator{
		target:    target,
		playlists: playlists,
		songs:     songs,
		logger:    logger,
	}
}

// Sync mirrors one playlist to the target catalog. A playlist that already
// has a target counterpart is skipped without touching the catalog.
func (c *SyncCoordinator) Sync(ctx context.Context, spotifyID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if c.target == nil {
		return nil, fmt.Errorf("%w: target catalog not initialized", shared.ErrServiceUnavailable)
	}

	playlist, err := c.playlists.GetBySpotifyID(spotifyID)
	if err != nil {
		return nil, err
	}
	if playlist.ImportStatus() != models.ImportCompleted {
		return nil, fmt.Errorf("playlist %s is %s, import it before sync", spotifyID, playlist.ImportStatus())
	}

	if playlist.Synced() {
		c.logger.Info("playlist already synced", "playlist", playlist.Name(), "target", playlist.TidalPlaylistID())
		return &SyncResult{
			PlaylistID:      playlist.ID(),
			TidalPlaylistID: playlist.TidalPlaylistID(),
			Skipped:         true,
		}, nil
	}

	all, err := c.songs.ListByPlaylist(playlist.ID())
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, 0, len(all))
	missing := 0
	for _, song := range all {
		if song.Matched() {
			trackIDs = append(trackIDs, song.TidalID())
		} else {
			missing++
		}
	}

	created, err := c.target.CreatePlaylist(ctx, playlist.Name(), syncDescription(playlist))
	if err != nil {
		return nil, fmt.Errorf("failed to create target playlist: %w", err)
	}

	if err := playlist.SetTidalPlaylistID(created.ID); err != nil {
		return nil, err
	}
	if err := c.playlists.Update(playlist); err != nil {
		return nil, err
	}
	sendProgress(progress, createPlaylistUpdate(playlist.Name(), created.ID))

	// The target playlist exists even when nothing resolved; only the batch
	// insert is skipped.
	if len(trackIDs) > 0 {
		sendProgress(progress, addTracksUpdate(0, len(trackIDs)))
		if err := c.target.AddTracks(ctx, created.ID, trackIDs); err != nil {
			// The playlist link is already recorded, so a re-run resumes by
			// skipping creation rather than duplicating the playlist.
			return nil, fmt.Errorf("failed to add tracks: %w", err)
		}
		sendProgress(progress, addTracksUpdate(len(trackIDs), len(trackIDs)))
	}

	c.logger.Info("playlist synced", "playlist", playlist.Name(), "target", created.ID, "tracks", len(trackIDs), "missing", missing)

	return &SyncResult{
		PlaylistID:      playlist.ID(),
		TidalPlaylistID: created.ID,
		TracksAdded:     len(trackIDs),
		TracksMissing:   missing,
	}, nil
}

// SyncAll mirrors every import-completed playlist, aggregating per-playlist
// outcomes. Failures do not abort the run.
func (c *SyncCoordinator) SyncAll(ctx context.Context, progress chan<- ProgressUpdate) (*SyncAllResult, error) {
	playlists, err := c.playlists.List(map[string]any{"import_status": string(models.ImportCompleted)})
	if err != nil {
		return nil, err
	}

	result := &SyncAllResult{}
	for _, playlist := range playlists {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := c.Sync(ctx, playlist.SpotifyID(), progress)
		if err != nil {
			result.Failed++
			c.logger.Error("sync failed", "playlist", playlist.Name(), "err", err)
			continue
		}

		result.Playlists = append(result.Playlists, *res)
		if res.Skipped {
			result.Skipped++
		} else {
			result.Synced++
		}
	}

	return result, nil
}

func syncDescription(playlist *models.Playlist) string {
	return fmt.Sprintf("Synced from Spotify: %s", playlist.Name())
}
