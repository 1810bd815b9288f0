package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/repositories"
	"github.com/desertthunder/crosstune/internal/services"
	"github.com/desertthunder/crosstune/internal/shared"
)

// ImportCoordinator copies a source-catalog playlist into the local database.
//
// Imports obey the playlist lifecycle: a pending playlist moves to in_progress
// for the duration of the run and lands on completed or failed. A failed
// playlist is re-queued as pending before the next attempt. Running an import
// while another is in_progress is refused.
type ImportCoordinator struct {
	source    services.SourceCatalog
	playlists *repositories.PlaylistRepository
	songs     *repositories.SongRepository
	artists   *repositories.ArtistRepository
	albums    *repositories.AlbumRepository
	logger    *log.Logger
}

// NewImportCoordinator wires an ImportCoordinator over the given source
// catalog and repositories. The logger may be nil.
func NewImportCoordinator(
	source services.SourceCatalog,
	playlists *repositories.PlaylistRepository,
	songs *repositories.SongRepository,
	artists *repositories.ArtistRepository,
	albums *repositories.AlbumRepository,
	logger *log.Logger,
) *ImportCoordinator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ImportCoordinator{
		source:    source,
		playlists: playlists,
		songs:     songs,
		artists:   artists,
		albums:    albums,
		logger:    logger,
	}
}

// Import fetches the playlist with the given source-catalog id and persists
// its metadata, artists, albums, songs, and membership.
//
// Re-importing a completed playlist refreshes it in place: membership
// converges and missing ISRCs are patched, but the lifecycle is untouched.
func (c *ImportCoordinator) Import(ctx context.Context, spotifyID string, progress chan<- ProgressUpdate) (*ImportResult, error) {
	if c.source == nil {
		return nil, fmt.Errorf("%w: source catalog not initialized", shared.ErrServiceUnavailable)
	}

	playlist, err := c.ensurePlaylist(ctx, spotifyID)
	if err != nil {
		return nil, err
	}

	switch playlist.ImportStatus() {
	case models.ImportInProgress:
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrImportInProgress, spotifyID)
	case models.ImportCompleted:
		return c.refresh(ctx, playlist, progress)
	case models.ImportFailed:
		if err := playlist.TransitionImport(models.ImportPending, ""); err != nil {
			return nil, err
		}
		if err := c.playlists.Update(playlist); err != nil {
			return nil, err
		}
	}

	if err := playlist.TransitionImport(models.ImportInProgress, ""); err != nil {
		return nil, err
	}
	if err := c.playlists.Update(playlist); err != nil {
		return nil, err
	}

	result, runErr := c.run(ctx, playlist, progress)
	if runErr != nil {
		c.logger.Error("import failed", "playlist", spotifyID, "err", runErr)
		if terr := playlist.TransitionImport(models.ImportFailed, runErr.Error()); terr == nil {
			if uerr := c.playlists.Update(playlist); uerr != nil {
				c.logger.Error("failed to record import failure", "playlist", spotifyID, "err", uerr)
			}
		}
		return nil, runErr
	}

	if err := playlist.TransitionImport(models.ImportCompleted, ""); err != nil {
		return nil, err
	}
	if err := c.playlists.Update(playlist); err != nil {
		return nil, err
	}

	c.logger.Info("import completed", "playlist", playlist.Name(), "tracks", result.TracksStored)
	return result, nil
}

// Retry re-queues a playlist and runs the import again. This is the escape
// hatch for failed imports and for runs interrupted while in_progress; a
// completed playlist goes through the refresh path unchanged.
func (c *ImportCoordinator) Retry(ctx context.Context, spotifyID string, progress chan<- ProgressUpdate) (*ImportResult, error) {
	playlist, err := c.playlists.GetBySpotifyID(spotifyID)
	if err != nil {
		return nil, err
	}

	switch playlist.ImportStatus() {
	case models.ImportFailed, models.ImportInProgress:
		playlist.Requeue()
		if err := c.playlists.Update(playlist); err != nil {
			return nil, err
		}
	}

	return c.Import(ctx, spotifyID, progress)
}

// ensurePlaylist loads the local playlist row, creating it from source
// metadata on first sight.
func (c *ImportCoordinator) ensurePlaylist(ctx context.Context, spotifyID string) (*models.Playlist, error) {
	if existing, err := c.playlists.GetBySpotifyID(spotifyID); err == nil {
		return existing, nil
	}

	info, err := c.source.Playlist(ctx, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", spotifyID, err)
	}

	playlist := models.NewPlaylist(info.ID, info.Name)
	playlist.SetOwner(info.Owner)
	playlist.SetImageURL(info.ImageURL)
	playlist.SetTracksTotal(info.TrackCount)

	if err := c.playlists.Create(playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// run performs the fetch-and-persist body of an import.
func (c *ImportCoordinator) run(ctx context.Context, playlist *models.Playlist, progress chan<- ProgressUpdate) (*ImportResult, error) {
	sendProgress(progress, fetchPlaylistUpdate(playlist.Name()))

	tracks, err := c.source.PlaylistTracks(ctx, playlist.SpotifyID())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	stored, err := c.persistTracks(ctx, playlist, tracks, progress)
	if err != nil {
		return nil, err
	}

	playlist.SetTracksTotal(len(tracks))

	return &ImportResult{
		PlaylistID:   playlist.ID(),
		SpotifyID:    playlist.SpotifyID(),
		Name:         playlist.Name(),
		TracksTotal:  len(tracks),
		TracksStored: stored,
	}, nil
}

// refresh re-runs track persistence for a completed playlist without touching
// the lifecycle.
func (c *ImportCoordinator) refresh(ctx context.Context, playlist *models.Playlist, progress chan<- ProgressUpdate) (*ImportResult, error) {
	result, err := c.run(ctx, playlist, progress)
	if err != nil {
		return nil, err
	}
	if err := c.playlists.Update(playlist); err != nil {
		return nil, err
	}
	result.Refreshed = true
	c.logger.Info("import refreshed", "playlist", playlist.Name(), "tracks", result.TracksStored)
	return result, nil
}

// persistTracks stores every track with find-or-create semantics and attaches
// the membership rows. Duplicate editions of the same track within one fetch
// collapse to the first occurrence.
func (c *ImportCoordinator) persistTracks(ctx context.Context, playlist *models.Playlist, tracks []services.SourceTrack, progress chan<- ProgressUpdate) (int, error) {
	songIDs := make([]string, 0, len(tracks))
	seen := make(map[string]struct{}, len(tracks))

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return len(songIDs), err
		}

		key := shared.NormalizeTrackKey(track.Title, track.Artist())
		if _, dup := seen[key]; dup {
			c.logger.Debug("skipping duplicate track", "title", track.Title)
			continue
		}
		seen[key] = struct{}{}

		sendProgress(progress, persistTrackUpdate(i+1, len(tracks), track.Title, track.Artist()))

		song, err := c.persistTrack(track)
		if err != nil {
			return len(songIDs), fmt.Errorf("failed to persist track %s: %w", track.ID, err)
		}
		songIDs = append(songIDs, song.ID())
	}

	if err := c.playlists.AttachSongs(playlist.ID(), songIDs); err != nil {
		return len(songIDs), err
	}

	return len(songIDs), nil
}

func (c *ImportCoordinator) persistTrack(track services.SourceTrack) (*models.Song, error) {
	artist, err := c.artists.FindOrCreate(track.ArtistID, primaryName(track))
	if err != nil {
		return nil, err
	}

	song := models.NewSong(track.ID, track.Title, artist.ID())
	song.SetISRC(track.ISRC)

	if track.AlbumID != "" {
		album, err := c.albums.FindOrCreate(track.AlbumID, track.AlbumTitle, artist.ID())
		if err != nil {
			return nil, err
		}
		if album.ImageURL() == "" && track.AlbumArtURL != "" {
			album.SetImageURL(track.AlbumArtURL)
			if err := c.albums.Update(album); err != nil {
				return nil, err
			}
		}
		song.SetAlbumID(album.ID())
	}

	return c.songs.FindOrCreate(song)
}

func primaryName(track services.SourceTrack) string {
	if len(track.ArtistNames) > 0 {
		return track.ArtistNames[0]
	}
	return "Unknown Artist"
}
