package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/crosstune/internal/matching"
	"github.com/desertthunder/crosstune/internal/shared"
	"github.com/desertthunder/crosstune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Import fetches a Spotify playlist and persists it locally.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	spotifyID := cmd.StringArg("playlist-id")
	retry := cmd.Bool("retry")

	if spotifyID == "" {
		return fmt.Errorf("%w: playlist-id argument is required", shared.ErrMissingArgument)
	}

	spotify, err := r.sourceService()
	if err != nil {
		return err
	}

	repos, err := r.openRepos()
	if err != nil {
		return err
	}
	defer repos.Close()

	coordinator := tasks.NewImportCoordinator(spotify, repos.playlists, repos.songs, repos.artists, repos.albums, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.PersistTracks:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	var result *tasks.ImportResult
	if retry {
		result, err = coordinator.Retry(ctx, spotifyID, progressCh)
	} else {
		result, err = coordinator.Import(ctx, spotifyID, progressCh)
	}
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Playlist: %s\n", result.Name)
	r.writePlain("Tracks stored: %d/%d\n", result.TracksStored, result.TracksTotal)
	if result.Refreshed {
		r.writePlain("Already imported, membership refreshed.\n")
	}
	r.writePlain("\nNext: crosstune lookup %s\n", spotifyID)

	return nil
}

// Lookup resolves every imported track of a playlist against Tidal.
func (r *Runner) Lookup(ctx context.Context, cmd *cli.Command) error {
	spotifyID := cmd.StringArg("playlist-id")
	workers := cmd.Int("workers")
	rate := cmd.Float64("rate")

	if spotifyID == "" {
		return fmt.Errorf("%w: playlist-id argument is required", shared.ErrMissingArgument)
	}

	tidal, err := r.targetService()
	if err != nil {
		return err
	}

	repos, err := r.openRepos()
	if err != nil {
		return err
	}
	defer repos.Close()

	resolver := matching.NewResolver(tidal, r.logger)
	coordinator := tasks.NewLookupCoordinator(resolver, repos.playlists, repos.songs, repos.artists, repos.albums, r.logger)

	opts := tasks.LookupOpts{NumWorkers: int(workers), RateLimit: rate}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = r.config.Sync.LookupWorkers
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = r.config.Sync.LookupRate
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Phase == tasks.ResolveTracks {
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			}
		}
	}()

	result, err := coordinator.Lookup(ctx, spotifyID, opts, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Lookup Complete!")
	r.writePlain("Resolved: %d/%d\n", result.Matched, result.Total)
	if result.Unmatched > 0 {
		r.writePlain("Unmatched: %d\n", result.Unmatched)
	}
	if result.Failed > 0 {
		r.writePlain("Failed: %d (rerun to retry)\n", result.Failed)
	}
	r.writePlain("\nNext: crosstune sync %s\n", spotifyID)

	return nil
}

// Sync mirrors resolved playlists to Tidal.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	spotifyID := cmd.StringArg("playlist-id")
	all := cmd.Bool("all")

	if spotifyID == "" && !all {
		return fmt.Errorf("%w: playlist-id argument or --all is required", shared.ErrMissingArgument)
	}

	tidal, err := r.targetService()
	if err != nil {
		return err
	}

	repos, err := r.openRepos()
	if err != nil {
		return err
	}
	defer repos.Close()

	coordinator := tasks.NewSyncCoordinator(tidal, repos.playlists, repos.songs, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.CreatePlaylist:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.AddTracks:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	if all {
		result, err := coordinator.SyncAll(ctx, progressCh)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}

		r.writePlain("\n")
		r.writePlainHeader("Sync Complete!")
		r.writePlain("Synced: %d\n", result.Synced)
		r.writePlain("Skipped (already synced): %d\n", result.Skipped)
		if result.Failed > 0 {
			r.writePlain("Failed: %d\n", result.Failed)
		}
		return nil
	}

	result, err := coordinator.Sync(ctx, spotifyID, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	if result.Skipped {
		r.writePlainHeader("Already Synced")
		r.writePlain("Tidal playlist: %s\n", result.TidalPlaylistID)
		return nil
	}

	r.writePlainHeader("Sync Complete!")
	r.writePlain("Tidal playlist: %s\n", result.TidalPlaylistID)
	r.writePlain("Tracks added: %d\n", result.TracksAdded)
	if result.TracksMissing > 0 {
		r.writePlain("Unmatched tracks left behind: %d\n", result.TracksMissing)
	}

	return nil
}
