package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/crosstune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Playlists lists the authenticated user's Spotify playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	spotify, err := r.sourceService()
	if err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := spotify.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// Status lists locally imported playlists with their import and sync state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	repos, err := r.openRepos()
	if err != nil {
		return err
	}
	defer repos.Close()

	playlists, err := repos.playlists.List(nil)
	if err != nil {
		return err
	}

	if useJSON {
		type statusRow struct {
			SpotifyID       string `json:"spotify_id"`
			Name            string `json:"name"`
			ImportStatus    string `json:"import_status"`
			LastImportError string `json:"last_import_error,omitempty"`
			TracksTotal     int    `json:"tracks_total"`
			Matched         int    `json:"matched"`
			TidalPlaylistID string `json:"tidal_playlist_id,omitempty"`
		}
		rows := make([]statusRow, 0, len(playlists))
		for _, p := range playlists {
			matched, err := repos.playlists.MatchedCount(p.ID())
			if err != nil {
				return err
			}
			rows = append(rows, statusRow{
				SpotifyID:       p.SpotifyID(),
				Name:            p.Name(),
				ImportStatus:    string(p.ImportStatus()),
				LastImportError: p.LastImportError(),
				TracksTotal:     p.TracksTotal(),
				Matched:         matched,
				TidalPlaylistID: p.TidalPlaylistID(),
			})
		}
		return r.writeJSON(rows, pretty)
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists imported yet. Run 'crosstune import <playlist-id>'.\n")
		return nil
	}

	r.writePlainHeader("Imported Playlists")
	for i, p := range playlists {
		matched, err := repos.playlists.MatchedCount(p.ID())
		if err != nil {
			return err
		}

		r.writePlain("%d. %s\n", i+1, p.Name())
		r.writePlain("   Spotify ID: %s\n", p.SpotifyID())
		r.writePlain("   Import: %s", p.ImportStatus())
		if p.LastImportError() != "" {
			r.writePlain(" (%s)", p.LastImportError())
		}
		r.writePlain("\n")
		r.writePlain("   Matched: %d/%d\n", matched, p.TracksTotal())
		if p.Synced() {
			r.writePlain("   Tidal: %s\n", p.TidalPlaylistID())
		} else {
			r.writePlain("   Tidal: not synced\n")
		}
		r.writePlain("\n")
	}

	return nil
}
