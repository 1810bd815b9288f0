package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/crosstune/internal/formatter"
	"github.com/desertthunder/crosstune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Report exports a playlist's resolution state to a file.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	spotifyID := cmd.StringArg("playlist-id")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	if spotifyID == "" {
		return fmt.Errorf("%w: playlist-id argument is required", shared.ErrMissingArgument)
	}

	repos, err := r.openRepos()
	if err != nil {
		return err
	}
	defer repos.Close()

	playlist, err := repos.playlists.GetBySpotifyID(spotifyID)
	if err != nil {
		return err
	}

	songs, err := repos.songs.ListByPlaylist(playlist.ID())
	if err != nil {
		return err
	}

	report := &formatter.Report{Playlist: playlist}
	artistNames := make(map[string]string)
	albumNames := make(map[string]string)

	for _, song := range songs {
		artistName, ok := artistNames[song.ArtistID()]
		if !ok {
			if artist, err := repos.artists.Get(song.ArtistID()); err == nil {
				artistName = artist.Name()
			}
			artistNames[song.ArtistID()] = artistName
		}

		albumName := ""
		if song.AlbumID() != "" {
			albumName, ok = albumNames[song.AlbumID()]
			if !ok {
				if album, err := repos.albums.Get(song.AlbumID()); err == nil {
					albumName = album.Name()
				}
				albumNames[song.AlbumID()] = albumName
			}
		}

		report.Rows = append(report.Rows, formatter.BuildRow(song, artistName, albumName))
	}

	if outputPath == "" {
		ext := format
		switch format {
		case "markdown":
			ext = "md"
		case "text":
			ext = "txt"
		case "":
			ext = "json"
		}
		outputPath = fmt.Sprintf("crosstune_%s.%s", spotifyID, ext)
	}

	if err := formatter.WriteReport(report, format, outputPath); err != nil {
		return err
	}

	r.logger.Infof("report written to %v with %v tracks", outputPath, len(report.Rows))

	r.writePlain("✓ Report written to %s\n", outputPath)
	r.writePlain("  Playlist: %s\n", playlist.Name())
	r.writePlain("  Matched: %d/%d\n", report.MatchedCount(), len(report.Rows))

	return nil
}
