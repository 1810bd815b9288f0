// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthSpotify,
			},
			{
				Name:   "tidal",
				Usage:  "Authenticate with Tidal using OAuth2 with PKCE",
				Action: r.AuthTidal,
			},
			{
				Name:   "status",
				Usage:  "Show which services are authorized",
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand lists remote Spotify playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to return",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Playlists,
	}
}

// importCommand persists a Spotify playlist locally.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a Spotify playlist into the local database",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "retry",
				Usage: "Re-queue a failed or interrupted import and run it again",
			},
		},
		Action: r.Import,
	}
}

// lookupCommand resolves imported tracks against Tidal.
func lookupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lookup",
		Usage: "Resolve imported tracks against the Tidal catalog",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist-id"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent resolution workers",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "Maximum Tidal requests per second",
			},
		},
		Action: r.Lookup,
	}
}

// syncCommand mirrors resolved playlists to Tidal.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create the Tidal playlist and add resolved tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync every completed playlist",
			},
		},
		Action: r.Sync,
	}
}

// statusCommand shows local import and sync state.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show import and sync status of local playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Status,
	}
}

// reportCommand exports resolution state to a file.
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Export a playlist's match report",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist-id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: csv, markdown, txt, or json",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
		},
		Action: r.Report,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive browser for imported playlists",
		Action:  r.TUI,
	}
}
