package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crosstune/internal/shared"
	"github.com/desertthunder/crosstune/internal/tasks"
	"github.com/desertthunder/crosstune/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive browser over imported playlists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.openRepos()
	if err != nil {
		return err
	}
	defer repos.Close()

	// Syncing from the TUI needs Tidal; browsing works without it.
	var syncer *tasks.SyncCoordinator
	if tidal, err := r.targetService(); err == nil {
		syncer = tasks.NewSyncCoordinator(tidal, repos.playlists, repos.songs, r.logger)
	} else {
		r.logger.Warn("tidal unavailable, browser is read-only", "error", err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := filepath.Join(os.TempDir(), "crosstune-tui.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(shared.NewLogger(logFile))

	model := ui.NewModel(ctx, repos.playlists, repos.songs, repos.artists, syncer)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
