package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/poll"
	"github.com/desertthunder/encore/internal/reconcile"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal interface.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/encore-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	nowPlaying := poll.NewSynchronizer(r.fetchNowPlaying, poll.Options{
		Name:     "now playing",
		Interval: r.config.Polling.NowPlayingInterval(),
		Limit:    1,
		Logger:   fileLogger,
	})
	recent := poll.NewSynchronizer(r.api.RecentlyPlayed, poll.Options{
		Name:     "recently played",
		Interval: r.config.Polling.RecentlyPlayedInterval(),
		Limit:    r.config.Polling.RecentlyPlayedLimit,
		Logger:   fileLogger,
	})
	reconciler := reconcile.NewReconciler(r.api, r.session, fileLogger)

	model := ui.NewModel(ctx, r.session, r.api, nowPlaying, recent, reconciler)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
