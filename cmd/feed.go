package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// Now prints the current playback state once.
func (r *Runner) Now(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	np, err := r.api.NowPlaying(ctx, r.session.AccessToken())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(np, true)
	}

	if np.TrackName == nil || np.Status == "inactive" {
		return r.writePlain("Nothing playing\n")
	}

	state := "▶ Playing"
	if !np.IsPlaying {
		state = "⏸ Paused"
	}

	r.writePlain("%s: %s\n", state, *np.TrackName)
	if len(np.Artists) > 0 {
		r.writePlain("Artists: %s\n", strings.Join(np.Artists, ", "))
	}
	if np.Album != nil {
		r.writePlain("Album: %s\n", *np.Album)
	}
	if np.ProgressMS != nil && np.DurationMS != nil {
		r.writePlain("Position: %s / %s\n", shared.FormatDuration(*np.ProgressMS), shared.FormatDuration(*np.DurationMS))
	}
	return nil
}

// Recent prints the play history feed.
func (r *Runner) Recent(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	limit := cmd.Int("limit")

	items, err := r.api.RecentlyPlayed(ctx, r.session.AccessToken())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}

	if len(items) == 0 {
		return r.writePlain("No recent plays\n")
	}

	for i, item := range items {
		r.writePlain("%d. %s - %s\n", i+1, strings.Join(item.Artists, ", "), item.TrackName)
		if item.Album != "" {
			r.writePlain("   Album: %s\n", item.Album)
		}
		r.writePlain("   Played: %s\n", item.PlayedAt)
	}
	return nil
}

// Search queries the catalog for tracks, albums, and artists.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	itemType, err := parseTypeFlag(cmd.String("type"))
	if err != nil {
		return err
	}

	results, err := r.api.SearchMusic(ctx, r.session.AccessToken(), query, itemType)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}

	if len(results.Tracks) > 0 {
		r.writePlain("Tracks:\n")
		for i, t := range results.Tracks {
			r.writePlain("  %d. %s - %s [%s]\n", i+1, strings.Join(t.Artists, ", "), t.Name, t.ID)
		}
	}
	if len(results.Albums) > 0 {
		r.writePlain("Albums:\n")
		for i, a := range results.Albums {
			r.writePlain("  %d. %s - %s [%s]\n", i+1, strings.Join(a.Artists, ", "), a.Name, a.ID)
		}
	}
	if len(results.Artists) > 0 {
		r.writePlain("Artists:\n")
		for i, a := range results.Artists {
			r.writePlain("  %d. %s [%s]\n", i+1, a.Name, a.ID)
		}
	}
	if len(results.Tracks)+len(results.Albums)+len(results.Artists) == 0 {
		r.writePlain("No results for %q\n", query)
	}
	return nil
}
