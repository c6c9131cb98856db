package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/encore/internal/poll"
	"github.com/desertthunder/encore/internal/services"
	"github.com/urfave/cli/v3"
)

// Watch polls both feeds and prints changes until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nowPlaying := poll.NewSynchronizer(r.fetchNowPlaying, poll.Options{
		Name:     "now playing",
		Interval: r.config.Polling.NowPlayingInterval(),
		Limit:    1,
		Logger:   r.logger,
	})
	recent := poll.NewSynchronizer(r.api.RecentlyPlayed, poll.Options{
		Name:     "recently played",
		Interval: r.config.Polling.RecentlyPlayedInterval(),
		Limit:    r.config.Polling.RecentlyPlayedLimit,
		Logger:   r.logger,
	})

	token := r.session.AccessToken()
	nowPlaying.Start(ctx, token)
	recent.Start(ctx, token)
	defer nowPlaying.Stop()
	defer recent.Stop()

	r.writePlain("Watching playback (ctrl+c to stop)...\n\n")

	var lastTrack string
	var lastPlayed string

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.writePlain("\nStopped\n")
			return nil
		case <-ticker.C:
			if line := describeNowPlaying(nowPlaying.Snapshot()); line != lastTrack {
				lastTrack = line
				r.writePlain("%s %s\n", time.Now().Format("15:04:05"), line)
			}

			snap := recent.Snapshot()
			if len(snap.Items) > 0 && snap.Items[0].PlayedAt != lastPlayed {
				lastPlayed = snap.Items[0].PlayedAt
				item := snap.Items[0]
				r.writePlain("%s ♫ played: %s - %s\n", time.Now().Format("15:04:05"), strings.Join(item.Artists, ", "), item.TrackName)
			}
		}
	}
}

// fetchNowPlaying adapts the single-object endpoint to the feed contract.
func (r *Runner) fetchNowPlaying(ctx context.Context, token string) ([]services.NowPlayingData, error) {
	np, err := r.api.NowPlaying(ctx, token)
	if err != nil {
		return nil, err
	}
	return []services.NowPlayingData{*np}, nil
}

func describeNowPlaying(snap poll.Snapshot[services.NowPlayingData]) string {
	if snap.Err != "" {
		return fmt.Sprintf("⚠ %s", snap.Err)
	}
	if len(snap.Items) == 0 || snap.Items[0].TrackName == nil {
		return "· nothing playing"
	}

	np := snap.Items[0]
	state := "▶"
	if !np.IsPlaying {
		state = "⏸"
	}
	line := fmt.Sprintf("%s %s", state, *np.TrackName)
	if len(np.Artists) > 0 {
		line += " — " + strings.Join(np.Artists, ", ")
	}
	return line
}
