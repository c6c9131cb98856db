// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config file and database",
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

// loginCommand starts the browser-based sign-in flow.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Sign in via the browser",
		Action: r.Login,
	}
}

// logoutCommand clears the stored session.
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and clear stored tokens",
		Action: r.Logout,
	}
}

// whoamiCommand prints the signed-in user.
func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "whoami",
		Aliases: []string{"status"},
		Usage:   "Show the signed-in user",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Whoami,
	}
}

// nowCommand prints the current playback state.
func nowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "now",
		Usage: "Show what is playing right now",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Now,
	}
}

// recentCommand prints the play history feed.
func recentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "Show recently played tracks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries to show",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Recent,
	}
}

// searchCommand queries the catalog.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog for tracks, albums, and artists",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Restrict results to one item type (track, album, artist)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// rateCommand saves a rating and/or review for an item.
func rateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rate",
		Usage: "Rate or review an item",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Item type (track, album, artist)",
				Value: "track",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Item display name stored with the rating",
			},
			&cli.StringFlag{
				Name:  "rating",
				Usage: "Rating between 0 and 5",
			},
			&cli.StringFlag{
				Name:  "review",
				Usage: "Review text",
			},
		},
		Action: r.Rate,
	}
}

// exportCommand writes the annotated listening history to disk.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export annotated listening history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries to export",
			},
		},
		Action: r.Export,
	}
}

// watchCommand follows both feeds until interrupted.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Follow playback and history in the terminal",
		Action: r.Watch,
	}
}

// tuiCommand returns the top-level TUI command for interactive rating.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal interface",
		Action:  r.TUI,
	}
}
