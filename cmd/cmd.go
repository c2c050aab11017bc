// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat and playlist HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles linking a Spotify account
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Link a Spotify account using OAuth2",
		Action: r.AuthLogin,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show whether a Spotify account is linked",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify credentials",
				Action: r.AuthLogout,
			},
		},
	}
}

// chatCommand starts a mood conversation
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Talk about your mood and get a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Conversation key (defaults to a new random id)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Use line mode instead of the interactive UI",
			},
		},
		Action: r.Chat,
	}
}

// playlistCommand creates playlists without a conversation
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist from a mood and track suggestions",
				ArgsUsage: "[\"Title - Artist\" ...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "mood",
						Aliases:  []string{"m"},
						Usage:    "Mood label for the playlist",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "track",
						Aliases: []string{"t"},
						Usage:   "Track suggestion as \"Title - Artist\" (repeatable)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, csv or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the result to a file",
					},
				},
				Action: r.PlaylistCreate,
			},
		},
	}
}

// resolveCommand maps raw suggestions to catalog tracks
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve \"Title - Artist\" strings to Spotify tracks",
		ArgsUsage: "\"Title - Artist\" [...]",
		Action:    r.Resolve,
	}
}

// historyCommand lists created playlists
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List playlists created by moodmix",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of playlists to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "mood",
				Usage: "Only show playlists for this mood",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, csv or json",
				Value:   "table",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one playlist by history ID or Spotify playlist id",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table or json",
						Value:   "table",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:      "delete",
				Usage:     "Remove a playlist from the history (the Spotify playlist is kept)",
				ArgsUsage: "<id>",
				Action:    r.HistoryDelete,
			},
		},
	}
}

// setupCommand initializes configuration and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recently applied migration instead",
			},
		},
		Action: r.Setup,
	}
}
