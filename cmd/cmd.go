// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   "Account password",
		Sources: cli.EnvVars("REEL_PASSWORD"),
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, csv, markdown or json",
		Value:   value,
	}
}

// setupCommand handles setup operations for the local store and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the local database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a default configuration file to the --config path",
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account and session",
		Commands: []*cli.Command{
			{
				Name:      "register",
				Usage:     "Create an account",
				ArgsUsage: "<username>",
				Flags:     []cli.Flag{passwordFlag()},
				Before:    r.useStore,
				Action:    r.AuthRegister,
			},
			{
				Name:      "login",
				Usage:     "Sign in and sync settings",
				ArgsUsage: "<username>",
				Flags:     []cli.Flag{passwordFlag()},
				Before:    r.useStore,
				Action:    r.AuthLogin,
			},
			{
				Name:  "logout",
				Usage: "Sign out and clear the local session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Clear the local session without notifying the server",
					},
				},
				Before: r.useSession,
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session can be restored",
				Flags:  jsonFlags(),
				Before: r.useSession,
				Action: r.AuthStatus,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed in account",
				Flags:  jsonFlags(),
				Before: r.requireAuth,
				Action: r.AuthWhoami,
			},
			{
				Name:  "passwd",
				Usage: "Change your password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "current",
						Usage:   "Current password",
						Sources: cli.EnvVars("REEL_PASSWORD"),
					},
					&cli.StringFlag{
						Name:     "new",
						Usage:    "New password",
						Required: true,
					},
				},
				Before: r.requireAuth,
				Action: r.AuthPasswd,
			},
			{
				Name:      "rename",
				Usage:     "Change your username",
				ArgsUsage: "<username>",
				Before:    r.requireAuth,
				Action:    r.AuthRename,
			},
			{
				Name:  "delete",
				Usage: "Delete your account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm account deletion",
					},
				},
				Before: r.requireAuth,
				Action: r.AuthDelete,
			},
		},
	}
}

// titlesCommand handles library operations. Every subcommand requires a session.
func titlesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "titles",
		Aliases: []string{"t"},
		Usage:   "Search and manage titles in your library",
		Before:  r.requireAuth,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show one title",
				ArgsUsage: "<id>",
				Flags:     jsonFlags(),
				Action:    r.TitlesGet,
			},
			{
				Name:      "search",
				Usage:     "Search the library, or TMDB with --tmdb",
				ArgsUsage: "<query...>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Restrict to movie or tv",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Result page",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "tmdb",
						Usage: "Search TMDB instead of the library",
					},
					formatFlag("text"),
				},
				Action: r.TitlesSearch,
			},
			{
				Name:      "add",
				Usage:     "Add a TMDB title to the library",
				ArgsUsage: "<tmdb-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "movie or tv",
						Value: "movie",
					},
				},
				Action: r.TitlesAdd,
			},
			{
				Name:      "refresh",
				Usage:     "Refresh a title's metadata from TMDB",
				ArgsUsage: "<id>",
				Action:    r.TitlesRefresh,
			},
			{
				Name:      "flag",
				Usage:     "Mark a title (library, watchlist, favourite, watch-next)",
				ArgsUsage: "<id> <flag>",
				Action:    r.TitlesFlag,
			},
			{
				Name:      "unflag",
				Usage:     "Clear a title mark",
				ArgsUsage: "<id> <flag>",
				Action:    r.TitlesUnflag,
			},
			{
				Name:      "image",
				Usage:     "Download a poster or backdrop",
				ArgsUsage: "<size> <path>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: image file name)",
					},
				},
				Action: r.TitlesImage,
			},
			{
				Name:      "export",
				Usage:     "Export several titles to one file",
				ArgsUsage: "<id...>",
				Flags: []cli.Flag{
					formatFlag("json"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: titles.<ext>)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent fetches (max 8)",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second",
						Value: 5,
					},
				},
				Action: r.TitlesExport,
			},
		},
	}
}

// settingsCommand handles preferences. list and get read the local cache only.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "View and change preferences",
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Fetch settings from the server into the local cache",
				Flags:  jsonFlags(),
				Before: r.requireAuth,
				Action: r.SettingsSync,
			},
			{
				Name:   "list",
				Usage:  "List cached preferences",
				Flags:  jsonFlags(),
				Before: r.useStore,
				Action: r.SettingsList,
			},
			{
				Name:      "get",
				Usage:     "Show one cached preference",
				ArgsUsage: "<key>",
				Before:    r.useStore,
				Action:    r.SettingsGet,
			},
			{
				Name:      "set",
				Usage:     "Change a preference locally and on the server",
				ArgsUsage: "<key> <value>",
				Before:    r.requireAuth,
				Action:    r.SettingsSet,
			},
		},
	}
}

// apiCommand handles direct API calls through the authenticated client
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "api",
		Usage:  "Direct calls to the media library API",
		Before: r.useSession,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the response",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
