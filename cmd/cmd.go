// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/urfave/cli/v3"
)

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page to fetch",
			Value: models.DefaultPage,
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Records per page",
			Value:   models.DefaultLimit,
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Filter by name",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (stdout when empty)",
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Only export records matching the search",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "Records requested per page",
			Value: 50,
		},
	}
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Concurrent create requests (default from import.concurrency)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
	}
}

func artistFlag() cli.Flag {
	return &cli.IntFlag{
		Name:     "artist",
		Aliases:  []string{"a"},
		Usage:    "Artist ID owning the music",
		Required: true,
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func fileArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "file"}}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the API session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and store the credential pair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("AMS_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "register",
				Usage:  "Create an account",
				Flags:  userFlags(true),
				Action: r.AuthRegister,
			},
			{
				Name:      "import",
				Usage:     "Adopt the session of a request copied from the browser as cURL",
				ArgsUsage: "<file>",
				Arguments: fileArg(),
				Action:    r.AuthImport,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh credential for a new access credential",
				Action: r.AuthRefresh,
			},
			{
				Name:  "token",
				Usage: "Print the current access credential",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the token as JSON",
					},
				},
				Action: r.AuthToken,
			},
		},
	}
}

func userFlags(required bool) []cli.Flag {
	names := []struct{ name, usage string }{
		{"first-name", "First name"},
		{"last-name", "Last name"},
		{"email", "Email address"},
		{"phone", "Phone number"},
		{"password", "Password (at least 6 characters)"},
		{"dob", "Date of birth (YYYY-MM-DD)"},
		{"address", "Address"},
		{"gender", "Gender (M, F or O)"},
	}
	flags := make([]cli.Flag, 0, len(names))
	for _, n := range names {
		flags = append(flags, &cli.StringFlag{Name: n.name, Usage: n.usage, Required: required})
	}
	return flags
}

func artistFields(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Artist name", Required: required},
		&cli.StringFlag{Name: "dob", Usage: "Date of birth (YYYY-MM-DD)", Required: required},
		&cli.StringFlag{Name: "gender", Usage: "Gender (M, F or O)", Required: required},
		&cli.StringFlag{Name: "address", Usage: "Address", Required: required},
		&cli.IntFlag{Name: "first-release-year", Usage: "Year of the first release", Required: required},
		&cli.IntFlag{Name: "albums", Usage: "Number of albums released"},
	}
}

func musicFields(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Track title", Required: required},
		&cli.StringFlag{Name: "album", Usage: "Album name", Required: required},
		&cli.StringFlag{Name: "genre", Usage: "Genre (rnb, country, classic, rock or jazz)", Required: required},
	}
}

// usersCommand handles user records
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage user accounts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List users",
				Flags:  listFlags(),
				Action: r.UsersList,
			},
			{
				Name:      "get",
				Usage:     "Show one user",
				Arguments: idArg(),
				Flags:     outputFlags(),
				Action:    r.UsersGet,
			},
			{
				Name:      "update",
				Usage:     "Update the given fields of a user",
				Arguments: idArg(),
				Flags:     userFlags(false),
				Action:    r.UsersUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a user",
				Arguments: idArg(),
				Action:    r.UsersDelete,
			},
			{
				Name:   "export",
				Usage:  "Export every user as CSV",
				Flags:  exportFlags(),
				Action: r.Export(formatter.KindUsers),
			},
			{
				Name:      "import",
				Usage:     "Create users from a CSV file",
				Arguments: fileArg(),
				Flags:     importFlags(),
				Action:    r.Import(formatter.KindUsers),
			},
		},
	}
}

// artistsCommand handles artist records
func artistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "artists",
		Aliases: []string{"artist"},
		Usage:   "Manage artists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List artists",
				Flags:  listFlags(),
				Action: r.ArtistsList,
			},
			{
				Name:      "get",
				Usage:     "Show one artist",
				Arguments: idArg(),
				Flags:     outputFlags(),
				Action:    r.ArtistsGet,
			},
			{
				Name:   "create",
				Usage:  "Create an artist",
				Flags:  append(artistFields(true), outputFlags()...),
				Action: r.ArtistsCreate,
			},
			{
				Name:      "update",
				Usage:     "Update the given fields of an artist",
				Arguments: idArg(),
				Flags:     append(artistFields(false), outputFlags()...),
				Action:    r.ArtistsUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete an artist",
				Arguments: idArg(),
				Action:    r.ArtistsDelete,
			},
			{
				Name:   "export",
				Usage:  "Export every artist as CSV",
				Flags:  exportFlags(),
				Action: r.Export(formatter.KindArtists),
			},
			{
				Name:      "import",
				Usage:     "Create artists from a CSV file",
				Arguments: fileArg(),
				Flags:     importFlags(),
				Action:    r.Import(formatter.KindArtists),
			},
		},
	}
}

// musicCommand handles the tracks of an artist
func musicCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "music",
		Aliases: []string{"tracks"},
		Usage:   "Manage the music of an artist",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the music of an artist",
				Flags:  append([]cli.Flag{artistFlag()}, listFlags()...),
				Action: r.MusicList,
			},
			{
				Name:      "get",
				Usage:     "Show one track",
				Arguments: idArg(),
				Flags:     outputFlags(),
				Action:    r.MusicGet,
			},
			{
				Name:   "create",
				Usage:  "Add a track to an artist",
				Flags:  append(append([]cli.Flag{artistFlag()}, musicFields(true)...), outputFlags()...),
				Action: r.MusicCreate,
			},
			{
				Name:      "update",
				Usage:     "Update the given fields of a track",
				Arguments: idArg(),
				Flags:     append(musicFields(false), outputFlags()...),
				Action:    r.MusicUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a track",
				Arguments: idArg(),
				Action:    r.MusicDelete,
			},
			{
				Name:   "export",
				Usage:  "Export the music of an artist as CSV",
				Flags:  append([]cli.Flag{artistFlag()}, exportFlags()...),
				Action: r.Export(formatter.KindMusic),
			},
			{
				Name:      "import",
				Usage:     "Add tracks from a CSV file to an artist",
				Arguments: fileArg(),
				Flags:     append([]cli.Flag{artistFlag()}, importFlags()...),
				Action:    r.Import(formatter.KindMusic),
			},
		},
	}
}

// importsCommand lists the import history
func importsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "imports",
		Usage: "Show the history of CSV imports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only show imports of users, artists or music",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
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
		Action: r.Imports,
	}
}

// proxyCommand serves the local session gateway
func proxyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "proxy",
		Usage: "Serve a local HTTP gateway that forwards requests with the stored session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from proxy.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from proxy.port)",
			},
		},
		Action: r.Proxy,
	}
}

// tuiCommand returns the top-level TUI command for browsing artists and music.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse artists and their music interactively",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Rows per page",
				Value:   10,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is open",
				Value: "./tmp/amsctl-tui.log",
			},
		},
		Action: r.TUI,
	}
}
