// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/vcms/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, csv, markdown or txt",
		Value:   string(formatter.Text),
	}
}

func metadataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Video name (defaults to the file name)",
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "Video description",
		},
		&cli.StringSliceFlag{
			Name:    "tags",
			Aliases: []string{"t"},
			Usage:   "Tags, repeat the flag or separate with commas",
		},
		&cli.StringFlag{
			Name:    "category",
			Aliases: []string{"c"},
			Usage:   "Category name",
		},
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "Path to configuration file",
		Value: "config.toml",
	}
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show which migrations have been applied",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Account email",
						Sources: cli.EnvVars("VCMS_EMAIL"),
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("VCMS_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "User name (at least 3 characters)"},
					&cli.StringFlag{Name: "email", Usage: "Account email"},
					&cli.StringFlag{Name: "password", Usage: "Password (at least 6 characters)"},
					&cli.StringFlag{Name: "confirm", Usage: "Password again"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user and token expiry",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// uploadCommand handles publishing videos
func uploadCommand(r *Runner) *cli.Command {
	storage := []cli.Flag{
		&cli.StringFlag{
			Name:  "container",
			Usage: "Storage container (defaults to upload.container)",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Blob name prefix (defaults to upload.prefix)",
		},
		&cli.BoolFlag{
			Name:  "no-tags",
			Usage: "Do not generate tags when none are given",
		},
	}

	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a video and save its details",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: append(append(metadataFlags(), storage...),
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the stored video URL to the clipboard",
			},
		),
		Action: r.UploadFile,
		Commands: []*cli.Command{
			{
				Name:  "dir",
				Usage: "Upload every video file in a directory, one at a time",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "dir"},
				},
				Flags: append(append(metadataFlags(), storage...),
					&cli.Float64Flag{
						Name:  "rate",
						Usage: "Uploads started per second",
						Value: 1,
					},
					&cli.StringFlag{
						Name:    "manifest",
						Aliases: []string{"o"},
						Usage:   "Manifest path (default: <dir>/publish_manifest.json)",
					},
				),
				Action: r.UploadDir,
			},
			{
				Name:   "pending",
				Usage:  "List uploads whose details were not saved",
				Action: r.UploadPending,
			},
			{
				Name:  "retry",
				Usage: "Save the details of a pending upload without uploading again",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.UploadRetry,
			},
		},
	}
}

// searchCommand handles video search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search videos by name, tag or category",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "term"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "category",
				Aliases: []string{"c"},
				Usage:   "Only videos in this category",
			},
			formatFlag(),
		},
		Action: r.Search,
		Commands: []*cli.Command{
			{
				Name:  "suggest",
				Usage: "Show autocomplete suggestions",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "text"},
				},
				Action: r.SearchSuggest,
			},
		},
	}
}

// categoriesCommand handles category operations
func categoriesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "categories",
		Aliases: []string{"cat"},
		Usage:   "Browse and create categories",
		Commands: []*cli.Command{
			{
				Name:  "tree",
				Usage: "Print the category tree",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CategoriesTree,
			},
			{
				Name:  "search",
				Usage: "Find categories by name",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.CategoriesSearch,
			},
			{
				Name:  "create",
				Usage: "Create a category",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "parent",
						Usage: "Name of the parent category",
					},
				},
				Action: r.CategoriesCreate,
			},
		},
	}
}

// videoCommand handles operations on a single video
func videoCommand(r *Runner) *cli.Command {
	idArg := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "id"}} }
	return &cli.Command{
		Name:  "video",
		Usage: "Show, edit or delete a video",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a video and its playable link",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "open", Usage: "Open the playable link in a browser"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.VideoGet,
			},
			{
				Name:      "update",
				Usage:     "Change a video's details; omitted flags keep their value",
				Arguments: idArg(),
				Flags:     metadataFlags(),
				Action:    r.VideoUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a video",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: r.VideoDelete,
			},
			{
				Name:      "changelog",
				Usage:     "Show who changed a video and what changed",
				Arguments: idArg(),
				Flags:     []cli.Flag{formatFlag()},
				Action:    r.VideoChangeLog,
			},
		},
	}
}

// tagsCommand handles tag suggestions
func tagsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Tag suggestions",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Suggest tags for a title and description",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Video title", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Video description"},
				},
				Action: r.TagsGenerate,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive search, category picker and uploader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where TUI logs go",
				Value: "./tmp/vcms-tui.log",
			},
		},
		Action: r.TUI,
	}
}
