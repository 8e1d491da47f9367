// Package main provides the tagstore command line tool for inspecting and
// editing tag databases.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/KilimcininKorOglu/tagstore/internal/config"
	"github.com/KilimcininKorOglu/tagstore/internal/logging"
	"github.com/KilimcininKorOglu/tagstore/internal/storage/engine"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "tagstore",
		Usage:     "Inspect and edit tag databases",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are reported by run; never let the library exit the process.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (YAML or TOML)",
				EnvVars: []string{"TAGSTORE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Database file (overrides storage.path)",
				EnvVars: []string{"TAGSTORE_DB"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides logging.level)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				return fmt.Errorf("unknown command %q", c.Args().First())
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			initCommand(),
			statsCommand(),
			verifyCommand(),
			tagsCommand(),
			configCommand(),
			versionCommand(),
		},
	}
}

// loadConfig loads the configuration named by --config, or the defaults,
// and applies the global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// openEngine opens the configured database. Read-only opens require the
// file to exist.
func openEngine(c *cli.Context, readOnly bool) (*engine.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		return nil, errs[0]
	}

	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	storageCfg := cfg.Storage
	storageCfg.ReadOnly = storageCfg.ReadOnly || readOnly
	return engine.Open(storageCfg, log)
}
