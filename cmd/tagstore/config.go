package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/KilimcininKorOglu/tagstore/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: yaml, toml",
		Value: "yaml",
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration files",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate the file given by --config",
				Action: configValidateAction,
			},
			{
				Name:  "init",
				Usage: "Write the default configuration",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: configInitAction,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Flags:  []cli.Flag{formatFlag()},
				Action: configShowAction,
			},
		},
	}
}

func configValidateAction(c *cli.Context) error {
	if c.String("config") == "" {
		return errors.New("--config is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	errs := config.ValidateConfig(cfg)
	if len(errs) > 0 {
		fmt.Fprintln(c.App.ErrWriter, "Configuration errors:")
		for _, e := range errs {
			fmt.Fprintf(c.App.ErrWriter, "  - %s\n", e)
		}
		return errors.Errorf("%d configuration errors", len(errs))
	}

	fmt.Fprintln(c.App.Writer, "Configuration is valid")
	return nil
}

func configInitAction(c *cli.Context) error {
	cfg := config.DefaultConfig()

	if path := c.String("output"); path != "" {
		if err := config.SaveConfig(cfg, path, c.Bool("force")); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
		return nil
	}

	return writeConfig(c, cfg)
}

func configShowAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return writeConfig(c, cfg)
}

func writeConfig(c *cli.Context, cfg *config.Config) error {
	data, err := config.Marshal(cfg, config.Format(strings.ToLower(c.String("format"))))
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}
