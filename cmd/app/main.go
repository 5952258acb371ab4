package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/corkboard/internal"
	pkgconfig "github.com/starford/corkboard/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}

	if err := internal.RunMCP(ctx, cmd.String("user"), cmd.String("name"), opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}

	return nil
}

func runExport(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
		if err != nil {
			_ = os.Remove(out)
		}
	}()

	if err := internal.Export(ctx, cmd.String("user"), f, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("export error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "corkboard",
		Usage:  "Collaborative whiteboard with notes, task lists, groups and expense widgets",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve a user's board to MCP clients over stdio",
				Action: runMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User whose board is edited",
						Required: true,
						Sources:  cli.EnvVars("CORKBOARD_USER"),
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name shown on new notes",
						Value: "Assistant",
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Render a user's board to a PNG file",
				Action: runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User whose board is rendered",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file",
						Value:   "board.png",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
