package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/rollbook/internal"
	"github.com/starford/rollbook/internal/filter"
	pkgconfig "github.com/starford/rollbook/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func exportCSV(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	for _, n := range cmd.StringSlice("name") {
		query.Add(filter.ParamName, n)
	}
	for flag, param := range map[string]string{
		"from": filter.ParamFrom,
		"to":   filter.ParamTo,
		"min":  filter.ParamMin,
		"max":  filter.ParamMax,
	} {
		if v := cmd.String(flag); v != "" {
			query.Set(param, v)
		}
	}

	var w io.Writer = os.Stdout
	if out := cmd.String("out"); out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if err := internal.Export(ctx, w, query, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("export error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "rollbook",
		Usage:  "Record, filter and export dice rolls per character",
		Action: serve,
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
				Usage:  "Serve the record tools over MCP on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:   "export",
				Usage:  "Write matching records as CSV",
				Action: exportCSV,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "name", Usage: "Character name, repeatable"},
					&cli.StringFlag{Name: "from", Usage: "First date, YYYY-MM-DD"},
					&cli.StringFlag{Name: "to", Usage: "Last date, YYYY-MM-DD"},
					&cli.StringFlag{Name: "min", Usage: "Lowest roll"},
					&cli.StringFlag{Name: "max", Usage: "Highest roll"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
