package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gamewatch/internal"
	"github.com/starford/gamewatch/internal/daemon"
	pkgconfig "github.com/starford/gamewatch/pkg/config"
)

var version = "dev"

type runner func(context.Context, ...internal.Option) error

// action loads the config and starts fn, detaching first when --daemon is
// set.
func action(fn runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Bool("daemon") && !daemon.IsChild() {
			pid, err := daemon.Detach(os.Args[1:], cmd.String("log-file"))
			if err != nil {
				return err
			}
			fmt.Printf("Starting in daemon mode (pid %d).\n", pid)
			return nil
		}

		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}

		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "gamewatch",
		Usage:   "Track what the MiSTer is running and launch content from RFID cards",
		Version: version,
		Action:  action(internal.Run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "/media/fat/gamewatch.yaml",
				Value:       "/media/fat/gamewatch.yaml",
				Sources:     cli.EnvVars("GAMEWATCH_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "daemon",
				Aliases: []string{"d"},
				Usage:   "Run the application in daemon mode",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Where a detached process writes its logs",
				Sources: cli.EnvVars("GAMEWATCH_LOG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Resolve host selections into the loaded record (default)",
				Action: action(internal.Run),
			},
			{
				Name:   "cardscan",
				Usage:  "Listen to the RFID reader and launch the assigned content",
				Action: action(internal.RunCardScan),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: action(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
