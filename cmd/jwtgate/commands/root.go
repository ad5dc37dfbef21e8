package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/jwtgate/internal/app"
	"github.com/florianilch/jwtgate/internal/observability"
)

// nonConfigFlags are flags that never map onto configuration keys.
var nonConfigFlags = map[string]struct{}{
	"config":       {},
	"token-id":     {},
	"access-token": {},
	"strict":       {},
}

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "jwtgate",
		Usage: "Exchange API credentials for a bearer JWT and share it locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (toml or json)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "log-export",
				Usage: "log export (none|stdout|otlp-http|otlp-grpc)",
				Value: string(app.DefaultConfigLogExport),
			},
			&cli.StringFlag{
				Name:  "environment--origin",
				Usage: "origin URL the client runs under (defaults to the OS hostname)",
			},
			&cli.StringFlag{
				Name:  "tables--file",
				Usage: "hostname, route and auth table file (toml or json)",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "resolve all routes against the local table",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			acquireCommand(),
			urlCommand(),
			fetchCommand(),
			credentialsCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// setup loads configuration and installs logging. The returned function flushes log exports.
func setup(ctx context.Context, cmd *cli.Command) (*app.Config, observability.ShutdownFunc, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := observability.Instrument(ctx, observability.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Export: cfg.LogExport,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	return cfg, shutdown, nil
}

// flushLogs flushes exporters on a fresh context so cancellation does not drop records.
func flushLogs(shutdown observability.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), app.DefaultConfigShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the local token broker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "broker host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "broker port",
				Value: int(app.DefaultConfigServerPort),
			},
			&cli.BoolFlag{
				Name:  "token--acquire-on-start",
				Usage: "exchange stored credentials when the broker starts",
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer flushLogs(shutdown)

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
