package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/jwtgate/internal/app"
	"github.com/florianilch/jwtgate/internal/credstore"
)

// credentialFlags let a single invocation bypass the credential store.
func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "token-id",
			Usage: "token identifier (defaults to the credential store)",
		},
		&cli.StringFlag{
			Name:  "access-token",
			Usage: "access token (defaults to the credential store)",
		},
		&cli.DurationFlag{
			Name:  "token--acquire-timeout",
			Usage: "upper bound for the exchange",
			Value: app.DefaultConfigAcquireTimeout,
		},
	}
}

// flagCredentials returns credentials given on the command line, or nil if none were.
func flagCredentials(cmd *cli.Command) (*credstore.Credentials, error) {
	tokenID, accessToken := cmd.String("token-id"), cmd.String("access-token")
	if tokenID == "" && accessToken == "" {
		return nil, nil
	}
	creds := &credstore.Credentials{TokenID: tokenID, AccessToken: accessToken}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("--token-id and --access-token must be given together: %w", err)
	}
	return creds, nil
}

func acquireCommand() *cli.Command {
	return &cli.Command{
		Name:   "acquire",
		Usage:  "exchange credentials for a JWT and print it",
		Flags:  credentialFlags(),
		Action: acquireAction,
	}
}

func acquireAction(ctx context.Context, cmd *cli.Command) error {
	application, done, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if _, err := acquire(ctx, cmd, application); err != nil {
		return err
	}

	_, err = fmt.Fprintln(output(cmd), application.Tokens().JWT())
	return err
}

func urlCommand() *cli.Command {
	return &cli.Command{
		Name:      "url",
		Usage:     "print the URL a route key resolves to",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail on unknown routes or hostnames instead of concatenating empty parts",
			},
		},
		Action: urlAction,
	}
}

func urlAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("exactly one route key required")
	}
	key := cmd.Args().First()

	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer flushLogs(shutdown)

	resolver, err := app.NewResolver(cfg)
	if err != nil {
		return err
	}

	url := resolver.URL(key)
	if cmd.Bool("strict") {
		if url, err = resolver.LookupURL(key); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(output(cmd), url)
	return err
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "acquire a JWT and GET a route with it",
		ArgsUsage: "KEY",
		Flags:     credentialFlags(),
		Action:    fetchAction,
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("exactly one route key required")
	}

	application, done, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if _, err := acquire(ctx, cmd, application); err != nil {
		return err
	}

	body, err := application.Fetch(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	_, err = output(cmd).Write(body)
	return err
}

func newApp(ctx context.Context, cmd *cli.Command) (*app.App, func(), error) {
	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(cfg)
	if err != nil {
		flushLogs(shutdown)
		return nil, nil, fmt.Errorf("failed to create app: %w", err)
	}

	return application, func() { flushLogs(shutdown) }, nil
}

func acquire(ctx context.Context, cmd *cli.Command, application *app.App) (string, error) {
	creds, err := flagCredentials(cmd)
	if err != nil {
		return "", err
	}
	token, err := application.Acquire(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("failed to acquire token: %w", err)
	}
	return token, nil
}

func output(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}
