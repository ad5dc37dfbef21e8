package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/jwtgate/internal/credstore"
)

func credentialsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credentials",
		Usage: "manage stored exchange credentials",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "store credentials, prompting for missing values",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token-id", Usage: "token identifier"},
					&cli.StringFlag{Name: "access-token", Usage: "access token"},
				},
				Action: credentialsSetAction,
			},
		},
	}
}

func credentialsSetAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer flushLogs(shutdown)

	store, err := cfg.Credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	creds := credstore.Credentials{
		TokenID:     cmd.String("token-id"),
		AccessToken: cmd.String("access-token"),
	}
	w := cmd.Root().ErrWriter
	if creds.TokenID == "" {
		if creds.TokenID, err = promptSecret(w, "Token ID"); err != nil {
			return err
		}
	}
	if creds.AccessToken == "" {
		if creds.AccessToken, err = promptSecret(w, "Access token"); err != nil {
			return err
		}
	}

	if err := store.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	_, err = fmt.Fprintf(w, "credentials stored (%s)\n", cfg.Credentials.Storage)
	return err
}

// promptSecret reads a value from the terminal without echo.
func promptSecret(w io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s not given and stdin is not a terminal", strings.ToLower(label))
	}

	_, _ = fmt.Fprintf(w, "%s: ", label)
	value, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(value)), nil
}
