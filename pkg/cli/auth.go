package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/fraudboard/pkg/auth"
	"github.com/urfave/cli/v3"
)

const (
	tokenFlagName  = "token"
	deleteFlagName = "delete"
)

func newTokenFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  tokenFlagName,
		Usage: "Bearer token for remote artifacts (read from stdin when omitted)",
	}
}

func newDeleteFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  deleteFlagName,
		Usage: "Remove the stored token",
	}
}

func newAuthCmd() *cli.Command {
	return &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store the bearer token used to download remote artifacts",
		Action:          cmdAuth,
		Flags: []cli.Flag{
			newTokenFlag(),
			newDeleteFlag(),
		},
	}
}

func cmdAuth(_ context.Context, cmd *cli.Command) error {
	store := auth.NewStore(getHomeDir())

	if cmd.Bool(deleteFlagName) {
		if err := store.Delete(); err != nil {
			return err
		}
		slog.Info("artifact token deleted")
		return nil
	}

	token := cmd.String(tokenFlagName)
	if token == "" {
		var err error
		if token, err = readToken(reader(cmd)); err != nil {
			return err
		}
	}

	if err := store.Save(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	slog.Info("artifact token saved")
	return nil
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("token is empty")
	}
	return line, nil
}

func reader(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
