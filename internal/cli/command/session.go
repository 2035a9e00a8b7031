package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cryptsess/internal/app"
	"github.com/yndnr/cryptsess/internal/core/domain"
)

// SessionRecord is the decrypted view of one record.
type SessionRecord struct {
	SessionID string `json:"session_id"`
	Size      int    `json:"size"`
	Data      string `json:"data"`
}

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Inspect and edit records in the configured store",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Decrypt and print a session",
				ArgsUsage: "SESSION_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Write the payload bytes only",
					},
				},
				Action: sessionGet,
			},
			{
				Name:      "put",
				Usage:     "Encrypt and store a session payload",
				ArgsUsage: "SESSION_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Payload as a string",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the payload from a file (- for stdin)",
					},
				},
				Action: sessionPut,
			},
			{
				Name:      "destroy",
				Aliases:   []string{"rm"},
				Usage:     "Delete a session",
				ArgsUsage: "SESSION_ID",
				Action:    sessionDestroy,
			},
			{
				Name:      "exists",
				Usage:     "Report whether a record is stored",
				ArgsUsage: "SESSION_ID",
				Action:    sessionExists,
			},
		},
	}
}

func sessionGet(c *cli.Context) error {
	id, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}

	return withStack(c, func(ctx context.Context, stack *app.Stack) error {
		data, ok := stack.Provider.Load(ctx, id)
		if !ok {
			return cli.Exit(fmt.Sprintf("session %s not found or not readable with this key", id), 1)
		}
		if c.Bool("raw") {
			_, err := c.App.Writer.Write(data)
			return err
		}
		return render(c, SessionRecord{SessionID: id, Size: len(data), Data: string(data)})
	})
}

func sessionPut(c *cli.Context) error {
	id, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}
	if !domain.ValidIdentifier(id) {
		return cli.Exit(fmt.Sprintf("invalid session id %q", id), 2)
	}

	var data []byte
	switch path := c.String("file"); {
	case path == "-":
		data, err = io.ReadAll(os.Stdin)
	case path != "":
		data, err = os.ReadFile(path)
	case c.IsSet("data"):
		data = []byte(c.String("data"))
	default:
		return cli.Exit("one of --data or --file is required", 2)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	return withStack(c, func(ctx context.Context, stack *app.Stack) error {
		if err := stack.Provider.Write(ctx, id, data); err != nil {
			return err
		}
		return render(c, SessionRecord{SessionID: id, Size: len(data), Data: string(data)})
	})
}

func sessionDestroy(c *cli.Context) error {
	id, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}

	return withStack(c, func(ctx context.Context, stack *app.Stack) error {
		if err := stack.Provider.Destroy(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "session %s destroyed\n", id)
		return nil
	})
}

func sessionExists(c *cli.Context) error {
	id, err := requireArg(c, "SESSION_ID")
	if err != nil {
		return err
	}

	return withStack(c, func(ctx context.Context, stack *app.Stack) error {
		ok, err := stack.Storage.Exists(ctx, id)
		if err != nil {
			return err
		}
		return render(c, map[string]any{"session_id": id, "exists": ok})
	})
}
