package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cryptsess/internal/app"
	"github.com/yndnr/cryptsess/internal/cli/connection"
	"github.com/yndnr/cryptsess/internal/cli/output"
	"github.com/yndnr/cryptsess/internal/infra/buildinfo"
	"github.com/yndnr/cryptsess/internal/server/config"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "cryptsess-cli",
		Usage:   "cryptsess operations tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			KeyCommand(),
			SessionCommand(),
			SystemCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the server configuration file",
			EnvVars: []string{"CRYPTSESS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "cryptsess-server address for remote commands",
			EnvVars: []string{"CRYPTSESS_SERVER"},
			Value:   "localhost:5080",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// render writes data to the app's writer in the selected format.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// loadConfig reads and verifies the configuration named by --config.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	return app.LoadConfig(c.String("config"), nil)
}

// cliLogger logs warnings and errors as text on the app's error writer.
func cliLogger(c *cli.Context) logger.Logger {
	l, err := logger.New(logger.Config{
		Level:  "warn",
		Format: "text",
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return logger.Discard()
	}
	return l
}

// withStack builds the configured storage and crypto layers, runs fn and
// closes them again.
func withStack(c *cli.Context, fn func(ctx context.Context, stack *app.Stack) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// The CLI is an operator tool: an insecure posture is reported by
	// "system check", not treated as fatal here.
	cfg.Session.SuppressPostureWarnings = true

	stack, err := app.Build(ctx, cfg, cliLogger(c), nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	return fn(ctx, stack)
}

// remoteClient returns a client for --server.
func remoteClient(c *cli.Context) *connection.HTTPClient {
	return connection.NewHTTPClient(c.String("server"), buildinfo.Version)
}

// requireArg returns the single positional argument or a usage error.
func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("expected exactly one %s argument", name), 2)
	}
	return c.Args().First(), nil
}
