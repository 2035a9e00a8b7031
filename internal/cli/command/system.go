package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cryptsess/internal/app"
	"github.com/yndnr/cryptsess/internal/cli/connection"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/pkg/token"
)

// Check statuses.
const (
	StatusOK   = "ok"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// CheckResult is one line of "system check".
type CheckResult struct {
	Check  string `json:"check"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// GCReport is the outcome of a sweep.
type GCReport struct {
	Removed int           `json:"removed"`
	MaxLife time.Duration `json:"max_life,omitempty"`
	Remote  bool          `json:"remote"`
}

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Operational checks and maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Verify configuration, posture, storage and encryption",
				Action: systemCheck,
			},
			{
				Name:  "gc",
				Usage: "Remove expired sessions",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "max-life",
						Usage: "Override session.max_lifetime",
					},
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Ask the running server (--server) to sweep instead",
					},
				},
				Action: systemGC,
			},
			{
				Name:   "status",
				Usage:  "Query the readiness of a running server",
				Action: systemStatus,
			},
		},
	}
}

func systemCheck(c *cli.Context) error {
	var results []CheckResult
	add := func(name, status, detail string) {
		results = append(results, CheckResult{Check: name, Status: status, Detail: detail})
	}

	cfg, err := loadConfig(c)
	if err != nil {
		add("config", StatusFail, err.Error())
		return finishCheck(c, results)
	}
	add("config", StatusOK, fmt.Sprintf("driver=%s key=%s", cfg.Storage.Driver, token.Fingerprint(cfg.Security.SecretKey)))

	posture := session.Config{
		UseStrictMode:  cfg.Session.UseStrictMode,
		UseCookies:     cfg.Session.UseCookies,
		UseOnlyCookies: cfg.Session.UseOnlyCookies,
		UseTransSID:    cfg.Session.UseTransSID,
	}
	switch err := posture.Validate(); {
	case err == nil:
		add("posture", StatusOK, "")
	case cfg.Session.SuppressPostureWarnings:
		add("posture", StatusWarn, joinedMessage(err))
	default:
		add("posture", StatusFail, joinedMessage(err))
	}

	err = withStack(c, func(ctx context.Context, stack *app.Stack) error {
		add("storage", StatusOK, fmt.Sprintf("%T", stack.Storage))
		add("crypto", StatusOK, string(stack.Provider.CipherType()))

		probe, err := token.GenerateWithLength(12)
		if err != nil {
			return err
		}
		probe = "cryptsess-check-" + probe

		if err := stack.Provider.Write(ctx, probe, []byte("check")); err != nil {
			add("round trip", StatusFail, err.Error())
			return nil
		}
		data, ok := stack.Provider.Load(ctx, probe)
		if derr := stack.Provider.Destroy(ctx, probe); derr != nil {
			add("cleanup", StatusWarn, derr.Error())
		}
		if !ok || string(data) != "check" {
			add("round trip", StatusFail, "probe record did not decrypt")
			return nil
		}
		add("round trip", StatusOK, "")
		return nil
	})
	if err != nil {
		add("storage", StatusFail, err.Error())
	}

	return finishCheck(c, results)
}

// finishCheck renders results and fails the command when any check failed.
func finishCheck(c *cli.Context, results []CheckResult) error {
	if err := render(c, results); err != nil {
		return err
	}
	for _, r := range results {
		if r.Status == StatusFail {
			return cli.Exit("", 1)
		}
	}
	return nil
}

// joinedMessage flattens an errors.Join tree into one line.
func joinedMessage(err error) string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return err.Error()
	}
	msg := ""
	for i, e := range joined.Unwrap() {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return msg
}

func systemGC(c *cli.Context) error {
	if c.Bool("remote") {
		client := remoteClient(c)
		resp, err := client.Post(c.Context, "/admin/gc", nil)
		if err != nil {
			return fmt.Errorf("contact %s: %w", client.BaseURL(), err)
		}
		var result struct {
			Removed int `json:"removed"`
		}
		if err := connection.ParseResponse(resp, &result); err != nil {
			return err
		}
		return render(c, GCReport{Removed: result.Removed, Remote: true})
	}

	return withStack(c, func(ctx context.Context, stack *app.Stack) error {
		maxLife := stack.Config.Session.MaxLifetime
		if c.IsSet("max-life") {
			maxLife = c.Duration("max-life")
		}
		if maxLife <= 0 {
			return cli.Exit("--max-life must be positive", 2)
		}

		n, err := stack.Provider.GC(ctx, maxLife)
		if err != nil {
			return fmt.Errorf("sweep removed %d records before failing: %w", n, err)
		}
		return render(c, GCReport{Removed: n, MaxLife: maxLife})
	})
}

func systemStatus(c *cli.Context) error {
	client := remoteClient(c)
	resp, err := client.Get(c.Context, "/readyz")
	if err != nil {
		return fmt.Errorf("contact %s: %w", client.BaseURL(), err)
	}
	var status map[string]string
	if err := connection.ParseResponse(resp, &status); err != nil {
		return err
	}
	status["server"] = client.BaseURL()
	return render(c, status)
}
