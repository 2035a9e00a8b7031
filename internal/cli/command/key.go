package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/cryptsess/pkg/token"
)

// KeyInfo describes a secret without necessarily revealing it.
type KeyInfo struct {
	Secret      string `json:"secret,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// KeyCommand returns the key subcommand group.
func KeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Generate and identify secret keys",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a new random secret key",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "length",
						Aliases: []string{"n"},
						Value:   32,
						Usage:   "Number of random bytes",
					},
				},
				Action: keyGenerate,
			},
			{
				Name:   "fingerprint",
				Usage:  "Print the fingerprint of the configured secret key",
				Action: keyFingerprint,
			},
		},
	}
}

func keyGenerate(c *cli.Context) error {
	n := c.Int("length")
	if n < 16 {
		return cli.Exit("--length must be at least 16", 2)
	}
	secret, err := token.GenerateWithLength(n)
	if err != nil {
		return err
	}
	return render(c, KeyInfo{Secret: secret, Fingerprint: token.Fingerprint(secret)})
}

func keyFingerprint(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return render(c, KeyInfo{Fingerprint: token.Fingerprint(cfg.Security.SecretKey)})
}
