package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"pushsvc/internal/service"
)

var cmdVAPID = &cli.Command{
	Name:  "vapid",
	Usage: "Manage the VAPID application server identity",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "Create a new keypair and store it in push_settings",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "email",
					Usage:    "Contact address sent to push services",
					Required: true,
				},
			},
			Action: runVAPIDGenerate,
		},
		{
			Name:   "show",
			Usage:  "Print the public key and contact in use",
			Action: runVAPIDShow,
		},
	},
}

func runVAPIDGenerate(c *cli.Context) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	keys, err := service.GenerateVAPIDKeys(c.Context, a.Settings, c.String("email"))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "VAPID keys generated.\npublic key: %s\nemail:      %s\n", keys.PublicKey, keys.Email)
	fmt.Fprintln(c.App.Writer, "Existing browser subscriptions were made with the old key and must subscribe again.")
	return nil
}

func runVAPIDShow(c *cli.Context) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	keys, err := a.Keys.VAPIDKeys(c.Context)
	if err != nil {
		return err
	}
	if keys.PublicKey == "" {
		return errors.New("no VAPID keys configured, run `pushsvc vapid generate --email ...`")
	}

	fmt.Fprintf(c.App.Writer, "public key: %s\nemail:      %s\n", keys.PublicKey, keys.Email)
	return nil
}
