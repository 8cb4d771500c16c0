package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "storefront",
		Usage: "Storefront client for customers, sellers and admins",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("STOREFRONT_CONFIG"),
				Usage:   "Path of the YAML client config",
			},
			&cli.StringFlag{
				Name:    "api-url",
				Sources: cli.EnvVars("STOREFRONT_API_URL"),
				Usage:   "Base URL of storefrontd (overrides api_url)",
			},
			&cli.StringFlag{
				Name:    "session-file",
				Sources: cli.EnvVars("STOREFRONT_SESSION_FILE"),
				Usage:   "Where the login session is kept (overrides session_file)",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("STOREFRONT_TIMEOUT"),
				Usage:   "Per-request timeout (overrides timeout)",
			},
			&cli.BoolFlag{
				Name:    "serialize",
				Sources: cli.EnvVars("STOREFRONT_SERIALIZE"),
				Usage:   "Run mutations on the same record one after another",
			},
		},
		Commands: []*cli.Command{
			configCommand(),
			signupCommand(),
			verifyCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			productsCommand(),
			orderCommand(),
			ordersCommand(),
			sellerCommand(),
			adminCommand(),
			tuiCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
