package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/app"
)

func main() {
	cmd := &cli.Command{
		Name:  "storefrontd",
		Usage: "Multi-role storefront REST backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("STOREFRONTD_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./storefront.sqlite",
				Sources: cli.EnvVars("STOREFRONTD_DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("STOREFRONTD_SESSION_TTL"),
				Usage:   "Lifetime of bearer sessions issued at login",
			},
			&cli.StringFlag{
				Name:    "admin-email",
				Sources: cli.EnvVars("STOREFRONTD_ADMIN_EMAIL"),
				Usage:   "Optional admin account to create at startup",
			},
			&cli.StringFlag{
				Name:    "admin-password",
				Sources: cli.EnvVars("STOREFRONTD_ADMIN_PASSWORD"),
				Usage:   "Password for the bootstrap admin account",
			},
			&cli.StringFlag{
				Name:    "admin-name",
				Value:   "Administrator",
				Sources: cli.EnvVars("STOREFRONTD_ADMIN_NAME"),
				Usage:   "Display name for the bootstrap admin account",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("STOREFRONTD_WEBHOOK_URL"),
				Usage:   "Outbox event webhook target URL",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("STOREFRONTD_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for outbound webhook requests",
			},
			&cli.DurationFlag{
				Name:    "outbox-interval",
				Value:   2 * time.Second,
				Sources: cli.EnvVars("STOREFRONTD_OUTBOX_INTERVAL"),
				Usage:   "Polling interval of the outbox dispatcher",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:                   c.String("addr"),
				DBPath:                 c.String("db-path"),
				SessionTTL:             c.Duration("session-ttl"),
				BootstrapAdminEmail:    c.String("admin-email"),
				BootstrapAdminPassword: c.String("admin-password"),
				BootstrapAdminName:     c.String("admin-name"),
				WebhookURL:             c.String("webhook-url"),
				WebhookSecret:          c.String("webhook-secret"),
				OutboxInterval:         c.Duration("outbox-interval"),
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
