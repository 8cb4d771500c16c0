package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/config"
	"github.com/atvirokodosprendimai/storefront/internal/client/session"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the client config file",
		Commands: []*cli.Command{{
			Name:  "init",
			Usage: "Write a config file with default settings",
			Action: func(ctx context.Context, c *cli.Command) error {
				path := c.String("config")
				if path == "" {
					path = config.DefaultPath()
				}
				if err := config.WriteDefault(path); err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Fprintf(c.Root().Writer, "wrote %s\n", path)
				return nil
			},
		}},
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account; a verification token is sent by email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("STOREFRONT_PASSWORD")},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "role", Value: "customer", Usage: "customer or seller"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			user, err := rt.client.Signup(ctx, api.SignupRequest{
				Email:    c.String("email"),
				Password: c.String("password"),
				Name:     c.String("name"),
				Role:     c.String("role"),
			}).Unwrap()
			if err != nil {
				return rt.fail(err)
			}
			fmt.Fprintf(rt.out, "Account %s created for %s. Check your email, then run `storefront verify TOKEN`.\n", user.ID, user.Email)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify an email address with the token from the verification email",
		ArgsUsage: "TOKEN",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			user, err := rt.client.VerifyEmail(ctx, c.Args().First()).Unwrap()
			if err != nil {
				return rt.fail(err)
			}
			fmt.Fprintf(rt.out, "%s is verified. You can log in now.\n", user.Email)
			return nil
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and keep the session for later commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Sources: cli.EnvVars("STOREFRONT_EMAIL")},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("STOREFRONT_PASSWORD")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			reply, err := rt.client.Login(ctx, c.String("email"), c.String("password")).Unwrap()
			if err != nil {
				return rt.fail(err)
			}
			if err := rt.store.Save(session.New(reply.Token, reply.User)); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Logged in as %s (%s).\n", reply.User.Email, reply.User.Role)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Revoke the session and forget it locally",
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			if rt.session.Active() {
				if _, err := rt.client.Logout(ctx).Unwrap(); err != nil {
					fmt.Fprintf(rt.out, "server logout failed: %v\n", err)
				}
			}
			if err := rt.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "Logged out.")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in account as the server sees it",
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			user, err := rt.client.Me(ctx).Unwrap()
			if err != nil {
				return rt.fail(err)
			}
			rt.printTable([]string{"ID", "Email", "Name", "Role", "Status"},
				[][]string{{user.ID, user.Email, user.Name, user.Role, user.Status}})
			return nil
		},
	}
}
