package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/tui"
	"github.com/atvirokodosprendimai/storefront/internal/client/views"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Open the interactive moderation console",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "screen", Value: "auto", Usage: "inventory, users, products or auto (by role)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			screen, err := rt.screen(c.String("screen"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			return tui.Run(ctx, screen)
		},
	}
}

func (rt *runtime) screen(name string) (tui.Screen, error) {
	env := rt.env()
	// The console shows outcomes on its status line.
	env.Notifier = optimistic.NotifierFunc(func(optimistic.Notification) {})
	env.OnUnauthorized = rt.clearSession
	if name == "auto" {
		name = "inventory"
		if rt.session.User().Role == "admin" {
			name = "users"
		}
	}
	switch name {
	case "inventory":
		return tui.SellerScreen(views.NewSellerInventory(env)), nil
	case "users":
		return tui.AdminUsersScreen(views.NewAdminUsers(env, api.UserQuery{})), nil
	case "products":
		return tui.AdminProductsScreen(views.NewAdminProducts(env, api.ProductQuery{})), nil
	}
	return nil, fmt.Errorf("unknown screen %q", name)
}
