package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/views"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

func sellerCommand() *cli.Command {
	return &cli.Command{
		Name:  "seller",
		Usage: "Manage your own products",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your products",
				Action: withInventory(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.SellerInventory) error {
					rt.printProducts(v.Collection().Snapshot())
					return nil
				}),
			},
			{
				Name:  "create",
				Usage: "Create a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.IntFlag{Name: "price-cents", Required: true},
					&cli.IntFlag{Name: "stock"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					rt, err := loadRuntime(c)
					if err != nil {
						return err
					}
					if err := rt.requireSession(); err != nil {
						return err
					}
					p, err := rt.client.CreateProduct(ctx, api.ProductInput{
						Name:        c.String("name"),
						Description: c.String("description"),
						PriceCents:  int64(c.Int("price-cents")),
						Stock:       c.Int("stock"),
					}).Unwrap()
					if err != nil {
						return rt.fail(err)
					}
					rt.printProducts([]api.Product{p})
					return nil
				},
			},
			{
				Name:      "toggle",
				Usage:     "Switch a product between active and inactive",
				ArgsUsage: "PRODUCT_ID",
				Action: withInventory(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.SellerInventory) error {
					return settleProduct(rt, v.Controller, v.ToggleStatus(ctx, c.Args().First()).Wait())
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a product",
				ArgsUsage: "PRODUCT_ID",
				Action: withInventory(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.SellerInventory) error {
					return settle(v.Delete(ctx, c.Args().First()).Wait())
				}),
			},
		},
	}
}

func withInventory(fn func(context.Context, *cli.Command, *runtime, *views.SellerInventory) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.ArgsUsage != "" {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
		}
		rt, err := loadRuntime(c)
		if err != nil {
			return err
		}
		if err := rt.requireSession(); err != nil {
			return err
		}
		v := views.NewSellerInventory(rt.env())
		defer v.Close()
		if err := v.Refresh(ctx); err != nil {
			return rt.fail(err)
		}
		return fn(ctx, c, rt, v)
	}
}

// settleProduct prints the product as reconciled after the mutation.
func settleProduct(rt *runtime, c *optimistic.Controller[api.Product], out optimistic.Outcome) error {
	if p, ok := c.Collection().Get(out.RecordID); ok {
		rt.printProducts([]api.Product{p})
	}
	return settle(out)
}
