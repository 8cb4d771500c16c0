package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/views"
)

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "Browse the public catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "q", Usage: "Search by name"},
			&cli.IntFlag{Name: "limit", Value: 50},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			products, err := views.NewCatalog(rt.env()).Search(ctx, c.String("q"), c.Int("limit"))
			if err != nil {
				return rt.fail(err)
			}
			rt.printProducts(products)
			return nil
		},
	}
}

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "Place an order",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "item", Required: true, Usage: "PRODUCT_ID:QUANTITY, repeatable"},
			&cli.StringFlag{Name: "key", Usage: "Idempotency key; reuse it to retry safely"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			lines, err := parseOrderLines(c.StringSlice("item"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			order, key, err := views.NewCatalog(rt.env()).Order(ctx, lines, c.String("key"))
			if err != nil {
				fmt.Fprintf(rt.out, "Retry with --key %s to avoid a duplicate order.\n", key)
				return rt.fail(err)
			}
			fmt.Fprintf(rt.out, "Order %s placed, total %s (key %s).\n", order.ID, formatCents(order.TotalCents), key)
			return nil
		},
	}
}

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "List your orders",
		Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Value: 20}},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			if err := rt.requireSession(); err != nil {
				return err
			}
			orders, err := views.NewCatalog(rt.env()).MyOrders(ctx, c.Int("limit"))
			if err != nil {
				return rt.fail(err)
			}
			rows := make([][]string, 0, len(orders))
			for _, o := range orders {
				rows = append(rows, []string{o.ID, strconv.Itoa(len(o.Items)), formatCents(o.TotalCents), o.Status, o.CreatedAt})
			}
			rt.printTable([]string{"ID", "Items", "Total", "Status", "Created"}, rows)
			return nil
		},
	}
}

func parseOrderLines(raw []string) ([]api.OrderLine, error) {
	lines := make([]api.OrderLine, 0, len(raw))
	for _, item := range raw {
		id, qty, ok := strings.Cut(item, ":")
		if !ok {
			qty = "1"
		}
		n, err := strconv.Atoi(qty)
		if err != nil || id == "" {
			return nil, fmt.Errorf("invalid item %q, want PRODUCT_ID:QUANTITY", item)
		}
		lines = append(lines, api.OrderLine{ProductID: id, Quantity: n})
	}
	return lines, nil
}

func (rt *runtime) printProducts(products []api.Product) {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ID, p.Name, formatCents(p.PriceCents), strconv.Itoa(p.Stock), p.Status})
	}
	rt.printTable([]string{"ID", "Name", "Price", "Stock", "Status"}, rows)
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}
