package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/views"
)

func adminCommand() *cli.Command {
	userFilters := []cli.Flag{
		&cli.StringFlag{Name: "role", Usage: "customer, seller or admin"},
		&cli.StringFlag{Name: "status", Usage: "active or banned"},
		&cli.StringFlag{Name: "q", Usage: "Search email or name"},
		&cli.IntFlag{Name: "limit", Value: 100},
	}
	productFilters := []cli.Flag{
		&cli.StringFlag{Name: "seller", Usage: "Only products of this seller id"},
		&cli.StringFlag{Name: "status", Usage: "active or inactive"},
		&cli.StringFlag{Name: "q", Usage: "Search by name"},
		&cli.IntFlag{Name: "limit", Value: 100},
	}

	return &cli.Command{
		Name:  "admin",
		Usage: "Moderate users and products",
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "List users",
				Flags: userFilters,
				Action: withUsers(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.AdminUsers) error {
					rt.printUsers(v.Collection().Snapshot())
					return nil
				}),
			},
			{
				Name:      "role",
				Usage:     "Change a user's role",
				ArgsUsage: "USER_ID ROLE",
				Action: withUsers(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.AdminUsers) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					out := v.ChangeRole(ctx, c.Args().First(), c.Args().Get(1)).Wait()
					if u, ok := v.Collection().Get(out.RecordID); ok {
						rt.printUsers([]api.User{u})
					}
					return settle(out)
				}),
			},
			{
				Name:      "ban",
				Usage:     "Ban or unban a user",
				ArgsUsage: "USER_ID",
				Action: withUsers(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.AdminUsers) error {
					out := v.ToggleBan(ctx, c.Args().First()).Wait()
					if u, ok := v.Collection().Get(out.RecordID); ok {
						rt.printUsers([]api.User{u})
					}
					return settle(out)
				}),
			},
			{
				Name:  "products",
				Usage: "List all products",
				Flags: productFilters,
				Action: withAdminProducts(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.AdminProducts) error {
					rt.printProducts(v.Collection().Snapshot())
					return nil
				}),
			},
			{
				Name:      "suspend",
				Usage:     "Suspend or reinstate a product",
				ArgsUsage: "PRODUCT_ID",
				Action: withAdminProducts(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.AdminProducts) error {
					return settleProduct(rt, v.Controller, v.ToggleSuspend(ctx, c.Args().First()).Wait())
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete any product",
				ArgsUsage: "PRODUCT_ID",
				Action: withAdminProducts(func(ctx context.Context, c *cli.Command, rt *runtime, v *views.AdminProducts) error {
					return settle(v.Delete(ctx, c.Args().First()).Wait())
				}),
			},
			{
				Name:  "stats",
				Usage: "Show platform counts and recent activity",
				Action: func(ctx context.Context, c *cli.Command) error {
					rt, err := adminRuntime(c)
					if err != nil {
						return err
					}
					ov, err := views.NewDashboard(rt.env()).Load(ctx)
					if err != nil {
						return rt.fail(err)
					}
					s := ov.Stats
					rt.printTable(
						[]string{"Users", "Customers", "Sellers", "Admins", "Banned", "Products", "Active", "Orders", "Revenue"},
						[][]string{{
							itoa(s.Users), itoa(s.Customers), itoa(s.Sellers), itoa(s.Admins), itoa(s.BannedUsers),
							itoa(s.Products), itoa(s.ActiveProducts), itoa(s.Orders), formatCents(s.RevenueCents),
						}},
					)
					rt.printAudit(ov.Recent)
					return nil
				},
			},
			{
				Name:  "audit",
				Usage: "Show the audit trail",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "Aggregate type: user or product"},
					&cli.StringFlag{Name: "id", Usage: "Aggregate id"},
					&cli.StringFlag{Name: "action", Usage: "Event type, e.g. user.status_changed"},
					&cli.IntFlag{Name: "limit", Value: 50},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					rt, err := adminRuntime(c)
					if err != nil {
						return err
					}
					events, err := rt.client.AdminAudit(ctx, api.AuditQuery{
						AggregateType: c.String("type"),
						AggregateID:   c.String("id"),
						Action:        c.String("action"),
						Limit:         c.Int("limit"),
					}).Unwrap()
					if err != nil {
						return rt.fail(err)
					}
					rt.printAudit(events)
					return nil
				},
			},
		},
	}
}

func adminRuntime(c *cli.Command) (*runtime, error) {
	rt, err := loadRuntime(c)
	if err != nil {
		return nil, err
	}
	if err := rt.requireSession(); err != nil {
		return nil, err
	}
	return rt, nil
}

func withUsers(fn func(context.Context, *cli.Command, *runtime, *views.AdminUsers) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.ArgsUsage != "" {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
		}
		rt, err := adminRuntime(c)
		if err != nil {
			return err
		}
		v := views.NewAdminUsers(rt.env(), userQuery(c))
		defer v.Close()
		if err := v.Refresh(ctx); err != nil {
			return rt.fail(err)
		}
		return fn(ctx, c, rt, v)
	}
}

func withAdminProducts(fn func(context.Context, *cli.Command, *runtime, *views.AdminProducts) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.ArgsUsage != "" {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
		}
		rt, err := adminRuntime(c)
		if err != nil {
			return err
		}
		v := views.NewAdminProducts(rt.env(), productQuery(c))
		defer v.Close()
		if err := v.Refresh(ctx); err != nil {
			return rt.fail(err)
		}
		return fn(ctx, c, rt, v)
	}
}

// userQuery reads list filters; commands without them get an unfiltered list.
func userQuery(c *cli.Command) api.UserQuery {
	return api.UserQuery{
		Role:   c.String("role"),
		Status: c.String("status"),
		Query:  c.String("q"),
		Limit:  c.Int("limit"),
	}
}

func productQuery(c *cli.Command) api.ProductQuery {
	return api.ProductQuery{
		SellerID: c.String("seller"),
		Status:   c.String("status"),
		Query:    c.String("q"),
		Limit:    c.Int("limit"),
	}
}

func (rt *runtime) printUsers(users []api.User) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Email, u.Name, u.Role, u.Status, strconv.FormatBool(u.EmailVerified)})
	}
	rt.printTable([]string{"ID", "Email", "Name", "Role", "Status", "Verified"}, rows)
}

func (rt *runtime) printAudit(events []api.AuditEvent) {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.OccurredAt, e.Action, fmt.Sprintf("%s/%s", e.AggregateType, e.AggregateID), itoa(e.AggregateVersion), e.Actor,
		})
	}
	rt.printTable([]string{"When", "Action", "Aggregate", "Version", "Actor"}, rows)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
