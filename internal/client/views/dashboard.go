package views

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
)

const recentAuditLimit = 10

// Overview is one dashboard load.
type Overview struct {
	Stats  api.Stats
	Recent []api.AuditEvent
}

// Dashboard shows platform counts and the latest audit events.
type Dashboard struct {
	env Env
}

func NewDashboard(env Env) *Dashboard {
	return &Dashboard{env: env}
}

// Load fetches stats and recent audit concurrently. The first failure wins.
func (d *Dashboard) Load(ctx context.Context) (Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := d.env.Client.AdminStats(ctx).Unwrap()
		out.Stats = stats
		return err
	})
	g.Go(func() error {
		events, err := d.env.Client.AdminAudit(ctx, api.AuditQuery{Limit: recentAuditLimit}).Unwrap()
		out.Recent = events
		return err
	})
	if err := g.Wait(); err != nil {
		d.unauthorized(err)
		return Overview{}, err
	}
	return out, nil
}

func (d *Dashboard) unauthorized(err error) {
	if !isUnauthorized(err) {
		return
	}
	if d.env.Session != nil {
		d.env.Session.Invalidate()
	}
	if d.env.OnUnauthorized != nil {
		d.env.OnUnauthorized()
	}
}
