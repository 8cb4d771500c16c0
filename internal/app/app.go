package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/adapters/events"
	"github.com/atvirokodosprendimai/storefront/internal/adapters/httpapi"
	sqliteadapter "github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
	"github.com/atvirokodosprendimai/storefront/migrations"
)

type Config struct {
	Addr       string
	DBPath     string
	SessionTTL time.Duration

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string

	WebhookURL    string
	WebhookSecret string

	OutboxInterval time.Duration
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewServer opens the database, applies migrations, seeds the bootstrap admin
// and starts the outbox dispatcher. The returned closer stops the dispatcher
// before closing the database.
func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open storefront sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	users := sqliteadapter.NewUserRepository(db)
	products := sqliteadapter.NewProductRepository(db)

	authService := usecase.NewAuthService(users, sqliteadapter.NewSessionRepository(db), cfg.SessionTTL)
	validator, err := usecase.NewPayloadValidator()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if cfg.BootstrapAdminEmail != "" {
		name := cfg.BootstrapAdminName
		if name == "" {
			name = "Administrator"
		}
		bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 5*time.Second)
		admin, err := authService.EnsureAdmin(bootstrapCtx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, name)
		bootstrapCancel()
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Printf("bootstrap admin ready id=%s email=%s", admin.ID, admin.Email)
	}

	dispatcher := usecase.NewOutboxDispatcher(sqliteadapter.NewOutboxRepository(db), publisherFor(cfg), usecase.DispatcherConfig{
		Interval:  cfg.OutboxInterval,
		BatchSize: 100,
	})
	dispatcher.Start(context.Background())

	handler := httpapi.NewHandler(httpapi.Services{
		Auth:       authService,
		Catalog:    usecase.NewCatalogService(products),
		Moderation: usecase.NewModerationService(products, users),
		Orders:     usecase.NewOrderService(sqliteadapter.NewOrderRepository(db), sqliteadapter.NewIdempotencyRepository(db)),
		Stats:      usecase.NewStatsService(sqliteadapter.NewStatsRepository(db)),
		Audit:      usecase.NewAuditService(sqliteadapter.NewAuditTrailRepository(db)),
		Validator:  validator,
		Outbox:     dispatcher.Metrics,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{dispatcher, db}}, nil
}

// publisherFor always logs events; a configured webhook receives them as well.
func publisherFor(cfg Config) ports.EventPublisher {
	if cfg.WebhookURL == "" {
		return events.NewLogPublisher()
	}
	return events.MultiPublisher{
		events.NewLogPublisher(),
		events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, 0),
	}
}
