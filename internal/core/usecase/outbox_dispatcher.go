package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

// DispatcherConfig tunes outbox delivery. Zero fields take defaults.
type DispatcherConfig struct {
	Interval       time.Duration
	BatchSize      int
	MaxAttempts    int
	PublishTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 15 * time.Second
	}
	return c
}

// OutboxDispatcher delivers account, moderation and order events from the
// outbox table to the publisher. Verification requests go first in every batch
// since a user is waiting on them.
type OutboxDispatcher struct {
	repo      ports.OutboxRepository
	publisher ports.EventPublisher
	cfg       DispatcherConfig
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	delivered atomic.Int64
	retried   atomic.Int64
	buried    atomic.Int64

	typesMu sync.Mutex
	byType  map[string]int64
}

// OutboxDispatcherMetrics is reported on /healthz.
type OutboxDispatcherMetrics struct {
	Delivered    int64            `json:"delivered"`
	Retried      int64            `json:"retried"`
	DeadLettered int64            `json:"dead_lettered"`
	ByEventType  map[string]int64 `json:"delivered_by_event_type,omitempty"`
}

// BatchReport counts what one pass over the outbox did.
type BatchReport struct {
	Delivered    int
	Retried      int
	DeadLettered int
}

func NewOutboxDispatcher(repo ports.OutboxRepository, publisher ports.EventPublisher, cfg DispatcherConfig) *OutboxDispatcher {
	return &OutboxDispatcher{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
		byType:    map[string]int64{},
	}
}

func (d *OutboxDispatcher) Start(parent context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(ctx)
}

// Close stops the polling loop and waits for the batch in progress.
func (d *OutboxDispatcher) Close() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *OutboxDispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		report, err := d.DispatchOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Printf("outbox pass failed: %v", err)
		case report.Retried > 0 || report.DeadLettered > 0:
			log.Printf("outbox pass delivered=%d retried=%d dead=%d", report.Delivered, report.Retried, report.DeadLettered)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce delivers one batch of due events. A repository error aborts the
// pass; publish failures are recorded on the event and do not.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (BatchReport, error) {
	var report BatchReport
	pending, err := d.repo.FetchPending(ctx, d.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("fetch pending outbox: %w", err)
	}

	for _, ev := range verificationFirst(pending) {
		envelope, err := d.deliver(ctx, ev)
		if err == nil {
			if err := d.repo.MarkDispatched(ctx, ev.ID); err != nil {
				return report, fmt.Errorf("mark outbox %d dispatched: %w", ev.ID, err)
			}
			d.countDelivered(envelope.EventType)
			report.Delivered++
			continue
		}

		dead, markErr := d.retryOrBury(ctx, ev, err)
		if markErr != nil {
			return report, markErr
		}
		if dead {
			report.DeadLettered++
		} else {
			report.Retried++
		}
	}
	return report, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, ev domain.OutboxEvent) (domain.EventEnvelope, error) {
	var envelope domain.EventEnvelope
	if err := json.Unmarshal(ev.PayloadJSON, &envelope); err != nil {
		return envelope, fmt.Errorf("decode envelope: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()
	return envelope, d.publisher.Publish(ctx, ev.Topic, envelope)
}

// retryOrBury schedules the next attempt, or dead-letters the event once the
// attempt budget is spent.
func (d *OutboxDispatcher) retryOrBury(ctx context.Context, ev domain.OutboxEvent, cause error) (bool, error) {
	attempts := ev.Attempts + 1
	if attempts >= d.cfg.MaxAttempts {
		if err := d.repo.MarkDead(ctx, ev.ID, attempts, cause.Error()); err != nil {
			return false, fmt.Errorf("dead-letter outbox %d: %w", ev.ID, err)
		}
		d.buried.Add(1)
		log.Printf("outbox event dead-lettered id=%d event_id=%s topic=%s attempts=%d error=%q", ev.ID, ev.EventID, ev.Topic, attempts, cause.Error())
		return true, nil
	}
	next := d.now().Add(retryDelay(attempts)).Format(time.RFC3339Nano)
	if err := d.repo.MarkFailed(ctx, ev.ID, attempts, next, cause.Error()); err != nil {
		return false, fmt.Errorf("reschedule outbox %d: %w", ev.ID, err)
	}
	d.retried.Add(1)
	return false, nil
}

func (d *OutboxDispatcher) countDelivered(eventType string) {
	d.delivered.Add(1)
	d.typesMu.Lock()
	d.byType[eventType]++
	d.typesMu.Unlock()
}

func (d *OutboxDispatcher) Metrics() OutboxDispatcherMetrics {
	d.typesMu.Lock()
	byType := make(map[string]int64, len(d.byType))
	for k, v := range d.byType {
		byType[k] = v
	}
	d.typesMu.Unlock()
	return OutboxDispatcherMetrics{
		Delivered:    d.delivered.Load(),
		Retried:      d.retried.Load(),
		DeadLettered: d.buried.Load(),
		ByEventType:  byType,
	}
}

// verificationFirst keeps outbox order except that verification requests move
// to the front.
func verificationFirst(events []domain.OutboxEvent) []domain.OutboxEvent {
	const topic = "events." + domain.EventUserVerificationIssued
	out := append([]domain.OutboxEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Topic == topic && out[j].Topic != topic
	})
	return out
}

// retryDelay doubles from one second and caps at five minutes.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 9 {
		return 5 * time.Minute
	}
	d := time.Second << (attempt - 1)
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
