package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

// LogPublisher writes outbox events to the process log. Verification requests
// are printed with their token so a local operator can complete signup without
// a mail relay.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event domain.EventEnvelope) error {
	if event.EventType == domain.EventUserVerificationIssued {
		var payload struct {
			Email string `json:"email"`
			Token string `json:"token"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			log.Printf("verification requested email=%s token=%s", payload.Email, payload.Token)
			return nil
		}
	}
	log.Printf("outbox publish topic=%s event_id=%s event_type=%s actor=%s aggregate=%s/%s version=%d", topic, event.EventID, event.EventType, event.Actor, event.AggregateType, event.AggregateID, event.AggregateVersion)
	return nil
}

// MultiPublisher delivers an event to every publisher in order and stops at the
// first failure so the dispatcher retries the whole delivery.
type MultiPublisher []ports.EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, topic string, event domain.EventEnvelope) error {
	for _, p := range m {
		if err := p.Publish(ctx, topic, event); err != nil {
			return err
		}
	}
	return nil
}
