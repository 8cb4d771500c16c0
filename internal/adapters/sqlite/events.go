package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"
	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type auditEventModel struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID           string    `gorm:"column:event_id;not null"`
	SchemaVersion     int       `gorm:"column:schema_version;not null"`
	AggregateType     string    `gorm:"column:aggregate_type;not null"`
	AggregateID       string    `gorm:"column:aggregate_id;not null"`
	AggregateVersion  int64     `gorm:"column:aggregate_version;not null"`
	Action            string    `gorm:"column:action;not null"`
	Actor             string    `gorm:"column:actor;not null"`
	Source            string    `gorm:"column:source;not null"`
	RequestID         string    `gorm:"column:request_id;not null"`
	CorrelationID     string    `gorm:"column:correlation_id;not null"`
	IdempotencyKey    string    `gorm:"column:idempotency_key;not null"`
	BeforeJSON        string    `gorm:"column:before_json"`
	AfterJSON         string    `gorm:"column:after_json"`
	ChangedFieldsJSON string    `gorm:"column:changed_fields_json"`
	OccurredAt        time.Time `gorm:"column:occurred_at;not null"`
}

func (auditEventModel) TableName() string {
	return "audit_events"
}

type outboxEventModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventID       string     `gorm:"column:event_id;not null"`
	Topic         string     `gorm:"column:topic;not null"`
	PayloadJSON   string     `gorm:"column:payload_json;not null"`
	Status        string     `gorm:"column:status;not null"`
	Attempts      int        `gorm:"column:attempts;not null"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null"`
	LastError     string     `gorm:"column:last_error;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	DispatchedAt  *time.Time `gorm:"column:dispatched_at"`
}

func (outboxEventModel) TableName() string {
	return "outbox_events"
}

// change describes one aggregate mutation. Before is nil on create, After is
// nil on delete.
type change struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Before        any
	After         any
	Payload       any
}

// recordChange writes the audit row and the outbox row for c inside tx.
func recordChange(tx *gorm.DB, c change, meta domain.MutationMetadata) (domain.EventEnvelope, error) {
	beforeJSON, err := marshalOptional(c.Before)
	if err != nil {
		return domain.EventEnvelope{}, fmt.Errorf("marshal before state: %w", err)
	}
	afterJSON, err := marshalOptional(c.After)
	if err != nil {
		return domain.EventEnvelope{}, fmt.Errorf("marshal after state: %w", err)
	}
	changed, err := changedFields(beforeJSON, afterJSON)
	if err != nil {
		return domain.EventEnvelope{}, err
	}

	aggregateVersion, err := nextAggregateVersion(tx, c.AggregateType, c.AggregateID)
	if err != nil {
		return domain.EventEnvelope{}, err
	}

	payload := c.Payload
	if payload == nil {
		payload = c.After
	}
	envelope, err := newEnvelope(c.AggregateType, c.AggregateID, c.EventType, aggregateVersion, payload, meta)
	if err != nil {
		return domain.EventEnvelope{}, err
	}

	audit := auditEventModel{
		EventID:           envelope.EventID,
		SchemaVersion:     envelope.SchemaVersion,
		AggregateType:     c.AggregateType,
		AggregateID:       c.AggregateID,
		AggregateVersion:  aggregateVersion,
		Action:            c.EventType,
		Actor:             meta.Actor,
		Source:            meta.Source,
		RequestID:         meta.RequestID,
		CorrelationID:     meta.CorrelationID,
		IdempotencyKey:    meta.IdempotencyKey,
		BeforeJSON:        beforeJSON,
		AfterJSON:         afterJSON,
		ChangedFieldsJSON: changed,
		OccurredAt:        envelope.OccurredAt,
	}
	if err := tx.Create(&audit).Error; err != nil {
		return domain.EventEnvelope{}, fmt.Errorf("insert audit event: %w", err)
	}

	if err := enqueueOutbox(tx, envelope); err != nil {
		return domain.EventEnvelope{}, err
	}
	return envelope, nil
}

// enqueueOutbox stores an envelope for the dispatcher without an audit row.
// Used for notifications that carry secrets, such as verification tokens.
func enqueueOutbox(tx *gorm.DB, envelope domain.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	outbox := outboxEventModel{
		EventID:       envelope.EventID,
		Topic:         "events." + envelope.EventType,
		PayloadJSON:   string(payload),
		Status:        "pending",
		Attempts:      0,
		NextAttemptAt: envelope.OccurredAt,
		LastError:     "",
		CreatedAt:     envelope.OccurredAt,
	}
	if err := tx.Create(&outbox).Error; err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func newEnvelope(aggregateType, aggregateID, eventType string, version int64, payload any, meta domain.MutationMetadata) (domain.EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.EventEnvelope{}, fmt.Errorf("marshal event payload: %w", err)
	}
	return domain.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		SchemaVersion:    domain.CurrentEventSchemaVersion,
		AggregateType:    aggregateType,
		AggregateID:      aggregateID,
		AggregateVersion: version,
		OccurredAt:       meta.OccurredAt.UTC(),
		CorrelationID:    meta.CorrelationID,
		Actor:            meta.Actor,
		Source:           meta.Source,
		Payload:          raw,
	}, nil
}

// changedFields returns the RFC 6902 patch turning before into after.
func changedFields(beforeJSON, afterJSON string) (string, error) {
	source := beforeJSON
	if source == "" {
		source = "{}"
	}
	target := afterJSON
	if target == "" {
		target = "{}"
	}
	patch, err := jsondiff.CompareJSON([]byte(source), []byte(target))
	if err != nil {
		return "", fmt.Errorf("diff audit states: %w", err)
	}
	if patch == nil {
		return "[]", nil
	}
	out, err := json.Marshal(patch)
	if err != nil {
		return "", fmt.Errorf("marshal audit patch: %w", err)
	}
	return string(out), nil
}

func nextAggregateVersion(tx *gorm.DB, aggregateType, id string) (int64, error) {
	var maxVersion int64
	err := tx.Model(&auditEventModel{}).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, id).
		Select("COALESCE(MAX(aggregate_version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, fmt.Errorf("query aggregate version: %w", err)
	}
	return maxVersion + 1, nil
}

func marshalOptional(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
