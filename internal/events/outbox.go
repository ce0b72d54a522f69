package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is one row bound for the billing_events outbox. DedupeKey makes the
// write idempotent per agency; replayed imports publish the same key and the
// second insert is a no-op.
type Event struct {
	AgencyID  snowflake.ID
	Type      string
	Payload   map[string]any
	DedupeKey string
}

func (e Event) validate() error {
	if e.AgencyID == 0 {
		return errors.New("invalid_agency_id")
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing_event_type")
	}
	return nil
}

// Outbox appends events to billing_events. A relay outside this service
// drains the table; nothing here publishes to a broker directly.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish appends an event in its own transaction.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx appends an event inside the caller's transaction, so the event
// commits or rolls back with the state change it announces.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if err := event.validate(); err != nil {
		return err
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	// NULL dedupe keys never collide with each other, which is what we want
	// for events that have no natural identity.
	var dedupe any
	if key := strings.TrimSpace(event.DedupeKey); key != "" {
		dedupe = key
	}

	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_events (id, agency_id, event_type, payload, dedupe_key, published, created_at)
		 VALUES (?, ?, ?, ?, ?, false, ?)
		 ON CONFLICT (agency_id, dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		event.AgencyID,
		strings.TrimSpace(event.Type),
		payload,
		dedupe,
		time.Now().UTC(),
	).Error
}
