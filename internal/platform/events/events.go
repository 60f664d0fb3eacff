// Package events carries post-commit notifications about beds, admissions and
// bills to the live bed board and to other API instances.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
)

// Event types.
const (
	BedReserved      = "bed.reserved"
	BedReleased      = "bed.released"
	BedMaintenance   = "bed.maintenance"
	AdmissionCreated = "admission.created"
	AdmissionClosed  = "admission.discharged"
	AdmissionMoved   = "admission.transferred"
	ChargeAdded      = "charge.added"
	BillGenerated    = "bill.generated"
	PaymentApplied   = "bill.payment_applied"
	BillSettled      = "bill.settled"
)

// Topics. Bed events go to TopicBeds and to the ward's own topic.
const (
	TopicBeds    = "beds"
	TopicBilling = "billing"
)

func WardTopic(wardID string) string {
	return "ward:" + wardID
}

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	Tenant     string          `json:"tenant,omitempty"`
	ResourceID string          `json:"resourceId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// New builds an event; data is marshalled to JSON and dropped if it cannot be.
func New(eventType, topic, resourceID string, data interface{}) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Topic:      topic,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			e.Data = raw
		}
	}
	return e
}

// Publisher delivers events. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Emit publishes each event, stamped with the request's tenant, and logs
// failures. Callers emit only after the owning transaction has committed, so
// a publish error never fails the request.
func Emit(ctx context.Context, p Publisher, evts ...Event) {
	if p == nil {
		return
	}
	log := zerolog.Ctx(ctx)
	tenant := db.TenantFromContext(ctx)
	for _, e := range evts {
		if e.Tenant == "" {
			e.Tenant = tenant
		}
		if err := p.Publish(ctx, e); err != nil {
			log.Warn().Err(err).Str("event_type", e.Type).Str("resource_id", e.ResourceID).Msg("event publish failed")
		}
	}
}
