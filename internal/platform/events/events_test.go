package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/cache"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestNew(t *testing.T) {
	e := New(BedReserved, TopicBeds, "bed-1", map[string]string{"status": "Occupied"})

	if e.ID == "" {
		t.Error("expected an event id")
	}
	if e.Type != BedReserved || e.Topic != TopicBeds || e.ResourceID != "bed-1" {
		t.Errorf("unexpected event %+v", e)
	}
	if time.Since(e.Timestamp) > time.Minute {
		t.Errorf("unexpected timestamp %s", e.Timestamp)
	}
	if string(e.Data) != `{"status":"Occupied"}` {
		t.Errorf("unexpected data %s", e.Data)
	}
}

func TestNew_NilData(t *testing.T) {
	if e := New(BillSettled, TopicBilling, "bill-1", nil); e.Data != nil {
		t.Errorf("expected no data, got %s", e.Data)
	}
}

func TestWardTopic(t *testing.T) {
	if got := WardTopic("abc"); got != "ward:abc" {
		t.Errorf("WardTopic = %q", got)
	}
}

func TestMulti_FansOutAndReturnsFirstError(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("redis down")}
	second := &recorder{}

	err := Multi{ok, failing, second}.Publish(context.Background(), New(ChargeAdded, TopicBilling, "c1", nil))

	if err == nil || err.Error() != "redis down" {
		t.Errorf("expected first error, got %v", err)
	}
	for i, r := range []*recorder{ok, failing, second} {
		if len(r.events) != 1 {
			t.Errorf("publisher %d: expected 1 event, got %d", i, len(r.events))
		}
	}
}

func TestEmit_StampsTenant(t *testing.T) {
	r := &recorder{}
	ctx := context.WithValue(context.Background(), db.TenantIDKey, "st_marys")

	Emit(ctx, r, New(AdmissionCreated, TopicBeds, "a1", nil), New(BedReserved, TopicBeds, "b1", nil))

	if len(r.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(r.events))
	}
	for _, e := range r.events {
		if e.Tenant != "st_marys" {
			t.Errorf("expected tenant st_marys, got %q", e.Tenant)
		}
	}
}

func TestEmit_SwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("boom")}
	Emit(context.Background(), r, New(BedReleased, TopicBeds, "b1", nil))
	Emit(context.Background(), nil, New(BedReleased, TopicBeds, "b1", nil))
	if len(r.events) != 1 {
		t.Errorf("expected the failing publisher to be called once, got %d", len(r.events))
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestForward(t *testing.T) {
	r := &recorder{}
	e := New(BedReleased, TopicBeds, "b1", nil)
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	forward(context.Background(), string(raw), r, zerolog.Nop())
	forward(context.Background(), "{garbage", r, zerolog.Nop())

	if len(r.events) != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", len(r.events))
	}
	if r.events[0].ID != e.ID {
		t.Errorf("expected event %s, got %s", e.ID, r.events[0].ID)
	}
}

func TestRedisPublisher_Relay(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis test: TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := cache.NewClient(ctx, url)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	received := make(chan Event, 1)
	local := PublisherFunc(func(_ context.Context, e Event) error {
		received <- e
		return nil
	})

	channel := "hospital-test:events"
	go Relay(ctx, client, channel, local, zerolog.Nop())
	time.Sleep(100 * time.Millisecond)

	sent := New(PaymentApplied, TopicBilling, "bill-9", nil)
	if err := NewRedisPublisher(client, channel).Publish(ctx, sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		if got.ID != sent.ID {
			t.Errorf("expected event %s, got %s", sent.ID, got.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed event")
	}
}
