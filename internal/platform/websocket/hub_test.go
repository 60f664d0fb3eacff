package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/auth"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
)

func newClient(id, tenant string, topics ...string) *Client {
	return &Client{ID: id, Tenant: tenant, Topics: topics, Send: make(chan []byte, 8)}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c1", "default", events.TopicBeds)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("default", events.TopicBeds) != 1 {
		t.Fatalf("expected 1 subscriber on beds")
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("default", events.TopicBeds) != 0 {
		t.Fatal("expected hub to be empty after unregister")
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send channel to be closed")
	}

	// Second unregister is a no-op.
	hub.Unregister(client)
}

func TestHub_PublishScopedToTenant(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	same := newClient("a", "st_marys", events.TopicBeds)
	other := newClient("b", "county", events.TopicBeds)
	hub.Register(same)
	hub.Register(other)

	evt := events.New(events.BedReserved, events.TopicBeds, "bed-1", nil)
	evt.Tenant = "st_marys"
	if err := hub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case raw := <-same.Send:
		var got events.Event
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got.Type != events.BedReserved || got.ResourceID != "bed-1" {
			t.Errorf("unexpected event %+v", got)
		}
	default:
		t.Fatal("expected same-tenant client to receive the event")
	}

	select {
	case <-other.Send:
		t.Fatal("other tenant must not receive the event")
	default:
	}
}

func TestHub_WardTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ward := newClient("w", "", events.WardTopic("ward-1"))
	board := newClient("b", "", events.TopicBeds)
	hub.Register(ward)
	hub.Register(board)

	hub.Publish(context.Background(), events.New(events.BedReleased, events.WardTopic("ward-1"), "bed-2", nil))

	if len(ward.Send) != 1 {
		t.Errorf("expected ward subscriber to get 1 event, got %d", len(ward.Send))
	}
	if len(board.Send) != 0 {
		t.Errorf("expected board subscriber to get nothing, got %d", len(board.Send))
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c", "default", events.TopicBeds)
	hub.Register(client)
	wardTopic := events.WardTopic("6f1c2a8e-4b8d-4c57-9d3e-2f0b8f7a9c11")

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{wardTopic}})
	if hub.TopicCount("default", wardTopic) != 1 {
		t.Fatal("expected ward subscription")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{events.TopicBeds}})
	if hub.TopicCount("default", events.TopicBeds) != 0 {
		t.Fatal("expected beds subscription removed")
	}
	if len(client.Topics) != 1 || client.Topics[0] != wardTopic {
		t.Errorf("unexpected topics %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "bogus", Topics: []string{"x"}})
	if len(client.Topics) != 1 {
		t.Error("unknown actions must be ignored")
	}
}

func TestHub_RefusesBillingSubscription(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("nurse", "default", events.TopicBeds)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{events.TopicBilling, "ward:not-a-uuid"}})
	if hub.TopicCount("default", events.TopicBilling) != 0 {
		t.Fatal("billing subscription must be refused")
	}
	if len(client.Topics) != 1 || client.Topics[0] != events.TopicBeds {
		t.Errorf("unexpected topics %v", client.Topics)
	}

	evt := events.New(events.PaymentApplied, events.TopicBilling, "bill-1", map[string]string{"patient_name": "Ada Obi"})
	evt.Tenant = "default"
	if err := hub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.Send) != 0 {
		t.Errorf("billing event leaked to bed-board client: %d queued", len(client.Send))
	}
}

func TestBoardTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  bool
	}{
		{events.TopicBeds, true},
		{events.WardTopic("6f1c2a8e-4b8d-4c57-9d3e-2f0b8f7a9c11"), true},
		{events.WardTopic("ward-1"), false},
		{events.WardTopic(""), false},
		{events.TopicBilling, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := BoardTopic(tt.topic); got != tt.want {
			t.Errorf("BoardTopic(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{events.TopicBeds}, Send: make(chan []byte, 1)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(context.Background(), events.New(events.BedReserved, events.TopicBeds, "b", nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient("c", "default", events.TopicBeds)
			hub.Register(c)
			hub.Publish(context.Background(), events.New(events.BedReleased, events.TopicBeds, "b", nil))
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	NewHandler(NewHub(zerolog.Nop())).RegisterRoutes(e.Group("/api/v1"))

	found := false
	for _, r := range e.Routes() {
		if r.Path == "/api/v1/ws/beds" && r.Method == http.MethodGet {
			found = true
		}
	}
	if !found {
		t.Fatal("expected GET /api/v1/ws/beds route")
	}
}

func TestHandler_RejectsBadWardID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws/beds?ward_id=nope", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := NewHandler(NewHub(zerolog.Nop())).HandleConnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_StreamsBedEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, []string{auth.RoleNurse})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(hub).RegisterRoutes(e.Group("/api/v1"))

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/beds"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount("", events.TopicBeds) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(context.Background(), events.New(events.BedReserved, events.TopicBeds, "bed-7", nil))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got events.Event
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if got.ResourceID != "bed-7" {
		t.Errorf("expected bed-7, got %s", got.ResourceID)
	}
}
