package automation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
)

func sampleEvent() BookingEvent {
	return NewBookingEvent(
		model.Appointment{ID: "appt-1", Date: "2025-01-15", StartTime: "14:00:00", EndTime: "14:45:00", Status: model.StatusPending},
		model.Customer{ID: "cust-1", FirstName: "Jane", LastName: "Doe", Phone: "5551234567"},
		&model.Service{ID: "svc-1", Name: "Manicure", DurationMins: 45, BasePrice: "45"},
		model.Business{ID: "biz-1", Name: "Glow Salon", Timezone: "America/Los_Angeles"},
	)
}

func TestWebhookSink_PostsEvent(t *testing.T) {
	var got BookingEvent
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewWebhookSink(srv.URL).Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	if contentType != "application/json" {
		t.Fatalf("content type %q", contentType)
	}
	if got.Event != EventAppointmentBooked {
		t.Fatalf("event %q", got.Event)
	}
	if got.Customer.Phone != "+15551234567" {
		t.Fatalf("expected normalized phone, got %q", got.Customer.Phone)
	}
	if got.Appointment.EndTime != "14:45:00" || got.Service.Name != "Manicure" {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestWebhookSink_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookSink(srv.URL).Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestWebhookSink_UnconfiguredSkips(t *testing.T) {
	if err := NewWebhookSink("").Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("empty URL should be a no-op, got %v", err)
	}
}

type stubSink struct {
	name  string
	err   error
	calls int
}

func (s *stubSink) Publish(context.Context, BookingEvent) error {
	s.calls++
	return s.err
}

func (s *stubSink) Name() string { return s.name }

func TestMultiSink_DeliversPastFailures(t *testing.T) {
	failing := &stubSink{name: "a", err: errors.New("down")}
	healthy := &stubSink{name: "b"}
	m := NewMultiSink(slog.New(slog.DiscardHandler), failing, healthy)

	err := m.Publish(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("expected first error to surface")
	}
	if healthy.calls != 1 {
		t.Fatalf("healthy sink should still receive the event, calls=%d", healthy.calls)
	}
}

func TestNewBookingEvent_NilService(t *testing.T) {
	evt := NewBookingEvent(model.Appointment{ID: "appt-1"}, model.Customer{Phone: "5551234567"}, nil, model.Business{ID: "biz-1"})
	if evt.Service.ID != "" || evt.Service.Name != "" {
		t.Fatalf("expected zero service, got %+v", evt.Service)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}
}
