package toolcalls

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/contextcache"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
)

// Function names accepted from the voice assistant.
const (
	FnCheckAvailability     = "check_availability"
	FnBookAppointment       = "book_appointment"
	FnCheckAppointments     = "check_appointments"
	FnCancelAppointment     = "cancel_appointment"
	FnRescheduleAppointment = "reschedule_appointment"
)

// Args is the untyped argument bag from a tool call. Vapi sends JSON
// objects; each handler pulls out the fields it needs as strings.
type Args map[string]any

func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		// Whole numbers only; tool-call args never carry fractions.
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

// ErrorResult is returned for unknown function names. It is a normal
// 200-level payload, not an HTTP failure.
type ErrorResult struct {
	Error string `json:"error"`
}

// Tenant carries the resolved business identity into handlers. Name and
// Services come from the context cache and may be zero when the cache and
// store are both unavailable; handlers must cope.
type Tenant struct {
	ID       string
	Name     string
	Services []model.Service
}

type HandlerFunc func(ctx context.Context, args Args, tenant Tenant) any

// Dispatcher routes named tool calls to registered handlers. Registration
// is fixed at construction; an unknown name yields ErrorResult instead of
// an error so the voice runtime gets something it can speak past.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	contexts *contextcache.Loader
	logger   *slog.Logger
}

func NewDispatcher(ops *Operations, contexts *contextcache.Loader, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: map[string]HandlerFunc{
			FnCheckAvailability:     ops.CheckAvailability,
			FnBookAppointment:       ops.BookAppointment,
			FnCheckAppointments:     ops.CheckAppointments,
			FnCancelAppointment:     ops.CancelAppointment,
			FnRescheduleAppointment: ops.RescheduleAppointment,
		},
		contexts: contexts,
		logger:   logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, name string, args Args, businessID string) any {
	handler, ok := d.handlers[name]
	if !ok {
		d.logger.Warn("unknown tool call", "function", name, "business_id", businessID)
		return ErrorResult{Error: fmt.Sprintf("Unknown function: %s", name)}
	}

	tenant := Tenant{ID: businessID}
	if bc, ok := d.contexts.Get(ctx, businessID); ok {
		tenant.Name = bc.Business.Name
		tenant.Services = bc.Services
	}
	return handler(ctx, args, tenant)
}
