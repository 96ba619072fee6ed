package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/contextcache"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/routing"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/toolcalls"
)

// memStore backs the full handler stack in-memory: phone routing, the
// context fetch, and the appointment operations all read and write the same
// state, so multi-step scenarios (book then list then cancel) behave like
// the real repository.
type memStore struct {
	business     model.Business
	services     []model.Service
	mappings     map[string]string
	customers    []model.Customer
	appointments []model.Appointment
	nextID       int
}

func newMemStore() *memStore {
	return &memStore{
		business: model.Business{ID: "biz-1", Name: "Glow Salon", Timezone: "America/Los_Angeles"},
		services: []model.Service{
			{ID: "svc-1", BusinessID: "biz-1", Name: "Manicure", DurationMins: 45, BasePrice: "45", IsActive: true},
		},
		mappings: map[string]string{"+15559876543": "biz-1"},
	}
}

func (m *memStore) FindActiveMapping(_ context.Context, phone string) (string, error) {
	if id, ok := m.mappings[phone]; ok {
		return id, nil
	}
	return "", pgx.ErrNoRows
}

func (m *memStore) MostRecentBusinessID(context.Context) (string, error) {
	return m.business.ID, nil
}

func (m *memStore) FetchBusinessContext(_ context.Context, businessID string) (contextcache.Context, error) {
	if businessID != m.business.ID {
		return contextcache.Context{}, pgx.ErrNoRows
	}
	return contextcache.Context{Business: m.business, Services: m.services}, nil
}

func (m *memStore) GetBusiness(_ context.Context, businessID string) (model.Business, error) {
	if businessID != m.business.ID {
		return model.Business{}, pgx.ErrNoRows
	}
	return m.business, nil
}

func (m *memStore) FindCustomerByPhone(_ context.Context, businessID, phone string) (model.Customer, error) {
	for _, c := range m.customers {
		if c.BusinessID == businessID && c.Phone == phone {
			return c, nil
		}
	}
	return model.Customer{}, pgx.ErrNoRows
}

func (m *memStore) CreateCustomer(_ context.Context, c *model.Customer) (string, error) {
	m.nextID++
	c.ID = fmt.Sprintf("cust-%d", m.nextID)
	m.customers = append(m.customers, *c)
	return c.ID, nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *model.Appointment) (string, error) {
	m.nextID++
	a.ID = fmt.Sprintf("appt-%d", m.nextID)
	m.appointments = append(m.appointments, *a)
	return a.ID, nil
}

func (m *memStore) detail(a model.Appointment) model.AppointmentDetail {
	d := model.AppointmentDetail{Appointment: a}
	for _, s := range m.services {
		if s.ID == a.ServiceID {
			d.ServiceName = s.Name
			d.ServicePrice = s.BasePrice
		}
	}
	return d
}

func (m *memStore) ListUpcomingAppointments(_ context.Context, businessID, customerID, fromDate string) ([]model.AppointmentDetail, error) {
	var out []model.AppointmentDetail
	for _, a := range m.appointments {
		if a.BusinessID == businessID && a.CustomerID == customerID &&
			a.Status != model.StatusCancelled && a.Date >= fromDate {
			out = append(out, m.detail(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *memStore) GetAppointmentForCustomer(_ context.Context, businessID, customerID, appointmentID string) (model.AppointmentDetail, error) {
	for _, a := range m.appointments {
		if a.ID == appointmentID && a.BusinessID == businessID && a.CustomerID == customerID {
			return m.detail(a), nil
		}
	}
	return model.AppointmentDetail{}, pgx.ErrNoRows
}

func (m *memStore) NextPendingAppointment(_ context.Context, businessID, customerID string) (model.AppointmentDetail, error) {
	details, _ := m.ListUpcomingAppointments(context.Background(), businessID, customerID, "")
	for _, d := range details {
		if d.Status == model.StatusPending {
			return d, nil
		}
	}
	return model.AppointmentDetail{}, pgx.ErrNoRows
}

func (m *memStore) CancelAppointment(_ context.Context, businessID, appointmentID string) error {
	for i, a := range m.appointments {
		if a.ID == appointmentID && a.BusinessID == businessID {
			m.appointments[i].Status = model.StatusCancelled
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memStore) RescheduleAppointment(_ context.Context, businessID, appointmentID, date, startTime, endTime string) error {
	for i, a := range m.appointments {
		if a.ID == appointmentID && a.BusinessID == businessID {
			m.appointments[i].Date = date
			m.appointments[i].StartTime = startTime
			m.appointments[i].EndTime = endTime
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newTestHandler(store *memStore) *WebhookHandler {
	logger := slog.New(slog.DiscardHandler)
	loader := contextcache.NewLoader(contextcache.NewMemoryCache(contextcache.DefaultTTL), store, logger)
	resolver := routing.NewResolver(store, routing.Config{Unresolved: routing.PolicyReject}, logger)
	ops := toolcalls.NewOperations(store, nil, logger)
	dispatcher := toolcalls.NewDispatcher(ops, loader, logger)
	return NewWebhookHandler(resolver, dispatcher, loader, logger, "test")
}

func postVapi(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/vapi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleVapi(rec, req)
	return rec
}

func toolCallBody(name string, args map[string]any) string {
	payload := map[string]any{
		"message": map[string]any{
			"type": "tool-calls",
			"toolCalls": []map[string]any{
				{"id": "tc-1", "function": map[string]any{"name": name, "arguments": args}},
			},
		},
		"call": map[string]any{"id": "call-1", "assistantPhoneNumber": "+15559876543"},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func firstResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Results []struct {
			ToolCallID string         `json:"toolCallId"`
			Result     map[string]any `json:"result"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body %q: %v", rec.Body.String(), err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].ToolCallID != "tc-1" {
		t.Fatalf("tool call id %q", resp.Results[0].ToolCallID)
	}
	return resp.Results[0].Result
}

func TestHandleVapi_BookThenListThenCancel(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store)

	rec := postVapi(t, h, toolCallBody("book_appointment", map[string]any{
		"customer_name":    "Jane Doe",
		"customer_phone":   "5551234567",
		"appointment_date": "2099-01-15",
		"start_time":       "14:00",
		"service_type":     "manicure",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("book status %d: %s", rec.Code, rec.Body.String())
	}
	result := firstResult(t, rec)
	if result["success"] != true {
		t.Fatalf("booking failed: %+v", result)
	}
	msg, _ := result["message"].(string)
	for _, want := range []string{"Manicure", "$45", "2099-01-15", "14:00", "Glow Salon"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("confirmation %q missing %q", msg, want)
		}
	}
	if len(store.appointments) != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", len(store.appointments))
	}
	appt := store.appointments[0]
	if appt.EndTime != "14:45:00" || appt.Status != model.StatusPending || appt.ServiceID != "svc-1" {
		t.Fatalf("unexpected stored appointment %+v", appt)
	}

	rec = postVapi(t, h, toolCallBody("check_appointments", map[string]any{
		"customer_phone": "5551234567",
	}))
	result = firstResult(t, rec)
	if result["count"] != float64(1) {
		t.Fatalf("expected count 1, got %+v", result)
	}
	msg, _ = result["message"].(string)
	if !strings.Contains(msg, "Manicure") || !strings.Contains(msg, "2099-01-15") {
		t.Fatalf("list message %q", msg)
	}

	rec = postVapi(t, h, toolCallBody("cancel_appointment", map[string]any{
		"customer_phone": "5551234567",
	}))
	result = firstResult(t, rec)
	if result["success"] != true {
		t.Fatalf("cancel failed: %+v", result)
	}
	if store.appointments[0].Status != model.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", store.appointments[0].Status)
	}
}

func TestHandleVapi_UnknownFunction(t *testing.T) {
	h := newTestHandler(newMemStore())

	rec := postVapi(t, h, toolCallBody("foo", map[string]any{}))
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown function must still be HTTP 200, got %d", rec.Code)
	}
	result := firstResult(t, rec)
	if result["error"] != "Unknown function: foo" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHandleVapi_StringEncodedArguments(t *testing.T) {
	h := newTestHandler(newMemStore())

	inner, _ := json.Marshal(map[string]any{"customer_phone": "5551234567"})
	body := fmt.Sprintf(`{
		"message": {"functionCall": {"name": "check_appointments", "arguments": %q}},
		"call": {"assistantPhoneNumber": "+15559876543"}
	}`, string(inner))
	rec := postVapi(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var result map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result["success"] != true {
		t.Fatalf("expected friendly empty result, got %+v", result)
	}
}

func TestHandleVapi_UnresolvedNumberRejected(t *testing.T) {
	h := newTestHandler(newMemStore())

	body := `{"message": {"type": "tool-calls"}, "call": {"assistantPhoneNumber": "+19990000000"}}`
	rec := postVapi(t, h, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "Invalid business ID" {
		t.Fatalf("unexpected body %+v", resp)
	}
}

func TestHandleVapi_BadJSON(t *testing.T) {
	h := newTestHandler(newMemStore())
	rec := postVapi(t, h, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleVapi_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(newMemStore())
	req := httptest.NewRequest(http.MethodGet, "/webhook/vapi", nil)
	rec := httptest.NewRecorder()
	h.HandleVapi(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleVapi_FirstTurnGreeting(t *testing.T) {
	h := newTestHandler(newMemStore())

	body := `{"message": {"type": "assistant-request"}, "call": {"assistantPhoneNumber": "+15559876543"}}`
	rec := postVapi(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp["message"], "Glow Salon") {
		t.Fatalf("greeting should name the business, got %q", resp["message"])
	}
}

func TestHandleVapi_StatusEventAcknowledged(t *testing.T) {
	h := newTestHandler(newMemStore())

	body := `{"message": {"type": "status-update", "turn": 7}, "call": {"assistantPhoneNumber": "+15559876543"}}`
	rec := postVapi(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "received" || resp["businessId"] != "biz-1" {
		t.Fatalf("unexpected ack %+v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandler(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "healthy" || resp["version"] != "test" {
		t.Fatalf("unexpected health body %+v", resp)
	}
	if features, ok := resp["features"].([]any); !ok || len(features) == 0 {
		t.Fatalf("expected feature list, got %+v", resp["features"])
	}
}
