package toolcalls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/automation"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/storage"
)

const defaultDurationMins = 60

// Store is the slice of the repository the appointment operations use.
type Store interface {
	GetBusiness(ctx context.Context, businessID string) (model.Business, error)
	FindCustomerByPhone(ctx context.Context, businessID, phone string) (model.Customer, error)
	CreateCustomer(ctx context.Context, c *model.Customer) (string, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) (string, error)
	ListUpcomingAppointments(ctx context.Context, businessID, customerID, fromDate string) ([]model.AppointmentDetail, error)
	GetAppointmentForCustomer(ctx context.Context, businessID, customerID, appointmentID string) (model.AppointmentDetail, error)
	NextPendingAppointment(ctx context.Context, businessID, customerID string) (model.AppointmentDetail, error)
	CancelAppointment(ctx context.Context, businessID, appointmentID string) error
	RescheduleAppointment(ctx context.Context, businessID, appointmentID, date, startTime, endTime string) error
}

// Operations implements the appointment tool calls. Each handler owns its
// failure boundary: store errors are logged here and converted to a spoken
// apology, never propagated.
type Operations struct {
	store  Store
	sink   automation.Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewOperations(store Store, sink automation.Sink, logger *slog.Logger) *Operations {
	if sink == nil {
		sink = automation.NoopSink{}
	}
	return &Operations{
		store:  store,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (o *Operations) WithClock(now func() time.Time) *Operations {
	o.now = now
	return o
}

// CheckAvailability always reports the requested slot as open. There is no
// conflict check against existing appointments anywhere in this service;
// real double-booking prevention needs a store-level constraint and is
// tracked as future work, not quietly half-built here.
func (o *Operations) CheckAvailability(_ context.Context, args Args, tenant Tenant) any {
	date := strings.TrimSpace(args.String("appointment_date"))
	startTime := strings.TrimSpace(args.String("start_time"))

	msg := "Yes, we have availability"
	if date != "" && startTime != "" {
		msg = fmt.Sprintf("Yes, %s at %s is available", date, displayTime(startTime))
	}
	if tenant.Name != "" {
		msg += " at " + tenant.Name
	}
	msg += ". Would you like me to book it?"
	return AvailabilityResult{Success: true, Available: true, Message: msg}
}

func (o *Operations) BookAppointment(ctx context.Context, args Args, tenant Tenant) any {
	customerName := strings.TrimSpace(args.String("customer_name"))
	customerPhone := strings.TrimSpace(args.String("customer_phone"))
	date := strings.TrimSpace(args.String("appointment_date"))
	startRaw := strings.TrimSpace(args.String("start_time"))

	var missing []string
	if customerName == "" {
		missing = append(missing, "your name")
	}
	if customerPhone == "" {
		missing = append(missing, "your phone number")
	}
	if date == "" {
		missing = append(missing, "the date you'd like")
	}
	if startRaw == "" {
		missing = append(missing, "a start time")
	}
	if len(missing) > 0 {
		return BookingResult{Success: false, Message: missingFieldsMessage(missing)}
	}

	customer, err := o.findOrCreateCustomer(ctx, tenant.ID, customerName, customerPhone)
	if err != nil {
		o.logger.Error("customer lookup-or-create failed",
			"business_id", tenant.ID, "customer_phone", customerPhone, "err", err)
		return BookingResult{
			Success: false,
			Message: bookingFailureMessage(),
			Error:   "booking_system_error",
			Details: err.Error(),
		}
	}

	service := matchService(tenant.Services, args.String("service_type"))
	durationMins := defaultDurationMins
	serviceID := ""
	serviceLabel := humanizeServiceType(args.String("service_type"))
	price := ""
	if service != nil {
		if service.DurationMins > 0 {
			durationMins = service.DurationMins
		}
		serviceID = service.ID
		serviceLabel = service.Name
		price = service.BasePrice
	}
	if serviceLabel == "" {
		serviceLabel = "appointment"
	}

	startTime, endTime, err := computeEndTime(startRaw, durationMins)
	if err != nil {
		return BookingResult{
			Success: false,
			Message: fmt.Sprintf("I didn't catch %s as a time. Could you give me the start time again, like 2:30 PM or 14:30?", startRaw),
		}
	}

	appt := &model.Appointment{
		BusinessID: tenant.ID,
		CustomerID: customer.ID,
		ServiceID:  serviceID,
		Date:       date,
		StartTime:  startTime,
		EndTime:    endTime,
		Status:     model.StatusPending,
		Notes:      strings.TrimSpace(args.String("notes")),
	}
	id, err := o.store.CreateAppointment(ctx, appt)
	if err != nil {
		o.logger.Error("appointment insert failed",
			"business_id", tenant.ID, "customer_id", customer.ID, "date", date, "start_time", startTime, "err", err)
		return BookingResult{
			Success: false,
			Message: bookingFailureMessage(),
			Error:   "booking_system_error",
			Details: err.Error(),
		}
	}
	appt.ID = id

	o.publishBooked(ctx, appt, customer, service, tenant)

	return BookingResult{
		Success:       true,
		AppointmentID: id,
		Message:       bookingConfirmation(tenant.Name, serviceLabel, price, date, displayTime(startTime)),
	}
}

func (o *Operations) findOrCreateCustomer(ctx context.Context, businessID, name, phone string) (model.Customer, error) {
	customer, err := o.store.FindCustomerByPhone(ctx, businessID, phone)
	if err == nil {
		return customer, nil
	}
	if !storage.IsNotFound(err) {
		return model.Customer{}, err
	}

	first, last := splitName(name)
	customer = model.Customer{
		BusinessID: businessID,
		FirstName:  first,
		LastName:   last,
		Phone:      phone,
	}
	id, err := o.store.CreateCustomer(ctx, &customer)
	if err != nil {
		return model.Customer{}, err
	}
	customer.ID = id
	return customer, nil
}

// publishBooked hands the event to the automation sink. The booking is
// already committed; a publish failure is logged and otherwise ignored.
func (o *Operations) publishBooked(ctx context.Context, appt *model.Appointment, customer model.Customer, service *model.Service, tenant Tenant) {
	business, err := o.store.GetBusiness(ctx, tenant.ID)
	if err != nil {
		o.logger.Warn("business re-read for automation failed", "business_id", tenant.ID, "err", err)
		business = model.Business{ID: tenant.ID, Name: tenant.Name}
	}
	evt := automation.NewBookingEvent(*appt, customer, service, business)
	if err := o.sink.Publish(ctx, evt); err != nil {
		o.logger.Error("automation publish failed", "business_id", tenant.ID, "appointment_id", appt.ID, "err", err)
	}
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if i := strings.Index(full, " "); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}
