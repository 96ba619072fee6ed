package automation

import (
	"time"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/routing"
)

const EventAppointmentBooked = "appointment_booked"

// BookingEvent is the structured payload handed to downstream automation
// after a successful booking. Every field carries a sensible default so
// consumers never see missing keys.
type BookingEvent struct {
	Event       string           `json:"event"`
	Timestamp   time.Time        `json:"timestamp"`
	BusinessID  string           `json:"business_id"`
	Appointment EventAppointment `json:"appointment"`
	Customer    EventCustomer    `json:"customer"`
	Service     EventService     `json:"service"`
	Business    EventBusiness    `json:"business"`
}

type EventAppointment struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

type EventCustomer struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type EventService struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	Price        string `json:"price"`
}

type EventBusiness struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

// NewBookingEvent normalizes the customer phone to E.164 and fills the
// envelope. service may be nil when no catalog row matched the request.
func NewBookingEvent(appt model.Appointment, customer model.Customer, service *model.Service, business model.Business) BookingEvent {
	evt := BookingEvent{
		Event:      EventAppointmentBooked,
		Timestamp:  time.Now().UTC(),
		BusinessID: business.ID,
		Appointment: EventAppointment{
			ID:        appt.ID,
			Date:      appt.Date,
			StartTime: appt.StartTime,
			EndTime:   appt.EndTime,
			Status:    appt.Status,
			Notes:     appt.Notes,
		},
		Customer: EventCustomer{
			ID:        customer.ID,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Phone:     routing.NormalizeCustomerE164(customer.Phone),
			Email:     customer.Email,
		},
		Business: EventBusiness{
			ID:       business.ID,
			Name:     business.Name,
			Phone:    business.Phone,
			Email:    business.Email,
			Timezone: business.Timezone,
		},
	}
	if service != nil {
		evt.Service = EventService{
			ID:           service.ID,
			Name:         service.Name,
			DurationMins: service.DurationMins,
			Price:        service.BasePrice,
		}
	}
	return evt
}
