package model

import "time"

// Business is one tenant of the platform. The webhook only reads it.
type Business struct {
	ID               string
	Name             string
	Phone            string
	Email            string
	AddressLine      string
	City             string
	State            string
	PostalCode       string
	SubscriptionTier string
	Timezone         string
	CreatedAt        time.Time
}

// Service is a bookable offering owned by a business.
type Service struct {
	ID           string
	BusinessID   string
	Name         string
	DurationMins int
	BasePrice    string
	Category     string
	IsActive     bool
	DisplayOrder int
}

type Staff struct {
	ID          string
	BusinessID  string
	FirstName   string
	LastName    string
	Role        string
	Specialties []string
	IsActive    bool
}

// BusinessHours is one weekday row of a business's opening schedule.
type BusinessHours struct {
	BusinessID string
	DayOfWeek  int
	OpenTime   string
	CloseTime  string
	IsClosed   bool
}

// Customer is a business's client. Phone is the de-facto natural key
// within a business; repeat bookings reuse the row as-is.
type Customer struct {
	ID         string
	BusinessID string
	FirstName  string
	LastName   string
	Phone      string
	Email      string
	CreatedAt  time.Time
}

// Appointment statuses written by this service. Other statuses
// (confirmed, completed) are set elsewhere in the platform.
const (
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Appointment belongs to exactly one business and one customer.
// Date is YYYY-MM-DD; StartTime/EndTime are HH:MM:SS wall-clock strings
// in the business's timezone, matching the dashboard's storage format.
type Appointment struct {
	ID         string
	BusinessID string
	CustomerID string
	ServiceID  string // empty when no catalog service matched
	Date       string
	StartTime  string
	EndTime    string
	Status     string
	Notes      string
	CreatedAt  time.Time
}

// AppointmentDetail is an appointment joined with display fields for
// read paths (service name/price, staff name).
type AppointmentDetail struct {
	Appointment
	ServiceName  string
	ServicePrice string
	StaffName    string
}
