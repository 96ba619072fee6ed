package toolcalls

// AvailabilityResult is what check_availability reports. The operation is a
// deliberate stub (see Operations.CheckAvailability).
type AvailabilityResult struct {
	Success   bool   `json:"success"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type BookingResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Error         string `json:"error,omitempty"`
	Details       string `json:"details,omitempty"`
}

// AppointmentItem is the raw row view returned alongside the spoken list.
type AppointmentItem struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Price     string `json:"price,omitempty"`
	Staff     string `json:"staff,omitempty"`
}

type AppointmentsResult struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Appointments []AppointmentItem `json:"appointments"`
	Count        int               `json:"count"`
}

// ActionResult covers cancel and reschedule.
type ActionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AppointmentID string `json:"appointment_id,omitempty"`
}
