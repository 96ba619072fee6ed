package toolcalls

import (
	"context"
	"strings"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/storage"
)

func (o *Operations) CheckAppointments(ctx context.Context, args Args, tenant Tenant) any {
	phone := strings.TrimSpace(args.String("customer_phone"))
	if phone == "" {
		return AppointmentsResult{
			Success:      false,
			Message:      "Could you give me the phone number the appointment was booked under?",
			Appointments: []AppointmentItem{},
		}
	}

	customer, err := o.store.FindCustomerByPhone(ctx, tenant.ID, phone)
	if err != nil {
		if storage.IsNotFound(err) {
			return AppointmentsResult{
				Success:      true,
				Message:      "I couldn't find any appointments under that phone number. Would you like to book one?",
				Appointments: []AppointmentItem{},
			}
		}
		o.logger.Error("customer lookup failed", "business_id", tenant.ID, "customer_phone", phone, "err", err)
		return AppointmentsResult{Success: false, Message: lookupFailureMessage(), Appointments: []AppointmentItem{}}
	}

	today := o.now().Format("2006-01-02")
	details, err := o.store.ListUpcomingAppointments(ctx, tenant.ID, customer.ID, today)
	if err != nil {
		o.logger.Error("appointment list failed", "business_id", tenant.ID, "customer_id", customer.ID, "err", err)
		return AppointmentsResult{Success: false, Message: lookupFailureMessage(), Appointments: []AppointmentItem{}}
	}
	if len(details) == 0 {
		return AppointmentsResult{
			Success:      true,
			Message:      "You don't have any upcoming appointments. Would you like to book one?",
			Appointments: []AppointmentItem{},
		}
	}

	items := make([]AppointmentItem, 0, len(details))
	for _, d := range details {
		items = append(items, appointmentItem(d))
	}
	return AppointmentsResult{
		Success:      true,
		Message:      appointmentsListMessage(tenant.Name, items),
		Appointments: items,
		Count:        len(items),
	}
}

func (o *Operations) CancelAppointment(ctx context.Context, args Args, tenant Tenant) any {
	phone := strings.TrimSpace(args.String("customer_phone"))
	if phone == "" {
		return ActionResult{Success: false, Message: "Could you give me the phone number the appointment was booked under?"}
	}

	appt, found, failed := o.resolveTarget(ctx, tenant.ID, phone, args.String("appointment_id"))
	if failed {
		return ActionResult{Success: false, Message: lookupFailureMessage()}
	}
	if !found {
		return ActionResult{Success: false, Message: "I couldn't find an upcoming appointment to cancel under that phone number."}
	}

	if err := o.store.CancelAppointment(ctx, tenant.ID, appt.ID); err != nil {
		o.logger.Error("appointment cancel failed", "business_id", tenant.ID, "appointment_id", appt.ID, "err", err)
		return ActionResult{Success: false, Message: "I'm sorry, I wasn't able to cancel that appointment just now. Please try again in a moment."}
	}
	return ActionResult{Success: true, AppointmentID: appt.ID, Message: cancelConfirmation(appt)}
}

func (o *Operations) RescheduleAppointment(ctx context.Context, args Args, tenant Tenant) any {
	phone := strings.TrimSpace(args.String("customer_phone"))
	newDate := strings.TrimSpace(args.String("new_date"))
	newTime := strings.TrimSpace(args.String("new_time"))

	var missing []string
	if phone == "" {
		missing = append(missing, "the phone number the appointment was booked under")
	}
	if newDate == "" {
		missing = append(missing, "the new date")
	}
	if newTime == "" {
		missing = append(missing, "the new time")
	}
	if len(missing) > 0 {
		return ActionResult{Success: false, Message: missingFieldsMessage(missing)}
	}

	appt, found, failed := o.resolveTarget(ctx, tenant.ID, phone, args.String("appointment_id"))
	if failed {
		return ActionResult{Success: false, Message: lookupFailureMessage()}
	}
	if !found {
		return ActionResult{Success: false, Message: "I couldn't find an upcoming appointment to reschedule under that phone number."}
	}

	// Reschedule keeps the dashboard's historical behavior of a flat
	// 60-minute block instead of re-reading the service duration.
	startTime, endTime, err := computeEndTime(newTime, defaultDurationMins)
	if err != nil {
		return ActionResult{Success: false, Message: "I didn't catch that as a time. Could you give me the new time again, like 2:30 PM or 14:30?"}
	}

	if err := o.store.RescheduleAppointment(ctx, tenant.ID, appt.ID, newDate, startTime, endTime); err != nil {
		o.logger.Error("appointment reschedule failed", "business_id", tenant.ID, "appointment_id", appt.ID, "err", err)
		return ActionResult{Success: false, Message: "I'm sorry, I wasn't able to move that appointment just now. Please try again in a moment."}
	}
	return ActionResult{Success: true, AppointmentID: appt.ID, Message: rescheduleConfirmation(appt, newDate, startTime)}
}

// resolveTarget finds the appointment cancel/reschedule act on: the
// explicit id scoped to this customer, or the customer's next pending one.
// failed=true means a store error (as opposed to nothing matching).
func (o *Operations) resolveTarget(ctx context.Context, businessID, phone, appointmentID string) (appt model.AppointmentDetail, found, failed bool) {
	customer, err := o.store.FindCustomerByPhone(ctx, businessID, phone)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.AppointmentDetail{}, false, false
		}
		o.logger.Error("customer lookup failed", "business_id", businessID, "customer_phone", phone, "err", err)
		return model.AppointmentDetail{}, false, true
	}

	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID != "" {
		appt, err = o.store.GetAppointmentForCustomer(ctx, businessID, customer.ID, appointmentID)
	} else {
		appt, err = o.store.NextPendingAppointment(ctx, businessID, customer.ID)
	}
	if err != nil {
		if storage.IsNotFound(err) {
			return model.AppointmentDetail{}, false, false
		}
		o.logger.Error("appointment lookup failed", "business_id", businessID, "customer_id", customer.ID, "err", err)
		return model.AppointmentDetail{}, false, true
	}
	return appt, true, false
}

func appointmentItem(d model.AppointmentDetail) AppointmentItem {
	return AppointmentItem{
		ID:        d.ID,
		Date:      d.Date,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Status:    d.Status,
		Service:   d.ServiceName,
		Price:     d.ServicePrice,
		Staff:     strings.TrimSpace(d.StaffName),
	}
}
