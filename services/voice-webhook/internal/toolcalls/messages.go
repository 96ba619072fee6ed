package toolcalls

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
)

// All strings built here are spoken aloud by the voice assistant, so they
// stay conversational and never leak internals. The business name is an
// explicit parameter rather than a substituted placeholder.

func missingFieldsMessage(missing []string) string {
	return fmt.Sprintf("I just need a few more details to book that. Could you give me %s?", joinSpoken(missing))
}

func bookingConfirmation(businessName, serviceLabel, price, date, startTime string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Perfect! I've booked your %s appointment for %s at %s.", serviceLabel, date, startTime)
	if price != "" {
		fmt.Fprintf(&b, " The price is $%s.", price)
	}
	if businessName != "" {
		fmt.Fprintf(&b, " We look forward to seeing you at %s!", businessName)
	} else {
		b.WriteString(" We look forward to seeing you!")
	}
	return b.String()
}

func bookingFailureMessage() string {
	return "I apologize, but I'm having trouble booking your appointment right now. Please try again in a moment, or call back later."
}

func lookupFailureMessage() string {
	return "I'm sorry, I'm having trouble looking that up right now. Please try again in a moment."
}

func appointmentsListMessage(businessName string, items []AppointmentItem) string {
	var lines []string
	for _, it := range items {
		label := it.Service
		if label == "" {
			label = "appointment"
		}
		line := fmt.Sprintf("%s on %s at %s", label, it.Date, displayTime(it.StartTime))
		if it.Staff != "" {
			line += " with " + it.Staff
		}
		lines = append(lines, line)
	}
	plural := "appointments"
	if len(items) == 1 {
		plural = "appointment"
	}
	msg := fmt.Sprintf("You have %d upcoming %s: %s.", len(items), plural, joinSpoken(lines))
	if businessName != "" {
		msg += " See you at " + businessName + "!"
	}
	return msg
}

func cancelConfirmation(appt model.AppointmentDetail) string {
	return fmt.Sprintf("All set. I've cancelled your %s on %s at %s.",
		serviceOrAppointment(appt.ServiceName), appt.Date, displayTime(appt.StartTime))
}

func rescheduleConfirmation(appt model.AppointmentDetail, newDate, newTime string) string {
	return fmt.Sprintf("Done! I've moved your %s to %s at %s.",
		serviceOrAppointment(appt.ServiceName), newDate, displayTime(newTime))
}

func serviceOrAppointment(serviceName string) string {
	if serviceName == "" {
		return "appointment"
	}
	return serviceName + " appointment"
}

func joinSpoken(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// humanizeServiceType turns a tool-call service_type like "gel_manicure"
// into a display string ("Gel Manicure") for matching and for echoing back
// when no catalog row matches.
func humanizeServiceType(raw string) string {
	words := strings.Fields(strings.ReplaceAll(strings.TrimSpace(raw), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// matchService does a case-insensitive substring match of the requested
// type against the active catalog, first match wins. No match is not an
// error; booking proceeds without a service association.
func matchService(services []model.Service, serviceType string) *model.Service {
	wanted := strings.ToLower(humanizeServiceType(serviceType))
	if wanted == "" {
		return nil
	}
	for i := range services {
		if strings.Contains(strings.ToLower(services[i].Name), wanted) {
			return &services[i]
		}
	}
	return nil
}

// parseClock accepts HH:MM or HH:MM:SS wall-clock strings.
func parseClock(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("15:04:05", raw); err == nil {
		return t, nil
	}
	return time.Parse("15:04", raw)
}

// computeEndTime adds the service duration to a start clock and returns
// both normalized as HH:MM:SS storage strings.
func computeEndTime(startRaw string, durationMins int) (startTime, endTime string, err error) {
	start, err := parseClock(startRaw)
	if err != nil {
		return "", "", err
	}
	end := start.Add(time.Duration(durationMins) * time.Minute)
	return start.Format("15:04:05"), end.Format("15:04:05"), nil
}

// displayTime trims storage clocks back to the HH:MM the caller said.
func displayTime(clock string) string {
	if len(clock) >= 5 {
		return clock[:5]
	}
	return clock
}
