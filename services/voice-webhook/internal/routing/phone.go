package routing

import "strings"

// Digits strips everything but 0-9 from a raw phone string.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeE164 formats a raw phone string the way mapping rows are stored:
// digits only, bare 10-digit national numbers get the "1" country code,
// then a leading "+".
func NormalizeE164(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 && !strings.HasPrefix(digits, "1") {
		digits = "1" + digits
	}
	return "+" + digits
}

// NormalizeCustomerE164 is the automation payload's looser variant: it keeps
// whatever the caller gave beyond the two common US shapes, so downstream
// systems see a "+"-prefixed number even for international input.
func NormalizeCustomerE164(raw string) string {
	digits := Digits(raw)
	switch {
	case digits == "":
		return ""
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	default:
		return "+" + digits
	}
}
