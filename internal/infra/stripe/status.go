package stripe

import "strings"

const (
	statusNone     = "none"
	statusActive   = "active"
	statusTrialing = "trialing"
	statusPastDue  = "past_due"
	statusCanceled = "canceled"
)

// NormalizeStripeStatus folds Stripe's subscription statuses onto the ones the
// subscriber row and the clients know. Unknown values pass through lower-cased.
func NormalizeStripeStatus(s *string) string {
	if s == nil {
		return statusNone
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	switch v {
	case "":
		return statusNone
	case "past_due", "unpaid", "incomplete":
		return statusPastDue
	case "canceled", "cancelled", "incomplete_expired":
		return statusCanceled
	default:
		return v
	}
}

// Entitled reports whether a Stripe status grants paid access.
func Entitled(status string) bool {
	switch NormalizeStripeStatus(&status) {
	case statusActive, statusTrialing:
		return true
	}
	return false
}
