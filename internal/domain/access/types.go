package access

// Mode is what the product shows for a subscriber: loading|free|trial|trial_expired|premium.
type Mode string

const (
	// ModeLoading is only used by clients while the subscriber row is in flight.
	ModeLoading      Mode = "loading"
	ModeFree         Mode = "free"
	ModeTrial        Mode = "trial"
	ModeTrialExpired Mode = "trial_expired"
	ModePremium      Mode = "premium"
)

// HasPaidFeatures reports whether the mode unlocks paid-tier features.
func (m Mode) HasPaidFeatures() bool {
	return m == ModeTrial || m == ModePremium
}
