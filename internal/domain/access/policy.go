package access

import (
	"time"

	"tiertrainer-backend/internal/domain/subscribers"
)

type Policy struct {
	Mode          Mode
	Capabilities  []string
	MaxPets       int
	TrialEndsAt   *time.Time
	TrialDaysLeft int
}

func ComputePolicy(now time.Time, s *subscribers.Subscriber) Policy {
	mode := DeriveMode(now, s)

	p := Policy{
		Mode:         mode,
		Capabilities: CapabilitiesFor(mode),
		MaxPets:      MaxPetsAllowed(now, s),
	}
	if s != nil && s.TrialUsed {
		p.TrialEndsAt = s.TrialEnd()
		p.TrialDaysLeft = s.TrialDaysLeft(now)
	}
	return p
}
