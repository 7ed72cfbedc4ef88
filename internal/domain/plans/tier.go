package plans

import "strings"

// Tier constants (single source of truth)
const (
	TierNone  = "none"
	TierPlan1 = "plan1"
	TierPlan2 = "plan2"
	TierPlan3 = "plan3"
	TierPlan4 = "plan4"
	TierPlan5 = "plan5"
)

// UnlimitedPets marks a tier without a pet cap.
const UnlimitedPets = -1

var tierPetLimits = map[string]int{
	TierPlan1: 1,
	TierPlan2: 2,
	TierPlan3: 4,
	TierPlan4: 8,
	TierPlan5: UnlimitedPets,
}

// NormalizeTier lower-cases a tier string and maps the legacy marketing names
// ("1-tier", "2 tiere", ...) onto plan keys.
func NormalizeTier(tier string) string {
	t := strings.ToLower(strings.TrimSpace(tier))
	switch t {
	case "":
		return TierNone
	case "1-tier", "1 tier", "basic":
		return TierPlan1
	case "2-tiere", "2 tiere":
		return TierPlan2
	case "3-4-tiere", "3-4 tiere":
		return TierPlan3
	case "5-8-tiere", "5-8 tiere":
		return TierPlan4
	case "unbegrenzt", "unlimited":
		return TierPlan5
	}
	return t
}

// TierPetLimit returns the fixed pet limit for a tier string.
func TierPetLimit(tier string) (int, bool) {
	limit, ok := tierPetLimits[NormalizeTier(tier)]
	return limit, ok
}

// PlanTier returns the effective tier for a plan.
// Priority:
// 1. Explicit Tier stored in DB
// 2. Fallback inference by tier limit (plans synced before tiers were tagged)
func PlanTier(p *Plan) string {
	if p == nil {
		return TierNone
	}

	tier := NormalizeTier(p.Tier)
	if _, ok := tierPetLimits[tier]; ok {
		return tier
	}

	if p.TierLimit != nil {
		return inferTierFromLimit(*p.TierLimit)
	}
	return TierPlan1
}

func inferTierFromLimit(limit int) string {
	switch {
	case limit < 0 || limit > 8:
		return TierPlan5
	case limit > 4:
		return TierPlan4
	case limit > 2:
		return TierPlan3
	case limit == 2:
		return TierPlan2
	default:
		return TierPlan1
	}
}
