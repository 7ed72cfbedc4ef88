package access

func CapabilitiesFor(mode Mode) []string {
	switch mode {
	case ModePremium:
		return []string{"training_plans", "ai_chat", "community_post", "multi_pet", "progress_reports"}
	case ModeTrial:
		return []string{"training_plans", "ai_chat", "community_post", "multi_pet"}
	default:
		return []string{"basic_lessons", "community_read"}
	}
}
