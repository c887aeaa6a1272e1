package audit

import "time"

// actionWeights assigns a base risk weight per action tag. Unlisted
// actions score zero.
var actionWeights = map[string]int{
	ActionLoginFailed:    30,
	ActionSecurityBlock:  50,
	ActionSessionEvicted: 10,
	ActionSessionRevoked: 10,
	ActionLogoutAll:      15,
	ActionTokenRefresh:   5,
}

const (
	failureWeight  = 20
	offHoursWeight = 15
	maxRiskScore   = 100
)

// RiskScore computes a deterministic score for an event. It is used only
// to prioritize alerting and never gates access. Off-hours activity
// (outside 06:00-22:00 UTC) adds weight.
func RiskScore(action, outcome string, at time.Time) int {
	score := actionWeights[action]

	if outcome != OutcomeSuccess {
		score += failureWeight
	}

	hour := at.UTC().Hour()
	if hour < 6 || hour >= 22 {
		score += offHoursWeight
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score
}
