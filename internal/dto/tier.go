package dto

type TierName string

const (
	TierPrime     TierName = "PRIME"
	TierMidday    TierName = "MIDDAY"
	TierClose     TierName = "CLOSE"
	TierEvening   TierName = "EVENING"
	TierPremarket TierName = "PREMARKET"
	TierBlocked   TierName = "BLOCKED"
)

// SessionTier is a wall-clock trading window. Start and End are minutes since
// midnight in the session time zone; a window with End <= Start wraps midnight.
type SessionTier struct {
	Name          TierName `json:"name"`
	DisplayName   string   `json:"display_name"`
	Start         int      `json:"start"`
	End           int      `json:"end"`
	MinConfidence int      `json:"min_confidence"`
	RiskBudget    float64  `json:"risk_budget"`
	Target1R      float64  `json:"target1_r"`
	Target2R      float64  `json:"target2_r"`
	Warning       bool     `json:"warning"`
	Blocked       bool     `json:"blocked"`
}

func (t SessionTier) Contains(minuteOfDay int) bool {
	if t.End <= t.Start {
		return minuteOfDay >= t.Start || minuteOfDay < t.End
	}
	return minuteOfDay >= t.Start && minuteOfDay < t.End
}

type TierStatus struct {
	Tier           SessionTier `json:"tier"`
	Window         string      `json:"window"`
	BlockedMessage string      `json:"blocked_message,omitempty"`
}
