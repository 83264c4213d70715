package dto

type Bias string

const (
	BiasLong    Bias = "LONG"
	BiasShort   Bias = "SHORT"
	BiasNeutral Bias = "NEUTRAL"
	BiasWaiting Bias = "WAITING"
	BiasUnknown Bias = "UNKNOWN"
)

// DailyLevels holds one instrument's levels for one session date.
// Optional values are only meaningful when their Set flag is true.
type DailyLevels struct {
	Instrument  string  `json:"instrument"`
	Date        string  `json:"date"`
	ORBHigh     float64 `json:"orb_high"`
	ORBLow      float64 `json:"orb_low"`
	ORBSet      bool    `json:"orb_set"`
	ORBComplete bool    `json:"orb_complete"`
	SessionHigh float64 `json:"session_high"`
	SessionLow  float64 `json:"session_low"`
	SessionSet  bool    `json:"session_set"`
	PDH         float64 `json:"pdh"`
	PDL         float64 `json:"pdl"`
	PriorSet    bool    `json:"prior_set"`
}

func (d DailyLevels) ORB() (high, low float64, ok bool) {
	return d.ORBHigh, d.ORBLow, d.ORBSet
}

func (d DailyLevels) Prior() (pdh, pdl float64, ok bool) {
	return d.PDH, d.PDL, d.PriorSet
}

func (d DailyLevels) Session() (high, low float64, ok bool) {
	return d.SessionHigh, d.SessionLow, d.SessionSet
}

type BiasResult struct {
	Bias     Bias   `json:"bias"`
	CanTrade bool   `json:"can_trade"`
	Reason   string `json:"reason"`
}

type SafetyResult struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
}

type LevelsStatus struct {
	Levels DailyLevels `json:"levels"`
	Bias   BiasResult  `json:"bias"`
}
