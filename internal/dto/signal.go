package dto

import "time"

type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

type TrendStrength string

const (
	StrengthStrong   TrendStrength = "strong"
	StrengthModerate TrendStrength = "moderate"
	StrengthWeak     TrendStrength = "weak"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign is +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

type Verdict string

const (
	VerdictLong     Verdict = "LONG"
	VerdictShort    Verdict = "SHORT"
	VerdictStayAway Verdict = "STAY_AWAY"
	VerdictNoTrade  Verdict = "NO_TRADE"
)

func (v Verdict) IsTrade() bool {
	return v == VerdictLong || v == VerdictShort
}

func (v Verdict) Direction() (Direction, bool) {
	switch v {
	case VerdictLong:
		return DirectionLong, true
	case VerdictShort:
		return DirectionShort, true
	default:
		return "", false
	}
}

type TrendResult struct {
	Timeframe     Timeframe      `json:"timeframe"`
	Direction     TrendDirection `json:"direction"`
	Strength      TrendStrength  `json:"strength"`
	ChangePct     float64        `json:"change_pct"`
	Structure     string         `json:"structure"`
	BullishRatio  float64        `json:"bullish_ratio"`
	BearishRatio  float64        `json:"bearish_ratio"`
	TrendStrength float64        `json:"trend_strength"`
	Candles       int            `json:"candles"`
}

type ComponentScore struct {
	Score    int    `json:"score"`
	Weight   int    `json:"weight"`
	Weighted int    `json:"weighted"`
	Detail   string `json:"detail"`
}

// Components is the auditable breakdown of a confidence score.
type Components struct {
	Alignment   ComponentScore `json:"alignment"`
	Structure   ComponentScore `json:"structure"`
	Volume      ComponentScore `json:"volume"`
	Catalyst    ComponentScore `json:"catalyst"`
	RiskReward  ComponentScore `json:"risk_reward"`
	ATR         float64        `json:"atr"`
	RiskRewardR float64        `json:"risk_reward_r"`
}

type TradeLevels struct {
	Entry        float64 `json:"entry"`
	Stop         float64 `json:"stop"`
	Target1      float64 `json:"target1"`
	Target2      float64 `json:"target2"`
	StopDistance float64 `json:"stop_distance"`
	StopCapped   bool    `json:"stop_capped"`
}

type MarketRegime string

const (
	RegimeTrendingUp     MarketRegime = "TRENDING_UP"
	RegimeTrendingDown   MarketRegime = "TRENDING_DOWN"
	RegimeRanging        MarketRegime = "RANGING"
	RegimeChoppy         MarketRegime = "CHOPPY"
	RegimeHighVolatility MarketRegime = "HIGH_VOLATILITY"
	RegimeLowVolatility  MarketRegime = "LOW_VOLATILITY"
	RegimeUnknown        MarketRegime = "UNKNOWN"
)

type RegimeResult struct {
	Regime        MarketRegime `json:"regime"`
	Confidence    float64      `json:"confidence"`
	ATRZScore     float64      `json:"atr_z_score"`
	TrendStrength float64      `json:"trend_strength"`
	Choppiness    float64      `json:"choppiness"`
}

type ScoreResult struct {
	Instrument  string        `json:"instrument"`
	Verdict     Verdict       `json:"verdict"`
	Confidence  int           `json:"confidence"`
	Reason      string        `json:"reason"`
	Tier        TierName      `json:"tier"`
	Trends      []TrendResult `json:"trends"`
	Components  Components    `json:"components"`
	Levels      TradeLevels   `json:"levels"`
	Regime      RegimeResult  `json:"regime"`
	Narrative   []string      `json:"narrative"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

type SizeResult struct {
	Contracts       int     `json:"contracts"`
	StopTicks       float64 `json:"stop_ticks"`
	RiskPerContract float64 `json:"risk_per_contract"`
	TotalRisk       float64 `json:"total_risk"`
	Degenerate      bool    `json:"degenerate"`
}
