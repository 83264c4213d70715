package dto

import (
	"math"
	"time"
)

type RecommendationStatus string

const (
	StatusPending   RecommendationStatus = "PENDING"
	StatusWin       RecommendationStatus = "WIN"
	StatusLoss      RecommendationStatus = "LOSS"
	StatusDiscarded RecommendationStatus = "DISCARDED"
)

func (s RecommendationStatus) IsTerminal() bool {
	return s == StatusWin || s == StatusLoss || s == StatusDiscarded
}

// Resolution is a terminal transition for one recommendation.
type Resolution struct {
	RecommendationID string               `json:"recommendation_id"`
	Instrument       string               `json:"instrument"`
	Status           RecommendationStatus `json:"status"`
	Price            float64              `json:"price"`
	PnLPoints        float64              `json:"pnl_points"`
	PnLDollars       float64              `json:"pnl_dollars"`
	Contracts        int                  `json:"contracts"`
	ResolvedAt       time.Time            `json:"resolved_at"`
}

type OutcomeSummary struct {
	Checked   int `json:"checked"`
	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	Discarded int `json:"discarded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type IngestResult struct {
	Instrument       string       `json:"instrument"`
	Evaluated        bool         `json:"evaluated"`
	Verdict          Verdict      `json:"verdict,omitempty"`
	Confidence       int          `json:"confidence,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	RecommendationID string       `json:"recommendation_id,omitempty"`
	Score            *ScoreResult `json:"score,omitempty"`
}

type GetRecommendationsParam struct {
	Instrument string                 `query:"instrument"`
	Statuses   []RecommendationStatus `query:"status"`
	Limit      int                    `query:"limit" validate:"omitempty,min=1,max=500"`
}

// RecommendationStatusTotal is one instrument/status group of the
// recommendations table.
type RecommendationStatusTotal struct {
	Instrument string               `gorm:"column:instrument" json:"instrument"`
	Status     RecommendationStatus `gorm:"column:status" json:"status"`
	Count      int                  `gorm:"column:count" json:"count"`
	PnLPoints  float64              `gorm:"column:pnl_points" json:"pnl_points"`
	PnLDollars float64              `gorm:"column:pnl_dollars" json:"pnl_dollars"`
}

type PerformanceSummary struct {
	Total           int     `json:"total"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Discarded       int     `json:"discarded"`
	Pending         int     `json:"pending"`
	WinRate         float64 `json:"win_rate"`
	TotalPnLPoints  float64 `json:"total_pnl_points"`
	TotalPnLDollars float64 `json:"total_pnl_dollars"`
	AvgPnLPoints    float64 `json:"avg_pnl_points"`
}

type InstrumentPerformance struct {
	Instrument string  `json:"instrument"`
	Wins       int     `json:"wins"`
	Resolved   int     `json:"resolved"`
	WinRate    float64 `json:"win_rate"`
}

type PerformanceStats struct {
	PerformanceSummary
	BestInstrument *InstrumentPerformance `json:"best_instrument"`
	Today          PerformanceSummary     `json:"today"`
	Date           string                 `json:"date"`
}

// winRate is wins over decided trades as a percentage with one decimal.
// Discarded recommendations never count as decided.
func winRate(wins, losses int) float64 {
	decided := wins + losses
	if decided == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(decided)*1000) / 10
}

func NewPerformanceSummary(totals []RecommendationStatusTotal) PerformanceSummary {
	var s PerformanceSummary
	var decidedPoints float64
	for _, t := range totals {
		s.Total += t.Count
		s.TotalPnLPoints += t.PnLPoints
		s.TotalPnLDollars += t.PnLDollars
		switch t.Status {
		case StatusWin:
			s.Wins += t.Count
			decidedPoints += t.PnLPoints
		case StatusLoss:
			s.Losses += t.Count
			decidedPoints += t.PnLPoints
		case StatusDiscarded:
			s.Discarded += t.Count
		case StatusPending:
			s.Pending += t.Count
		}
	}
	s.WinRate = winRate(s.Wins, s.Losses)
	if decided := s.Wins + s.Losses; decided > 0 {
		s.AvgPnLPoints = decidedPoints / float64(decided)
	}
	return s
}

// BestInstrumentOf picks the instrument with the most wins among decided
// trades, breaking ties by win rate and then by symbol. It returns nil when
// nothing has been decided yet.
func BestInstrumentOf(totals []RecommendationStatusTotal) *InstrumentPerformance {
	byInstrument := make(map[string]*InstrumentPerformance)
	for _, t := range totals {
		if t.Status != StatusWin && t.Status != StatusLoss {
			continue
		}
		p, ok := byInstrument[t.Instrument]
		if !ok {
			p = &InstrumentPerformance{Instrument: t.Instrument}
			byInstrument[t.Instrument] = p
		}
		p.Resolved += t.Count
		if t.Status == StatusWin {
			p.Wins += t.Count
		}
	}

	var best *InstrumentPerformance
	for _, p := range byInstrument {
		p.WinRate = winRate(p.Wins, p.Resolved-p.Wins)
		switch {
		case best == nil,
			p.Wins > best.Wins,
			p.Wins == best.Wins && p.WinRate > best.WinRate,
			p.Wins == best.Wins && p.WinRate == best.WinRate && p.Instrument < best.Instrument:
			best = p
		}
	}
	return best
}
