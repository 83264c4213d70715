package model

import (
	"signalcrawler/internal/dto"
	"time"
)

type MarketLevel struct {
	Instrument  string  `gorm:"type:varchar(16);primaryKey"`
	Date        string  `gorm:"type:char(10);primaryKey"`
	ORBHigh     float64 `gorm:"column:orb_high"`
	ORBLow      float64 `gorm:"column:orb_low"`
	ORBSet      bool    `gorm:"column:orb_set"`
	ORBComplete bool    `gorm:"column:orb_complete"`
	SessionHigh float64
	SessionLow  float64
	SessionSet  bool
	PDH         float64 `gorm:"column:pdh"`
	PDL         float64 `gorm:"column:pdl"`
	PriorSet    bool
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (MarketLevel) TableName() string {
	return "market_levels"
}

func NewMarketLevel(d dto.DailyLevels) MarketLevel {
	return MarketLevel{
		Instrument:  d.Instrument,
		Date:        d.Date,
		ORBHigh:     d.ORBHigh,
		ORBLow:      d.ORBLow,
		ORBSet:      d.ORBSet,
		ORBComplete: d.ORBComplete,
		SessionHigh: d.SessionHigh,
		SessionLow:  d.SessionLow,
		SessionSet:  d.SessionSet,
		PDH:         d.PDH,
		PDL:         d.PDL,
		PriorSet:    d.PriorSet,
	}
}

func (m MarketLevel) ToDTO() dto.DailyLevels {
	return dto.DailyLevels{
		Instrument:  m.Instrument,
		Date:        m.Date,
		ORBHigh:     m.ORBHigh,
		ORBLow:      m.ORBLow,
		ORBSet:      m.ORBSet,
		ORBComplete: m.ORBComplete,
		SessionHigh: m.SessionHigh,
		SessionLow:  m.SessionLow,
		SessionSet:  m.SessionSet,
		PDH:         m.PDH,
		PDL:         m.PDL,
		PriorSet:    m.PriorSet,
	}
}
