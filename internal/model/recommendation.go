package model

import (
	"signalcrawler/internal/dto"
	"time"

	"gorm.io/datatypes"
)

type Recommendation struct {
	ID              string                             `gorm:"type:uuid;primaryKey" json:"id"`
	Instrument      string                             `gorm:"type:varchar(16);not null;index" json:"instrument"`
	Direction       dto.Direction                      `gorm:"type:varchar(8);not null" json:"direction"`
	Confidence      int                                `gorm:"not null" json:"confidence"`
	Tier            dto.TierName                       `gorm:"type:varchar(16);not null" json:"tier"`
	Components      datatypes.JSONType[dto.Components] `gorm:"type:jsonb" json:"components"`
	Entry           float64                            `gorm:"not null" json:"entry"`
	Stop            float64                            `gorm:"not null" json:"stop"`
	Target1         float64                            `gorm:"not null" json:"target1"`
	Target2         float64                            `gorm:"not null" json:"target2"`
	StopCapped      bool                               `gorm:"not null;default:false" json:"stop_capped"`
	Contracts       int                                `gorm:"not null" json:"contracts"`
	RiskDollars     float64                            `json:"risk_dollars"`
	Status          dto.RecommendationStatus           `gorm:"type:varchar(16);not null;index" json:"status"`
	ResolutionPrice *float64                           `json:"resolution_price,omitempty"`
	ResolvedAt      *time.Time                         `json:"resolved_at,omitempty"`
	PnLPoints       *float64                           `gorm:"column:pnl_points" json:"pnl_points,omitempty"`
	PnLDollars      *float64                           `gorm:"column:pnl_dollars" json:"pnl_dollars,omitempty"`
	CreatedAt       time.Time                          `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time                          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

func (r Recommendation) IsTerminal() bool {
	return r.Status.IsTerminal()
}
