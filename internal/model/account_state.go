package model

import (
	"signalcrawler/internal/dto"
	"time"

	"gorm.io/datatypes"
)

// AccountState is the prop-firm style account tracked by the risk guardian.
type AccountState struct {
	AccountID           string                                         `gorm:"type:varchar(64);primaryKey" json:"account_id"`
	InitialBalance      float64                                        `gorm:"not null" json:"initial_balance"`
	HighWaterMark       float64                                        `gorm:"not null" json:"high_water_mark"`
	CurrentBalance      float64                                        `gorm:"not null" json:"current_balance"`
	DailyPnL            datatypes.JSONType[map[string]float64]         `gorm:"column:daily_pnl;type:jsonb" json:"daily_pnl"`
	AlertsSent          datatypes.JSONType[map[string][]dto.AlertType] `gorm:"type:jsonb" json:"alerts_sent"`
	MaxDailyLoss        float64                                        `gorm:"not null" json:"max_daily_loss"`
	MaxTrailingDrawdown float64                                        `gorm:"not null" json:"max_trailing_drawdown"`
	DailyLossWarningPct float64                                        `gorm:"not null" json:"daily_loss_warning_pct"`
	DailyLossBlockPct   float64                                        `gorm:"not null" json:"daily_loss_block_pct"`
	DrawdownWarningPct  float64                                        `gorm:"not null" json:"drawdown_warning_pct"`
	MaxDayProfitPct     float64                                        `gorm:"not null" json:"max_day_profit_pct"`
	CreatedAt           time.Time                                      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                                      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AccountState) TableName() string {
	return "account_states"
}

// Clone deep-copies the state so callers never share the maps.
func (a *AccountState) Clone() *AccountState {
	out := *a
	daily := make(map[string]float64, len(a.DailyPnL.Data()))
	for k, v := range a.DailyPnL.Data() {
		daily[k] = v
	}
	alerts := make(map[string][]dto.AlertType, len(a.AlertsSent.Data()))
	for k, v := range a.AlertsSent.Data() {
		alerts[k] = append([]dto.AlertType(nil), v...)
	}
	out.DailyPnL = datatypes.NewJSONType(daily)
	out.AlertsSent = datatypes.NewJSONType(alerts)
	return &out
}
