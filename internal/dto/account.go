package dto

type AlertType string

const (
	AlertDailyLossWarning   AlertType = "daily_loss_warning"
	AlertDailyLossBlock     AlertType = "daily_loss_block"
	AlertDrawdownWarning    AlertType = "drawdown_warning"
	AlertDrawdownBreach     AlertType = "drawdown_breach"
	AlertConsistencyWarning AlertType = "consistency_warning"
)

type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type RiskAlert struct {
	Type     AlertType     `json:"type"`
	Severity AlertSeverity `json:"severity"`
	Date     string        `json:"date"`
	Message  string        `json:"message"`
	Value    float64       `json:"value"`
	Limit    float64       `json:"limit"`
	Percent  float64       `json:"percent"`
}

type AccountHealth string

const (
	HealthOK      AccountHealth = "ok"
	HealthWarning AccountHealth = "warning"
	HealthBlocked AccountHealth = "blocked"
)

type AccountStatus struct {
	AccountID          string        `json:"account_id"`
	Date               string        `json:"date"`
	CurrentBalance     float64       `json:"current_balance"`
	HighWaterMark      float64       `json:"high_water_mark"`
	Drawdown           float64       `json:"drawdown"`
	DrawdownPct        float64       `json:"drawdown_pct"`
	Floor              float64       `json:"floor"`
	DistanceToFloor    float64       `json:"distance_to_floor"`
	TodayPnL           float64       `json:"today_pnl"`
	DailyLossPct       float64       `json:"daily_loss_pct"`
	RemainingDailyLoss float64       `json:"remaining_daily_loss"`
	Status             AccountHealth `json:"status"`
	BlockReason        string        `json:"block_reason,omitempty"`
	AlertsToday        []AlertType   `json:"alerts_today"`
}
