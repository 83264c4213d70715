package dto

import "time"

// CandleWebhookRequest is the bar payload posted by the charting platform.
// Time accepts unix seconds, unix milliseconds or RFC3339.
type CandleWebhookRequest struct {
	Secret    string   `json:"secret"`
	Ticker    string   `json:"ticker" validate:"required,max=32"`
	Timeframe string   `json:"timeframe" validate:"omitempty,oneof=1 1m"`
	Open      *float64 `json:"open" validate:"required,gt=0"`
	High      *float64 `json:"high" validate:"required,gt=0"`
	Low       *float64 `json:"low" validate:"required,gt=0"`
	Close     *float64 `json:"close" validate:"required,gt=0"`
	Volume    float64  `json:"volume" validate:"gte=0"`
	Time      string   `json:"time" validate:"required"`
}

type ResetAccountRequest struct {
	Confirm bool `json:"confirm" validate:"required"`
}

func (r CandleWebhookRequest) ToEvent(ts time.Time) CandleEvent {
	return CandleEvent{
		Instrument: r.Ticker,
		Timeframe:  Timeframe1m,
		Candle: Candle{
			Open:      *r.Open,
			High:      *r.High,
			Low:       *r.Low,
			Close:     *r.Close,
			Volume:    r.Volume,
			Timestamp: ts,
		},
	}
}
