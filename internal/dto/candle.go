package dto

import (
	"fmt"
	"signalcrawler/pkg/utils"
	"time"
)

type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
)

// Period returns how many 1m candles make up one candle of the timeframe.
func (t Timeframe) Period() int {
	switch t {
	case Timeframe1m:
		return 1
	case Timeframe5m:
		return 5
	case Timeframe15m:
		return 15
	default:
		return 0
	}
}

type Candle struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate reports why the candle cannot be ingested, or nil.
func (c Candle) Validate() error {
	if !utils.IsFinite(c.Open, c.High, c.Low, c.Close, c.Volume) {
		return fmt.Errorf("non-finite value in candle at %s", c.Timestamp.Format(time.RFC3339))
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price in candle at %s", c.Timestamp.Format(time.RFC3339))
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("high %.4f below open/close", c.High)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("low %.4f above open/close", c.Low)
	}
	if c.Volume < 0 {
		return fmt.Errorf("negative volume %.2f", c.Volume)
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}

func (c Candle) Range() float64 {
	return c.High - c.Low
}

func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// CandleEvent is one inbound bar for an instrument.
type CandleEvent struct {
	Instrument string
	Timeframe  Timeframe
	Candle     Candle
}
