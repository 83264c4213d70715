package scorer

import (
	"math"
	"signalcrawler/internal/dto"
)

func trueRange(cur, prev dto.Candle) float64 {
	return math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// ATR is the simple average of the last period true ranges. It needs
// period+1 candles.
func ATR(candles []dto.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	recent := candles[len(candles)-period-1:]
	var sum float64
	for i := 1; i < len(recent); i++ {
		sum += trueRange(recent[i], recent[i-1])
	}
	return sum / float64(period), true
}

// TrendStrength is the least-squares slope of the last period closes,
// normalized by their range into -1..1.
func TrendStrength(candles []dto.Candle, period int) float64 {
	if period < 2 || len(candles) < period {
		return 0
	}

	recent := candles[len(candles)-period:]
	n := float64(len(recent))
	var xSum, ySum, xySum, x2Sum float64
	minClose, maxClose := recent[0].Close, recent[0].Close
	for i, c := range recent {
		x := float64(i)
		xSum += x
		ySum += c.Close
		xySum += x * c.Close
		x2Sum += x * x
		minClose = math.Min(minClose, c.Close)
		maxClose = math.Max(maxClose, c.Close)
	}

	denom := n*x2Sum - xSum*xSum
	priceRange := maxClose - minClose
	if denom == 0 || priceRange == 0 {
		return 0
	}

	slope := (n*xySum - xSum*ySum) / denom
	return clamp(slope*n/priceRange, -1, 1)
}

// Choppiness is the choppiness index over period candles, 0..100. Values
// above 61.8 read as ranging, below 38.2 as trending. Short input reads 50.
func Choppiness(candles []dto.Candle, period int) float64 {
	if period < 2 || len(candles) < period+1 {
		return 50
	}

	recent := candles[len(candles)-period:]
	var trSum float64
	highest, lowest := recent[0].High, recent[0].Low
	for i := 1; i < len(recent); i++ {
		trSum += trueRange(recent[i], recent[i-1])
		highest = math.Max(highest, recent[i].High)
		lowest = math.Min(lowest, recent[i].Low)
	}

	hlRange := highest - lowest
	if hlRange == 0 || trSum == 0 {
		return 50
	}
	return clamp(100*math.Log10(trSum/hlRange)/math.Log10(float64(period)), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
