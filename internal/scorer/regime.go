package scorer

import (
	"math"
	"signalcrawler/internal/dto"
)

const (
	regimeMinCandles  = 20
	regimeVolZ        = 1.5
	regimeChoppy      = 61.8
	regimeTrendChop   = 50
	regimeTrend       = 0.3
	regimeRangingChop = 45
	regimeRangingFlat = 0.2
)

// Regime classifies the market state of a candle series from its ATR
// z-score against the series' own rolling ATR, the regression trend strength
// and the choppiness index. Volatility extremes win over everything else.
func Regime(candles []dto.Candle, atrPeriod, trendPeriod int) dto.RegimeResult {
	if len(candles) < regimeMinCandles || atrPeriod <= 0 {
		return dto.RegimeResult{Regime: dto.RegimeUnknown, Choppiness: 50}
	}

	res := dto.RegimeResult{
		ATRZScore:     atrZScore(candles, atrPeriod),
		TrendStrength: TrendStrength(candles, trendPeriod),
		Choppiness:    Choppiness(candles, atrPeriod),
	}
	z, trend, chop := res.ATRZScore, res.TrendStrength, res.Choppiness

	switch {
	case z > regimeVolZ:
		res.Regime, res.Confidence = dto.RegimeHighVolatility, math.Min(0.9, 0.5+z*0.2)
	case z < -regimeVolZ:
		res.Regime, res.Confidence = dto.RegimeLowVolatility, math.Min(0.9, 0.5+math.Abs(z)*0.2)
	case chop > regimeChoppy:
		res.Regime, res.Confidence = dto.RegimeChoppy, math.Min(0.85, 0.4+(chop-50)/50)
	case math.Abs(trend) > regimeTrend && chop < regimeTrendChop:
		res.Regime, res.Confidence = dto.RegimeTrendingUp, math.Min(0.9, 0.4+math.Abs(trend)*0.5)
		if trend < 0 {
			res.Regime = dto.RegimeTrendingDown
		}
	case chop > regimeRangingChop && math.Abs(trend) < regimeRangingFlat:
		res.Regime, res.Confidence = dto.RegimeRanging, 0.6
	default:
		res.Regime, res.Confidence = dto.RegimeUnknown, 0.3
	}
	return res
}

// atrZScore places the latest ATR within the distribution of ATRs computed
// over every prefix of the series long enough to have one.
func atrZScore(candles []dto.Candle, period int) float64 {
	current, ok := ATR(candles, period)
	if !ok {
		return 0
	}

	history := make([]float64, 0, len(candles)-period)
	for i := period; i < len(candles); i++ {
		if atr, ok := ATR(candles[:i+1], period); ok {
			history = append(history, atr)
		}
	}
	if len(history) == 0 {
		return 0
	}

	avg := mean(history)
	std := avg * 0.2
	if len(history) > 1 {
		var sq float64
		for _, v := range history {
			sq += (v - avg) * (v - avg)
		}
		std = math.Sqrt(sq / float64(len(history)-1))
	}
	if std == 0 {
		return 0
	}
	return (current - avg) / std
}
