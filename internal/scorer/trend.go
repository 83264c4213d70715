package scorer

import (
	"math"
	"signalcrawler/internal/dto"
)

const (
	StructureBullish = "HH/HL"
	StructureBearish = "LH/LL"
	StructureNone    = "none"

	minTrendCandles     = 3
	neutralChangePct    = 0.05
	strongCandleRatio   = 0.65
	moderateCandleRatio = 0.5
)

// AnalyzeTrend classifies direction and strength of one timeframe window.
func AnalyzeTrend(tf dto.Timeframe, candles []dto.Candle) dto.TrendResult {
	result := dto.TrendResult{
		Timeframe: tf,
		Direction: dto.TrendNeutral,
		Strength:  dto.StrengthWeak,
		Structure: StructureNone,
		Candles:   len(candles),
	}
	if len(candles) < minTrendCandles {
		return result
	}

	first, last := candles[0], candles[len(candles)-1]
	if first.Open != 0 {
		result.ChangePct = (last.Close - first.Open) / first.Open * 100
	}
	result.Structure = detectStructure(candles[len(candles)-minTrendCandles:])

	var bulls, bears int
	for _, c := range candles {
		switch {
		case c.IsBullish():
			bulls++
		case c.IsBearish():
			bears++
		}
	}
	result.BullishRatio = float64(bulls) / float64(len(candles))
	result.BearishRatio = float64(bears) / float64(len(candles))
	result.TrendStrength = TrendStrength(candles, len(candles))

	switch {
	case result.Structure == StructureBullish && result.ChangePct >= 0:
		result.Direction = dto.TrendBullish
	case result.Structure == StructureBearish && result.ChangePct <= 0:
		result.Direction = dto.TrendBearish
	case result.Structure == StructureNone && math.Abs(result.ChangePct) >= neutralChangePct:
		if result.ChangePct > 0 {
			result.Direction = dto.TrendBullish
		} else {
			result.Direction = dto.TrendBearish
		}
	}

	result.Strength = classifyStrength(result)
	return result
}

func detectStructure(last3 []dto.Candle) string {
	a, b, c := last3[0], last3[1], last3[2]
	switch {
	case c.High > b.High && b.High > a.High && c.Low > b.Low && b.Low > a.Low:
		return StructureBullish
	case c.High < b.High && b.High < a.High && c.Low < b.Low && b.Low < a.Low:
		return StructureBearish
	default:
		return StructureNone
	}
}

func classifyStrength(r dto.TrendResult) dto.TrendStrength {
	var ratio float64
	var agrees bool
	switch r.Direction {
	case dto.TrendBullish:
		ratio, agrees = r.BullishRatio, r.Structure == StructureBullish
	case dto.TrendBearish:
		ratio, agrees = r.BearishRatio, r.Structure == StructureBearish
	default:
		return dto.StrengthWeak
	}

	switch {
	case ratio >= strongCandleRatio && agrees:
		return dto.StrengthStrong
	case ratio >= moderateCandleRatio || agrees:
		return dto.StrengthModerate
	default:
		return dto.StrengthWeak
	}
}
