package scorer

import (
	"fmt"
	"math"
	"signalcrawler/internal/dto"
	"signalcrawler/pkg/utils"
	"time"
)

const (
	WeightAlignment  = 40
	WeightStructure  = 25
	WeightVolume     = 15
	WeightCatalyst   = 10
	WeightRiskReward = 10

	structureLookback   = 10
	minStructureScore   = 50
	wickBodyRatio       = 0.3
	volumeWindow        = 5
	volumeBaseScore     = 75
	volumeAdjustment    = 25
	volumeSurgeFactor   = 1.2
	catalystPrimeScore  = 100
	catalystNormalScore = 80
	catalystWarnScore   = 60
)

func component(score, weight int, detail string) dto.ComponentScore {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return dto.ComponentScore{
		Score:    score,
		Weight:   weight,
		Weighted: int(math.Round(float64(score*weight) / 100)),
		Detail:   detail,
	}
}

func alignmentScore(direction dto.TrendDirection) dto.ComponentScore {
	return component(100, WeightAlignment, fmt.Sprintf("15m, 5m and 1m all %s", direction))
}

// overlapRatio is the mean share of each candle's combined range that it
// shares with the previous candle.
func overlapRatio(candles []dto.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	ratios := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1], candles[i]
		union := math.Max(prev.High, cur.High) - math.Min(prev.Low, cur.Low)
		if union <= 0 {
			ratios = append(ratios, 1)
			continue
		}
		overlap := math.Max(0, math.Min(prev.High, cur.High)-math.Max(prev.Low, cur.Low))
		ratios = append(ratios, overlap/union)
	}
	return mean(ratios)
}

// wickRatio is the share of candles whose body is under 30% of their range.
func wickRatio(candles []dto.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var wicky int
	for _, c := range candles {
		r := c.Range()
		if r <= 0 || c.Body()/r < wickBodyRatio {
			wicky++
		}
	}
	return float64(wicky) / float64(len(candles))
}

func structureScore(candles []dto.Candle) dto.ComponentScore {
	if len(candles) > structureLookback {
		candles = candles[len(candles)-structureLookback:]
	}
	if len(candles) < 2 {
		return component(100, WeightStructure, "not enough candles to judge structure")
	}

	score := 100
	overlap := overlapRatio(candles)
	switch {
	case overlap > 0.6:
		score -= 30
	case overlap > 0.4:
		score -= 15
	}
	wicks := wickRatio(candles)
	switch {
	case wicks > 0.5:
		score -= 20
	case wicks > 0.3:
		score -= 10
	}
	return component(score, WeightStructure, fmt.Sprintf("overlap %.0f%%, wick-dominated %.0f%%", overlap*100, wicks*100))
}

func volumeScore(candles []dto.Candle, direction dto.TrendDirection) dto.ComponentScore {
	if len(candles) < volumeWindow*2 {
		return component(volumeBaseScore, WeightVolume, "insufficient volume history")
	}

	recent := candles[len(candles)-volumeWindow:]
	prior := candles[len(candles)-volumeWindow*2 : len(candles)-volumeWindow]
	recentAvg, priorAvg := avgVolume(recent), avgVolume(prior)
	if priorAvg <= 0 {
		return component(volumeBaseScore, WeightVolume, "no prior volume")
	}

	change := (recentAvg - priorAvg) / priorAvg * 100
	if recentAvg <= priorAvg*volumeSurgeFactor {
		return component(volumeBaseScore, WeightVolume, fmt.Sprintf("volume flat (%+.0f%%)", change))
	}

	move := recent[len(recent)-1].Close - recent[0].Open
	withTrend := (direction == dto.TrendBullish && move > 0) || (direction == dto.TrendBearish && move < 0)
	if withTrend {
		return component(volumeBaseScore+volumeAdjustment, WeightVolume, fmt.Sprintf("volume rising with trend (%+.0f%%)", change))
	}
	return component(volumeBaseScore-volumeAdjustment, WeightVolume, fmt.Sprintf("volume rising against trend (%+.0f%%)", change))
}

func avgVolume(candles []dto.Candle) float64 {
	values := make([]float64, len(candles))
	for i, c := range candles {
		values[i] = c.Volume
	}
	return mean(values)
}

func catalystScore(now time.Time, loc *time.Location, tier dto.SessionTier, news NewsCalendar) dto.ComponentScore {
	if utils.IsWeekend(now.In(loc)) {
		return component(0, WeightCatalyst, "weekend, market closed")
	}
	if news != nil {
		if event, ok := news.Blackout(now); ok {
			return component(0, WeightCatalyst, fmt.Sprintf("news blackout around %s", event.Name))
		}
	}
	switch {
	case tier.Blocked:
		return component(0, WeightCatalyst, fmt.Sprintf("%s tier blocked", tier.Name))
	case tier.Warning:
		return component(catalystWarnScore, WeightCatalyst, fmt.Sprintf("%s tier, reduced liquidity", tier.Name))
	case tier.Name == dto.TierPrime:
		return component(catalystPrimeScore, WeightCatalyst, "prime session")
	default:
		return component(catalystNormalScore, WeightCatalyst, fmt.Sprintf("%s tier", tier.Name))
	}
}

func riskRewardScore(rr float64) dto.ComponentScore {
	detail := fmt.Sprintf("%.2fR to target 2", rr)
	switch {
	case rr >= 2.0:
		return component(100, WeightRiskReward, detail)
	case rr >= 1.5:
		return component(80, WeightRiskReward, detail)
	case rr >= 1.0:
		return component(60, WeightRiskReward, detail)
	default:
		return component(30, WeightRiskReward, detail)
	}
}
