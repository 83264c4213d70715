package scorer

import (
	"fmt"
	"math"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/pkg/utils"
	"time"
)

type Options struct {
	ATRPeriod     int
	ATRMultiplier float64
	MinATRPoints  float64
	TrendWindow   int
	MinCandles15m int
	Location      *time.Location
}

func DefaultOptions(loc *time.Location) Options {
	return Options{
		ATRPeriod:     14,
		ATRMultiplier: 1.5,
		MinATRPoints:  5,
		TrendWindow:   20,
		MinCandles15m: 3,
		Location:      loc,
	}
}

// Input is everything one evaluation needs. Candle windows are oldest first.
type Input struct {
	Instrument instrument.Config
	Candles15m []dto.Candle
	Candles5m  []dto.Candle
	Candles1m  []dto.Candle
	Tier       dto.SessionTier
	Bias       dto.BiasResult
	Now        time.Time
}

type Scorer interface {
	Evaluate(in Input) dto.ScoreResult
}

type scorer struct {
	opts Options
	news NewsCalendar
}

func NewScorer(opts Options, news NewsCalendar) Scorer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &scorer{opts: opts, news: news}
}

func (s *scorer) window(candles []dto.Candle) []dto.Candle {
	if s.opts.TrendWindow > 0 && len(candles) > s.opts.TrendWindow {
		return candles[len(candles)-s.opts.TrendWindow:]
	}
	return candles
}

func (s *scorer) Evaluate(in Input) dto.ScoreResult {
	result := dto.ScoreResult{
		Instrument:  in.Instrument.Symbol,
		Verdict:     dto.VerdictStayAway,
		Tier:        in.Tier.Name,
		EvaluatedAt: in.Now,
	}

	trend15 := AnalyzeTrend(dto.Timeframe15m, s.window(in.Candles15m))
	trend5 := AnalyzeTrend(dto.Timeframe5m, s.window(in.Candles5m))
	trend1 := AnalyzeTrend(dto.Timeframe1m, s.window(in.Candles1m))
	result.Trends = []dto.TrendResult{trend15, trend5, trend1}
	result.Regime = Regime(in.Candles5m, s.opts.ATRPeriod, s.opts.TrendWindow)
	result.Narrative = append(narrate(result.Trends), fmt.Sprintf("5m regime %s (confidence %.2f, ATR z %.2f, chop %.1f)",
		result.Regime.Regime, result.Regime.Confidence, result.Regime.ATRZScore, result.Regime.Choppiness))

	if len(in.Candles1m) == 0 {
		result.Reason = "no 1m data"
		return result
	}
	if len(in.Candles15m) < s.opts.MinCandles15m {
		result.Reason = fmt.Sprintf("insufficient 15m history (%d/%d)", len(in.Candles15m), s.opts.MinCandles15m)
		return result
	}
	if !in.Bias.CanTrade {
		result.Reason = fmt.Sprintf("bias %s: %s", in.Bias.Bias, in.Bias.Reason)
		return result
	}

	direction, reason, ok := gate(trend15, trend5, trend1)
	if !ok {
		result.Reason = reason
		return result
	}

	c := &result.Components
	c.Alignment = alignmentScore(direction)
	c.Structure = structureScore(in.Candles5m)
	if c.Structure.Score < minStructureScore {
		result.Reason = fmt.Sprintf("structure too chaotic (%d)", c.Structure.Score)
		return result
	}
	c.Volume = volumeScore(in.Candles5m, direction)
	c.Catalyst = catalystScore(in.Now, s.opts.Location, in.Tier, s.news)

	tradeDir := dto.DirectionLong
	if direction == dto.TrendBearish {
		tradeDir = dto.DirectionShort
	}
	entry := in.Candles1m[len(in.Candles1m)-1].Close
	atr, ok := ATR(in.Candles5m, s.opts.ATRPeriod)
	if !ok || atr <= 0 {
		atr = s.opts.MinATRPoints
	}
	c.ATR = atr
	result.Levels = s.tradeLevels(in.Instrument, in.Tier, tradeDir, entry, atr)
	if result.Levels.StopDistance > 0 {
		c.RiskRewardR = math.Abs(result.Levels.Target2-result.Levels.Entry) / result.Levels.StopDistance
	}
	c.RiskReward = riskRewardScore(c.RiskRewardR)

	weighted := float64(c.Alignment.Score*c.Alignment.Weight+
		c.Structure.Score*c.Structure.Weight+
		c.Volume.Score*c.Volume.Weight+
		c.Catalyst.Score*c.Catalyst.Weight+
		c.RiskReward.Score*c.RiskReward.Weight) / 100
	result.Confidence = int(clamp(math.Round(weighted), 0, 100))

	if result.Confidence >= in.Tier.MinConfidence {
		if tradeDir == dto.DirectionLong {
			result.Verdict = dto.VerdictLong
		} else {
			result.Verdict = dto.VerdictShort
		}
		result.Reason = fmt.Sprintf("%s aligned, confidence %d%% >= %d%% (%s)", direction, result.Confidence, in.Tier.MinConfidence, in.Tier.Name)
		return result
	}

	result.Verdict = dto.VerdictNoTrade
	result.Reason = fmt.Sprintf("confidence %d%% below %s minimum %d%%", result.Confidence, in.Tier.Name, in.Tier.MinConfidence)
	return result
}

// gate passes only when 15m and 5m carry a real trend and all three
// timeframes point the same non-neutral way.
func gate(t15, t5, t1 dto.TrendResult) (dto.TrendDirection, string, bool) {
	if t15.Direction == dto.TrendNeutral || t15.Strength == dto.StrengthWeak {
		return "", fmt.Sprintf("15m backbone invalid (%s/%s)", t15.Direction, t15.Strength), false
	}
	if t5.Strength == dto.StrengthWeak {
		return "", fmt.Sprintf("5m trend weak (%s/%s)", t5.Direction, t5.Strength), false
	}
	pairs := []struct {
		a, b dto.TrendResult
	}{{t15, t5}, {t5, t1}, {t15, t1}}
	for _, p := range pairs {
		if p.a.Direction != p.b.Direction {
			return "", fmt.Sprintf("%s %s conflicts with %s %s", p.a.Timeframe, p.a.Direction, p.b.Timeframe, p.b.Direction), false
		}
	}
	return t15.Direction, "", true
}

// tradeLevels derives an ATR stop capped at the instrument maximum and the
// tier's R-multiple targets, all on the tick grid.
func (s *scorer) tradeLevels(cfg instrument.Config, tier dto.SessionTier, dir dto.Direction, entry, atr float64) dto.TradeLevels {
	tick := cfg.TickSize
	entry = utils.RoundToTick(entry, tick)

	distance := utils.RoundToTick(atr*s.opts.ATRMultiplier, tick)
	if tick > 0 && distance < tick {
		distance = tick
	}
	capped := false
	if cfg.MaxStopPoints > 0 && distance > cfg.MaxStopPoints {
		distance = cfg.MaxStopPoints
		if tick > 0 {
			distance = math.Floor(cfg.MaxStopPoints/tick+1e-9) * tick
		}
		capped = true
	}

	sign := dir.Sign()
	return dto.TradeLevels{
		Entry:        entry,
		Stop:         utils.RoundToTick(entry-sign*distance, tick),
		Target1:      utils.RoundToTick(entry+sign*distance*tier.Target1R, tick),
		Target2:      utils.RoundToTick(entry+sign*distance*tier.Target2R, tick),
		StopDistance: distance,
		StopCapped:   capped,
	}
}

func narrate(trends []dto.TrendResult) []string {
	out := make([]string, 0, len(trends))
	for _, t := range trends {
		out = append(out, fmt.Sprintf("%s: %s (%s), change %+.2f%%, structure %s, trend strength %.2f over %d candles",
			t.Timeframe, t.Direction, t.Strength, t.ChangePct, t.Structure, t.TrendStrength, t.Candles))
	}
	return out
}
