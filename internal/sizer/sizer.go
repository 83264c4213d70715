package sizer

import (
	"math"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
)

// Size returns how many contracts fit the risk budget for a stop distance.
// It never returns fewer than one contract; a zero stop distance or unusable
// tick economics yields one contract flagged as degenerate.
func Size(cfg instrument.Config, entry, stop, riskBudget float64) dto.SizeResult {
	distance := math.Abs(entry - stop)
	if distance == 0 || cfg.TickSize <= 0 || cfg.TickValue <= 0 {
		return dto.SizeResult{Contracts: 1, Degenerate: true}
	}

	stopTicks := distance / cfg.TickSize
	riskPerContract := stopTicks * cfg.TickValue
	contracts := int(math.Floor(riskBudget/riskPerContract + 1e-9))
	if contracts < 1 {
		contracts = 1
	}
	return dto.SizeResult{
		Contracts:       contracts,
		StopTicks:       stopTicks,
		RiskPerContract: riskPerContract,
		TotalRisk:       riskPerContract * float64(contracts),
	}
}
