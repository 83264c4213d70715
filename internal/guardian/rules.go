package guardian

import (
	"fmt"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/model"
)

// Each rule emits at most one alert per type per date. A block or breach
// takes the place of the matching warning.

func checkDailyLoss(s *model.AccountState, date string) []dto.RiskAlert {
	pct := dailyLossPct(s, date)
	if pct <= 0 {
		return nil
	}
	loss := -s.DailyPnL.Data()[date]

	alert := dto.RiskAlert{Date: date, Value: loss, Limit: s.MaxDailyLoss, Percent: pct}
	switch {
	case pct >= s.DailyLossBlockPct:
		if alertSent(s, date, dto.AlertDailyLossBlock) {
			return nil
		}
		alert.Type = dto.AlertDailyLossBlock
		alert.Severity = dto.SeverityCritical
		alert.Message = fmt.Sprintf("Daily loss limit reached: $%.2f is %.1f%% of $%.2f. Stop trading.", loss, pct, s.MaxDailyLoss)
	case pct >= s.DailyLossWarningPct:
		if alertSent(s, date, dto.AlertDailyLossWarning) {
			return nil
		}
		alert.Type = dto.AlertDailyLossWarning
		alert.Severity = dto.SeverityWarning
		alert.Message = fmt.Sprintf("Daily loss warning: $%.2f is %.1f%% of $%.2f. Reduce risk.", loss, pct, s.MaxDailyLoss)
	default:
		return nil
	}
	markSent(s, date, alert.Type)
	return []dto.RiskAlert{alert}
}

func checkTrailingDrawdown(s *model.AccountState, date string) []dto.RiskAlert {
	if s.MaxTrailingDrawdown <= 0 {
		return nil
	}
	drawdown := s.HighWaterMark - s.CurrentBalance
	pct := percentOf(drawdown, s.MaxTrailingDrawdown)
	floor := s.HighWaterMark - s.MaxTrailingDrawdown

	alert := dto.RiskAlert{Date: date, Value: drawdown, Limit: s.MaxTrailingDrawdown, Percent: pct}
	switch {
	case drawdown >= s.MaxTrailingDrawdown:
		if alertSent(s, date, dto.AlertDrawdownBreach) {
			return nil
		}
		alert.Type = dto.AlertDrawdownBreach
		alert.Severity = dto.SeverityCritical
		alert.Message = fmt.Sprintf("Trailing drawdown breached: $%.2f below high water mark $%.2f, limit $%.2f", drawdown, s.HighWaterMark, s.MaxTrailingDrawdown)
	case drawdown > 0 && pct >= s.DrawdownWarningPct:
		if alertSent(s, date, dto.AlertDrawdownWarning) {
			return nil
		}
		alert.Type = dto.AlertDrawdownWarning
		alert.Severity = dto.SeverityWarning
		alert.Message = fmt.Sprintf("Trailing drawdown warning: only $%.2f left above floor $%.2f", s.CurrentBalance-floor, floor)
	default:
		return nil
	}
	markSent(s, date, alert.Type)
	return []dto.RiskAlert{alert}
}

func checkConsistency(s *model.AccountState, date string) []dto.RiskAlert {
	worst, pct := worstProfitDay(s)
	if worst == "" || pct <= s.MaxDayProfitPct {
		return nil
	}
	if alertSent(s, date, dto.AlertConsistencyWarning) {
		return nil
	}

	profit := s.DailyPnL.Data()[worst]
	markSent(s, date, dto.AlertConsistencyWarning)
	return []dto.RiskAlert{{
		Type:     dto.AlertConsistencyWarning,
		Severity: dto.SeverityWarning,
		Date:     date,
		Message:  fmt.Sprintf("Consistency warning: %s profit $%.2f is %.1f%% of total profit, max %.0f%%", worst, profit, pct, s.MaxDayProfitPct),
		Value:    profit,
		Limit:    s.MaxDayProfitPct,
		Percent:  pct,
	}}
}
