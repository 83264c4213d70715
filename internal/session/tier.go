package session

import (
	"fmt"
	"signalcrawler/internal/dto"
	"signalcrawler/pkg/utils"
	"time"
)

func hm(hour, minute int) int {
	return hour*60 + minute
}

// DefaultTiers is the desk's session table, in order of evaluation.
func DefaultTiers() []dto.SessionTier {
	return []dto.SessionTier{
		{Name: dto.TierBlocked, DisplayName: "OVERNIGHT - NO TRADING", Start: hm(21, 0), End: hm(6, 0), MinConfidence: 101, RiskBudget: 0, Target1R: 1.0, Target2R: 1.0, Blocked: true},
		{Name: dto.TierPremarket, DisplayName: "PRE-MARKET", Start: hm(6, 0), End: hm(9, 30), MinConfidence: 90, RiskBudget: 125, Target1R: 1.0, Target2R: 1.5, Warning: true},
		{Name: dto.TierPrime, DisplayName: "PRIME TIME", Start: hm(9, 30), End: hm(11, 30), MinConfidence: 80, RiskBudget: 250, Target1R: 1.5, Target2R: 2.0},
		{Name: dto.TierMidday, DisplayName: "MIDDAY", Start: hm(11, 30), End: hm(15, 30), MinConfidence: 85, RiskBudget: 175, Target1R: 1.0, Target2R: 1.5},
		{Name: dto.TierClose, DisplayName: "CLOSING SESSION", Start: hm(15, 30), End: hm(17, 0), MinConfidence: 85, RiskBudget: 175, Target1R: 1.0, Target2R: 1.5},
		{Name: dto.TierEvening, DisplayName: "EVENING SESSION", Start: hm(17, 0), End: hm(21, 0), MinConfidence: 90, RiskBudget: 125, Target1R: 1.0, Target2R: 1.5, Warning: true},
	}
}

type Resolver interface {
	Resolve(now time.Time) dto.SessionTier
	BlockedMessage(now time.Time) (string, bool)
	Window(tier dto.SessionTier) string
	Location() *time.Location
}

type resolver struct {
	loc   *time.Location
	tiers []dto.SessionTier
}

// NewResolver builds a resolver over tiers interpreted in loc. The tiers must
// cover the full day; an empty table means DefaultTiers.
func NewResolver(loc *time.Location, tiers []dto.SessionTier) Resolver {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &resolver{loc: loc, tiers: tiers}
}

func (r *resolver) Location() *time.Location {
	return r.loc
}

func (r *resolver) Resolve(now time.Time) dto.SessionTier {
	minute := utils.MinutesOfDay(now, r.loc)
	for _, tier := range r.tiers {
		if tier.Contains(minute) {
			return tier
		}
	}
	// gaps in a custom table are treated as untradeable
	return dto.SessionTier{Name: dto.TierBlocked, DisplayName: "NO SESSION", MinConfidence: 101, Target1R: 1, Target2R: 1, Blocked: true}
}

func (r *resolver) BlockedMessage(now time.Time) (string, bool) {
	tier := r.Resolve(now)
	if !tier.Blocked {
		return "", false
	}
	local := now.In(r.loc)
	reopen := time.Date(local.Year(), local.Month(), local.Day(), tier.End/60, tier.End%60, 0, 0, r.loc)
	if !reopen.After(local) {
		reopen = reopen.AddDate(0, 0, 1)
	}
	hours := reopen.Sub(local).Hours()
	return fmt.Sprintf("Trading blocked (%s). Resumes at %s ET, in %.1fh", tier.DisplayName, utils.FormatClock(tier.End), hours), true
}

func (r *resolver) Window(tier dto.SessionTier) string {
	return fmt.Sprintf("%s - %s ET", utils.FormatClock(tier.Start), utils.FormatClock(tier.End))
}
