package levels

import (
	"fmt"
	"math"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/utils"
	"sort"
	"sync"
	"time"
)

const (
	DefaultMarketOpen    = 9*60 + 30
	DefaultORBEnd        = 10 * 60
	maxPriorLookbackDays = 7
	defaultHistoryDays   = 10
)

type Options struct {
	MarketOpen      int
	ORBEnd          int
	PDBufferPoints  float64
	ORBSessionPct   float64
	ORBLivePricePct float64
}

func DefaultOptions() Options {
	return Options{
		MarketOpen:      DefaultMarketOpen,
		ORBEnd:          DefaultORBEnd,
		PDBufferPoints:  15,
		ORBSessionPct:   0.10,
		ORBLivePricePct: 0.05,
	}
}

type Tracker interface {
	Update(instrumentSymbol string, candle dto.Candle)
	Levels(instrumentSymbol string) (dto.DailyLevels, bool)
	Bias(instrumentSymbol string, livePrice *float64) dto.BiasResult
	CheckBiasAlignment(instrumentSymbol string, direction dto.Direction) (bool, string)
	CheckEntrySafety(instrumentSymbol string, price float64, direction dto.Direction) dto.SafetyResult
	Snapshot() []dto.DailyLevels
	Restore(levels []dto.DailyLevels)
}

// book is the per-instrument history of daily levels, keyed by session date.
type book struct {
	mu   sync.Mutex
	days map[string]*dto.DailyLevels
}

type tracker struct {
	clock session.Clock
	loc   *time.Location
	opts  Options

	mu    sync.RWMutex
	books map[string]*book
}

func NewTracker(clock session.Clock, loc *time.Location, opts Options) Tracker {
	return &tracker{
		clock: clock,
		loc:   loc,
		opts:  opts,
		books: make(map[string]*book),
	}
}

func (t *tracker) book(symbol string, create bool) *book {
	t.mu.RLock()
	b, ok := t.books[symbol]
	t.mu.RUnlock()
	if ok || !create {
		return b
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok = t.books[symbol]; ok {
		return b
	}
	b = &book{days: make(map[string]*dto.DailyLevels)}
	t.books[symbol] = b
	return b
}

// Update folds a candle into today's levels. Bars from an earlier session
// inside the history window only extend that day's extremes, which lets a
// multi-day backfill seed the prior-day levels. Future bars are ignored.
func (t *tracker) Update(instrumentSymbol string, candle dto.Candle) {
	symbol := instrument.Normalize(instrumentSymbol)
	now := t.clock.Now()
	today := utils.SessionDate(now, t.loc)
	date := utils.SessionDate(candle.Timestamp, t.loc)
	if date > today {
		return
	}

	b := t.book(symbol, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	if date != today {
		t.recordPast(b, symbol, date, candle, now)
		return
	}

	day := b.today(symbol, now, t.loc)
	t.freeze(day, now)

	minute := utils.MinutesOfDay(candle.Timestamp, t.loc)
	if minute < t.opts.MarketOpen {
		return
	}

	if minute < t.opts.ORBEnd && !day.ORBComplete {
		if !day.ORBSet {
			day.ORBHigh, day.ORBLow, day.ORBSet = candle.High, candle.Low, true
		} else {
			day.ORBHigh = math.Max(day.ORBHigh, candle.High)
			day.ORBLow = math.Min(day.ORBLow, candle.Low)
		}
	}
	extendSession(day, candle)
}

func extendSession(day *dto.DailyLevels, candle dto.Candle) {
	if !day.SessionSet {
		day.SessionHigh, day.SessionLow, day.SessionSet = candle.High, candle.Low, true
		return
	}
	day.SessionHigh = math.Max(day.SessionHigh, candle.High)
	day.SessionLow = math.Min(day.SessionLow, candle.Low)
}

// recordPast extends an earlier session's extremes and relinks today's
// prior-day levels if today is already tracked.
func (t *tracker) recordPast(b *book, symbol, date string, candle dto.Candle, now time.Time) {
	if date < utils.SessionDate(now.AddDate(0, 0, -defaultHistoryDays), t.loc) {
		return
	}
	if utils.MinutesOfDay(candle.Timestamp, t.loc) < t.opts.MarketOpen {
		return
	}
	day, ok := b.days[date]
	if !ok {
		day = &dto.DailyLevels{Instrument: symbol, Date: date, ORBComplete: true}
		b.days[date] = day
	}
	extendSession(day, candle)

	if current, ok := b.days[utils.SessionDate(now, t.loc)]; ok {
		b.linkPrior(current, now, t.loc)
	}
}

// today returns the entry for now's session date, creating it with the prior
// trading day's session extremes on first use.
func (b *book) today(symbol string, now time.Time, loc *time.Location) *dto.DailyLevels {
	date := utils.SessionDate(now, loc)
	if day, ok := b.days[date]; ok {
		return day
	}

	day := &dto.DailyLevels{Instrument: symbol, Date: date}
	b.linkPrior(day, now, loc)
	b.days[date] = day
	b.prune(now, loc)
	return day
}

// linkPrior copies the session extremes of the closest earlier trading day,
// skipping weekends and days with no session data.
func (b *book) linkPrior(day *dto.DailyLevels, now time.Time, loc *time.Location) {
	prev := now.In(loc)
	for i := 0; i < maxPriorLookbackDays; i++ {
		prev = utils.PreviousTradingDay(prev)
		if p, ok := b.days[utils.SessionDate(prev, loc)]; ok && p.SessionSet {
			day.PDH, day.PDL, day.PriorSet = p.SessionHigh, p.SessionLow, true
			return
		}
	}
}

func (b *book) prune(now time.Time, loc *time.Location) {
	cutoff := utils.SessionDate(now.AddDate(0, 0, -defaultHistoryDays), loc)
	for date := range b.days {
		if date < cutoff {
			delete(b.days, date)
		}
	}
}

func (t *tracker) freeze(day *dto.DailyLevels, now time.Time) {
	if !day.ORBComplete && utils.MinutesOfDay(now, t.loc) >= t.opts.ORBEnd {
		day.ORBComplete = true
	}
}

func (t *tracker) Levels(instrumentSymbol string) (dto.DailyLevels, bool) {
	b := t.book(instrument.Normalize(instrumentSymbol), false)
	if b == nil {
		return dto.DailyLevels{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := t.clock.Now()
	day, ok := b.days[utils.SessionDate(now, t.loc)]
	if !ok {
		return dto.DailyLevels{}, false
	}
	t.freeze(day, now)
	return *day, true
}

// Bias classifies today's direction from the opening range. A live price uses
// a tighter band than the session extremes.
func (t *tracker) Bias(instrumentSymbol string, livePrice *float64) dto.BiasResult {
	now := t.clock.Now()
	if utils.MinutesOfDay(now, t.loc) < t.opts.ORBEnd {
		return dto.BiasResult{
			Bias:     dto.BiasWaiting,
			CanTrade: false,
			Reason:   fmt.Sprintf("opening range forming until %s ET", utils.FormatClock(t.opts.ORBEnd)),
		}
	}

	day, ok := t.Levels(instrumentSymbol)
	if !ok || !day.ORBSet {
		return dto.BiasResult{Bias: dto.BiasUnknown, CanTrade: true, Reason: "no opening range data"}
	}

	orbRange := day.ORBHigh - day.ORBLow
	if livePrice != nil {
		buffer := orbRange * t.opts.ORBLivePricePct
		switch {
		case *livePrice > day.ORBHigh+buffer:
			return dto.BiasResult{Bias: dto.BiasLong, CanTrade: true, Reason: fmt.Sprintf("price %.2f above ORB high %.2f", *livePrice, day.ORBHigh)}
		case *livePrice < day.ORBLow-buffer:
			return dto.BiasResult{Bias: dto.BiasShort, CanTrade: true, Reason: fmt.Sprintf("price %.2f below ORB low %.2f", *livePrice, day.ORBLow)}
		default:
			return dto.BiasResult{Bias: dto.BiasNeutral, CanTrade: true, Reason: fmt.Sprintf("price %.2f inside ORB %.2f-%.2f", *livePrice, day.ORBLow, day.ORBHigh)}
		}
	}

	buffer := orbRange * t.opts.ORBSessionPct
	brokeHigh := day.SessionSet && day.SessionHigh > day.ORBHigh+buffer
	brokeLow := day.SessionSet && day.SessionLow < day.ORBLow-buffer
	// an upside break takes precedence when both sides have traded through
	switch {
	case brokeHigh:
		return dto.BiasResult{Bias: dto.BiasLong, CanTrade: true, Reason: fmt.Sprintf("session high %.2f broke ORB high %.2f", day.SessionHigh, day.ORBHigh)}
	case brokeLow:
		return dto.BiasResult{Bias: dto.BiasShort, CanTrade: true, Reason: fmt.Sprintf("session low %.2f broke ORB low %.2f", day.SessionLow, day.ORBLow)}
	default:
		return dto.BiasResult{Bias: dto.BiasNeutral, CanTrade: true, Reason: "inside opening range"}
	}
}

func (t *tracker) CheckBiasAlignment(instrumentSymbol string, direction dto.Direction) (bool, string) {
	bias := t.Bias(instrumentSymbol, nil)
	switch bias.Bias {
	case dto.BiasWaiting:
		return false, bias.Reason
	case dto.BiasUnknown, dto.BiasNeutral:
		return true, fmt.Sprintf("bias %s allows %s", bias.Bias, direction)
	}
	if string(bias.Bias) != string(direction) {
		return false, fmt.Sprintf("%s conflicts with %s bias: %s", direction, bias.Bias, bias.Reason)
	}
	return true, fmt.Sprintf("%s aligned with bias", direction)
}

// CheckEntrySafety flags entries that sit too close to the prior day's
// extreme they would have to break through.
func (t *tracker) CheckEntrySafety(instrumentSymbol string, price float64, direction dto.Direction) dto.SafetyResult {
	day, ok := t.Levels(instrumentSymbol)
	if !ok || !day.PriorSet {
		return dto.SafetyResult{Safe: true, Reason: "no prior day levels"}
	}
	buffer := t.opts.PDBufferPoints
	switch direction {
	case dto.DirectionLong:
		if dist := math.Abs(price - day.PDH); dist < buffer {
			return dto.SafetyResult{Safe: false, Reason: fmt.Sprintf("LONG entry %.2f within %.2f pts of PDH %.2f", price, dist, day.PDH)}
		}
	case dto.DirectionShort:
		if dist := math.Abs(price - day.PDL); dist < buffer {
			return dto.SafetyResult{Safe: false, Reason: fmt.Sprintf("SHORT entry %.2f within %.2f pts of PDL %.2f", price, dist, day.PDL)}
		}
	}
	return dto.SafetyResult{Safe: true, Reason: "clear of prior day levels"}
}

func (t *tracker) Snapshot() []dto.DailyLevels {
	t.mu.RLock()
	books := make([]*book, 0, len(t.books))
	for _, b := range t.books {
		books = append(books, b)
	}
	t.mu.RUnlock()

	var out []dto.DailyLevels
	for _, b := range books {
		b.mu.Lock()
		for _, d := range b.days {
			out = append(out, *d)
		}
		b.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instrument != out[j].Instrument {
			return out[i].Instrument < out[j].Instrument
		}
		return out[i].Date < out[j].Date
	})
	return out
}

// Restore loads persisted levels. Entries already tracked in memory win.
func (t *tracker) Restore(levels []dto.DailyLevels) {
	for _, l := range levels {
		symbol := instrument.Normalize(l.Instrument)
		b := t.book(symbol, true)
		b.mu.Lock()
		if _, exists := b.days[l.Date]; !exists {
			d := l
			d.Instrument = symbol
			b.days[l.Date] = &d
		}
		b.mu.Unlock()
	}
}
