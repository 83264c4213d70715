package outcome

import (
	"context"
	"errors"
	"fmt"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/model"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/logger"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrPriceUnavailable = errors.New("price unavailable")

// Store persists recommendations. Resolve must only move a PENDING row and
// report whether it did.
type Store interface {
	Create(ctx context.Context, rec *model.Recommendation) error
	FindPending(ctx context.Context, instrument string) ([]model.Recommendation, error)
	Resolve(ctx context.Context, res dto.Resolution) (bool, error)
}

type PriceSource interface {
	GetCurrentPrice(ctx context.Context, instrument string) (float64, bool)
}

type ResolutionHandler interface {
	OnResolved(ctx context.Context, res dto.Resolution) error
}

type Options struct {
	MaxDuration    time.Duration
	PriceTimeout   time.Duration
	MaxConcurrency int
}

func DefaultOptions() Options {
	return Options{
		MaxDuration:    24 * time.Hour,
		PriceTimeout:   5 * time.Second,
		MaxConcurrency: 8,
	}
}

type Tracker interface {
	Track(ctx context.Context, rec *model.Recommendation) error
	HasPending(ctx context.Context, instrument string) (bool, error)
	CheckPending(ctx context.Context) (dto.OutcomeSummary, error)
	Evaluate(ctx context.Context, rec model.Recommendation) (dto.Resolution, bool, error)
	Resume(ctx context.Context) (int, error)
}

type tracker struct {
	log         *logger.Logger
	clock       session.Clock
	store       Store
	prices      PriceSource
	handler     ResolutionHandler
	instruments *instrument.Registry
	opts        Options
	inflight    singleflight.Group
}

func NewTracker(
	log *logger.Logger,
	clock session.Clock,
	store Store,
	prices PriceSource,
	handler ResolutionHandler,
	instruments *instrument.Registry,
	opts Options,
) Tracker {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &tracker{
		log:         log,
		clock:       clock,
		store:       store,
		prices:      prices,
		handler:     handler,
		instruments: instruments,
		opts:        opts,
	}
}

func (t *tracker) Track(ctx context.Context, rec *model.Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.clock.Now()
	}
	rec.Status = dto.StatusPending

	if err := t.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to create recommendation %s: %w", rec.ID, err)
	}
	t.log.InfoContext(ctx, "Tracking recommendation",
		logger.StringField("recommendation_id", rec.ID),
		logger.StringField("instrument", rec.Instrument),
		logger.StringField("direction", string(rec.Direction)),
		logger.IntField("confidence", rec.Confidence),
		logger.FloatField("entry", rec.Entry),
		logger.FloatField("stop", rec.Stop),
		logger.FloatField("target1", rec.Target1),
	)
	return nil
}

func (t *tracker) HasPending(ctx context.Context, instrumentSymbol string) (bool, error) {
	pending, err := t.store.FindPending(ctx, instrumentSymbol)
	if err != nil {
		return false, fmt.Errorf("failed to find pending recommendations: %w", err)
	}
	return len(pending) > 0, nil
}

func (t *tracker) CheckPending(ctx context.Context) (dto.OutcomeSummary, error) {
	var summary dto.OutcomeSummary
	pending, err := t.store.FindPending(ctx, "")
	if err != nil {
		return summary, fmt.Errorf("failed to find pending recommendations: %w", err)
	}
	if len(pending) == 0 {
		return summary, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(t.opts.MaxConcurrency)
	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			res, resolved, err := t.Evaluate(ctx, rec)

			mu.Lock()
			defer mu.Unlock()
			summary.Checked++
			switch {
			case errors.Is(err, ErrPriceUnavailable):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				t.log.WarnContext(ctx, "Failed to evaluate recommendation",
					logger.StringField("recommendation_id", rec.ID),
					logger.ErrorField(err),
				)
			case !resolved:
			case res.Status == dto.StatusWin:
				summary.Wins++
			case res.Status == dto.StatusLoss:
				summary.Losses++
			case res.Status == dto.StatusDiscarded:
				summary.Discarded++
			}
			return nil
		})
	}
	_ = g.Wait()

	t.log.DebugContext(ctx, "Checked pending recommendations",
		logger.IntField("checked", summary.Checked),
		logger.IntField("wins", summary.Wins),
		logger.IntField("losses", summary.Losses),
		logger.IntField("discarded", summary.Discarded),
		logger.IntField("skipped", summary.Skipped),
	)
	return summary, nil
}

type evaluation struct {
	res      dto.Resolution
	resolved bool
}

// Evaluate resolves one recommendation against the current price. Concurrent
// calls for the same recommendation share a single evaluation.
func (t *tracker) Evaluate(ctx context.Context, rec model.Recommendation) (dto.Resolution, bool, error) {
	if rec.IsTerminal() {
		return dto.Resolution{}, false, nil
	}

	v, err, _ := t.inflight.Do(rec.ID, func() (interface{}, error) {
		return t.evaluate(ctx, rec)
	})
	if err != nil {
		return dto.Resolution{}, false, err
	}
	ev := v.(evaluation)
	return ev.res, ev.resolved, nil
}

func (t *tracker) evaluate(ctx context.Context, rec model.Recommendation) (evaluation, error) {
	now := t.clock.Now()

	var (
		res dto.Resolution
		ok  bool
	)
	if now.Sub(rec.CreatedAt) >= t.opts.MaxDuration {
		res, ok = discard(rec, now), true
	} else {
		priceCtx, cancel := context.WithTimeout(ctx, t.opts.PriceTimeout)
		price, found := t.prices.GetCurrentPrice(priceCtx, rec.Instrument)
		cancel()
		if !found {
			return evaluation{}, fmt.Errorf("%s: %w", rec.Instrument, ErrPriceUnavailable)
		}
		res, ok = Decide(rec, price, now)
	}
	if !ok {
		return evaluation{}, nil
	}

	if t.instruments != nil {
		if cfg, found := t.instruments.Get(rec.Instrument); found {
			res.PnLDollars = res.PnLPoints * cfg.PointValue() * float64(rec.Contracts)
		}
	}

	moved, err := t.store.Resolve(ctx, res)
	if err != nil {
		return evaluation{}, fmt.Errorf("failed to resolve recommendation %s: %w", rec.ID, err)
	}
	if !moved {
		t.log.DebugContext(ctx, "Recommendation already resolved", logger.StringField("recommendation_id", rec.ID))
		return evaluation{}, nil
	}

	t.log.InfoContext(ctx, "Recommendation resolved",
		logger.StringField("recommendation_id", rec.ID),
		logger.StringField("instrument", rec.Instrument),
		logger.StringField("status", string(res.Status)),
		logger.FloatField("price", res.Price),
		logger.FloatField("pnl_points", res.PnLPoints),
	)
	if t.handler != nil {
		if err := t.handler.OnResolved(ctx, res); err != nil {
			t.log.ErrorContext(ctx, "Resolution handler failed",
				logger.StringField("recommendation_id", rec.ID),
				logger.ErrorField(err),
			)
		}
	}
	return evaluation{res: res, resolved: true}, nil
}

// Decide applies the target/stop rules at price. It reports false while the
// trade is still open.
func Decide(rec model.Recommendation, price float64, now time.Time) (dto.Resolution, bool) {
	res := dto.Resolution{
		RecommendationID: rec.ID,
		Instrument:       rec.Instrument,
		Price:            price,
		Contracts:        rec.Contracts,
		ResolvedAt:       now,
	}

	switch rec.Direction {
	case dto.DirectionLong:
		switch {
		case price >= rec.Target1:
			res.Status, res.PnLPoints = dto.StatusWin, rec.Target1-rec.Entry
		case price <= rec.Stop:
			res.Status, res.PnLPoints = dto.StatusLoss, rec.Stop-rec.Entry
		default:
			return dto.Resolution{}, false
		}
	case dto.DirectionShort:
		switch {
		case price <= rec.Target1:
			res.Status, res.PnLPoints = dto.StatusWin, rec.Entry-rec.Target1
		case price >= rec.Stop:
			res.Status, res.PnLPoints = dto.StatusLoss, rec.Entry-rec.Stop
		default:
			return dto.Resolution{}, false
		}
	default:
		return dto.Resolution{}, false
	}
	return res, true
}

func discard(rec model.Recommendation, now time.Time) dto.Resolution {
	return dto.Resolution{
		RecommendationID: rec.ID,
		Instrument:       rec.Instrument,
		Status:           dto.StatusDiscarded,
		Contracts:        rec.Contracts,
		ResolvedAt:       now,
	}
}

func (t *tracker) Resume(ctx context.Context) (int, error) {
	pending, err := t.store.FindPending(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to load pending recommendations: %w", err)
	}
	for _, rec := range pending {
		t.log.InfoContext(ctx, "Resuming recommendation tracking",
			logger.StringField("recommendation_id", rec.ID),
			logger.StringField("instrument", rec.Instrument),
			logger.StringField("direction", string(rec.Direction)),
			logger.Field("created_at", rec.CreatedAt),
		)
	}
	return len(pending), nil
}
