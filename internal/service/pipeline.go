package service

import (
	"context"
	"errors"
	"fmt"
	"signalcrawler/internal/aggregator"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/guardian"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/levels"
	"signalcrawler/internal/model"
	"signalcrawler/internal/outcome"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/scorer"
	"signalcrawler/internal/session"
	"signalcrawler/internal/sizer"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/metrics"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

// warmupRange spans a weekend so Monday still sees Friday's session.
const warmupRange = "5d"

type PipelineService interface {
	Ingest(ctx context.Context, event dto.CandleEvent) (dto.IngestResult, error)
	Warmup(ctx context.Context) (int, error)
}

type PipelineOptions struct {
	RejectOnUnsafePDLevel bool
}

type pipelineService struct {
	log         *logger.Logger
	clock       session.Clock
	instruments *instrument.Registry
	aggregator  aggregator.Aggregator
	levels      levels.Tracker
	resolver    session.Resolver
	scorer      scorer.Scorer
	tracker     outcome.Tracker
	guardian    guardian.Guardian
	prices      PriceService
	yahooRepo   repository.YahooFinanceRepository
	metrics     *metrics.Recorder
	opts        PipelineOptions

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPipelineService(
	log *logger.Logger,
	clock session.Clock,
	instruments *instrument.Registry,
	agg aggregator.Aggregator,
	levelTracker levels.Tracker,
	resolver session.Resolver,
	sc scorer.Scorer,
	tracker outcome.Tracker,
	g guardian.Guardian,
	prices PriceService,
	yahooRepo repository.YahooFinanceRepository,
	recorder *metrics.Recorder,
	opts PipelineOptions,
) PipelineService {
	return &pipelineService{
		log:         log,
		clock:       clock,
		instruments: instruments,
		aggregator:  agg,
		levels:      levelTracker,
		resolver:    resolver,
		scorer:      sc,
		tracker:     tracker,
		guardian:    g,
		prices:      prices,
		yahooRepo:   yahooRepo,
		metrics:     recorder,
		opts:        opts,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lock serializes evaluation per instrument so two bars can never both open
// a recommendation.
func (p *pipelineService) lock(symbol string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		p.locks[symbol] = l
	}
	return l
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, aggregator.ErrInvalidCandle):
		return "invalid"
	case errors.Is(err, aggregator.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, aggregator.ErrDuplicateCandle):
		return "duplicate"
	case errors.Is(err, aggregator.ErrUnsupportedTimeframe):
		return "unsupported_timeframe"
	default:
		return "unknown"
	}
}

func (p *pipelineService) Ingest(ctx context.Context, event dto.CandleEvent) (dto.IngestResult, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	}()

	symbol := instrument.Normalize(event.Instrument)
	cfg, ok := p.instruments.Get(symbol)
	if !ok {
		p.metrics.RecordCandleRejected("unknown_instrument")
		return dto.IngestResult{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, event.Instrument)
	}
	result := dto.IngestResult{Instrument: symbol}

	if err := p.aggregator.Ingest(symbol, event.Timeframe, event.Candle); err != nil {
		p.metrics.RecordCandleRejected(rejectReason(err))
		if errors.Is(err, aggregator.ErrDuplicateCandle) {
			p.log.DebugContext(ctx, "Duplicate candle ignored",
				logger.StringField("instrument", symbol),
				logger.StringField("timestamp", event.Candle.Timestamp.Format(time.RFC3339)),
			)
			result.Reason = "duplicate candle"
			return result, nil
		}
		p.log.WarnContext(ctx, "Candle rejected",
			logger.StringField("instrument", symbol),
			logger.ErrorField(err),
		)
		return result, err
	}
	p.metrics.RecordCandleIngested(symbol, event.Candle.Close)
	p.prices.SetLastPrice(ctx, symbol, event.Candle.Close)
	p.levels.Update(symbol, event.Candle)

	l := p.lock(symbol)
	l.Lock()
	defer l.Unlock()

	pending, err := p.tracker.HasPending(ctx, symbol)
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to check pending recommendations",
			logger.StringField("instrument", symbol),
			logger.ErrorField(err),
		)
		result.Reason = "pending check failed"
		return result, nil
	}
	if pending {
		result.Reason = "recommendation already pending"
		return result, nil
	}

	now := p.clock.Now()
	tier := p.resolver.Resolve(now)
	result.Evaluated = true
	if tier.Blocked {
		msg, _ := p.resolver.BlockedMessage(now)
		return p.finish(result, dto.VerdictStayAway, 0, msg, nil), nil
	}
	if blocked, reason := p.guardian.ShouldBlockTrading(); blocked {
		return p.finish(result, dto.VerdictStayAway, 0, reason, nil), nil
	}

	price := event.Candle.Close
	score := p.scorer.Evaluate(scorer.Input{
		Instrument: cfg,
		Candles15m: p.aggregator.Candles(symbol, dto.Timeframe15m),
		Candles5m:  p.aggregator.Candles(symbol, dto.Timeframe5m),
		Candles1m:  p.aggregator.Candles(symbol, dto.Timeframe1m),
		Tier:       tier,
		Bias:       p.levels.Bias(symbol, &price),
		Now:        now,
	})

	direction, isTrade := score.Verdict.Direction()
	if !isTrade {
		return p.finish(result, score.Verdict, score.Confidence, score.Reason, &score), nil
	}

	if aligned, reason := p.levels.CheckBiasAlignment(symbol, direction); !aligned {
		score.Narrative = append(score.Narrative, reason)
		return p.finish(result, dto.VerdictNoTrade, score.Confidence, reason, &score), nil
	}
	if safety := p.levels.CheckEntrySafety(symbol, score.Levels.Entry, direction); !safety.Safe {
		score.Narrative = append(score.Narrative, safety.Reason)
		if p.opts.RejectOnUnsafePDLevel {
			return p.finish(result, dto.VerdictNoTrade, score.Confidence, safety.Reason, &score), nil
		}
	}

	size := sizer.Size(cfg, score.Levels.Entry, score.Levels.Stop, tier.RiskBudget)
	rec := &model.Recommendation{
		ID:          uuid.NewString(),
		Instrument:  symbol,
		Direction:   direction,
		Confidence:  score.Confidence,
		Tier:        tier.Name,
		Components:  datatypes.NewJSONType(score.Components),
		Entry:       score.Levels.Entry,
		Stop:        score.Levels.Stop,
		Target1:     score.Levels.Target1,
		Target2:     score.Levels.Target2,
		StopCapped:  score.Levels.StopCapped,
		Contracts:   size.Contracts,
		RiskDollars: size.TotalRisk,
		CreatedAt:   now,
	}
	if err := p.tracker.Track(ctx, rec); err != nil {
		p.log.ErrorContextWithAlert(ctx, "Failed to track recommendation",
			logger.StringField("instrument", symbol),
			logger.StringField("direction", string(direction)),
			logger.ErrorField(err),
		)
		return result, err
	}

	p.metrics.RecordRecommendation(symbol, string(direction), string(tier.Name))
	result.RecommendationID = rec.ID
	return p.finish(result, score.Verdict, score.Confidence, score.Reason, &score), nil
}

func (p *pipelineService) finish(result dto.IngestResult, verdict dto.Verdict, confidence int, reason string, score *dto.ScoreResult) dto.IngestResult {
	if score != nil {
		score.Verdict = verdict
		score.Reason = reason
	}
	result.Verdict = verdict
	result.Confidence = confidence
	result.Reason = reason
	result.Score = score
	p.metrics.RecordVerdict(result.Instrument, string(verdict))
	return result
}

// Warmup backfills the aggregator and level tracker with the last few days of
// 1m bars from Yahoo Finance so prior-day levels exist on a cold start. The
// still-forming bar is skipped and the backfilled history is never scored.
func (p *pipelineService) Warmup(ctx context.Context) (int, error) {
	if p.yahooRepo == nil {
		return 0, nil
	}
	now := p.clock.Now()
	var total int
	for _, symbol := range p.instruments.Symbols() {
		cfg, _ := p.instruments.Get(symbol)
		data, err := p.yahooRepo.GetChart(ctx, dto.GetChartParam{Symbol: cfg.YahooSymbol, Interval: "1m", Range: warmupRange})
		if err != nil {
			p.log.WarnContext(ctx, "Warm-up fetch failed",
				logger.StringField("instrument", symbol),
				logger.ErrorField(err),
			)
			continue
		}

		var (
			ingested int
			last     dto.Candle
		)
		for _, candle := range data.Candles {
			if candle.Timestamp.Add(time.Minute).After(now) {
				break
			}
			if err := p.aggregator.Ingest(symbol, dto.Timeframe1m, candle); err != nil {
				continue
			}
			p.levels.Update(symbol, candle)
			last = candle
			ingested++
		}
		if ingested > 0 {
			p.prices.SetLastPrice(ctx, symbol, last.Close)
		}
		p.log.InfoContext(ctx, "Warm-up complete",
			logger.StringField("instrument", symbol),
			logger.IntField("candles", ingested),
		)
		total += ingested
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
	return total, nil
}

// guardianHandler feeds resolved outcomes into the risk guardian.
type guardianHandler struct {
	log      *logger.Logger
	guardian guardian.Guardian
	metrics  *metrics.Recorder
}

func NewGuardianHandler(log *logger.Logger, g guardian.Guardian, recorder *metrics.Recorder) outcome.ResolutionHandler {
	return &guardianHandler{log: log, guardian: g, metrics: recorder}
}

func (h *guardianHandler) OnResolved(ctx context.Context, res dto.Resolution) error {
	h.metrics.RecordOutcome(res.Instrument, string(res.Status))
	if res.Status == dto.StatusDiscarded {
		return nil
	}

	alerts, err := h.guardian.RecordTradeResult(ctx, res.Instrument, res.PnLPoints, res.Contracts)
	for _, a := range alerts {
		h.metrics.RecordRiskAlert(string(a.Type), string(a.Severity))
		fields := []zap.Field{
			logger.StringField("alert_type", string(a.Type)),
			logger.StringField("instrument", res.Instrument),
			logger.FloatField("value", a.Value),
			logger.FloatField("limit", a.Limit),
		}
		if a.Severity == dto.SeverityCritical {
			h.log.ErrorContextWithAlert(ctx, a.Message, fields...)
			continue
		}
		h.log.WarnContext(ctx, a.Message, fields...)
	}
	if err != nil {
		return fmt.Errorf("failed to record trade result: %w", err)
	}
	if blocked, reason := h.guardian.ShouldBlockTrading(); blocked {
		h.log.WarnContext(ctx, "Trading blocked after resolution",
			logger.StringField("recommendation_id", res.RecommendationID),
			logger.StringField("reason", reason),
		)
	}
	return nil
}
