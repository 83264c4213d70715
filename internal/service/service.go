package service

import (
	"fmt"
	"signalcrawler/config"
	"signalcrawler/internal/aggregator"
	"signalcrawler/internal/guardian"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/levels"
	"signalcrawler/internal/outcome"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/scorer"
	"signalcrawler/internal/session"
	"signalcrawler/internal/strategy"
	"signalcrawler/pkg/cache"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/metrics"
	"time"
)

type Service struct {
	SchedulerService      SchedulerService
	TaskExecutor          TaskExecutor
	PipelineService       PipelineService
	PriceService          PriceService
	MarketService         MarketService
	RecommendationService RecommendationService
	Guardian              guardian.Guardian
	OutcomeTracker        outcome.Tracker
}

// NewService wires the pipeline core to its stores. priceStore may be nil
// when redis is disabled.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	clock session.Clock,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	priceStore cache.PriceStore,
	recorder *metrics.Recorder,
) (*Service, error) {
	loc, err := cfg.SessionLocation()
	if err != nil {
		return nil, err
	}
	news, err := newsCalendar(cfg.Scorer)
	if err != nil {
		return nil, err
	}

	instruments := instrument.NewRegistryFromConfig(cfg.Instruments)
	agg := aggregator.NewAggregator()
	resolver := session.NewResolver(loc, session.DefaultTiers())
	levelTracker := levels.NewTracker(clock, loc, levelsOptions(cfg.Levels))
	sc := scorer.NewScorer(scorerOptions(cfg.Scorer, loc), news)

	g := guardian.NewGuardian(log, clock, loc, repo.AccountStateRepo, instruments, guardianLimits(cfg.Guardian))
	priceService := NewPriceService(cfg, log, inmemoryCache, priceStore, agg, repo.YahooFinanceRepo, instruments, recorder)
	tracker := outcome.NewTracker(
		log,
		clock,
		repo.RecommendationRepo,
		priceService,
		NewGuardianHandler(log, g, recorder),
		instruments,
		outcomeOptions(cfg.Outcome),
	)

	pipelineService := NewPipelineService(
		log, clock, instruments, agg, levelTracker, resolver, sc, tracker, g,
		priceService, repo.YahooFinanceRepo, recorder,
		PipelineOptions{RejectOnUnsafePDLevel: cfg.Scorer.RejectOnUnsafePDL},
	)
	marketService := NewMarketService(cfg, log, clock, resolver, levelTracker, instruments, inmemoryCache, repo.MarketLevelRepo, priceService)

	taskExecutor := NewTaskExecutor(log, clock, repo.JobRepo,
		strategy.NewOutcomeCheckStrategy(log, tracker),
		strategy.NewLevelsSnapshotStrategy(log, marketService),
		strategy.NewGuardianRecheckStrategy(log, g),
		strategy.NewDataCleanUpStrategy(log, clock, loc, repo.UnitOfWork, repo.RecommendationRepo, repo.MarketLevelRepo, repo.JobRepo),
	)
	schedulerService := NewSchedulerService(cfg, log, clock, repo.JobRepo, taskExecutor)

	return &Service{
		SchedulerService:      schedulerService,
		TaskExecutor:          taskExecutor,
		PipelineService:       pipelineService,
		PriceService:          priceService,
		MarketService:         marketService,
		RecommendationService: NewRecommendationService(clock, loc, repo.RecommendationRepo),
		Guardian:              g,
		OutcomeTracker:        tracker,
	}, nil
}

func newsCalendar(cfg config.Scorer) (scorer.NewsCalendar, error) {
	events := make([]scorer.NewsEvent, 0, len(cfg.NewsEvents))
	for _, e := range cfg.NewsEvents {
		event, err := scorer.ParseNewsEvent(e.Name, e.At)
		if err != nil {
			return nil, fmt.Errorf("invalid news event %q: %w", e.Name, err)
		}
		events = append(events, event)
	}
	return scorer.NewNewsCalendar(cfg.NewsBuffer, events...), nil
}

func scorerOptions(cfg config.Scorer, loc *time.Location) scorer.Options {
	opts := scorer.DefaultOptions(loc)
	if cfg.ATRPeriod > 0 {
		opts.ATRPeriod = cfg.ATRPeriod
	}
	if cfg.ATRMultiplier > 0 {
		opts.ATRMultiplier = cfg.ATRMultiplier
	}
	if cfg.MinATRPoints > 0 {
		opts.MinATRPoints = cfg.MinATRPoints
	}
	if cfg.TrendWindow > 0 {
		opts.TrendWindow = cfg.TrendWindow
	}
	if cfg.MinCandles15m > 0 {
		opts.MinCandles15m = cfg.MinCandles15m
	}
	return opts
}

func levelsOptions(cfg config.Levels) levels.Options {
	opts := levels.DefaultOptions()
	if cfg.PDBufferPoints > 0 {
		opts.PDBufferPoints = cfg.PDBufferPoints
	}
	if cfg.ORBSessionPct > 0 {
		opts.ORBSessionPct = cfg.ORBSessionPct
	}
	if cfg.ORBLivePricePct > 0 {
		opts.ORBLivePricePct = cfg.ORBLivePricePct
	}
	return opts
}

func outcomeOptions(cfg config.Outcome) outcome.Options {
	opts := outcome.DefaultOptions()
	if cfg.MaxDuration > 0 {
		opts.MaxDuration = cfg.MaxDuration
	}
	if cfg.PriceTimeout > 0 {
		opts.PriceTimeout = cfg.PriceTimeout
	}
	if cfg.MaxConcurrency > 0 {
		opts.MaxConcurrency = cfg.MaxConcurrency
	}
	return opts
}

func guardianLimits(cfg config.Guardian) guardian.Limits {
	limits := guardian.DefaultLimits()
	if cfg.AccountID != "" {
		limits.AccountID = cfg.AccountID
	}
	if cfg.InitialBalance > 0 {
		limits.InitialBalance = cfg.InitialBalance
	}
	if cfg.MaxDailyLoss > 0 {
		limits.MaxDailyLoss = cfg.MaxDailyLoss
	}
	if cfg.MaxTrailingDrawdown > 0 {
		limits.MaxTrailingDrawdown = cfg.MaxTrailingDrawdown
	}
	if cfg.DailyLossWarningPct > 0 {
		limits.DailyLossWarningPct = cfg.DailyLossWarningPct
	}
	if cfg.DailyLossBlockPct > 0 {
		limits.DailyLossBlockPct = cfg.DailyLossBlockPct
	}
	if cfg.DrawdownWarningPct > 0 {
		limits.DrawdownWarningPct = cfg.DrawdownWarningPct
	}
	if cfg.MaxDayProfitPct > 0 {
		limits.MaxDayProfitPct = cfg.MaxDayProfitPct
	}
	return limits
}
