package service

import (
	"context"
	"fmt"
	"signalcrawler/config"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/levels"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/cache"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/utils"
	"time"
)

const levelsStatusTTL = 5 * time.Second

type MarketService interface {
	CurrentTier() dto.TierStatus
	LevelsStatus(ctx context.Context, instrumentSymbol string) (dto.LevelsStatus, error)
	SnapshotLevels(ctx context.Context) (int, error)
	RestoreLevels(ctx context.Context) (int, error)
}

type marketService struct {
	cfg             *config.Config
	log             *logger.Logger
	clock           session.Clock
	resolver        session.Resolver
	levels          levels.Tracker
	instruments     *instrument.Registry
	cache           cache.Cache
	marketLevelRepo repository.MarketLevelRepository
	prices          PriceService
}

func NewMarketService(
	cfg *config.Config,
	log *logger.Logger,
	clock session.Clock,
	resolver session.Resolver,
	levelTracker levels.Tracker,
	instruments *instrument.Registry,
	inmemoryCache cache.Cache,
	marketLevelRepo repository.MarketLevelRepository,
	prices PriceService,
) MarketService {
	return &marketService{
		cfg:             cfg,
		log:             log,
		clock:           clock,
		resolver:        resolver,
		levels:          levelTracker,
		instruments:     instruments,
		cache:           inmemoryCache,
		marketLevelRepo: marketLevelRepo,
		prices:          prices,
	}
}

func levelsStatusKey(symbol string) string {
	return fmt.Sprintf("levels_status:%s", symbol)
}

func (s *marketService) CurrentTier() dto.TierStatus {
	now := s.clock.Now()
	tier := s.resolver.Resolve(now)
	status := dto.TierStatus{Tier: tier, Window: s.resolver.Window(tier)}
	if msg, blocked := s.resolver.BlockedMessage(now); blocked {
		status.BlockedMessage = msg
	}
	return status
}

func (s *marketService) LevelsStatus(ctx context.Context, instrumentSymbol string) (dto.LevelsStatus, error) {
	cfg, err := s.instruments.MustGet(instrumentSymbol)
	if err != nil {
		return dto.LevelsStatus{}, err
	}
	key := levelsStatusKey(cfg.Symbol)
	if cached, ok := cache.GetFromCache[dto.LevelsStatus](s.cache, key); ok {
		return cached, nil
	}

	day, ok := s.levels.Levels(cfg.Symbol)
	if !ok {
		day = dto.DailyLevels{Instrument: cfg.Symbol, Date: utils.SessionDate(s.clock.Now(), s.resolver.Location())}
	}
	var live *float64
	if price, found := s.prices.GetCurrentPrice(ctx, cfg.Symbol); found {
		live = &price
	}
	status := dto.LevelsStatus{Levels: day, Bias: s.levels.Bias(cfg.Symbol, live)}
	s.cache.Set(key, status, levelsStatusTTL)
	return status, nil
}

func (s *marketService) SnapshotLevels(ctx context.Context) (int, error) {
	snapshot := s.levels.Snapshot()
	if err := s.marketLevelRepo.Upsert(ctx, snapshot); err != nil {
		return 0, fmt.Errorf("failed to save market levels: %w", err)
	}
	return len(snapshot), nil
}

// RestoreLevels reloads persisted levels so prior-day extremes survive a
// restart.
func (s *marketService) RestoreLevels(ctx context.Context) (int, error) {
	days := s.cfg.Levels.RestoreDays
	if days <= 0 {
		days = 7
	}
	since := utils.SessionDate(s.clock.Now().AddDate(0, 0, -days), s.resolver.Location())
	persisted, err := s.marketLevelRepo.FindSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to load market levels: %w", err)
	}
	s.levels.Restore(persisted)
	for _, symbol := range s.instruments.Symbols() {
		s.cache.Delete(levelsStatusKey(symbol))
	}
	s.log.InfoContext(ctx, "Market levels restored",
		logger.StringField("since", since),
		logger.IntField("days", len(persisted)),
	)
	return len(persisted), nil
}
