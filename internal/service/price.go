package service

import (
	"context"
	"fmt"
	"signalcrawler/config"
	"signalcrawler/internal/aggregator"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/repository"
	"signalcrawler/pkg/cache"
	"signalcrawler/pkg/common"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/metrics"
)

const (
	priceSourceMemory     = "memory"
	priceSourceRedis      = "redis"
	priceSourceAggregator = "aggregator"
	priceSourceYahoo      = "yahoo"
)

// PriceService answers live price lookups for outcome resolution. Lookups try
// the in-process cache, the shared redis store, the latest ingested 1m close
// and finally a Yahoo Finance quote.
type PriceService interface {
	GetCurrentPrice(ctx context.Context, instrumentSymbol string) (float64, bool)
	SetLastPrice(ctx context.Context, instrumentSymbol string, price float64)
}

type priceService struct {
	cfg         *config.Config
	log         *logger.Logger
	cache       cache.Cache
	shared      cache.PriceStore
	aggregator  aggregator.Aggregator
	yahooRepo   repository.YahooFinanceRepository
	instruments *instrument.Registry
	metrics     *metrics.Recorder
}

// NewPriceService builds the lookup chain. shared and yahooRepo may be nil.
func NewPriceService(
	cfg *config.Config,
	log *logger.Logger,
	inmemoryCache cache.Cache,
	shared cache.PriceStore,
	agg aggregator.Aggregator,
	yahooRepo repository.YahooFinanceRepository,
	instruments *instrument.Registry,
	recorder *metrics.Recorder,
) PriceService {
	return &priceService{
		cfg:         cfg,
		log:         log,
		cache:       inmemoryCache,
		shared:      shared,
		aggregator:  agg,
		yahooRepo:   yahooRepo,
		instruments: instruments,
		metrics:     recorder,
	}
}

func priceKey(symbol string) string {
	return fmt.Sprintf(common.KEY_LAST_PRICE, symbol)
}

func (s *priceService) SetLastPrice(ctx context.Context, instrumentSymbol string, price float64) {
	symbol := instrument.Normalize(instrumentSymbol)
	s.cache.Set(priceKey(symbol), price, s.cfg.Cache.LastPriceTTL)
	if s.shared == nil {
		return
	}
	if err := s.shared.SetPrice(ctx, priceKey(symbol), price, s.cfg.Cache.LastPriceTTL); err != nil {
		s.log.WarnContext(ctx, "Failed to publish last price",
			logger.StringField("instrument", symbol),
			logger.ErrorField(err),
		)
	}
}

func (s *priceService) GetCurrentPrice(ctx context.Context, instrumentSymbol string) (float64, bool) {
	symbol := instrument.Normalize(instrumentSymbol)

	if price, ok := cache.GetFromCache[float64](s.cache, priceKey(symbol)); ok {
		s.metrics.RecordPriceLookup(priceSourceMemory, true)
		return price, true
	}
	s.metrics.RecordPriceLookup(priceSourceMemory, false)

	if s.shared != nil {
		price, ok, err := s.shared.GetPrice(ctx, priceKey(symbol))
		if err != nil {
			s.log.WarnContext(ctx, "Failed to read shared last price",
				logger.StringField("instrument", symbol),
				logger.ErrorField(err),
			)
		}
		s.metrics.RecordPriceLookup(priceSourceRedis, ok)
		if ok {
			s.cache.Set(priceKey(symbol), price, s.cfg.Cache.LastPriceTTL)
			return price, true
		}
	}

	if candle, ok := s.aggregator.Latest(symbol, dto.Timeframe1m); ok {
		s.metrics.RecordPriceLookup(priceSourceAggregator, true)
		return candle.Close, true
	}
	s.metrics.RecordPriceLookup(priceSourceAggregator, false)

	return s.quote(ctx, symbol)
}

func (s *priceService) quote(ctx context.Context, symbol string) (float64, bool) {
	if s.yahooRepo == nil {
		return 0, false
	}
	cfg, ok := s.instruments.Get(symbol)
	if !ok {
		return 0, false
	}

	data, err := s.yahooRepo.GetChart(ctx, dto.GetChartParam{Symbol: cfg.YahooSymbol, Interval: "1m", Range: "1d"})
	if err != nil {
		s.log.WarnContext(ctx, "Failed to fetch quote",
			logger.StringField("instrument", symbol),
			logger.StringField("yahoo_symbol", cfg.YahooSymbol),
			logger.ErrorField(err),
		)
		s.metrics.RecordPriceLookup(priceSourceYahoo, false)
		return 0, false
	}

	price := data.MarketPrice
	if price <= 0 && len(data.Candles) > 0 {
		price = data.Candles[len(data.Candles)-1].Close
	}
	if price <= 0 {
		s.metrics.RecordPriceLookup(priceSourceYahoo, false)
		return 0, false
	}
	s.metrics.RecordPriceLookup(priceSourceYahoo, true)
	s.cache.Set(priceKey(symbol), price, s.cfg.Cache.LastPriceTTL)
	return price, true
}
