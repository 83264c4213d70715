package repository

import (
	"context"
	"fmt"
	"net/http"
	"signalcrawler/config"
	"signalcrawler/internal/dto"
	"signalcrawler/pkg/httpclient"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/ratelimit"
	"signalcrawler/pkg/utils"
	"time"

	"golang.org/x/time/rate"
)

type YahooFinanceRepository interface {
	GetChart(ctx context.Context, param dto.GetChartParam) (*dto.ChartData, error)
}

type yahooFinanceRepository struct {
	httpClient httpclient.Client
	cfg        *config.Config
	logger     *logger.Logger
	limiters   *ratelimit.KeyedLimiter
}

// NewYahooFinanceRepository throttles chart requests per symbol to
// yahoo_finance.max_request_per_minute.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	perMinute := cfg.YahooFinance.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &yahooFinanceRepository{
		httpClient: httpclient.New(httpclient.Options{
			BaseURL: cfg.YahooFinance.BaseURL,
			Timeout: cfg.YahooFinance.Timeout,
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
				"Accept":          "application/json, text/plain, */*",
				"Accept-Language": "en-US,en;q=0.9",
			},
			RetryCount: cfg.YahooFinance.RetryCount,
			RetryWait:  500 * time.Millisecond,
		}),
		cfg:      cfg,
		logger:   log,
		limiters: ratelimit.NewKeyedLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *yahooFinanceRepository) GetChart(ctx context.Context, param dto.GetChartParam) (*dto.ChartData, error) {
	if !r.limiters.Allow(param.Symbol) {
		r.logger.DebugContext(ctx, "Yahoo Finance request throttled",
			logger.StringField("symbol", param.Symbol),
			logger.IntField("max_request_per_minute", r.cfg.YahooFinance.MaxRequestPerMinute),
		)
		if err := r.limiters.Wait(ctx, param.Symbol); err != nil {
			return nil, err
		}
	}

	if param.Interval == "" {
		param.Interval = "1m"
	}
	if param.Range == "" {
		param.Range = "1d"
	}
	queryParams := map[string]string{
		"interval":       param.Interval,
		"range":          param.Range,
		"includePrePost": "true",
	}
	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, "/"+param.Symbol, queryParams, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.WarnContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.StringField("symbol", param.Symbol),
			logger.IntField("status_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}
	if yahooResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance api error: %v", yahooResp.Chart.Error)
	}
	if len(yahooResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", param.Symbol)
	}

	result := yahooResp.Chart.Result[0]
	data := &dto.ChartData{
		Symbol:      param.Symbol,
		MarketPrice: result.Meta.RegularMarketPrice,
		Interval:    param.Interval,
	}
	if len(result.Indicators.Quote) == 0 {
		return data, nil
	}

	quote := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		// bars without a trade come back as nulls
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		var volume float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = float64(*quote.Volume[i])
		}
		candle := dto.Candle{
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
			Timestamp: time.Unix(ts, 0).UTC(),
		}
		if !utils.IsFinite(candle.Open, candle.High, candle.Low, candle.Close) {
			continue
		}
		data.Candles = append(data.Candles, candle)
	}
	return data, nil
}
