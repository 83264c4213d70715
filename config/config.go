package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger                      `mapstructure:"logger"`
	DB           Database                    `mapstructure:"database"`
	API          API                         `mapstructure:"api"`
	Scheduler    Scheduler                   `mapstructure:"scheduler"`
	Cache        Cache                       `mapstructure:"cache"`
	Redis        Redis                       `mapstructure:"redis"`
	YahooFinance YahooFinance                `mapstructure:"yahoo_finance"`
	Session      Session                     `mapstructure:"session"`
	Instruments  map[string]InstrumentConfig `mapstructure:"instruments"`
	Levels       Levels                      `mapstructure:"levels"`
	Scorer       Scorer                      `mapstructure:"scorer"`
	Outcome      Outcome                     `mapstructure:"outcome"`
	Guardian     Guardian                    `mapstructure:"guardian"`
	Webhook      Webhook                     `mapstructure:"webhook"`
	Metrics      Metrics                     `mapstructure:"metrics"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	DBName             string        `mapstructure:"name"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	TimeZone           string        `mapstructure:"time_zone"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime    string        `mapstructure:"conn_max_lifetime"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

type Scheduler struct {
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	LastPriceTTL      time.Duration `mapstructure:"last_price_ttl"`
}

// Redis is an optional second level for last prices shared between instances.
type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	RetryCount          int           `mapstructure:"retry_count"`
	Warmup              bool          `mapstructure:"warmup"`
}

type Session struct {
	TimeZone string `mapstructure:"time_zone"`
}

type InstrumentConfig struct {
	TickSize      float64 `mapstructure:"tick_size"`
	TickValue     float64 `mapstructure:"tick_value"`
	MaxStopPoints float64 `mapstructure:"max_stop_points"`
	YahooSymbol   string  `mapstructure:"yahoo_symbol"`
}

type Levels struct {
	PDBufferPoints  float64 `mapstructure:"pd_buffer_points"`
	ORBSessionPct   float64 `mapstructure:"orb_session_pct"`
	ORBLivePricePct float64 `mapstructure:"orb_live_price_pct"`
	RestoreDays     int     `mapstructure:"restore_days"`
}

type Scorer struct {
	ATRPeriod         int           `mapstructure:"atr_period"`
	ATRMultiplier     float64       `mapstructure:"atr_multiplier"`
	MinATRPoints      float64       `mapstructure:"min_atr_points"`
	NewsBuffer        time.Duration `mapstructure:"news_buffer"`
	NewsEvents        []NewsEvent   `mapstructure:"news_events"`
	MinCandles15m     int           `mapstructure:"min_candles_15m"`
	TrendWindow       int           `mapstructure:"trend_window"`
	RejectOnUnsafePDL bool          `mapstructure:"reject_on_unsafe_pd_level"`
}

type NewsEvent struct {
	Name string `mapstructure:"name"`
	At   string `mapstructure:"at"`
}

type Outcome struct {
	MaxDuration    time.Duration `mapstructure:"max_duration"`
	PriceTimeout   time.Duration `mapstructure:"price_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

type Guardian struct {
	AccountID           string  `mapstructure:"account_id"`
	InitialBalance      float64 `mapstructure:"initial_balance"`
	MaxDailyLoss        float64 `mapstructure:"max_daily_loss"`
	MaxTrailingDrawdown float64 `mapstructure:"max_trailing_drawdown"`
	DailyLossWarningPct float64 `mapstructure:"daily_loss_warning_pct"`
	DailyLossBlockPct   float64 `mapstructure:"daily_loss_block_pct"`
	DrawdownWarningPct  float64 `mapstructure:"drawdown_warning_pct"`
	MaxDayProfitPct     float64 `mapstructure:"max_day_profit_pct"`
}

type Webhook struct {
	Secret        string  `mapstructure:"secret"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "signalcrawler")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.log_level", "Warn")
	v.SetDefault("database.slow_query_threshold", "200ms")
	v.SetDefault("api.port", 8080)
	v.SetDefault("scheduler.max_concurrency", 4)
	v.SetDefault("scheduler.timeout_duration", "60s")
	v.SetDefault("scheduler.tick_interval", "5s")
	v.SetDefault("cache.default_expiration", "10m")
	v.SetDefault("cache.cleanup_interval", "15m")
	v.SetDefault("cache.last_price_ttl", "5m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yahoo_finance.timeout", "10s")
	v.SetDefault("yahoo_finance.max_request_per_minute", 30)
	v.SetDefault("yahoo_finance.retry_count", 2)
	v.SetDefault("yahoo_finance.warmup", true)
	v.SetDefault("session.time_zone", "America/New_York")
	v.SetDefault("instruments", map[string]interface{}{
		"MNQ": map[string]interface{}{"tick_size": 0.25, "tick_value": 0.50, "max_stop_points": 15.0, "yahoo_symbol": "MNQ=F"},
		"MES": map[string]interface{}{"tick_size": 0.25, "tick_value": 1.25, "max_stop_points": 5.0, "yahoo_symbol": "MES=F"},
		"MGC": map[string]interface{}{"tick_size": 0.10, "tick_value": 1.00, "max_stop_points": 4.0, "yahoo_symbol": "MGC=F"},
	})
	v.SetDefault("levels.pd_buffer_points", 15.0)
	v.SetDefault("levels.orb_session_pct", 0.10)
	v.SetDefault("levels.orb_live_price_pct", 0.05)
	v.SetDefault("levels.restore_days", 7)
	v.SetDefault("scorer.atr_period", 14)
	v.SetDefault("scorer.atr_multiplier", 1.5)
	v.SetDefault("scorer.min_atr_points", 5.0)
	v.SetDefault("scorer.news_buffer", "30m")
	v.SetDefault("scorer.min_candles_15m", 3)
	v.SetDefault("scorer.trend_window", 20)
	v.SetDefault("scorer.reject_on_unsafe_pd_level", true)
	v.SetDefault("outcome.max_duration", "24h")
	v.SetDefault("outcome.price_timeout", "5s")
	v.SetDefault("outcome.max_concurrency", 8)
	v.SetDefault("guardian.account_id", "default")
	v.SetDefault("guardian.initial_balance", 50000.0)
	v.SetDefault("guardian.max_daily_loss", 2500.0)
	v.SetDefault("guardian.max_trailing_drawdown", 2500.0)
	v.SetDefault("guardian.daily_loss_warning_pct", 80.0)
	v.SetDefault("guardian.daily_loss_block_pct", 100.0)
	v.SetDefault("guardian.drawdown_warning_pct", 80.0)
	v.SetDefault("guardian.max_day_profit_pct", 30.0)
	v.SetDefault("webhook.rate_per_second", 10.0)
	v.SetDefault("webhook.rate_burst", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// SessionLocation loads the trading session time zone.
func (c *Config) SessionLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Session.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid session time zone %q: %w", c.Session.TimeZone, err)
	}
	return loc, nil
}
