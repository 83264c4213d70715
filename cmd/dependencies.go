package cmd

import (
	"context"
	"errors"
	"signalcrawler/config"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/cache"
	"signalcrawler/pkg/common"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/metrics"
	"signalcrawler/pkg/postgres"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type AppDependency struct {
	db         *postgres.DB
	cfg        *config.Config
	log        *logger.Logger
	validator  *goValidator.Validate
	echo       *echo.Echo
	cache      cache.Cache
	priceStore cache.PriceStore
	metrics    *metrics.Recorder
	clock      session.Clock
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	recorder := metrics.New()
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding, func(entry zapcore.Entry, _ map[string]interface{}) {
		recorder.RecordLogAlert(entry.Level.String())
	})
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	var priceStore cache.PriceStore
	if cfg.Redis.Enabled {
		priceStore = cache.NewRedisPriceStore(cache.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: common.KEY_REDIS_NAMESPACE,
		})
		log.Info("Shared price store enabled", zap.String("addr", cfg.Redis.Addr))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())

	return &AppDependency{
		cfg:        cfg,
		log:        log,
		validator:  goValidator.New(),
		db:         db,
		echo:       e,
		cache:      cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		priceStore: priceStore,
		metrics:    recorder,
		clock:      session.NewSystemClock(),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	var errs []error
	if d.priceStore != nil {
		errs = append(errs, d.priceStore.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	_ = d.log.Sync()
	return errors.Join(errs...)
}
