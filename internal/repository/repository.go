package repository

import (
	"signalcrawler/config"
	"signalcrawler/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	JobRepo            JobRepository
	RecommendationRepo RecommendationRepository
	AccountStateRepo   AccountStateRepository
	MarketLevelRepo    MarketLevelRepository
	YahooFinanceRepo   YahooFinanceRepository
	UnitOfWork         UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{
		JobRepo:            NewJobRepository(db),
		RecommendationRepo: NewRecommendationRepository(db),
		AccountStateRepo:   NewAccountStateRepository(db),
		MarketLevelRepo:    NewMarketLevelRepository(db),
		YahooFinanceRepo:   NewYahooFinanceRepository(cfg, log),
		UnitOfWork:         NewUnitOfWork(db),
	}
}
