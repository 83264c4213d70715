package repository

import (
	"context"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/model"
	"signalcrawler/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MarketLevelRepository interface {
	Upsert(ctx context.Context, levels []dto.DailyLevels, opts ...utils.DBOption) error
	FindSince(ctx context.Context, date string) ([]dto.DailyLevels, error)
	DeleteOlderThan(ctx context.Context, date string, opts ...utils.DBOption) (int64, error)
}

type marketLevelRepository struct {
	db *gorm.DB
}

func NewMarketLevelRepository(db *gorm.DB) MarketLevelRepository {
	return &marketLevelRepository{db: db}
}

func (r *marketLevelRepository) Upsert(ctx context.Context, levels []dto.DailyLevels, opts ...utils.DBOption) error {
	if len(levels) == 0 {
		return nil
	}
	rows := make([]model.MarketLevel, 0, len(levels))
	for _, l := range levels {
		rows = append(rows, model.NewMarketLevel(l))
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instrument"}, {Name: "date"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
}

// FindSince returns levels dated on or after date (YYYY-MM-DD).
func (r *marketLevelRepository) FindSince(ctx context.Context, date string) ([]dto.DailyLevels, error) {
	var rows []model.MarketLevel
	err := r.db.WithContext(ctx).
		Where("date >= ?", date).
		Order("instrument ASC, date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]dto.DailyLevels, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDTO())
	}
	return out, nil
}

func (r *marketLevelRepository) DeleteOlderThan(ctx context.Context, date string, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("date < ?", date).
		Delete(&model.MarketLevel{})
	return result.RowsAffected, result.Error
}
