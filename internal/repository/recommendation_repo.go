package repository

import (
	"context"
	"errors"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/model"
	"signalcrawler/pkg/utils"
	"time"

	"gorm.io/gorm"
)

type RecommendationRepository interface {
	Create(ctx context.Context, rec *model.Recommendation) error
	FindPending(ctx context.Context, instrument string) ([]model.Recommendation, error)
	Resolve(ctx context.Context, res dto.Resolution) (bool, error)
	FindByID(ctx context.Context, id string) (*model.Recommendation, error)
	Get(ctx context.Context, param dto.GetRecommendationsParam, opts ...utils.DBOption) ([]model.Recommendation, error)
	DeleteResolvedOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error)
	StatusTotals(ctx context.Context, since time.Time, opts ...utils.DBOption) ([]dto.RecommendationStatusTotal, error)
}

type recommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *model.Recommendation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// FindPending returns pending recommendations oldest first. An empty
// instrument matches every instrument.
func (r *recommendationRepository) FindPending(ctx context.Context, instrument string) ([]model.Recommendation, error) {
	var recs []model.Recommendation
	db := r.db.WithContext(ctx).Where("status = ?", dto.StatusPending)
	if instrument != "" {
		db = db.Where("instrument = ?", instrument)
	}
	if err := db.Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Resolve moves a recommendation out of PENDING. The status guard in the
// WHERE clause makes the transition happen at most once across processes.
func (r *recommendationRepository) Resolve(ctx context.Context, res dto.Resolution) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Recommendation{}).
		Where("id = ? AND status = ?", res.RecommendationID, dto.StatusPending).
		Updates(map[string]interface{}{
			"status":           res.Status,
			"resolution_price": res.Price,
			"pnl_points":       res.PnLPoints,
			"pnl_dollars":      res.PnLDollars,
			"resolved_at":      res.ResolvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *recommendationRepository) FindByID(ctx context.Context, id string) (*model.Recommendation, error) {
	var rec model.Recommendation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *recommendationRepository) Get(ctx context.Context, param dto.GetRecommendationsParam, opts ...utils.DBOption) ([]model.Recommendation, error) {
	var recs []model.Recommendation
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.Recommendation{})
	if param.Instrument != "" {
		db = db.Where("instrument = ?", param.Instrument)
	}
	if len(param.Statuses) > 0 {
		db = db.Where("status IN ?", param.Statuses)
	}
	limit := param.Limit
	if limit <= 0 {
		limit = 50
	}
	if err := db.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *recommendationRepository) DeleteResolvedOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("status <> ? AND created_at < ?", dto.StatusPending, date).
		Delete(&model.Recommendation{})
	return result.RowsAffected, result.Error
}

// StatusTotals counts recommendations and sums their P&L per instrument and
// status. A zero since covers the whole table.
func (r *recommendationRepository) StatusTotals(ctx context.Context, since time.Time, opts ...utils.DBOption) ([]dto.RecommendationStatusTotal, error) {
	var totals []dto.RecommendationStatusTotal
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Recommendation{}).
		Select("instrument, status, COUNT(*) AS count, " +
			"COALESCE(SUM(pnl_points), 0) AS pnl_points, COALESCE(SUM(pnl_dollars), 0) AS pnl_dollars")
	if !since.IsZero() {
		db = db.Where("created_at >= ?", since)
	}
	if err := db.Group("instrument, status").Order("instrument, status").Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
