package repository

import (
	"context"
	"errors"
	"signalcrawler/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountStateRepository interface {
	Load(ctx context.Context, accountID string) (*model.AccountState, error)
	Save(ctx context.Context, state *model.AccountState) error
}

type accountStateRepository struct {
	db *gorm.DB
}

func NewAccountStateRepository(db *gorm.DB) AccountStateRepository {
	return &accountStateRepository{db: db}
}

// Load returns nil without error when the account has never been saved.
func (r *accountStateRepository) Load(ctx context.Context, accountID string) (*model.AccountState, error) {
	var state model.AccountState
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *accountStateRepository) Save(ctx context.Context, state *model.AccountState) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			UpdateAll: true,
		}).
		Create(state).Error
}
