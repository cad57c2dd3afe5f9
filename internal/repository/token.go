package repository

import (
	"context"

	"token-vending-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	// Create inserts the token record; a second insert for the same order is
	// ignored so a racing settlement cannot overwrite the first record.
	Create(ctx context.Context, token *model.GeneratedToken) error
	FindByOrderID(ctx context.Context, orderID string) (*model.GeneratedToken, error)
}

type tokenRepositoryImpl struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepositoryImpl{
		db: db,
	}
}

func (r *tokenRepositoryImpl) Create(ctx context.Context, token *model.GeneratedToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(token).Error
}

func (r *tokenRepositoryImpl) FindByOrderID(ctx context.Context, orderID string) (*model.GeneratedToken, error) {
	var token model.GeneratedToken
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&token).Error

	if err != nil {
		return nil, err
	}

	return &token, nil
}
