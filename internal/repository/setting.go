package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"token-vending-service/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	// Get decodes the setting stored under key into out. Missing keys return
	// gorm.ErrRecordNotFound.
	Get(ctx context.Context, key string, out interface{}) error
	Put(ctx context.Context, key string, value interface{}) error
	ListTokenSettings(ctx context.Context) ([]*model.TokenSetting, error)
	UpsertTokenSettings(ctx context.Context, settings []*model.TokenSetting) error
	Seed(ctx context.Context) error
}

type settingRepoImpl struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepoImpl{
		db: db,
	}
}

func (r *settingRepoImpl) Get(ctx context.Context, key string, out interface{}) error {
	var setting model.AppSetting
	err := r.db.WithContext(ctx).
		Where(&model.AppSetting{Key: key}).
		First(&setting).Error
	if err != nil {
		return err
	}

	if err := json.Unmarshal(setting.Value, out); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

func (r *settingRepoImpl) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      raw,
			"updated_at": time.Now(),
		}),
	}).Create(&model.AppSetting{Key: key, Value: raw}).Error
}

func (r *settingRepoImpl) ListTokenSettings(ctx context.Context) ([]*model.TokenSetting, error) {
	var settings []*model.TokenSetting
	err := r.db.WithContext(ctx).
		Order("token_type, area, project, vendor").
		Find(&settings).Error

	if err != nil {
		return nil, err
	}

	return settings, nil
}

func (r *settingRepoImpl) UpsertTokenSettings(ctx context.Context, settings []*model.TokenSetting) error {
	if len(settings) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_type"}, {Name: "area"}, {Name: "project"}, {Name: "vendor"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_price", "unit_label", "updated_at"}),
	}).Create(&settings).Error
}

// Seed inserts a starter price table and receipt template for local setups.
// Existing rows are kept.
func (r *settingRepoImpl) Seed(ctx context.Context) error {
	settings := []model.TokenSetting{
		{TokenType: "electricity", Area: "jakarta", Project: "residence-a", Vendor: "stronpower", BasePrice: decimal.NewFromInt(1444), UnitLabel: "kWh"},
		{TokenType: "electricity", Area: "bandung", Project: "residence-b", Vendor: "stronpower", BasePrice: decimal.NewFromInt(1352), UnitLabel: "kWh"},
		{TokenType: "water", Area: "jakarta", Project: "residence-a", Vendor: "stronpower", BasePrice: decimal.NewFromInt(7500), UnitLabel: "m3"},
		{TokenType: "gas", Area: "jakarta", Project: "residence-a", Vendor: "stronpower", BasePrice: decimal.NewFromInt(4500), UnitLabel: "m3"},
		{TokenType: "solar", Area: "bali", Project: "villa-c", Vendor: "stronpower", BasePrice: decimal.NewFromInt(1100), UnitLabel: "kWh"},
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return fmt.Errorf("seed token settings: %w", err)
	}

	raw, err := json.Marshal(model.DefaultReceiptTemplate())
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.AppSetting{Key: model.SettingKeyReceiptTemplate, Value: raw}).Error
}
