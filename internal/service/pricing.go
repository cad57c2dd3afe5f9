package service

import (
	"context"
	"fmt"

	"token-vending-service/internal/cache"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UnitValue struct {
	Value decimal.Decimal
	Label string
}

// PricingService resolves the display-only unit value printed on receipts.
// It never affects what the buyer is charged.
type PricingService interface {
	AllTokenSettings(ctx context.Context) (model.AllTokenSettings, error)
	UnitValue(ctx context.Context, serviceID string, nominal decimal.Decimal) (*UnitValue, error)
	Invalidate(ctx context.Context)
}

type pricingServiceImpl struct {
	settingRepo  repository.SettingRepository
	customerRepo repository.CustomerRepository
	cache        cache.SettingsCache
	logger       *zap.Logger
}

func NewPricingService(
	settingRepo repository.SettingRepository,
	customerRepo repository.CustomerRepository,
	settingsCache cache.SettingsCache,
	logger *zap.Logger,
) PricingService {
	return &pricingServiceImpl{
		settingRepo:  settingRepo,
		customerRepo: customerRepo,
		cache:        settingsCache,
		logger:       logger,
	}
}

func (s *pricingServiceImpl) AllTokenSettings(ctx context.Context) (model.AllTokenSettings, error) {
	cached, ok, err := s.cache.GetTokenSettings(ctx)
	if err != nil {
		s.logger.Warn("token settings cache read failed", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	rows, err := s.settingRepo.ListTokenSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list token settings: %w", err)
	}
	all := model.NewAllTokenSettings(rows)

	if err := s.cache.SetTokenSettings(ctx, all); err != nil {
		s.logger.Warn("token settings cache write failed", zap.Error(err))
	}
	return all, nil
}

func (s *pricingServiceImpl) UnitValue(ctx context.Context, serviceID string, nominal decimal.Decimal) (*UnitValue, error) {
	svc, err := s.customerRepo.FindService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find customer service %s: %w", serviceID, err)
	}

	all, err := s.AllTokenSettings(ctx)
	if err != nil {
		return nil, err
	}

	price, ok := all.Lookup(svc.TokenType, svc.Area, svc.Project, svc.Vendor)
	if !ok {
		return nil, fmt.Errorf("no price configured for %s/%s/%s/%s", svc.TokenType, svc.Area, svc.Project, svc.Vendor)
	}
	if !price.BasePrice.IsPositive() {
		return nil, fmt.Errorf("base price for %s/%s/%s/%s is not positive", svc.TokenType, svc.Area, svc.Project, svc.Vendor)
	}

	return &UnitValue{
		Value: nominal.DivRound(price.BasePrice, 2),
		Label: price.UnitLabel,
	}, nil
}

func (s *pricingServiceImpl) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("token settings cache invalidate failed", zap.Error(err))
	}
}
