package service

import (
	"context"
	"errors"

	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SettingService interface {
	VendingCredentials(ctx context.Context) (*model.StronpowerCredentials, error)
	PutVendingCredentials(ctx context.Context, creds *model.StronpowerCredentials) error
	ReceiptTemplate(ctx context.Context) (model.ReceiptTemplateSettings, error)
	PutReceiptTemplate(ctx context.Context, tpl *model.ReceiptTemplateSettings) error
	ListTokenSettings(ctx context.Context) ([]*model.TokenSetting, error)
	UpsertTokenSettings(ctx context.Context, settings []*model.TokenSetting) error
}

type settingServiceImpl struct {
	settingRepo repository.SettingRepository
	pricing     PricingService
	logger      *zap.Logger
}

func NewSettingService(settingRepo repository.SettingRepository, pricing PricingService, logger *zap.Logger) SettingService {
	return &settingServiceImpl{
		settingRepo: settingRepo,
		pricing:     pricing,
		logger:      logger,
	}
}

func (s *settingServiceImpl) VendingCredentials(ctx context.Context) (*model.StronpowerCredentials, error) {
	var creds model.StronpowerCredentials
	err := s.settingRepo.Get(ctx, model.SettingKeyVendingStronpower, &creds)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, configError(model.SettingKeyVendingStronpower, "set api_url, company_name, username and password via PUT /api/admin/settings/vending")
	}
	if err != nil {
		return nil, internalError("load vending credentials", err)
	}
	if !creds.Complete() {
		return nil, configError(model.SettingKeyVendingStronpower, "api_url, company_name, username and password must all be set via PUT /api/admin/settings/vending")
	}
	return &creds, nil
}

func (s *settingServiceImpl) PutVendingCredentials(ctx context.Context, creds *model.StronpowerCredentials) error {
	if err := validateStruct(creds); err != nil {
		return err
	}
	if err := s.settingRepo.Put(ctx, model.SettingKeyVendingStronpower, creds); err != nil {
		return internalError("save vending credentials", err)
	}
	s.logger.Info("vending credentials updated", zap.String("company_name", creds.CompanyName))
	return nil
}

// ReceiptTemplate falls back to the built-in template when none is stored.
func (s *settingServiceImpl) ReceiptTemplate(ctx context.Context) (model.ReceiptTemplateSettings, error) {
	tpl := model.DefaultReceiptTemplate()
	err := s.settingRepo.Get(ctx, model.SettingKeyReceiptTemplate, &tpl)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultReceiptTemplate(), nil
	}
	if err != nil {
		return tpl, internalError("load receipt template", err)
	}
	return tpl, nil
}

func (s *settingServiceImpl) PutReceiptTemplate(ctx context.Context, tpl *model.ReceiptTemplateSettings) error {
	if err := s.settingRepo.Put(ctx, model.SettingKeyReceiptTemplate, tpl); err != nil {
		return internalError("save receipt template", err)
	}
	return nil
}

func (s *settingServiceImpl) ListTokenSettings(ctx context.Context) ([]*model.TokenSetting, error) {
	settings, err := s.settingRepo.ListTokenSettings(ctx)
	if err != nil {
		return nil, internalError("list token settings", err)
	}
	return settings, nil
}

func (s *settingServiceImpl) UpsertTokenSettings(ctx context.Context, settings []*model.TokenSetting) error {
	if len(settings) == 0 {
		return badRequest("at least one token setting is required")
	}
	for _, setting := range settings {
		if err := validateStruct(setting); err != nil {
			return err
		}
		if !setting.BasePrice.IsPositive() {
			return badRequest("basePrice for %s/%s/%s/%s must be positive",
				setting.TokenType, setting.Area, setting.Project, setting.Vendor)
		}
	}

	if err := s.settingRepo.UpsertTokenSettings(ctx, settings); err != nil {
		return internalError("save token settings", err)
	}
	s.pricing.Invalidate(ctx)
	return nil
}
