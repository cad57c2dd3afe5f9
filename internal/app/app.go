package app

import (
	"fmt"

	"token-vending-service/internal/cache"
	"token-vending-service/internal/client"
	"token-vending-service/internal/config"
	"token-vending-service/internal/repository"
	"token-vending-service/internal/server"
	"token-vending-service/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired dependencies shared by the API server and tokenctl.
type App struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Settings   repository.SettingRepository
	Services   *server.Services
	closeFuncs []func() error
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Vending.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := client.InitDBClient(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &App{DB: db}
	a.closeFuncs = append(a.closeFuncs, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	settingsCache := cache.NewNoopSettingsCache()
	if cfg.Redis.URL != "" {
		rdb, err := client.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.Redis = rdb
		a.closeFuncs = append(a.closeFuncs, rdb.Close)
		settingsCache = cache.NewRedisSettingsCache(rdb, cfg.Redis.TTL)
	} else {
		logger.Info("REDIS_URL not set, token settings are read from the database on every lookup")
	}

	midtransClient := client.NewMidtransClient(&cfg.Midtrans)
	ipaymuClient := client.NewIpaymuClient(&cfg.Ipaymu)
	stronpowerClient := client.NewStronpowerClient(cfg.Vending.Timeout)

	txnRepo := repository.NewTransactionRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	a.Settings = settingRepo

	pricingService := service.NewPricingService(settingRepo, customerRepo, settingsCache, logger)
	settingService := service.NewSettingService(settingRepo, pricingService, logger)
	vendingService := service.NewVendingService(stronpowerClient, settingService, logger)
	settlementService := service.NewSettlementService(
		txnRepo,
		tokenRepo,
		vendingService,
		pricingService,
		cfg.Vending.StaleClaim,
		logger,
	)

	a.Services = &server.Services{
		Checkout:     service.NewCheckoutService(txnRepo, midtransClient, ipaymuClient, cfg, logger),
		Settlement:   settlementService,
		Vending:      vendingService,
		Receipt:      service.NewReceiptService(tokenRepo, txnRepo, settingService, logger),
		Notification: service.NewNotificationService(txnRepo, webhookEventRepo, settlementService, midtransClient, ipaymuClient, logger),
		Setting:      settingService,
		Customer:     service.NewCustomerService(customerRepo, logger),
		Report:       service.NewReportService(txnRepo),
	}

	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closeFuncs) - 1; i >= 0; i-- {
		if err := a.closeFuncs[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closeFuncs = nil
	return firstErr
}
