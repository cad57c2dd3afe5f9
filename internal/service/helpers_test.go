package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"token-vending-service/internal/cache"
	"token-vending-service/internal/client"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeStronpower struct {
	VendingMeterFunc func(ctx context.Context, creds *model.StronpowerCredentials, meterID string, amount decimal.Decimal) (*client.VendResult, error)
	calls            atomic.Int32
}

func (f *fakeStronpower) VendingMeter(ctx context.Context, creds *model.StronpowerCredentials, meterID string, amount decimal.Decimal) (*client.VendResult, error) {
	f.calls.Add(1)
	return f.VendingMeterFunc(ctx, creds, meterID, amount)
}

func vendsToken(token string) func(context.Context, *model.StronpowerCredentials, string, decimal.Decimal) (*client.VendResult, error) {
	return func(context.Context, *model.StronpowerCredentials, string, decimal.Decimal) (*client.VendResult, error) {
		return &client.VendResult{
			Outcome:    client.VendOK,
			Token:      token,
			StatusCode: 200,
			Raw:        []byte(`{"Token":"` + token + `"}`),
		}, nil
	}
}

type testEnv struct {
	db           *gorm.DB
	logger       *zap.Logger
	txnRepo      repository.TransactionRepository
	tokenRepo    repository.TokenRepository
	customerRepo repository.CustomerRepository
	settingRepo  repository.SettingRepository
	webhookRepo  repository.WebhookEventRepository
	pricing      PricingService
	settings     SettingService
	stronpower   *fakeStronpower
	vending      VendingService
	settlement   *settlementServiceImpl
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDBClient("sqlite::memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	logger := zaptest.NewLogger(t)

	env := &testEnv{
		db:           db,
		logger:       logger,
		txnRepo:      repository.NewTransactionRepository(db),
		tokenRepo:    repository.NewTokenRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		settingRepo:  repository.NewSettingRepository(db),
		webhookRepo:  repository.NewWebhookEventRepository(db),
		stronpower:   &fakeStronpower{VendingMeterFunc: vendsToken("12345678901234567890")},
	}
	env.pricing = NewPricingService(env.settingRepo, env.customerRepo, cache.NewNoopSettingsCache(), logger)
	env.settings = NewSettingService(env.settingRepo, env.pricing, logger)
	env.vending = NewVendingService(env.stronpower, env.settings, logger)
	env.settlement = NewSettlementService(
		env.txnRepo,
		env.tokenRepo,
		env.vending,
		env.pricing,
		defaultStaleClaim,
		logger,
	).(*settlementServiceImpl)

	return env
}

const defaultStaleClaim = 2 * time.Minute

func (e *testEnv) withCredentials(t *testing.T) {
	t.Helper()
	err := e.settingRepo.Put(context.Background(), model.SettingKeyVendingStronpower, &model.StronpowerCredentials{
		ApiURL:      "https://vend.example.test/api/VendingMeter",
		CompanyName: "PT Token",
		Username:    "operator",
		Password:    "secret",
	})
	require.NoError(t, err)
}

func (e *testEnv) createTransaction(t *testing.T, orderID string, status model.TransactionStatus) *model.PendingTransaction {
	t.Helper()
	txn := &model.PendingTransaction{
		OrderID:             orderID,
		Status:              status,
		Gateway:             model.GatewayMidtrans,
		CustomerID:          "cust-1",
		ServiceIDForVending: "METER-001",
		TokenType:           "electricity",
		ProductAmount:       decimal.NewFromInt(50000),
		AdminFee:            decimal.NewFromInt(2500),
		TaxAmount:           decimal.Zero,
		OtherCosts:          decimal.Zero,
		DiscountAmount:      decimal.NewFromInt(1000),
		TotalPayment:        decimal.NewFromInt(51500),
		BuyerName:           "Budi Santoso",
		BuyerEmail:          "budi@example.com",
		BuyerPhone:          "08123456789",
	}
	require.NoError(t, e.txnRepo.Create(context.Background(), txn))
	return txn
}
