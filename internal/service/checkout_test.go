package service

import (
	"context"
	"net/http"
	"regexp"
	"sync/atomic"
	"testing"

	"token-vending-service/internal/client"
	"token-vending-service/internal/config"
	"token-vending-service/internal/dto"
	"token-vending-service/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeMidtrans struct {
	CreateSnapTransactionFunc func(ctx context.Context, req *client.SnapRequest) (*client.SnapResponse, error)
}

func (f *fakeMidtrans) CreateSnapTransaction(ctx context.Context, req *client.SnapRequest) (*client.SnapResponse, error) {
	return f.CreateSnapTransactionFunc(ctx, req)
}

func (f *fakeMidtrans) ServerKey() string {
	return "SB-Mid-server-test"
}

type fakeIpaymu struct {
	CreateRedirectPaymentFunc func(ctx context.Context, req *client.IpaymuPaymentRequest) (*client.IpaymuPaymentResponse, error)
	CheckTransactionFunc      func(ctx context.Context, trxID string) (*client.IpaymuTransaction, error)
	checks                    atomic.Int32
}

func (f *fakeIpaymu) CreateRedirectPayment(ctx context.Context, req *client.IpaymuPaymentRequest) (*client.IpaymuPaymentResponse, error) {
	return f.CreateRedirectPaymentFunc(ctx, req)
}

func (f *fakeIpaymu) CheckTransaction(ctx context.Context, trxID string) (*client.IpaymuTransaction, error) {
	f.checks.Add(1)
	return f.CheckTransactionFunc(ctx, trxID)
}

func newCheckoutFixture(t *testing.T) (*testEnv, *fakeMidtrans, *fakeIpaymu, *observer.ObservedLogs, CheckoutService) {
	env := newTestEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)

	midtrans := &fakeMidtrans{
		CreateSnapTransactionFunc: func(ctx context.Context, req *client.SnapRequest) (*client.SnapResponse, error) {
			return &client.SnapResponse{
				Token:       "snap-token-1",
				RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token-1",
				Raw:         []byte(`{"token":"snap-token-1"}`),
			}, nil
		},
	}
	ipaymu := &fakeIpaymu{
		CreateRedirectPaymentFunc: func(ctx context.Context, req *client.IpaymuPaymentRequest) (*client.IpaymuPaymentResponse, error) {
			return &client.IpaymuPaymentResponse{
				SessionID: "sess-1",
				URL:       "https://sandbox.ipaymu.com/payment/sess-1",
				Raw:       []byte(`{"Status":200}`),
			}, nil
		},
	}

	cfg := &config.Config{BaseURL: "https://tokens.example.test/"}
	cfg.Midtrans.FinishURL = "https://tokens.example.test/finish"
	cfg.Ipaymu.ReturnURL = "https://tokens.example.test/return"
	cfg.Ipaymu.CancelURL = "https://tokens.example.test/cancel"

	svc := NewCheckoutService(env.txnRepo, midtrans, ipaymu, cfg, zap.New(core))
	return env, midtrans, ipaymu, logs, svc
}

func checkoutRequest() *dto.CheckoutRequest {
	return &dto.CheckoutRequest{
		CustomerID:     "cust-1",
		ServiceID:      "METER-001",
		TokenType:      "electricity",
		BuyerName:      "Budi Santoso Wijaya",
		BuyerEmail:     "budi@example.com",
		BuyerPhone:     "08123456789",
		ProductAmount:  decimal.NewFromInt(50000),
		AdminFee:       decimal.NewFromInt(2500),
		DiscountAmount: decimal.NewFromInt(1000),
	}
}

func TestCreateMidtrans_PersistsPendingTransactionAndBuildsSnapRequest(t *testing.T) {
	env, midtrans, _, logs, svc := newCheckoutFixture(t)
	ctx := context.Background()

	var sent *client.SnapRequest
	midtrans.CreateSnapTransactionFunc = func(ctx context.Context, req *client.SnapRequest) (*client.SnapResponse, error) {
		sent = req
		// the pending row must exist before the gateway is called
		txn, err := env.txnRepo.FindByOrderID(ctx, req.TransactionDetails.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, txn.Status)
		return &client.SnapResponse{Token: "snap-token-1", RedirectURL: "https://pay.example/snap-token-1", Raw: []byte(`{}`)}, nil
	}

	resp, err := svc.CreateMidtrans(ctx, checkoutRequest())

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TKN-\d{14}-[0-9a-f]{8}$`), resp.OrderID)
	assert.Equal(t, "snap-token-1", resp.Token)
	assert.True(t, resp.Gross.Equal(decimal.NewFromInt(51500)))
	assert.Zero(t, logs.Len())

	require.NotNil(t, sent)
	assert.EqualValues(t, 51500, sent.TransactionDetails.GrossAmount)
	assert.Equal(t, "Budi", sent.CustomerDetails.FirstName)
	assert.Equal(t, "Santoso Wijaya", sent.CustomerDetails.LastName)
	require.NotNil(t, sent.Callbacks)
	assert.Equal(t, "https://tokens.example.test/finish", sent.Callbacks.Finish)

	// tax and other costs are zero so they are left out
	require.Len(t, sent.ItemDetails, 3)
	assert.EqualValues(t, 50000, sent.ItemDetails[0].Price)
	assert.EqualValues(t, 2500, sent.ItemDetails[1].Price)
	assert.EqualValues(t, -1000, sent.ItemDetails[2].Price)

	txn, err := env.txnRepo.FindByOrderID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.GatewayMidtrans, txn.Gateway)
	assert.Equal(t, "snap-token-1", txn.GatewayToken)
	assert.Equal(t, "https://pay.example/snap-token-1", txn.RedirectURL)
	assert.True(t, txn.TotalPayment.Equal(decimal.NewFromInt(51500)))
}

func TestCreateMidtrans_ItemMismatchOnlyWarns(t *testing.T) {
	env, _, _, logs, svc := newCheckoutFixture(t)

	req := checkoutRequest()
	req.TotalPayment = decimal.NewFromInt(60000)

	resp, err := svc.CreateMidtrans(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.Gross.Equal(decimal.NewFromInt(60000)))

	warnings := logs.FilterMessage("item lines do not add up to the gross amount").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "51500", warnings[0].ContextMap()["item_sum"])

	txn, err := env.txnRepo.FindByOrderID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, txn.Status)
}

func TestCreateMidtrans_Validation(t *testing.T) {
	_, _, _, _, svc := newCheckoutFixture(t)

	tests := []struct {
		name   string
		mutate func(r *dto.CheckoutRequest)
	}{
		{"missing customer", func(r *dto.CheckoutRequest) { r.CustomerID = "" }},
		{"bad email", func(r *dto.CheckoutRequest) { r.BuyerEmail = "not-an-email" }},
		{"zero amount", func(r *dto.CheckoutRequest) { r.ProductAmount = decimal.Zero }},
		{"negative fee", func(r *dto.CheckoutRequest) { r.AdminFee = decimal.NewFromInt(-1) }},
		{"below minimum", func(r *dto.CheckoutRequest) {
			r.ProductAmount = decimal.NewFromInt(500)
			r.AdminFee = decimal.Zero
			r.DiscountAmount = decimal.Zero
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkoutRequest()
			tt.mutate(req)

			_, err := svc.CreateMidtrans(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, StatusCode(err))
		})
	}
}

func TestCreateMidtrans_GatewayErrorIsPassedThrough(t *testing.T) {
	_, midtrans, _, _, svc := newCheckoutFixture(t)
	midtrans.CreateSnapTransactionFunc = func(ctx context.Context, req *client.SnapRequest) (*client.SnapResponse, error) {
		return nil, &client.APIError{Provider: "midtrans", StatusCode: 401, Message: "Access denied, please check client or server key"}
	}

	_, err := svc.CreateMidtrans(context.Background(), checkoutRequest())

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Contains(t, err.Error(), "Access denied")
}

func TestCreateIpaymu_BuildsRedirectPayment(t *testing.T) {
	env, _, ipaymu, _, svc := newCheckoutFixture(t)

	var sent *client.IpaymuPaymentRequest
	ipaymu.CreateRedirectPaymentFunc = func(ctx context.Context, req *client.IpaymuPaymentRequest) (*client.IpaymuPaymentResponse, error) {
		sent = req
		return &client.IpaymuPaymentResponse{SessionID: "sess-9", URL: "https://sandbox.ipaymu.com/payment/sess-9"}, nil
	}

	resp, err := svc.CreateIpaymu(context.Background(), checkoutRequest())

	require.NoError(t, err)
	assert.Equal(t, "sess-9", resp.SessionID)
	assert.Equal(t, "https://sandbox.ipaymu.com/payment/sess-9", resp.RedirectURL)

	require.NotNil(t, sent)
	assert.Equal(t, resp.OrderID, sent.ReferenceID)
	assert.Equal(t, "Budi Santoso Wijaya", sent.BuyerName)
	assert.Equal(t, "https://tokens.example.test/api/payments/ipaymu/notification", sent.NotifyURL)
	assert.Equal(t, "https://tokens.example.test/return", sent.ReturnURL)
	assert.Equal(t, []string{"50000", "2500", "-1000"}, sent.Price)
	assert.Equal(t, []string{"1", "1", "1"}, sent.Qty)

	txn, err := env.txnRepo.FindByOrderID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.GatewayIpaymu, txn.Gateway)
	assert.Equal(t, "sess-9", txn.GatewayToken)
}

func TestCreateIpaymu_EnforcesHigherMinimum(t *testing.T) {
	_, _, _, _, svc := newCheckoutFixture(t)

	req := checkoutRequest()
	req.ProductAmount = decimal.NewFromInt(5000)
	req.AdminFee = decimal.Zero
	req.DiscountAmount = decimal.Zero

	_, err := svc.CreateIpaymu(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Contains(t, err.Error(), "minimum")
}

func TestSplitName(t *testing.T) {
	first, last := splitName("  Siti  ")
	assert.Equal(t, "Siti", first)
	assert.Empty(t, last)

	first, last = splitName("Siti Nurhaliza")
	assert.Equal(t, "Siti", first)
	assert.Equal(t, "Nurhaliza", last)
}
