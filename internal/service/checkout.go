package service

import (
	"context"
	"strings"
	"time"

	"token-vending-service/internal/client"
	"token-vending-service/internal/config"
	"token-vending-service/internal/dto"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	providerMidtrans = "midtrans"
	providerIpaymu   = "ipaymu"
)

var (
	midtransMinimum = decimal.NewFromInt(1000)
	ipaymuMinimum   = decimal.NewFromInt(10000)
)

// CheckoutService is the payment initiator: it persists a pending
// transaction and asks a gateway for a hosted payment page.
type CheckoutService interface {
	CreateMidtrans(ctx context.Context, req *dto.CheckoutRequest) (*dto.MidtransCheckoutResponse, error)
	CreateIpaymu(ctx context.Context, req *dto.CheckoutRequest) (*dto.IpaymuCheckoutResponse, error)
}

type checkoutServiceImpl struct {
	txnRepo  repository.TransactionRepository
	midtrans client.MidtransClient
	ipaymu   client.IpaymuClient
	cfg      *config.Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewCheckoutService(
	txnRepo repository.TransactionRepository,
	midtrans client.MidtransClient,
	ipaymu client.IpaymuClient,
	cfg *config.Config,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		txnRepo:  txnRepo,
		midtrans: midtrans,
		ipaymu:   ipaymu,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

type lineItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// lineItems breaks the purchase into gateway item lines. Zero lines are
// omitted and the discount is a negative line.
func lineItems(req *dto.CheckoutRequest) []lineItem {
	candidates := []lineItem{
		{ID: req.ServiceID, Name: "Token " + req.TokenType, Price: req.ProductAmount},
		{ID: "admin-fee", Name: "Biaya Admin", Price: req.AdminFee},
		{ID: "tax", Name: "Pajak", Price: req.TaxAmount},
		{ID: "other-costs", Name: "Biaya Lain", Price: req.OtherCosts},
		{ID: "discount", Name: "Diskon", Price: req.DiscountAmount.Neg()},
	}

	items := make([]lineItem, 0, len(candidates))
	for _, item := range candidates {
		if item.Price.IsZero() {
			continue
		}
		items = append(items, item)
	}
	return items
}

func sumItems(items []lineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

func validateCheckout(req *dto.CheckoutRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if !req.ProductAmount.IsPositive() {
		return badRequest("productAmount must be greater than zero")
	}
	fees := map[string]decimal.Decimal{
		"adminFee":       req.AdminFee,
		"taxAmount":      req.TaxAmount,
		"otherCosts":     req.OtherCosts,
		"discountAmount": req.DiscountAmount,
		"totalPayment":   req.TotalPayment,
	}
	for name, v := range fees {
		if v.IsNegative() {
			return badRequest("%s must not be negative", name)
		}
	}
	return nil
}

// prepare validates the request, reconciles the item lines against the gross
// and stores the pending transaction.
func (s *checkoutServiceImpl) prepare(ctx context.Context, req *dto.CheckoutRequest, gateway model.Gateway, minimum decimal.Decimal) (*model.PendingTransaction, []lineItem, error) {
	if err := validateCheckout(req); err != nil {
		return nil, nil, err
	}

	items := lineItems(req)
	computed := model.GrossAmount(req.ProductAmount, req.AdminFee, req.TaxAmount, req.OtherCosts, req.DiscountAmount)
	gross := computed
	if req.TotalPayment.IsPositive() {
		gross = req.TotalPayment
	}

	if itemSum := sumItems(items); !itemSum.Equal(gross) {
		s.logger.Warn("item lines do not add up to the gross amount",
			zap.String("gateway", string(gateway)),
			zap.String("customer_id", req.CustomerID),
			zap.String("item_sum", itemSum.String()),
			zap.String("gross", gross.String()),
		)
	}

	if gross.LessThan(minimum) {
		return nil, nil, badRequest("minimum payment for %s is Rp %s", gateway, minimum.String())
	}

	txn := &model.PendingTransaction{
		OrderID:             s.newOrderID(),
		Status:              model.StatusPending,
		Gateway:             gateway,
		CustomerID:          req.CustomerID,
		ServiceIDForVending: req.ServiceID,
		TokenType:           req.TokenType,
		ProductAmount:       req.ProductAmount,
		AdminFee:            req.AdminFee,
		TaxAmount:           req.TaxAmount,
		OtherCosts:          req.OtherCosts,
		DiscountAmount:      req.DiscountAmount,
		TotalPayment:        gross,
		BuyerName:           strings.TrimSpace(req.BuyerName),
		BuyerEmail:          req.BuyerEmail,
		BuyerPhone:          req.BuyerPhone,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, nil, internalError("create pending transaction", err)
	}

	return txn, items, nil
}

func (s *checkoutServiceImpl) newOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "TKN-" + s.now().Format("20060102150405") + "-" + suffix
}

func (s *checkoutServiceImpl) CreateMidtrans(ctx context.Context, req *dto.CheckoutRequest) (*dto.MidtransCheckoutResponse, error) {
	txn, items, err := s.prepare(ctx, req, model.GatewayMidtrans, midtransMinimum)
	if err != nil {
		return nil, err
	}

	first, last := splitName(txn.BuyerName)
	snapReq := &client.SnapRequest{
		TransactionDetails: client.SnapTransactionDetails{
			OrderID:     txn.OrderID,
			GrossAmount: txn.TotalPayment.Round(0).IntPart(),
		},
		CustomerDetails: client.SnapCustomer{
			FirstName: first,
			LastName:  last,
			Email:     txn.BuyerEmail,
			Phone:     txn.BuyerPhone,
		},
	}
	for _, item := range items {
		snapReq.ItemDetails = append(snapReq.ItemDetails, client.SnapItem{
			ID:       item.ID,
			Price:    item.Price.Round(0).IntPart(),
			Quantity: 1,
			Name:     item.Name,
		})
	}

	finish := req.FinishURL
	if finish == "" {
		finish = s.cfg.Midtrans.FinishURL
	}
	if finish != "" {
		snapReq.Callbacks = &client.SnapCallbacks{Finish: finish}
	}

	snapResp, err := s.midtrans.CreateSnapTransaction(ctx, snapReq)
	if err != nil {
		s.logger.Error("midtrans snap transaction failed", zap.String("order_id", txn.OrderID), zap.Error(err))
		return nil, upstreamError(providerMidtrans, err)
	}

	s.saveGatewayResult(ctx, txn.OrderID, snapResp.Token, snapResp.RedirectURL, snapResp.Raw)

	return &dto.MidtransCheckoutResponse{
		OrderID:     txn.OrderID,
		Token:       snapResp.Token,
		RedirectURL: snapResp.RedirectURL,
		Gross:       txn.TotalPayment,
	}, nil
}

func (s *checkoutServiceImpl) CreateIpaymu(ctx context.Context, req *dto.CheckoutRequest) (*dto.IpaymuCheckoutResponse, error) {
	txn, items, err := s.prepare(ctx, req, model.GatewayIpaymu, ipaymuMinimum)
	if err != nil {
		return nil, err
	}

	payReq := &client.IpaymuPaymentRequest{
		ReturnURL:   s.cfg.Ipaymu.ReturnURL,
		CancelURL:   s.cfg.Ipaymu.CancelURL,
		NotifyURL:   strings.TrimRight(s.cfg.BaseURL, "/") + "/api/payments/ipaymu/notification",
		ReferenceID: txn.OrderID,
		BuyerName:   txn.BuyerName,
		BuyerEmail:  txn.BuyerEmail,
		BuyerPhone:  txn.BuyerPhone,
	}
	if req.FinishURL != "" {
		payReq.ReturnURL = req.FinishURL
	}
	for _, item := range items {
		payReq.Product = append(payReq.Product, item.Name)
		payReq.Qty = append(payReq.Qty, "1")
		payReq.Price = append(payReq.Price, item.Price.Round(0).String())
	}

	payResp, err := s.ipaymu.CreateRedirectPayment(ctx, payReq)
	if err != nil {
		s.logger.Error("ipaymu redirect payment failed", zap.String("order_id", txn.OrderID), zap.Error(err))
		return nil, upstreamError(providerIpaymu, err)
	}

	s.saveGatewayResult(ctx, txn.OrderID, payResp.SessionID, payResp.URL, payResp.Raw)

	return &dto.IpaymuCheckoutResponse{
		OrderID:     txn.OrderID,
		SessionID:   payResp.SessionID,
		RedirectURL: payResp.URL,
		Gross:       txn.TotalPayment,
	}, nil
}

// saveGatewayResult is best effort: the buyer already has a payment page and
// settlement only needs the order id.
func (s *checkoutServiceImpl) saveGatewayResult(ctx context.Context, orderID, token, redirectURL string, raw []byte) {
	if err := s.txnRepo.SaveGatewayResult(ctx, orderID, token, redirectURL, raw); err != nil {
		s.logger.Warn("gateway result not saved", zap.String("order_id", orderID), zap.Error(err))
	}
}

// splitName splits on the first space. Single-word names have no last name.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
