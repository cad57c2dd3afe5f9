package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"token-vending-service/internal/dto"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SettlementService turns a paid transaction into a vended token.
type SettlementService interface {
	// Settle returns Success=false with a nil error when the payment is
	// confirmed but vending failed. Callers must inspect the result.
	Settle(ctx context.Context, orderID string) (*dto.SettlementResponse, error)
}

type settlementServiceImpl struct {
	txnRepo    repository.TransactionRepository
	tokenRepo  repository.TokenRepository
	vending    VendingService
	pricing    PricingService
	staleClaim time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewSettlementService(
	txnRepo repository.TransactionRepository,
	tokenRepo repository.TokenRepository,
	vending VendingService,
	pricing PricingService,
	staleClaim time.Duration,
	logger *zap.Logger,
) SettlementService {
	return &settlementServiceImpl{
		txnRepo:    txnRepo,
		tokenRepo:  tokenRepo,
		vending:    vending,
		pricing:    pricing,
		staleClaim: staleClaim,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *settlementServiceImpl) Settle(ctx context.Context, orderID string) (*dto.SettlementResponse, error) {
	// once started a settlement runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, badRequest("orderId is required")
	}
	log := s.logger.With(zap.String("order_id", orderID))

	txn, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if vended(txn) {
		log.Info("transaction already vended")
		return &dto.SettlementResponse{Success: true, Token: txn.GeneratedTokenCode}, nil
	}
	if !txn.Status.Settleable() {
		return nil, conflict("transaction %s is %s and cannot be settled", orderID, txn.Status)
	}

	claimID := uuid.NewString()
	now := s.now()
	claimed, err := s.txnRepo.ClaimForVending(ctx, orderID, claimID, now, now.Add(-s.staleClaim))
	if err != nil {
		return nil, internalError("claim transaction for vending", err)
	}
	if !claimed {
		return s.lostClaim(ctx, orderID)
	}
	log = log.With(zap.String("claim_id", claimID), zap.Int("attempt", txn.VendingAttempts+1))
	log.Info("transaction claimed for vending")

	receipt, vendErr := s.vending.VendMeter(ctx, txn.ServiceIDForVending, txn.ProductAmount)
	if vendErr != nil {
		msg := errorMessage(vendErr)
		log.Warn("vending failed", zap.Error(vendErr))

		released, err := s.txnRepo.MarkVendFailed(ctx, orderID, claimID, msg)
		if err != nil {
			return nil, internalError("record vending failure", err)
		}
		if !released {
			log.Warn("vending claim expired before the failure was recorded")
		}
		return &dto.SettlementResponse{
			Success: false,
			Message: "payment received but token vending failed: " + msg,
		}, nil
	}

	released, err := s.txnRepo.MarkVended(ctx, orderID, claimID, receipt.Token)
	if err != nil {
		// the token exists at the provider; keep it in the log so it can be recovered
		log.Error("vended token could not be saved", zap.String("token", receipt.Token), zap.Error(err))
		return nil, internalError("record vended token", err)
	}
	if !released {
		log.Warn("vending claim expired before the token was recorded", zap.String("token", receipt.Token))
	}

	s.recordToken(ctx, txn, receipt)
	log.Info("settlement completed")

	return &dto.SettlementResponse{Success: true, Token: receipt.Token}, nil
}

func (s *settlementServiceImpl) load(ctx context.Context, orderID string) (*model.PendingTransaction, error) {
	txn, err := s.txnRepo.FindByOrderID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("transaction %s not found", orderID)
	}
	if err != nil {
		return nil, internalError("load transaction", err)
	}
	return txn, nil
}

// lostClaim explains why another caller won the claim.
func (s *settlementServiceImpl) lostClaim(ctx context.Context, orderID string) (*dto.SettlementResponse, error) {
	txn, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if vended(txn) {
		return &dto.SettlementResponse{Success: true, Token: txn.GeneratedTokenCode}, nil
	}
	if !txn.Status.Settleable() {
		return nil, conflict("transaction %s is %s and cannot be settled", orderID, txn.Status)
	}
	return nil, conflict("settlement for %s is already in progress", orderID)
}

// recordToken writes the GeneratedToken row. Failures are logged only: the
// transaction already carries the token code.
func (s *settlementServiceImpl) recordToken(ctx context.Context, txn *model.PendingTransaction, receipt *VendReceipt) {
	log := s.logger.With(zap.String("order_id", txn.OrderID))

	token := &model.GeneratedToken{
		ID:                 uuid.NewString(),
		OrderID:            txn.OrderID,
		CustomerID:         txn.CustomerID,
		ServiceID:          txn.ServiceIDForVending,
		Type:               txn.TokenType,
		Amount:             txn.ProductAmount,
		GeneratedTokenCode: receipt.Token,
		AdminFee:           txn.AdminFee,
		TaxAmount:          txn.TaxAmount,
		OtherCosts:         txn.OtherCosts,
		DiscountAmount:     txn.DiscountAmount,
		ActualTotalPayment: txn.TotalPayment,
		ProviderResponse:   []byte(receipt.Raw),
	}

	unit, err := s.pricing.UnitValue(ctx, txn.ServiceIDForVending, txn.ProductAmount)
	if err != nil {
		log.Warn("unit value unavailable", zap.Error(err))
	} else {
		token.UnitValue = &unit.Value
		token.UnitLabel = unit.Label
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		log.Error("generated token record not saved", zap.Error(err))
	}
}

func vended(txn *model.PendingTransaction) bool {
	return txn.Status == model.StatusCompletedVending && txn.GeneratedTokenCode != ""
}

func errorMessage(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}
