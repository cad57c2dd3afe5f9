package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"token-vending-service/internal/client"
	"token-vending-service/internal/dto"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const providerStronpower = "stronpower"

type VendReceipt struct {
	Token string
	// Raw is the provider's vend record, kept with the generated token.
	Raw json.RawMessage
}

type VendingService interface {
	// Vend serves the vending endpoint: it normalizes a user-typed amount.
	Vend(ctx context.Context, req *dto.VendRequest) (*VendReceipt, error)
	// VendMeter is used by settlement with an amount that is already numeric.
	VendMeter(ctx context.Context, meterID string, amount decimal.Decimal) (*VendReceipt, error)
}

type vendingServiceImpl struct {
	stronpower client.StronpowerClient
	settings   SettingService
	logger     *zap.Logger
}

func NewVendingService(stronpower client.StronpowerClient, settings SettingService, logger *zap.Logger) VendingService {
	return &vendingServiceImpl{
		stronpower: stronpower,
		settings:   settings,
		logger:     logger,
	}
}

func (s *vendingServiceImpl) Vend(ctx context.Context, req *dto.VendRequest) (*VendReceipt, error) {
	amount, err := requestAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	return s.VendMeter(ctx, req.MeterID, amount)
}

// requestAmount uses JSON numbers as they are and strips thousands
// separators from strings.
func requestAmount(a dto.FlexibleAmount) (decimal.Decimal, error) {
	if !a.IsNumber {
		return NormalizeAmount(a.Text)
	}
	amount, err := decimal.NewFromString(a.Text)
	if err != nil {
		return decimal.Zero, badRequest("amount %q is not a number", a.Text)
	}
	return amount, nil
}

func (s *vendingServiceImpl) VendMeter(ctx context.Context, meterID string, amount decimal.Decimal) (*VendReceipt, error) {
	meterID = strings.TrimSpace(meterID)
	if meterID == "" {
		return nil, badRequest("meterId is required")
	}
	if !amount.IsPositive() {
		return nil, badRequest("amount must be greater than zero")
	}

	creds, err := s.settings.VendingCredentials(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.stronpower.VendingMeter(ctx, creds, meterID, amount)
	if err != nil {
		s.logger.Error("stronpower unreachable", zap.String("meter_id", meterID), zap.Error(err))
		return nil, upstreamError(providerStronpower, err)
	}

	log := s.logger.With(
		zap.String("meter_id", meterID),
		zap.String("amount", amount.String()),
		zap.Stringer("outcome", result.Outcome),
		zap.Int("status", result.StatusCode),
	)

	switch result.Outcome {
	case client.VendOK:
		log.Info("token vended")
		return &VendReceipt{Token: result.Token, Raw: result.Raw}, nil

	case client.VendEmptyToken:
		log.Warn("stronpower returned an empty token")
		return nil, &ServiceError{
			StatusCode: http.StatusBadGateway,
			Message:    "stronpower returned an empty token",
		}

	case client.VendMalformed:
		log.Error("stronpower response could not be parsed", zap.String("reason", result.Message), zap.String("preview", result.Preview))
		return nil, parseError(providerStronpower, result.Message, result.Preview)

	case client.VendProviderError:
		log.Warn("stronpower rejected the vend", zap.String("message", result.Message))
		return nil, &ServiceError{StatusCode: result.StatusCode, Message: result.Message}

	default:
		return nil, internalError("vend failed", fmt.Errorf("unknown vend outcome %d", result.Outcome))
	}
}
