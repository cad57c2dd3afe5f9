package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"token-vending-service/internal/client"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationService handles payment status callbacks from the gateways.
// Once a notification is authenticated it is acknowledged even when
// handling fails; failures are kept on the webhook event for an operator.
type NotificationService interface {
	HandleMidtrans(ctx context.Context, body []byte) error
	HandleIpaymu(ctx context.Context, notif *model.IpaymuNotification) error
}

type notificationServiceImpl struct {
	txnRepo     repository.TransactionRepository
	webhookRepo repository.WebhookEventRepository
	settlement  SettlementService
	midtrans    client.MidtransClient
	ipaymu      client.IpaymuClient
	logger      *zap.Logger
}

func NewNotificationService(
	txnRepo repository.TransactionRepository,
	webhookRepo repository.WebhookEventRepository,
	settlement SettlementService,
	midtrans client.MidtransClient,
	ipaymu client.IpaymuClient,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		txnRepo:     txnRepo,
		webhookRepo: webhookRepo,
		settlement:  settlement,
		midtrans:    midtrans,
		ipaymu:      ipaymu,
		logger:      logger,
	}
}

// MidtransSignature is sha512(order_id + status_code + gross_amount + server_key) in hex.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func (s *notificationServiceImpl) HandleMidtrans(ctx context.Context, body []byte) error {
	var notif model.MidtransNotification
	if err := json.Unmarshal(body, &notif); err != nil {
		return badRequest("invalid notification body")
	}
	if notif.OrderID == "" || notif.SignatureKey == "" {
		return badRequest("order_id and signature_key are required")
	}

	expected := MidtransSignature(notif.OrderID, notif.StatusCode, notif.GrossAmount, s.midtrans.ServerKey())
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(notif.SignatureKey))) != 1 {
		s.logger.Warn("midtrans notification signature mismatch", zap.String("order_id", notif.OrderID))
		return unauthorized("invalid signature")
	}

	eventID := fmt.Sprintf("midtrans:%s:%s", notif.TransactionID, notif.TransactionStatus)
	event := &model.WebhookEvent{
		EventID:   eventID,
		Gateway:   model.GatewayMidtrans,
		EventType: notif.TransactionStatus,
		OrderID:   notif.OrderID,
		Payload:   body,
	}

	return s.process(ctx, event, func(ctx context.Context) error {
		switch notif.TransactionStatus {
		case "settlement":
			return s.settle(ctx, notif.OrderID)
		case "capture":
			if notif.FraudStatus != "" && notif.FraudStatus != "accept" {
				s.logger.Warn("midtrans capture held by fraud check",
					zap.String("order_id", notif.OrderID), zap.String("fraud_status", notif.FraudStatus))
				return nil
			}
			return s.settle(ctx, notif.OrderID)
		case "deny", "cancel", "expire", "failure":
			return s.cancel(ctx, notif.OrderID)
		default:
			return nil
		}
	})
}

func (s *notificationServiceImpl) HandleIpaymu(ctx context.Context, notif *model.IpaymuNotification) error {
	if notif.ReferenceID == "" || notif.TrxID == "" {
		return badRequest("reference_id and trx_id are required")
	}

	// iPaymu callbacks are unsigned; state changes are confirmed first
	if notif.StatusCode == "1" || notif.StatusCode == "-2" {
		if err := s.verifyIpaymu(ctx, notif); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(notif)
	if err != nil {
		return internalError("encode notification", err)
	}

	event := &model.WebhookEvent{
		EventID:   fmt.Sprintf("ipaymu:%s:%s", notif.TrxID, notif.StatusCode),
		Gateway:   model.GatewayIpaymu,
		EventType: notif.Status,
		OrderID:   notif.ReferenceID,
		Payload:   payload,
	}

	return s.process(ctx, event, func(ctx context.Context) error {
		switch notif.StatusCode {
		case "1":
			return s.settle(ctx, notif.ReferenceID)
		case "-2":
			return s.cancel(ctx, notif.ReferenceID)
		default:
			return nil
		}
	})
}

// verifyIpaymu matches the callback against the stored iPaymu session and
// then against iPaymu's own view of the transaction.
func (s *notificationServiceImpl) verifyIpaymu(ctx context.Context, notif *model.IpaymuNotification) error {
	log := s.logger.With(zap.String("order_id", notif.ReferenceID), zap.String("trx_id", notif.TrxID))

	txn, err := s.txnRepo.FindByOrderID(ctx, notif.ReferenceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("ipaymu notification for unknown order")
		return unauthorized("notification does not match a transaction")
	}
	if err != nil {
		return internalError("find transaction", err)
	}

	if txn.Gateway != model.GatewayIpaymu || txn.GatewayToken == "" || notif.SID != txn.GatewayToken {
		log.Warn("ipaymu notification session mismatch", zap.String("gateway", string(txn.Gateway)))
		return unauthorized("notification does not match a transaction")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(notif.Amount))
	if err != nil || !amount.Equal(txn.TotalPayment) {
		log.Warn("ipaymu notification amount mismatch",
			zap.String("amount", notif.Amount), zap.String("expected", txn.TotalPayment.String()))
		return unauthorized("notification does not match a transaction")
	}

	confirmed, err := s.ipaymu.CheckTransaction(ctx, notif.TrxID)
	if err != nil {
		log.Error("ipaymu transaction check failed", zap.Error(err))
		return upstreamError("ipaymu", err)
	}
	if confirmed.ReferenceID != notif.ReferenceID || strconv.Itoa(confirmed.Status) != notif.StatusCode {
		log.Warn("ipaymu did not confirm notification",
			zap.String("reference_id", confirmed.ReferenceID), zap.Int("status", confirmed.Status))
		return unauthorized("notification not confirmed by gateway")
	}
	return nil
}

// process records the event once and runs handle for first deliveries only.
func (s *notificationServiceImpl) process(ctx context.Context, event *model.WebhookEvent, handle func(context.Context) error) error {
	log := s.logger.With(
		zap.String("event_id", event.EventID),
		zap.String("order_id", event.OrderID),
		zap.String("event_type", event.EventType),
	)

	created, err := s.webhookRepo.Record(ctx, event)
	if err != nil {
		return internalError("record webhook event", err)
	}
	if !created {
		log.Info("duplicate notification ignored")
		return nil
	}

	status := model.WebhookEventHandled
	errMsg := ""
	if err := handle(ctx); err != nil {
		status = model.WebhookEventHandleFailed
		errMsg = err.Error()
		log.Error("notification handling failed", zap.Error(err))
	}

	if err := s.webhookRepo.MarkProcessed(ctx, event.EventID, status, errMsg); err != nil {
		log.Error("webhook event status not saved", zap.Error(err))
	}
	return nil
}

func (s *notificationServiceImpl) settle(ctx context.Context, orderID string) error {
	result, err := s.settlement.Settle(ctx, orderID)
	if err != nil {
		return err
	}
	if !result.Success {
		return errors.New(result.Message)
	}
	return nil
}

func (s *notificationServiceImpl) cancel(ctx context.Context, orderID string) error {
	cancelled, err := s.txnRepo.MarkCancelled(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel %s: %w", orderID, err)
	}
	if !cancelled {
		s.logger.Info("transaction not pending, cancel ignored", zap.String("order_id", orderID))
	}
	return nil
}
