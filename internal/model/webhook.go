package model

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookEventReceived     WebhookEventStatus = "received"
	WebhookEventHandled      WebhookEventStatus = "handled"
	WebhookEventHandleFailed WebhookEventStatus = "handle_failed"
)

type WebhookEvent struct {
	EventID     string             `gorm:"primaryKey;size:160;not null"`
	Gateway     Gateway            `gorm:"size:16;index;not null"`
	EventType   string             `gorm:"size:64;index"`
	OrderID     string             `gorm:"size:64;index"`
	Payload     datatypes.JSON
	Status      WebhookEventStatus `gorm:"size:32;not null"`
	Error       string             `gorm:"type:text"`
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// MidtransNotification is the HTTP notification body Midtrans posts after a
// status change.
type MidtransNotification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
}

// IpaymuNotification is the form-encoded callback iPaymu sends to notifyUrl.
type IpaymuNotification struct {
	TrxID       string `form:"trx_id" json:"trx_id"`
	SID         string `form:"sid" json:"sid"`
	ReferenceID string `form:"reference_id" json:"reference_id"`
	Status      string `form:"status" json:"status"`
	StatusCode  string `form:"status_code" json:"status_code"`
	Via         string `form:"via" json:"via"`
	Amount      string `form:"amount" json:"amount"`
}
