package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	StatusPending          TransactionStatus = "pending"
	StatusPaid             TransactionStatus = "paid"
	StatusCompletedVending TransactionStatus = "completed_vending"
	StatusFailedVending    TransactionStatus = "failed_vending"
	StatusCancelled        TransactionStatus = "cancelled"
)

// SettleableStatuses are the states from which a vend may be attempted.
var SettleableStatuses = []TransactionStatus{StatusPending, StatusPaid, StatusFailedVending}

func (s TransactionStatus) Settleable() bool {
	for _, st := range SettleableStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Gateway string

const (
	GatewayMidtrans Gateway = "midtrans"
	GatewayIpaymu   Gateway = "ipaymu"
)

// PendingTransaction is one checkout attempt. It is created before the buyer
// is redirected to the gateway and is never deleted.
type PendingTransaction struct {
	OrderID             string            `gorm:"primaryKey;size:64;not null" json:"orderId"`
	Status              TransactionStatus `gorm:"size:32;index;not null" json:"status"`
	Gateway             Gateway           `gorm:"size:16;not null" json:"gateway"`
	CustomerID          string            `gorm:"size:64;index;not null" json:"customerId"`
	ServiceIDForVending string            `gorm:"size:64;index;not null" json:"serviceIdForVending"`
	TokenType           string            `gorm:"size:32;index" json:"tokenType"`

	ProductAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"productAmount"`
	AdminFee       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"adminFee"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"taxAmount"`
	OtherCosts     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"otherCosts"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discountAmount"`
	TotalPayment   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"totalPayment"`

	BuyerName  string `gorm:"size:128" json:"buyerName"`
	BuyerEmail string `gorm:"size:128" json:"buyerEmail"`
	BuyerPhone string `gorm:"size:32" json:"buyerPhone"`

	GatewayToken    string         `gorm:"size:128" json:"gatewayToken,omitempty"`
	RedirectURL     string         `gorm:"size:512" json:"redirectUrl,omitempty"`
	GatewayResponse datatypes.JSON `json:"-"`

	VendingAttempts    int    `gorm:"not null;default:0" json:"vendingAttempts"`
	LastVendingError   string `gorm:"type:text" json:"lastVendingError,omitempty"`
	GeneratedTokenCode string `gorm:"size:128" json:"generatedTokenCode,omitempty"`

	PaidAt        *time.Time `json:"paidAt,omitempty"`
	VendClaimID   string     `gorm:"size:36" json:"-"`
	VendClaimedAt *time.Time `gorm:"index" json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TypeSummary aggregates completed sales for one token type.
type TypeSummary struct {
	TokenType    string          `json:"tokenType"`
	Count        int64           `json:"count"`
	NominalTotal decimal.Decimal `json:"nominalTotal"`
	PaymentTotal decimal.Decimal `json:"paymentTotal"`
}

// GrossAmount is what the buyer is charged for the given breakdown.
func GrossAmount(product, adminFee, tax, other, discount decimal.Decimal) decimal.Decimal {
	return product.Add(adminFee).Add(tax).Add(other).Sub(discount)
}
