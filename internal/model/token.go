package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GeneratedToken is the durable record of a vended token. Written once.
type GeneratedToken struct {
	ID                 string          `gorm:"primaryKey;size:36;not null" json:"id"`
	OrderID            string          `gorm:"size:64;uniqueIndex;not null" json:"orderId"`
	CustomerID         string          `gorm:"size:64;index;not null" json:"customerId"`
	ServiceID          string          `gorm:"size:64;index;not null" json:"serviceId"`
	Type               string          `gorm:"size:32;index" json:"type"`
	Amount             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	GeneratedTokenCode string          `gorm:"size:128;not null" json:"generatedTokenCode"`

	AdminFee           decimal.Decimal  `gorm:"type:decimal(15,2);not null;default:0" json:"adminFee"`
	TaxAmount          decimal.Decimal  `gorm:"type:decimal(15,2);not null;default:0" json:"taxAmount"`
	OtherCosts         decimal.Decimal  `gorm:"type:decimal(15,2);not null;default:0" json:"otherCosts"`
	DiscountAmount     decimal.Decimal  `gorm:"type:decimal(15,2);not null;default:0" json:"discountAmount"`
	ActualTotalPayment decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"actualTotalPayment"`
	UnitValue          *decimal.Decimal `gorm:"type:decimal(15,2)" json:"unitValue,omitempty"`
	UnitLabel          string           `gorm:"size:16" json:"unitLabel,omitempty"`

	ProviderResponse datatypes.JSON `json:"-"`
	CreatedAt        time.Time      `json:"createdAt"`
}
