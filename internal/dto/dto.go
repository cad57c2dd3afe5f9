package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FlexibleAmount accepts both `50000` and `"50.000"` in request bodies.
// Text keeps what the caller typed; IsNumber reports a JSON number.
type FlexibleAmount struct {
	Text     string
	IsNumber bool
}

func (a *FlexibleAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = FlexibleAmount{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = FlexibleAmount{Text: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or a string: %w", err)
	}
	*a = FlexibleAmount{Text: n.String(), IsNumber: true}
	return nil
}

func (a FlexibleAmount) MarshalJSON() ([]byte, error) {
	if a.IsNumber {
		return []byte(a.Text), nil
	}
	return json.Marshal(a.Text)
}

type CheckoutRequest struct {
	CustomerID     string          `json:"customerId" validate:"required"`
	ServiceID      string          `json:"serviceId" validate:"required"`
	TokenType      string          `json:"tokenType" validate:"required"`
	BuyerName      string          `json:"buyerName" validate:"required"`
	BuyerEmail     string          `json:"buyerEmail" validate:"required,email"`
	BuyerPhone     string          `json:"buyerPhone" validate:"required"`
	ProductAmount  decimal.Decimal `json:"productAmount"`
	AdminFee       decimal.Decimal `json:"adminFee"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	OtherCosts     decimal.Decimal `json:"otherCosts"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	// TotalPayment is the gross the client displayed. When zero the server
	// computes it from the breakdown.
	TotalPayment decimal.Decimal `json:"totalPayment"`
	FinishURL    string          `json:"finishUrl" validate:"omitempty,url"`
}

type MidtransCheckoutResponse struct {
	OrderID     string          `json:"orderId"`
	Token       string          `json:"token"`
	RedirectURL string          `json:"redirectUrl"`
	Gross       decimal.Decimal `json:"grossAmount"`
}

type IpaymuCheckoutResponse struct {
	OrderID     string          `json:"orderId"`
	SessionID   string          `json:"sessionId"`
	RedirectURL string          `json:"redirectUrl"`
	Gross       decimal.Decimal `json:"grossAmount"`
}

type SettlementRequest struct {
	OrderID string `json:"orderId"`
}

type SettlementResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type VendRequest struct {
	MeterID string         `json:"meterId"`
	Amount  FlexibleAmount `json:"amount"`
}

type VendResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type TokenSettingsRequest struct {
	Settings []*TokenSettingItem `json:"settings" validate:"required,min=1,dive"`
}

type TokenSettingItem struct {
	TokenType string          `json:"tokenType" validate:"required"`
	Area      string          `json:"area" validate:"required"`
	Project   string          `json:"project" validate:"required"`
	Vendor    string          `json:"vendor" validate:"required"`
	BasePrice decimal.Decimal `json:"basePrice"`
	UnitLabel string          `json:"unitLabel"`
}

type CustomerRequest struct {
	ID       string                    `json:"id" validate:"required"`
	Name     string                    `json:"name" validate:"required"`
	Email    string                    `json:"email" validate:"omitempty,email"`
	Phone    string                    `json:"phone"`
	Role     string                    `json:"role" validate:"omitempty,oneof=admin teknisi vendor customer"`
	Services []*CustomerServiceRequest `json:"services" validate:"dive"`
}

type CustomerServiceRequest struct {
	ServiceID string `json:"serviceId" validate:"required"`
	TokenType string `json:"tokenType" validate:"required"`
	Area      string `json:"area"`
	Project   string `json:"project"`
	Vendor    string `json:"vendor"`
}

type SummaryReport struct {
	From          string             `json:"from"`
	To            string             `json:"to"`
	ByType        []*TypeSummaryItem `json:"byType"`
	TotalCount    int64              `json:"totalCount"`
	TotalNominal  decimal.Decimal    `json:"totalNominal"`
	TotalPayment  decimal.Decimal    `json:"totalPayment"`
	FailedVending int64              `json:"failedVending"`
}

type TypeSummaryItem struct {
	TokenType    string          `json:"tokenType"`
	Count        int64           `json:"count"`
	NominalTotal decimal.Decimal `json:"nominalTotal"`
	PaymentTotal decimal.Decimal `json:"paymentTotal"`
}
