package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

type ReceiptService interface {
	Render(ctx context.Context, orderID string) (string, error)
}

type receiptServiceImpl struct {
	tokenRepo repository.TokenRepository
	txnRepo   repository.TransactionRepository
	settings  SettingService
	logger    *zap.Logger
}

func NewReceiptService(
	tokenRepo repository.TokenRepository,
	txnRepo repository.TransactionRepository,
	settings SettingService,
	logger *zap.Logger,
) ReceiptService {
	return &receiptServiceImpl{
		tokenRepo: tokenRepo,
		txnRepo:   txnRepo,
		settings:  settings,
		logger:    logger,
	}
}

func (s *receiptServiceImpl) Render(ctx context.Context, orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", badRequest("orderId is required")
	}

	token, err := s.tokenRepo.FindByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", internalError("load generated token", err)
	}
	if token == nil {
		token, err = s.tokenFromTransaction(ctx, orderID)
		if err != nil {
			return "", err
		}
	}

	tpl, err := s.settings.ReceiptTemplate(ctx)
	if err != nil {
		return "", err
	}

	html, err := RenderReceipt(token, tpl)
	if err != nil {
		return "", internalError("render receipt", err)
	}
	return html, nil
}

// tokenFromTransaction covers vends whose GeneratedToken row was not saved.
func (s *receiptServiceImpl) tokenFromTransaction(ctx context.Context, orderID string) (*model.GeneratedToken, error) {
	txn, err := s.txnRepo.FindByOrderID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("transaction %s not found", orderID)
	}
	if err != nil {
		return nil, internalError("load transaction", err)
	}
	if !vended(txn) {
		return nil, conflict("transaction %s has no vended token yet (status %s)", orderID, txn.Status)
	}

	s.logger.Warn("receipt rendered from transaction, generated token record missing", zap.String("order_id", orderID))
	return &model.GeneratedToken{
		OrderID:            txn.OrderID,
		CustomerID:         txn.CustomerID,
		ServiceID:          txn.ServiceIDForVending,
		Type:               txn.TokenType,
		Amount:             txn.ProductAmount,
		GeneratedTokenCode: txn.GeneratedTokenCode,
		AdminFee:           txn.AdminFee,
		TaxAmount:          txn.TaxAmount,
		OtherCosts:         txn.OtherCosts,
		DiscountAmount:     txn.DiscountAmount,
		ActualTotalPayment: txn.TotalPayment,
		CreatedAt:          txn.UpdatedAt,
	}, nil
}

var idPrinter = message.NewPrinter(language.Indonesian)

var jakarta = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}()

// FormatRupiah renders whole rupiah with Indonesian grouping, e.g. "Rp 50.000".
func FormatRupiah(amount decimal.Decimal) string {
	rounded := amount.Round(0).IntPart()
	if rounded < 0 {
		return "-Rp " + idPrinter.Sprintf("%d", -rounded)
	}
	return "Rp " + idPrinter.Sprintf("%d", rounded)
}

// formatTokenCode groups all-digit token codes in fours for keypad entry.
func formatTokenCode(code string) string {
	for _, r := range code {
		if r < '0' || r > '9' {
			return code
		}
	}
	var groups []string
	for len(code) > 4 {
		groups = append(groups, code[:4])
		code = code[4:]
	}
	groups = append(groups, code)
	return strings.Join(groups, " ")
}

type receiptLine struct {
	Label string
	Value string
}

type receiptView struct {
	Settings  model.ReceiptTemplateSettings
	OrderID   string
	ServiceID string
	Type      string
	Date      string
	Token     string
	Lines     []receiptLine
	Total     string
	UnitValue string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>Struk {{.OrderID}}</title>
<style>
body { font-family: monospace; width: 58mm; margin: 0 auto; font-size: 12px; }
h1 { font-size: 14px; text-align: center; margin: 4px 0; }
.center { text-align: center; }
table { width: 100%; border-collapse: collapse; }
td.value { text-align: right; }
.token { font-size: 16px; font-weight: bold; text-align: center; margin: 8px 0; letter-spacing: 1px; }
hr { border: 0; border-top: 1px dashed #000; }
</style>
</head>
<body>
<h1>{{.Settings.CompanyName}}</h1>
{{- if .Settings.CompanyAddress}}
<div class="center">{{.Settings.CompanyAddress}}</div>
{{- end}}
{{- if .Settings.HeaderNote}}
<div class="center">{{.Settings.HeaderNote}}</div>
{{- end}}
<hr>
<table>
<tr><td>No. Order</td><td class="value">{{.OrderID}}</td></tr>
<tr><td>ID Meter</td><td class="value">{{.ServiceID}}</td></tr>
<tr><td>Jenis</td><td class="value">{{.Type}}</td></tr>
<tr><td>Tanggal</td><td class="value">{{.Date}}</td></tr>
</table>
<hr>
<table>
{{- range .Lines}}
<tr><td>{{.Label}}</td><td class="value">{{.Value}}</td></tr>
{{- end}}
<tr><td><strong>Total Bayar</strong></td><td class="value"><strong>{{.Total}}</strong></td></tr>
{{- if .UnitValue}}
<tr><td>Jumlah Unit</td><td class="value">{{.UnitValue}}</td></tr>
{{- end}}
</table>
<hr>
<div class="center">TOKEN</div>
<div class="token">{{.Token}}</div>
<hr>
{{- if .Settings.FooterNote}}
<div class="center">{{.Settings.FooterNote}}</div>
{{- end}}
</body>
</html>
`))

// RenderReceipt formats a vended token as printable HTML. Optional lines
// appear only when enabled in settings and non-zero.
func RenderReceipt(token *model.GeneratedToken, settings model.ReceiptTemplateSettings) (string, error) {
	view := receiptView{
		Settings:  settings,
		OrderID:   token.OrderID,
		ServiceID: token.ServiceID,
		Type:      token.Type,
		Date:      token.CreatedAt.In(jakarta).Format("02/01/2006 15:04") + " WIB",
		Token:     formatTokenCode(token.GeneratedTokenCode),
		Total:     FormatRupiah(token.ActualTotalPayment),
	}

	view.Lines = append(view.Lines, receiptLine{Label: "Nominal", Value: FormatRupiah(token.Amount)})
	optional := []struct {
		show   bool
		label  string
		amount decimal.Decimal
		neg    bool
	}{
		{settings.ShowAdminFee, "Biaya Admin", token.AdminFee, false},
		{settings.ShowTax, "Pajak", token.TaxAmount, false},
		{settings.ShowOtherCosts, "Biaya Lain", token.OtherCosts, false},
		{settings.ShowDiscount, "Diskon", token.DiscountAmount, true},
	}
	for _, line := range optional {
		if !line.show || line.amount.IsZero() {
			continue
		}
		amount := line.amount
		if line.neg {
			amount = amount.Neg()
		}
		view.Lines = append(view.Lines, receiptLine{Label: line.label, Value: FormatRupiah(amount)})
	}

	if settings.ShowUnitValue && token.UnitValue != nil && !token.UnitValue.IsZero() {
		f, _ := token.UnitValue.Float64()
		view.UnitValue = strings.TrimSpace(idPrinter.Sprintf("%.2f", f) + " " + token.UnitLabel)
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute receipt template: %w", err)
	}
	return buf.String(), nil
}
