package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	SettingKeyVendingStronpower = "vending.stronpower"
	SettingKeyReceiptTemplate   = "receipt.template"
)

// AppSetting is an operator-editable configuration document.
type AppSetting struct {
	Key       string         `gorm:"primaryKey;size:64;not null"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

type StronpowerCredentials struct {
	ApiURL      string `json:"api_url" validate:"required,url"`
	CompanyName string `json:"company_name" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

func (c *StronpowerCredentials) Complete() bool {
	return c != nil && c.ApiURL != "" && c.CompanyName != "" && c.Username != "" && c.Password != ""
}

type ReceiptTemplateSettings struct {
	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
	HeaderNote     string `json:"header_note"`
	FooterNote     string `json:"footer_note"`
	ShowAdminFee   bool   `json:"show_admin_fee"`
	ShowTax        bool   `json:"show_tax"`
	ShowOtherCosts bool   `json:"show_other_costs"`
	ShowDiscount   bool   `json:"show_discount"`
	ShowUnitValue  bool   `json:"show_unit_value"`
}

func DefaultReceiptTemplate() ReceiptTemplateSettings {
	return ReceiptTemplateSettings{
		CompanyName:    "Token Listrik & Air",
		FooterNote:     "Simpan struk ini sebagai bukti pembelian yang sah.",
		ShowAdminFee:   true,
		ShowTax:        true,
		ShowOtherCosts: true,
		ShowDiscount:   true,
		ShowUnitValue:  true,
	}
}

// TokenSetting is one leaf of the price table.
type TokenSetting struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	TokenType string          `gorm:"size:32;not null;uniqueIndex:idx_token_setting_tier" json:"tokenType" validate:"required"`
	Area      string          `gorm:"size:64;not null;uniqueIndex:idx_token_setting_tier" json:"area" validate:"required"`
	Project   string          `gorm:"size:64;not null;uniqueIndex:idx_token_setting_tier" json:"project" validate:"required"`
	Vendor    string          `gorm:"size:64;not null;uniqueIndex:idx_token_setting_tier" json:"vendor" validate:"required"`
	BasePrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"basePrice"`
	UnitLabel string          `gorm:"size:16" json:"unitLabel"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type PriceConfig struct {
	BasePrice decimal.Decimal `json:"basePrice"`
	UnitLabel string          `json:"unitLabel"`
}

// AllTokenSettings is the nested view tokenType -> area -> project -> vendor.
type AllTokenSettings map[string]map[string]map[string]map[string]PriceConfig

func NewAllTokenSettings(rows []*TokenSetting) AllTokenSettings {
	all := AllTokenSettings{}
	for _, r := range rows {
		areas, ok := all[r.TokenType]
		if !ok {
			areas = map[string]map[string]map[string]PriceConfig{}
			all[r.TokenType] = areas
		}
		projects, ok := areas[r.Area]
		if !ok {
			projects = map[string]map[string]PriceConfig{}
			areas[r.Area] = projects
		}
		vendors, ok := projects[r.Project]
		if !ok {
			vendors = map[string]PriceConfig{}
			projects[r.Project] = vendors
		}
		vendors[r.Vendor] = PriceConfig{BasePrice: r.BasePrice, UnitLabel: r.UnitLabel}
	}
	return all
}

func (a AllTokenSettings) Lookup(tokenType, area, project, vendor string) (PriceConfig, bool) {
	pc, ok := a[tokenType][area][project][vendor]
	return pc, ok
}
