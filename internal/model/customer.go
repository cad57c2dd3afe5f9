package model

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTeknisi  Role = "teknisi"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

type Customer struct {
	ID        string            `gorm:"primaryKey;size:64;not null" json:"id"`
	Name      string            `gorm:"size:128;not null" json:"name"`
	Email     string            `gorm:"size:128" json:"email"`
	Phone     string            `gorm:"size:32" json:"phone"`
	Role      Role              `gorm:"size:16;not null;default:customer" json:"role"`
	Services  []CustomerService `gorm:"foreignKey:CustomerID;references:ID" json:"services"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// CustomerService is one metered service (a meter id) owned by a customer.
// Area/Project/Vendor select the price tier in TokenSetting.
type CustomerService struct {
	ServiceID  string    `gorm:"primaryKey;size:64;not null" json:"serviceId"`
	CustomerID string    `gorm:"size:64;index;not null" json:"customerId"`
	TokenType  string    `gorm:"size:32;not null" json:"tokenType"`
	Area       string    `gorm:"size:64" json:"area"`
	Project    string    `gorm:"size:64" json:"project"`
	Vendor     string    `gorm:"size:64" json:"vendor"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
