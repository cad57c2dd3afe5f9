package repository

import (
	"context"
	"time"

	"token-vending-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Upsert(ctx context.Context, customer *model.Customer) error
	Get(ctx context.Context, customerID string) (*model.Customer, error)
	FindService(ctx context.Context, serviceID string) (*model.CustomerService, error)
}

type customerRepoImpl struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepoImpl{
		db: db,
	}
}

// Upsert writes the customer and its services in one transaction. Services
// not listed are left alone.
func (r *customerRepoImpl) Upsert(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		services := customer.Services
		customer.Services = nil
		defer func() { customer.Services = services }()

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"name":       customer.Name,
				"email":      customer.Email,
				"phone":      customer.Phone,
				"role":       customer.Role,
				"updated_at": time.Now(),
			}),
		}).Create(customer).Error
		if err != nil {
			return err
		}

		if len(services) == 0 {
			return nil
		}
		for i := range services {
			services[i].CustomerID = customer.ID
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "service_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "token_type", "area", "project", "vendor", "updated_at"}),
		}).Create(&services).Error
	})
}

func (r *customerRepoImpl) Get(ctx context.Context, customerID string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Preload("Services").
		Where("id = ?", customerID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepoImpl) FindService(ctx context.Context, serviceID string) (*model.CustomerService, error) {
	var service model.CustomerService
	err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		First(&service).Error
	if err != nil {
		return nil, err
	}

	return &service, nil
}
