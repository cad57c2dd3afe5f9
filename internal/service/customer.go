package service

import (
	"context"
	"errors"
	"strings"

	"token-vending-service/internal/dto"
	"token-vending-service/internal/model"
	"token-vending-service/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CustomerService interface {
	Get(ctx context.Context, customerID string) (*model.Customer, error)
	Upsert(ctx context.Context, req *dto.CustomerRequest) (*model.Customer, error)
}

type customerServiceImpl struct {
	customerRepo repository.CustomerRepository
	logger       *zap.Logger
}

func NewCustomerService(customerRepo repository.CustomerRepository, logger *zap.Logger) CustomerService {
	return &customerServiceImpl{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

func (s *customerServiceImpl) Get(ctx context.Context, customerID string) (*model.Customer, error) {
	customer, err := s.customerRepo.Get(ctx, strings.TrimSpace(customerID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("customer %s not found", customerID)
	}
	if err != nil {
		return nil, internalError("load customer", err)
	}
	return customer, nil
}

func (s *customerServiceImpl) Upsert(ctx context.Context, req *dto.CustomerRequest) (*model.Customer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleCustomer
	}
	customer := &model.Customer{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  role,
	}
	for _, svc := range req.Services {
		customer.Services = append(customer.Services, model.CustomerService{
			ServiceID: svc.ServiceID,
			TokenType: svc.TokenType,
			Area:      svc.Area,
			Project:   svc.Project,
			Vendor:    svc.Vendor,
		})
	}

	if err := s.customerRepo.Upsert(ctx, customer); err != nil {
		return nil, internalError("save customer", err)
	}
	s.logger.Info("customer saved", zap.String("customer_id", customer.ID), zap.Int("services", len(customer.Services)))

	return s.Get(ctx, customer.ID)
}
