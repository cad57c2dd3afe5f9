package server

import (
	"context"
	"net/http"

	"token-vending-service/internal/config"
	"token-vending-service/internal/handler"
	appmiddleware "token-vending-service/internal/middleware"
	"token-vending-service/internal/model"
	"token-vending-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Services struct {
	Checkout     service.CheckoutService
	Settlement   service.SettlementService
	Vending      service.VendingService
	Receipt      service.ReceiptService
	Notification service.NotificationService
	Setting      service.SettingService
	Customer     service.CustomerService
	Report       service.ReportService
}

type Server struct {
	echo                *echo.Echo
	cfg                 *config.Config
	checkoutHandler     *handler.CheckoutHandler
	settlementHandler   *handler.SettlementHandler
	receiptHandler      *handler.ReceiptHandler
	notificationHandler *handler.NotificationHandler
	adminHandler        *handler.AdminHandler
	customerHandler     *handler.CustomerHandler
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(cfg *config.Config, services *Services, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Validator = &requestValidator{validate: service.Validator()}

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRequestID: true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:                e,
		cfg:                 cfg,
		checkoutHandler:     handler.NewCheckoutHandler(services.Checkout),
		settlementHandler:   handler.NewSettlementHandler(services.Settlement, services.Vending),
		receiptHandler:      handler.NewReceiptHandler(services.Receipt),
		notificationHandler: handler.NewNotificationHandler(services.Notification),
		adminHandler:        handler.NewAdminHandler(services.Setting, services.Customer, services.Report),
		customerHandler:     handler.NewCustomerHandler(services.Customer),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	secret := s.cfg.Auth.JWTSecret
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.RateLimit.PerSecond)))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- gateway notifications --------
	payments := api.Group("/payments", limiter)
	payments.POST("/midtrans/notification", s.notificationHandler.Midtrans)
	payments.POST("/ipaymu/notification", s.notificationHandler.Ipaymu)

	// -------- any signed-in role --------
	signedIn := appmiddleware.AuthMiddleware(secret)
	api.POST("/checkout/midtrans", s.checkoutHandler.Midtrans, signedIn, limiter)
	api.POST("/checkout/ipaymu", s.checkoutHandler.Ipaymu, signedIn, limiter)
	api.POST("/settlement", s.settlementHandler.Settle, signedIn)
	api.GET("/receipts/:orderId", s.receiptHandler.GetReceipt, signedIn)
	api.GET("/customers/:id", s.customerHandler.GetCustomer, signedIn)

	// -------- field staff --------
	api.POST("/vending", s.settlementHandler.Vend, appmiddleware.AuthMiddleware(secret, model.RoleAdmin, model.RoleTeknisi))

	// -------- admin --------
	admin := api.Group("/admin", appmiddleware.AuthMiddleware(secret, model.RoleAdmin))
	admin.GET("/token-settings", s.adminHandler.ListTokenSettings)
	admin.PUT("/token-settings", s.adminHandler.PutTokenSettings)
	admin.PUT("/settings/vending", s.adminHandler.PutVendingSettings)
	admin.GET("/settings/receipt-template", s.adminHandler.GetReceiptTemplate)
	admin.PUT("/settings/receipt-template", s.adminHandler.PutReceiptTemplate)
	admin.PUT("/customers", s.adminHandler.PutCustomer)
	admin.GET("/reports/summary", s.adminHandler.Summary)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
