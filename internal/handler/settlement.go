package handler

import (
	"net/http"

	"token-vending-service/internal/dto"
	"token-vending-service/internal/service"

	"github.com/labstack/echo/v4"
)

type SettlementHandler struct {
	settlementService service.SettlementService
	vendingService    service.VendingService
}

func NewSettlementHandler(settlementService service.SettlementService, vendingService service.VendingService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		vendingService:    vendingService,
	}
}

// Settle answers 200 with success=false when the payment went through but
// vending did not.
func (h *SettlementHandler) Settle(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SettlementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.settlementService.Settle(ctx, req.OrderID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *SettlementHandler) Vend(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	receipt, err := h.vendingService.Vend(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.VendResponse{
		Success: true,
		Token:   receipt.Token,
	})
}
