package handler

import (
	"net/http"

	"token-vending-service/internal/service"

	"github.com/labstack/echo/v4"
)

type ReceiptHandler struct {
	receiptService service.ReceiptService
}

func NewReceiptHandler(receiptService service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
	}
}

func (h *ReceiptHandler) GetReceipt(c echo.Context) error {
	ctx := c.Request().Context()

	html, err := h.receiptService.Render(ctx, c.Param("orderId"))
	if err != nil {
		return err
	}

	return c.HTML(http.StatusOK, html)
}
