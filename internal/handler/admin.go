package handler

import (
	"net/http"

	"token-vending-service/internal/dto"
	"token-vending-service/internal/model"
	"token-vending-service/internal/service"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	settingService  service.SettingService
	customerService service.CustomerService
	reportService   service.ReportService
}

func NewAdminHandler(settingService service.SettingService, customerService service.CustomerService, reportService service.ReportService) *AdminHandler {
	return &AdminHandler{
		settingService:  settingService,
		customerService: customerService,
		reportService:   reportService,
	}
}

func (h *AdminHandler) ListTokenSettings(c echo.Context) error {
	ctx := c.Request().Context()

	settings, err := h.settingService.ListTokenSettings(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, settings)
}

func (h *AdminHandler) PutTokenSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.TokenSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	settings := make([]*model.TokenSetting, 0, len(req.Settings))
	for _, item := range req.Settings {
		settings = append(settings, &model.TokenSetting{
			TokenType: item.TokenType,
			Area:      item.Area,
			Project:   item.Project,
			Vendor:    item.Vendor,
			BasePrice: item.BasePrice,
			UnitLabel: item.UnitLabel,
		})
	}

	if err := h.settingService.UpsertTokenSettings(ctx, settings); err != nil {
		return err
	}

	return h.ListTokenSettings(c)
}

func (h *AdminHandler) PutVendingSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var creds model.StronpowerCredentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.settingService.PutVendingCredentials(ctx, &creds); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) GetReceiptTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	tpl, err := h.settingService.ReceiptTemplate(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tpl)
}

func (h *AdminHandler) PutReceiptTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	var tpl model.ReceiptTemplateSettings
	if err := c.Bind(&tpl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.settingService.PutReceiptTemplate(ctx, &tpl); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tpl)
}

func (h *AdminHandler) PutCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	customer, err := h.customerService.Upsert(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

func (h *AdminHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()

	report, err := h.reportService.Summary(ctx, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
