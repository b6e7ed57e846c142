package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"goldloan-backend/internal/calculator"
	"goldloan-backend/internal/domain/application"
	"goldloan-backend/internal/workflow"
	"goldloan-backend/pkg/id"
)

type ApplicationHandler struct {
	apps          application.Repository
	engine        *workflow.Engine
	maxLTVPercent decimal.Decimal
}

func NewApplicationHandler(apps application.Repository, engine *workflow.Engine, maxLTVPercent decimal.Decimal) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, engine: engine, maxLTVPercent: maxLTVPercent}
}

type createApplicationReq struct {
	CustomerID         string  `json:"customer_id" validate:"required,hex32"`
	RequestedAmount    float64 `json:"requested_amount" validate:"required,gt=0,dec2"`
	GoldWeightGrams    float64 `json:"gold_weight_grams" validate:"required,gt=0,dec3"`
	EstimatedGoldValue float64 `json:"estimated_gold_value" validate:"required,gt=0,dec2"`
}

// CreateApplication registers a submitted application and kicks off its
// review workflow.
func (h *ApplicationHandler) CreateApplication(c echo.Context) error {
	var req createApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	requested := decimal.NewFromFloat(req.RequestedAmount).Round(2)
	goldValue := decimal.NewFromFloat(req.EstimatedGoldValue).Round(2)
	ltv, err := calculator.CalculateLTV(requested, goldValue)
	if err != nil {
		return writeError(c, err)
	}
	if ltv.GreaterThan(h.maxLTVPercent) {
		maxLoan := calculator.CalculateMaxLoanAmount(goldValue, h.maxLTVPercent)
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error":           "requested amount exceeds the maximum loan-to-value",
			"max_loan_amount": maxLoan.String(),
		})
	}

	app := &application.Application{
		ApplicationID:      id.NewID32(),
		CustomerID:         req.CustomerID,
		RequestedAmount:    requested,
		GoldWeightGrams:    decimal.NewFromFloat(req.GoldWeightGrams).Round(3),
		EstimatedGoldValue: goldValue,
		Status:             application.StatusSubmitted,
		StatusUpdatedAt:    time.Now().UTC(),
	}
	if err := h.apps.Create(c.Request().Context(), app); err != nil {
		return writeError(c, err)
	}
	if err := h.engine.InitializeWorkflow(c.Request().Context(), app.ApplicationID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) GetApplication(c echo.Context) error {
	app, err := h.apps.GetByApplicationID(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}
