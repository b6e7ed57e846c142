package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"goldloan-backend/internal/calculator"
	"goldloan-backend/internal/domain/application"
	"goldloan-backend/internal/domain/loanbook"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// writeError maps domain sentinels to HTTP statuses. Callers translate;
// the engine and calculator only raise typed errors.
func writeError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, application.ErrValidation), errors.Is(err, calculator.ErrCalculation):
		code = http.StatusBadRequest
	case errors.Is(err, application.ErrPermissionDenied):
		code = http.StatusForbidden
	case errors.Is(err, application.ErrNotFound), errors.Is(err, loanbook.ErrNotFound),
		errors.Is(err, application.ErrNoPendingStep):
		code = http.StatusNotFound
	case errors.Is(err, application.ErrConflict), errors.Is(err, application.ErrAlreadyInitialized),
		errors.Is(err, loanbook.ErrAlreadyExists):
		code = http.StatusConflict
	case errors.Is(err, application.ErrState):
		code = http.StatusUnprocessableEntity
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}
