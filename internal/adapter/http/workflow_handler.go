package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"goldloan-backend/internal/workflow"
)

type WorkflowHandler struct{ engine *workflow.Engine }

func NewWorkflowHandler(engine *workflow.Engine) *WorkflowHandler {
	return &WorkflowHandler{engine: engine}
}

type actionReq struct {
	ActionType      string            `json:"action_type" validate:"required"`
	PerformedBy     string            `json:"performed_by" validate:"required"`
	PerformedByRole string            `json:"performed_by_role"`
	Remarks         string            `json:"remarks"`
	Data            map[string]string `json:"data"`
}

// PostAction applies one reviewer action to the application's current
// blocking step.
func (h *WorkflowHandler) PostAction(c echo.Context) error {
	var req actionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}

	act := workflow.Action{
		ApplicationID:   c.Param("application_id"),
		Type:            workflow.ActionType(req.ActionType),
		PerformedBy:     req.PerformedBy,
		PerformedByRole: req.PerformedByRole,
		Remarks:         req.Remarks,
		Data:            req.Data,
	}
	if err := h.engine.ProcessAction(c.Request().Context(), act); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"result": "accepted"})
}

func (h *WorkflowHandler) GetStatus(c echo.Context) error {
	view, err := h.engine.GetWorkflowStatus(c.Request().Context(), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// CheckTimeouts is the hook for the external scheduler's sweep.
func (h *WorkflowHandler) CheckTimeouts(c echo.Context) error {
	escalated, err := h.engine.CheckTimeouts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"escalated": escalated})
}
