package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jellybridge/jellybridge/internal/expiry"
)

// Sweeper runs one expiry reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (expiry.Report, error)
}

// ExpiryHandler triggers out-of-band expiry sweeps.
type ExpiryHandler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

// NewExpiryHandler creates an expiry handler.
func NewExpiryHandler(log *slog.Logger, sweeper Sweeper) *ExpiryHandler {
	return &ExpiryHandler{
		sweeper: sweeper,
		logger:  log.With(slog.String("handler", "expiry")),
	}
}

// Register mounts the expiry routes on the Echo instance.
func (h *ExpiryHandler) Register(e *echo.Echo) {
	e.POST("/api/expiry/sweep", h.Sweep)
}

// SweepResponse reports the outcome of a manual sweep.
type SweepResponse struct {
	Due        int `json:"due"`
	Reconciled int `json:"reconciled"`
	Deferred   int `json:"deferred"`
}

// Sweep runs a reconciliation pass immediately and reports the counts.
func (h *ExpiryHandler) Sweep(c echo.Context) error {
	report, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		h.logger.Error("manual sweep failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "sweep failed"})
	}
	return c.JSON(http.StatusOK, SweepResponse{
		Due:        report.Due,
		Reconciled: report.Reconciled,
		Deferred:   report.Deferred,
	})
}
