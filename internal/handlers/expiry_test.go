package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellybridge/jellybridge/internal/expiry"
)

type fakeSweeper struct {
	report expiry.Report
	err    error
}

func (f *fakeSweeper) Sweep(_ context.Context) (expiry.Report, error) {
	return f.report, f.err
}

func TestExpirySweep(t *testing.T) {
	h := NewExpiryHandler(slog.Default(), &fakeSweeper{
		report: expiry.Report{Due: 3, Reconciled: 2, Deferred: 1},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/expiry/sweep", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Sweep(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out SweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, SweepResponse{Due: 3, Reconciled: 2, Deferred: 1}, out)
}

func TestExpirySweepFailure(t *testing.T) {
	h := NewExpiryHandler(slog.Default(), &fakeSweeper{err: errors.New("db down")})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/expiry/sweep", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Sweep(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
