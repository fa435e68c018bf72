package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/deliberatorium/pkg/debate"
)

// mapServiceError maps debate service errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *debate.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, debate.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "debate not found")
	}
	if errors.Is(err, debate.ErrStopping) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")
	}
	if errors.Is(err, debate.ErrTurnInFlight) ||
		errors.Is(err, debate.ErrNotExpectedAgent) ||
		errors.Is(err, debate.ErrTurnLimitReached) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
