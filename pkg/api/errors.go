package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/hashdev89/smart-summary-insight-service/pkg/analysis"
	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

// mapAnalysisError maps analysis-facade errors to HTTP error responses.
// Validation errors (empty notes) are expected to be caught before this
// is reached; anything else is an unrecoverable analysis failure.
func mapAnalysisError(err error) *echo.HTTPError {
	if errors.Is(err, models.ErrEmptyNotes) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var analysisErr *analysis.Error
	if errors.As(err, &analysisErr) {
		slog.Warn("analysis failure", "error", analysisErr)
		return echo.NewHTTPError(http.StatusInternalServerError, analysisErr.Error())
	}

	slog.Error("unexpected error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
