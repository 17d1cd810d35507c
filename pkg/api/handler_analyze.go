package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// analyzeHandler handles POST /api/v1/analyze.
func (s *Server) analyzeHandler(c *echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "malformed request body")
	}
	if req.Notes == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "notes field is required")
	}

	model := req.toModel()
	if err := model.Normalize(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.facade.Analyze(c.Request().Context(), model)
	if err != nil {
		return mapAnalysisError(err)
	}

	return c.JSON(http.StatusOK, result)
}
