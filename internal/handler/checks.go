package handler

import (
	"errors"
	"net/http"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/checker"
	"github.com/abdusco/linkwatch/internal/summarizer"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type CheckHandler struct {
	checker    *checker.Checker
	summarizer *summarizer.Summarizer
}

func NewCheckHandler(checker *checker.Checker, summarizer *summarizer.Summarizer) *CheckHandler {
	return &CheckHandler{
		checker:    checker,
		summarizer: summarizer,
	}
}

type RunCheckResponse struct {
	Success bool                   `json:"success"`
	Results []internal.CheckResult `json:"results"`
}

type AnalyzeRequest struct {
	CheckID *int64 `json:"checkId"`
}

type AnalyzeResponse struct {
	Summary string `json:"summary"`
}

// RunCheck handles POST /api/check
func (h *CheckHandler) RunCheck(c echo.Context) error {
	results, err := h.checker.Run(c.Request().Context())
	if err != nil {
		if errors.Is(err, internal.ErrNoLinks) {
			return echo.NewHTTPError(http.StatusBadRequest, "No links to check. Add some links first!")
		}
		log.Error().Err(err).Msg("check cycle failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch links")
	}

	return c.JSON(http.StatusOK, RunCheckResponse{Success: true, Results: results})
}

// Analyze handles POST /api/analyze
func (h *CheckHandler) Analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil || req.CheckID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "checkId is required")
	}

	summary, err := h.summarizer.Summarize(c.Request().Context(), *req.CheckID)
	if err != nil {
		if errors.Is(err, internal.ErrCheckNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Check not found")
		}
		log.Error().Err(err).Int64("check_id", *req.CheckID).Msg("failed to summarize check")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, AnalyzeResponse{Summary: summary})
}
