package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

// ReportHandler serves the chart data of the dashboard.
type ReportHandler struct {
	reportBuilder services.ReportBuilder
	now           func() time.Time
}

// NewReportHandler creates a new ReportHandler. now supplies the reference
// date of every report; nil means the wall clock.
func NewReportHandler(reportBuilder services.ReportBuilder, now func() time.Time) *ReportHandler {
	if now == nil {
		now = time.Now
	}
	return &ReportHandler{reportBuilder: reportBuilder, now: now}
}

// ReportQuery holds the report parameters. Period is the older name of
// Mode and is only read when Mode is absent.
type ReportQuery struct {
	Mode   string `form:"mode" binding:"omitempty,report_mode"`
	Period string `form:"period" binding:"omitempty,report_mode"`
	Year   *int   `form:"year"`
}

// GetReport builds the income/expense series, category breakdown, income
// trend and current-month summary.
// @Summary     Get report
// @Description Chart data for the authenticated user. mode=month buckets the given year by month; mode=year covers the last five years.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       mode query string false "month (default) or year"
// @Param       period query string false "Alias of mode, used when mode is absent"
// @Param       year query int    false "Target year in month mode (default current year)"
// @Success     200 {object} services.Report "Report"
// @Failure     400 {object} ErrorResponse "Invalid mode or year"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /reports [get]
// @Router      /transactions/charts-data [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	now := h.now().UTC()
	mode := services.ReportModeMonth
	switch {
	case q.Mode != "":
		mode = services.ReportMode(q.Mode)
	case q.Period != "":
		mode = services.ReportMode(q.Period)
	}
	year := now.Year()
	if q.Year != nil {
		year = *q.Year
	}

	report, err := h.reportBuilder.BuildReport(c.Request.Context(), userID, mode, year, now)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
