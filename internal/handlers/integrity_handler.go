package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/services"
)

// IntegrityHandler exposes the operator-only integrity report.
type IntegrityHandler struct {
	integrityService services.IntegrityServicer
}

// NewIntegrityHandler creates a new IntegrityHandler.
func NewIntegrityHandler(integrityService services.IntegrityServicer) *IntegrityHandler {
	return &IntegrityHandler{integrityService: integrityService}
}

// GetIntegrityReport lists budgets and transactions whose category no longer resolves.
// @Summary     Integrity report
// @Description Dangling category references across all users
// @Tags        internal
// @Produce     json
// @Security    ServiceKeyAuth
// @Success     200 {object} services.IntegrityReport "Findings"
// @Failure     401 {object} ErrorResponse "Invalid service key"
// @Failure     503 {object} ErrorResponse "Not configured or store unavailable"
// @Router      /internal/integrity [get]
func (h *IntegrityHandler) GetIntegrityReport(c *gin.Context) {
	report, err := h.integrityService.DanglingReferences(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clean": report.Clean(), "report": report})
}
