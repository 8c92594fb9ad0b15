package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/money"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
type CreateBudgetRequest struct {
	CategoryID string              `json:"category_id" binding:"required,uuid"`
	Limit      money.Amount        `json:"limit" binding:"required" swaggertype:"number"`
	Period     models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	StartDate  string              `json:"start_date" binding:"required,calendar_date"`
	EndDate    string              `json:"end_date" binding:"required,calendar_date"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	CategoryID *string              `json:"category_id" binding:"omitempty,uuid"`
	Limit      *money.Amount        `json:"limit" swaggertype:"number"`
	Period     *models.BudgetPeriod `json:"period" binding:"omitempty,budget_period"`
	StartDate  *string              `json:"start_date" binding:"omitempty,calendar_date"`
	EndDate    *string              `json:"end_date" binding:"omitempty,calendar_date"`
}

// ListBudgetsQuery holds the list filters.
type ListBudgetsQuery struct {
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	Period     string `form:"period" binding:"omitempty,budget_period"`
	StartDate  string `form:"start_date" binding:"omitempty,calendar_date"`
	EndDate    string `form:"end_date" binding:"omitempty,calendar_date"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=startdate limit period"`
	SortOrder  string `form:"sort_order" binding:"omitempty,sort_order"`
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Cap spending in an expense category over an inclusive date window
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), userID, services.BudgetInput{
		CategoryID: req.CategoryID,
		Limit:      req.Limit,
		Period:     req.Period,
		StartDate:  *start,
		EndDate:    *end,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionCreate, "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"category_id": req.CategoryID, "limit": req.Limit.String(), "period": req.Period})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetUserBudgets handles listing budgets with their spending.
// @Summary     Get user budgets
// @Description List budgets with actual spend, remaining amount and over-budget flag. Defaults to start date descending.
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       category_id query string false "Filter by category ID"
// @Param       period      query string false "weekly, monthly or yearly"
// @Param       start_date  query string false "Keep budgets starting on or after, YYYY-MM-DD"
// @Param       end_date    query string false "Keep budgets ending on or before, YYYY-MM-DD"
// @Param       sort_by     query string false "startdate, limit or period"
// @Param       sort_order  query string false "asc or desc"
// @Success     200 {array} services.EnrichedBudget "Budgets with spending"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /budgets [get]
func (h *BudgetHandler) GetUserBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ListBudgetsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, sort, err := budgetFilterFromQuery(q)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgets, err := h.budgetService.GetUserBudgets(c.Request.Context(), userID, filter, sort)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

func budgetFilterFromQuery(q ListBudgetsQuery) (store.BudgetFilter, store.Sort, error) {
	var filter store.BudgetFilter
	sort := store.Sort{Field: q.SortBy, Desc: q.SortOrder != "asc"}

	var err error
	if filter.StartFrom, err = parseOptionalDate("start_date", q.StartDate); err != nil {
		return filter, sort, err
	}
	if filter.EndTo, err = parseOptionalDate("end_date", q.EndDate); err != nil {
		return filter, sort, err
	}
	if q.CategoryID != "" {
		id := q.CategoryID
		filter.CategoryID = &id
	}
	if q.Period != "" {
		p := models.BudgetPeriod(q.Period)
		filter.Period = &p
	}
	return filter, sort, nil
}

// GetBudgetByID handles the retrieval of a single budget with its spending.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.EnrichedBudget "Budget with spending"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudgetByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating a budget.
// @Summary     Update a budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.BudgetUpdate{
		CategoryID: req.CategoryID,
		Limit:      req.Limit,
		Period:     req.Period,
	}
	if req.StartDate != nil {
		if update.StartDate, err = parseOptionalDate("start_date", *req.StartDate); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if req.EndDate != nil {
		if update.EndDate, err = parseOptionalDate("end_date", *req.EndDate); err != nil {
			respondWithError(c, err)
			return
		}
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), userID, budgetID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionUpdate, "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(c.Request.Context(), userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionDelete, "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted successfully"})
}
