package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/money"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

const testBudgetID = "0190b6f0-0000-7000-8000-000000000030"

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn     func(userID string, input services.BudgetInput) (*models.Budget, error)
	getUserBudgetsFn   func(userID string, filter store.BudgetFilter, sort store.Sort) ([]services.EnrichedBudget, error)
	getBudgetByIDFn    func(userID, budgetID string) (*services.EnrichedBudget, error)
	updateBudgetFn     func(userID, budgetID string, update services.BudgetUpdate) (*models.Budget, error)
	deleteBudgetFn     func(userID, budgetID string) error
	overBudgetAlertsFn func(userID string, tx *models.Transaction) ([]services.EnrichedBudget, error)
}

func (m *mockBudgetService) CreateBudget(_ context.Context, userID string, input services.BudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, input)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetUserBudgets(_ context.Context, userID string, filter store.BudgetFilter, sort store.Sort) ([]services.EnrichedBudget, error) {
	if m.getUserBudgetsFn != nil {
		return m.getUserBudgetsFn(userID, filter, sort)
	}
	return []services.EnrichedBudget{}, nil
}

func (m *mockBudgetService) GetBudgetByID(_ context.Context, userID, budgetID string) (*services.EnrichedBudget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(userID, budgetID)
	}
	return &services.EnrichedBudget{}, nil
}

func (m *mockBudgetService) UpdateBudget(_ context.Context, userID, budgetID string, update services.BudgetUpdate) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(userID, budgetID, update)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(_ context.Context, userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

func (m *mockBudgetService) OverBudgetAlerts(_ context.Context, userID string, tx *models.Transaction) ([]services.EnrichedBudget, error) {
	if m.overBudgetAlertsFn != nil {
		return m.overBudgetAlertsFn(userID, tx)
	}
	return []services.EnrichedBudget{}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetUserBudgets)
	auth.GET("/budgets/:id", handler.GetBudgetByID)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.BudgetInput
		svc := &mockBudgetService{
			createBudgetFn: func(userID string, input services.BudgetInput) (*models.Budget, error) {
				got = input
				return &models.Budget{
					Base:       models.Base{ID: testBudgetID},
					UserID:     userID,
					CategoryID: input.CategoryID,
					Limit:      input.Limit,
					Period:     input.Period,
					StartDate:  input.StartDate,
					EndDate:    input.EndDate,
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		body := fmt.Sprintf(`{"category_id":%q,"limit":"500.00","period":"monthly","start_date":"2024-01-01","end_date":"2024-01-31"}`, testCategoryID)
		rec := doRequest(r, "POST", "/budgets", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Limit != money.FromUnits(50000) {
			t.Errorf("expected 50000 units, got %d", got.Limit.Units())
		}
		if !got.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !got.EndDate.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected window %v..%v", got.StartDate, got.EndDate)
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["limit"] != 500.0 {
			t.Errorf("expected limit 500, got %v", budget["limit"])
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing end date", fmt.Sprintf(`{"category_id":%q,"limit":"1","period":"monthly","start_date":"2024-01-01"}`, testCategoryID)},
		{"unknown period", fmt.Sprintf(`{"category_id":%q,"limit":"1","period":"daily","start_date":"2024-01-01","end_date":"2024-01-31"}`, testCategoryID)},
		{"timestamp instead of date", fmt.Sprintf(`{"category_id":%q,"limit":"1","period":"monthly","start_date":"2024-01-01T00:00:00Z","end_date":"2024-01-31"}`, testCategoryID)},
		{"zero limit", fmt.Sprintf(`{"category_id":%q,"limit":"0","period":"monthly","start_date":"2024-01-01","end_date":"2024-01-31"}`, testCategoryID)},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/budgets", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 400 on income category", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_ string, _ services.BudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrCategoryTypeMismatch
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		body := fmt.Sprintf(`{"category_id":%q,"limit":"1","period":"monthly","start_date":"2024-01-01","end_date":"2024-01-31"}`, testCategoryID)
		rec := doRequest(r, "POST", "/budgets", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_TYPE_MISMATCH")
	})
}

func TestBudgetHandler_GetUserBudgets(t *testing.T) {
	t.Run("maps query to filter and sort", func(t *testing.T) {
		var gotFilter store.BudgetFilter
		var gotSort store.Sort
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ string, filter store.BudgetFilter, sort store.Sort) ([]services.EnrichedBudget, error) {
				gotFilter, gotSort = filter, sort
				return []services.EnrichedBudget{{
					Budget:      models.Budget{Limit: money.FromUnits(10000)},
					ActualSpent: money.FromUnits(2500),
					Remaining:   money.FromUnits(7500),
				}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		path := "/budgets?period=monthly&start_date=2024-01-01&end_date=2024-12-31&sort_by=limit&sort_order=asc&category_id=" + testCategoryID
		rec := doRequest(r, "GET", path, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFilter.Period == nil || *gotFilter.Period != models.BudgetPeriodMonthly {
			t.Errorf("expected monthly filter, got %v", gotFilter.Period)
		}
		if gotFilter.CategoryID == nil || *gotFilter.CategoryID != testCategoryID {
			t.Errorf("expected category filter, got %v", gotFilter.CategoryID)
		}
		if gotFilter.StartFrom == nil || gotFilter.EndTo == nil {
			t.Fatal("expected both date bounds")
		}
		if gotSort.Field != store.BudgetSortLimit || gotSort.Desc {
			t.Errorf("expected limit asc, got %+v", gotSort)
		}
		budgets := parseJSON(t, rec)["budgets"].([]interface{})
		first := budgets[0].(map[string]interface{})
		if first["actual_spent"] != 25.0 || first["remaining"] != 75.0 {
			t.Errorf("unexpected enrichment %v", first)
		}
	})

	t.Run("defaults to descending order", func(t *testing.T) {
		var gotSort store.Sort
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ string, _ store.BudgetFilter, sort store.Sort) ([]services.EnrichedBudget, error) {
				gotSort = sort
				return nil, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets?sort_by=period", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotSort.Desc {
			t.Error("expected descending sort by default")
		}
	})

	tests := []struct {
		name  string
		query string
	}{
		{"unknown sort field", "?sort_by=name"},
		{"unknown sort order", "?sort_order=up"},
		{"unknown period", "?period=daily"},
		{"malformed date", "?start_date=2024-13-01"},
		{"malformed category", "?category_id=12"},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

			rec := doRequest(r, "GET", "/budgets"+tt.query, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}

	t.Run("returns 503 when store fails", func(t *testing.T) {
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ string, _ store.BudgetFilter, _ store.Sort) ([]services.EnrichedBudget, error) {
				return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, fmt.Errorf("connection reset"))
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "STORE_UNAVAILABLE")
		if msg := result["error"].(map[string]interface{})["message"]; msg == "connection reset" {
			t.Error("internal cause leaked to client")
		}
	})
}

func TestBudgetHandler_GetBudgetByID(t *testing.T) {
	t.Run("returns enriched budget", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetByIDFn: func(_, id string) (*services.EnrichedBudget, error) {
				return &services.EnrichedBudget{
					Budget:       models.Budget{Base: models.Base{ID: id}, Limit: money.FromUnits(100)},
					ActualSpent:  money.FromUnits(150),
					Remaining:    money.FromUnits(-50),
					IsOverBudget: true,
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets/"+testBudgetID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["is_over_budget"] != true || budget["remaining"] != -0.5 {
			t.Errorf("unexpected budget %v", budget)
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetByIDFn: func(_, _ string) (*services.EnrichedBudget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets/"+testBudgetID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("passes only provided fields", func(t *testing.T) {
		var got services.BudgetUpdate
		svc := &mockBudgetService{
			updateBudgetFn: func(_, id string, update services.BudgetUpdate) (*models.Budget, error) {
				got = update
				return &models.Budget{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budgets/"+testBudgetID, `{"limit":"750","end_date":"2024-02-29"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Limit == nil || *got.Limit != money.FromUnits(75000) {
			t.Errorf("expected limit 75000 units, got %v", got.Limit)
		}
		if got.EndDate == nil || !got.EndDate.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end date 2024-02-29, got %v", got.EndDate)
		}
		if got.StartDate != nil || got.Period != nil || got.CategoryID != nil {
			t.Errorf("unexpected fields set: %+v", got)
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, audit))

		rec := doRequest(r, "DELETE", "/budgets/"+testBudgetID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "delete:budget" {
			t.Errorf("expected delete:budget audit entry, got %v", audit.actions)
		}
	})
}

func TestBudgetHandler_Unauthenticated(t *testing.T) {
	handler := NewBudgetHandler(&mockBudgetService{}, &mockAuditService{})
	r := gin.New()
	r.GET("/budgets", handler.GetUserBudgets)

	rec := doRequest(r, "GET", "/budgets", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
