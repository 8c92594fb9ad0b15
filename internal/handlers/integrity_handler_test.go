package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
)

type mockIntegrityService struct {
	danglingReferencesFn func() (*services.IntegrityReport, error)
}

func (m *mockIntegrityService) DanglingReferences(_ context.Context) (*services.IntegrityReport, error) {
	if m.danglingReferencesFn != nil {
		return m.danglingReferencesFn()
	}
	return &services.IntegrityReport{}, nil
}

func setupIntegrityRouter(svc services.IntegrityServicer, key string) *gin.Engine {
	r := gin.New()
	r.GET("/internal/integrity", middleware.ServiceKeyMiddleware(key), NewIntegrityHandler(svc).GetIntegrityReport)
	return r
}

func TestIntegrityHandler_GetIntegrityReport(t *testing.T) {
	t.Run("reports findings with a valid key", func(t *testing.T) {
		svc := &mockIntegrityService{
			danglingReferencesFn: func() (*services.IntegrityReport, error) {
				return &services.IntegrityReport{
					Budgets:      []services.DanglingReference{{ID: testBudgetID, UserID: testUserID, CategoryID: testCategoryID}},
					Transactions: []services.DanglingReference{},
					CheckedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		r := setupIntegrityRouter(svc, "operator-key")

		req := newRequestWithHeader("GET", "/internal/integrity", middleware.ServiceKeyHeader, "operator-key")
		rec := serve(r, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["clean"] != false {
			t.Errorf("expected clean=false, got %v", result["clean"])
		}
		report := result["report"].(map[string]interface{})
		if budgets := report["budgets"].([]interface{}); len(budgets) != 1 {
			t.Errorf("expected 1 dangling budget, got %d", len(budgets))
		}
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		r := setupIntegrityRouter(&mockIntegrityService{}, "operator-key")

		req := newRequestWithHeader("GET", "/internal/integrity", middleware.ServiceKeyHeader, "guess")
		rec := serve(r, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_SERVICE_KEY")
	})

	t.Run("returns 503 when no key is configured", func(t *testing.T) {
		r := setupIntegrityRouter(&mockIntegrityService{}, "")

		rec := doRequest(r, "GET", "/internal/integrity", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_CONFIGURED")
	})

	t.Run("returns 503 when the scan fails", func(t *testing.T) {
		svc := &mockIntegrityService{
			danglingReferencesFn: func() (*services.IntegrityReport, error) {
				return nil, apperrors.ErrStoreUnavailable
			},
		}
		r := setupIntegrityRouter(svc, "operator-key")

		req := newRequestWithHeader("GET", "/internal/integrity", middleware.ServiceKeyHeader, "operator-key")
		rec := serve(r, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "STORE_UNAVAILABLE")
	})
}
