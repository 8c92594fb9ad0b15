package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServiceKeyRouter(serviceKey string) *gin.Engine {
	r := gin.New()
	r.Use(ServiceKeyMiddleware(serviceKey))
	r.GET("/internal/integrity", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doKeyRequest(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/internal/integrity", http.NoBody)
	if key != "" {
		req.Header.Set(ServiceKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	body := parseBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if code, _ := errObj["code"].(string); code != want {
		t.Errorf("error code = %q, want %q", code, want)
	}
}

func TestServiceKeyMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{
			name:          "valid_key",
			configuredKey: "operator-key",
			requestKey:    "operator-key",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "invalid_key",
			configuredKey: "operator-key",
			requestKey:    "wrong-key",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_SERVICE_KEY",
		},
		{
			name:          "missing_key",
			configuredKey: "operator-key",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_SERVICE_KEY",
		},
		{
			name:          "not_configured",
			configuredKey: "",
			requestKey:    "any-key",
			wantStatus:    http.StatusServiceUnavailable,
			wantErrorCode: "NOT_CONFIGURED",
		},
		{
			name:          "prefix_rejected",
			configuredKey: "operator-key",
			requestKey:    "operator",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_SERVICE_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doKeyRequest(setupServiceKeyRouter(tt.configuredKey), tt.requestKey)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode != "" {
				assertErrorCode(t, rec, tt.wantErrorCode)
			}
			if tt.wantStatus == http.StatusOK {
				body := parseBody(t, rec)
				if status, _ := body["status"].(string); status != "ok" {
					t.Errorf("expected handler to be reached, got status = %q", status)
				}
			}
		})
	}
}
