package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/platform/httpkit"
	"pipeline_backend/platform/validator"
)

func newTestEngine(tenantID *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, validator.New())

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, []string{"user"})
		if tenantID != nil {
			c.Set(httpkit.ContextTenantIDKey, *tenantID)
		}
		c.Next()
	})
	engine.GET("/pipeline-stages", h.List)
	engine.POST("/pipeline-stages", h.Create)
	engine.PUT("/pipeline-stages/:id", h.Update)
	return engine
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpkit.ErrorResponse {
	t.Helper()
	var body httpkit.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestCompanyMismatchIsForbidden(t *testing.T) {
	tenant := uuid.New()
	engine := newTestEngine(&tenant)

	req := httptest.NewRequest(http.MethodGet, "/pipeline-stages?companyId="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestMissingTenantIsRejected(t *testing.T) {
	engine := newTestEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/pipeline-stages", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateValidationFailureCarriesCode(t *testing.T) {
	tenant := uuid.New()
	engine := newTestEngine(&tenant)

	payload, _ := json.Marshal(map[string]any{
		"name":           "Demo",
		"probability":    150,
		"requiredFields": []string{"has space"},
	})
	req := httptest.NewRequest(http.MethodPost, "/pipeline-stages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != domain.CodeValidationFailed {
		t.Fatalf("expected code %q, got %+v", domain.CodeValidationFailed, body)
	}
}

func TestUpdateRejectsInvalidID(t *testing.T) {
	tenant := uuid.New()
	engine := newTestEngine(&tenant)

	req := httptest.NewRequest(http.MethodPut, "/pipeline-stages/not-a-uuid", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
