package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func TestRequestIDPropagatesOrAssigns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	var seen string
	engine.GET("/", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIDKey).(string)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if seen != "req-42" || rec.Header().Get(headerRequestID) != "req-42" {
		t.Fatalf("expected propagated id, got ctx=%q header=%q", seen, rec.Header().Get(headerRequestID))
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "req-42" || rec.Header().Get(headerRequestID) != seen {
		t.Fatalf("expected a fresh id, got %q", seen)
	}
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(NewIPRateLimiter(0, 2, logger.Discard()).RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}
