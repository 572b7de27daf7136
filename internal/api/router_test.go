package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"agentd/internal/config"
)

func TestSetupRouter_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	r := SetupRouter(Deps{Cfg: cfg})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health should return 200, got %d", w.Code)
	}
}

func TestSetupRouter_Subpath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Subpath = "/api"
	r := SetupRouter(Deps{Cfg: cfg})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /api/health should return 200, got %d", w.Code)
	}
}

func TestSetupRouter_WSEventsRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := SetupRouter(Deps{Cfg: cfg})

	// No token at all.
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws/events", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous GET /ws/events should return 401, got %d", w.Code)
	}

	// Garbage token via the query param browsers use.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("GET", "/ws/events?token=not.a.valid.jwt", nil)
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusUnauthorized {
		t.Errorf("bad token GET /ws/events should return 401, got %d", w2.Code)
	}
}

func TestSetupRouter_DispatchRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := SetupRouter(Deps{Cfg: cfg})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/dispatch", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST /dispatch should return 401, got %d", w.Code)
	}
}
