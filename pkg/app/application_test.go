package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"healthmatch/pkg/auth"
	"healthmatch/pkg/config"
	"healthmatch/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const testSecret = "app-test-secret-0123456789"

type echoHandler struct{}

func (echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		p, _ := auth.PrincipalFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": p.UserID})
	})
}

func newTestApplication(t *testing.T, checks map[string]PingFunc) (*Application, *auth.Issuer) {
	t.Helper()

	cfg := config.FromEnv("app-test")
	cfg.Log = logger.Discard()

	issuer := auth.NewIssuer(testSecret, "test")
	a := NewApplication(cfg)
	a.SetApp(echoHandler{}, issuer, checks)
	t.Cleanup(a.idempotencyStore.Stop)
	return a, issuer
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		checks     map[string]PingFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "liveness",
			path:       "/health",
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ok"`,
		},
		{
			name: "ready when all stores respond",
			path: "/ready",
			checks: map[string]PingFunc{
				"mongo": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody:   `"mongo":"ok"`,
		},
		{
			name: "not ready when a store fails",
			path: "/ready",
			checks: map[string]PingFunc{
				"mongo":    func(context.Context) error { return nil },
				"postgres": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"postgres":"error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApplication(t, tt.checks)

			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %s, got %s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a, issuer := newTestApplication(t, nil)

	token, err := issuer.CreateAccessToken("u1", auth.RoleClient, "", time.Minute)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	a.Handler().ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Errorf("expected request counter in metrics output")
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	a, issuer := newTestApplication(t, nil)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := issuer.CreateAccessToken("u42", auth.RoleClient, "", time.Minute)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"user_id":"u42"`) {
		t.Errorf("expected principal to reach the handler, got %s", rec.Body.String())
	}
}

type fakeWorker struct {
	mu      sync.Mutex
	started chan struct{}
	closed  bool
}

func (w *fakeWorker) Start(ctx context.Context) error {
	close(w.started)
	<-ctx.Done()
	return ctx.Err()
}

func (w *fakeWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type fakeCloser struct{ closed bool }

func (c *fakeCloser) Close() error {
	c.closed = true
	return nil
}

func TestWorkersStartAndStop(t *testing.T) {
	a, _ := newTestApplication(t, nil)
	worker := &fakeWorker{started: make(chan struct{})}
	closer := &fakeCloser{}
	a.AddWorker("worker", worker)
	a.AddCloser("closer", closer)

	ctx, cancel := context.WithCancel(context.Background())
	a.startWorkers(ctx)

	select {
	case <-worker.started:
	case <-time.After(time.Second):
		t.Fatal("worker was not started")
	}

	cancel()
	a.stopBackground()

	if !worker.closed {
		t.Error("expected worker to be closed")
	}
	if !closer.closed {
		t.Error("expected closer to be closed")
	}
}
