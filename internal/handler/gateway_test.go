package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"bff-gateway/internal/client"
	"bff-gateway/internal/config"
	"bff-gateway/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEcho wires the full route table against env.
func newTestEcho(t *testing.T, env config.Env) *echo.Echo {
	t.Helper()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{TimeoutSeconds: 10, IdleConnections: 10},
	}
	logger := testLogger()
	uc := client.NewUpstreamClient(cfg, logger, nil)
	p := service.NewPipeline(uc, service.CORS{}, service.NewLogObserver(logger))

	e := echo.New()
	RegisterRoutes(e, service.NewRouter(service.Endpoints()),
		NewGatewayHandler(p, env, logger), NewHealthHandler(env, "test"), cfg, nil)
	return e
}

func upstreamEnv(url string) config.MapEnv {
	return config.MapEnv{
		config.EnvUpstreamBaseURL: url,
		config.EnvUpstreamAPIKey:  "test-key",
	}
}

func TestGateway_GetUserTeams(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if r.URL.Path != "/teams/session/abc123" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/teams/session/abc123")
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("x-api-key = %q, want %q", r.Header.Get("X-Api-Key"), "test-key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teams":[{"id":1,"name":"Alpha"}]}`))
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstreamEnv(upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/getUserTeams", http.NoBody)
	req.Header.Set("Cookie", "sessionID=abc123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != `{"teams":[{"id":1,"name":"Alpha"}]}` {
		t.Errorf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestGateway_UpstreamNotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Team not found"}`))
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstreamEnv(upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/getUserTeams", http.NoBody)
	req.Header.Set("Cookie", "sessionID=abc123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if rec.Body.String() != `{"error":{"message":"Team not found"}}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGateway_DeleteUnityPackage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q, want DELETE", r.Method)
		}
		if r.URL.Path != "/rest-api/unityPackages/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"session_id":"s1","team_id":"t1"}` {
			t.Errorf("body = %s", body)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"deleted":true}`))
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstreamEnv(upstream.URL))

	req := httptest.NewRequest(http.MethodDelete, "/deleteUnityPackage/42",
		strings.NewReader(`{"team_id":"t1","session_id":"s1"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if rec.Body.String() != `{"deleted":true}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGateway_DeleteUnityPackage_MissingPathParam(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstreamEnv(upstream.URL))

	req := httptest.NewRequest(http.MethodDelete, "/deleteUnityPackage",
		strings.NewReader(`{"team_id":"t1","session_id":"s1"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec.Body.String() != `{"error":"package_id, team_id and session_id required"}` {
		t.Errorf("body = %s", rec.Body.String())
	}
	if calls.Load() != 0 {
		t.Errorf("upstream called %d times, want 0", calls.Load())
	}
}

func TestGateway_LocalRejections(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstreamEnv(upstream.URL))

	tests := []struct {
		name       string
		method     string
		path       string
		header     map[string]string
		wantStatus int
		wantBody   string
	}{
		{"preflight", http.MethodOptions, "/getUnityPackages", nil, http.StatusOK, ""},
		{"wrong method", http.MethodPost, "/getAllGames", nil, http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`},
		{"no session header", http.MethodGet, "/getTeams", nil, http.StatusUnauthorized, `{"error":"Unauthorized: Missing sessionid header"}`},
		{"no session cookie", http.MethodGet, "/getUserTeams", nil, http.StatusUnauthorized, `{"error":"Unauthorized: No session ID found"}`},
		{"empty team name", http.MethodGet, "/getUserGames?team_name=", nil, http.StatusBadRequest, `{"error":"Missing team_name parameter"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	if calls.Load() != 0 {
		t.Errorf("upstream called %d times, want 0", calls.Load())
	}
}

func TestGateway_PreflightHeaders(t *testing.T) {
	e := newTestEcho(t, config.MapEnv{})

	req := httptest.NewRequest(http.MethodOptions, "/deleteUnityPackage/7", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "DELETE, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q, want %q", got, "DELETE, OPTIONS")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, sessionid" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
}

func TestGateway_MissingConfiguration(t *testing.T) {
	e := newTestEcho(t, config.MapEnv{config.EnvUpstreamAPIKey: "k"})

	req := httptest.NewRequest(http.MethodGet, "/getAllGames", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if rec.Body.String() != `{"error":"gateway misconfigured: UPSTREAM_BASE_URL is not set"}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGateway_ResolvesConfigurationPerRequest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	var baseURL atomic.Value
	baseURL.Store("")
	env := config.EnvFunc(func(key string) (string, bool) {
		switch key {
		case config.EnvUpstreamBaseURL:
			return baseURL.Load().(string), true
		case config.EnvUpstreamAPIKey:
			return "k", true
		}
		return "", false
	})
	e := newTestEcho(t, env)

	do := func() int {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getAllGames", http.NoBody))
		return rec.Code
	}

	if code := do(); code != http.StatusInternalServerError {
		t.Errorf("before configuration: status = %d, want %d", code, http.StatusInternalServerError)
	}
	baseURL.Store(upstream.URL)
	if code := do(); code != http.StatusOK {
		t.Errorf("after configuration: status = %d, want %d", code, http.StatusOK)
	}
}

func TestGateway_UpstreamUnreachable(t *testing.T) {
	e := newTestEcho(t, upstreamEnv("http://127.0.0.1:1/private"))

	req := httptest.NewRequest(http.MethodPost, "/getUnityPackages",
		strings.NewReader(`{"team_id":"1","session_id":"secret-sess"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"error":"upstream request:`) {
		t.Errorf("body = %s, want transport error message", body)
	}
	for _, leak := range []string{"127.0.0.1:1/private", "secret-sess"} {
		if strings.Contains(body, leak) {
			t.Errorf("body %s exposes %q", body, leak)
		}
	}
}
