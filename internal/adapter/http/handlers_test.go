package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapthttp "habits/internal/adapter/http"
	"habits/internal/adapter/memory"
	"habits/internal/app"
	"habits/internal/domain"
)

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	ts *httptest.Server
	db *memory.DB
}

func newTestServer(t *testing.T, withAuth bool) *testEnv {
	t.Helper()

	db := memory.New()
	cards := app.NewCardService(db, db, nil, app.CardConfig{FirstWeekday: time.Sunday, Prefetch: true})
	habits := app.NewHabitService(db, cards)
	authSvc := app.NewAuthService(db, db.NewSessionRepo())

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(habits, cards, authSvc, nil, webDir)
	if !withAuth {
		srv = srv.WithoutAuth()
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var m map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&m)
	return resp, m
}

func (e *testEnv) createHabit(t *testing.T, payload map[string]any) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/habits", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	return body["id"].(string)
}

func modeValue(t *testing.T, snap map[string]any, mode string) map[string]any {
	t.Helper()
	for _, m := range snap["modes"].([]any) {
		mm := m.(map[string]any)
		if mm["mode"] == mode {
			return mm
		}
	}
	t.Fatalf("mode %s missing from %v", mode, snap)
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t, false)
	resp, body := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}

func TestHabitCRUD(t *testing.T) {
	env := newTestServer(t, false)

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{"valid", map[string]any{"name": "water", "unit": "glasses", "target": 8, "kind": "good"}, http.StatusCreated},
		{"missing name", map[string]any{"target": 8}, http.StatusBadRequest},
		{"negative target", map[string]any{"name": "x", "target": -1}, http.StatusBadRequest},
		{"bad kind", map[string]any{"name": "x", "target": 1, "kind": "ugly"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"name": "x", "colour": "red"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/habits", tc.payload)
			assert.Equal(t, tc.wantStatus, resp.StatusCode, "body: %v", body)
		})
	}

	resp, body := env.do(t, http.MethodGet, "/api/habits", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	id := items[0].(map[string]any)["id"].(string)

	resp, body = env.do(t, http.MethodPut, "/api/habits/"+id, map[string]any{"name": "water", "target": 6, "kind": "good"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, float64(6), body["target"])

	resp, _ = env.do(t, http.MethodDelete, "/api/habits/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/habits/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/habits/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCardIncrementAndDecrement(t *testing.T) {
	env := newTestServer(t, false)
	id := env.createHabit(t, map[string]any{"name": "pushups", "target": 2})

	resp, body := env.do(t, http.MethodPost, "/api/habits/"+id+"/increment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, true, body["changed"])
	snap := body["card"].(map[string]any)
	assert.Equal(t, float64(1), modeValue(t, snap, "daily")["value"])
	assert.Len(t, snap["window"], 30)

	_, body = env.do(t, http.MethodPost, "/api/habits/"+id+"/increment", nil)
	assert.Equal(t, true, modeValue(t, body["card"].(map[string]any), "daily")["completed"])

	_, body = env.do(t, http.MethodPost, "/api/habits/"+id+"/reset", nil)
	assert.Equal(t, float64(0), modeValue(t, body["card"].(map[string]any), "daily")["value"])

	_, body = env.do(t, http.MethodPost, "/api/habits/"+id+"/decrement", nil)
	assert.Equal(t, false, body["changed"])
}

func TestCardShiftAndJump(t *testing.T) {
	env := newTestServer(t, false)
	id := env.createHabit(t, map[string]any{"name": "read", "target": 1})
	today := domain.Today()

	resp, body := env.do(t, http.MethodPost, "/api/habits/"+id+"/shift", map[string]any{"direction": "backward"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, domain.DayKey(domain.AddDays(today, -1)), body["lastDay"])

	resp, body = env.do(t, http.MethodPost, "/api/habits/"+id+"/shift", map[string]any{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %v", body)

	resp, body = env.do(t, http.MethodPost, "/api/habits/"+id+"/jump", map[string]any{"day": "2026-01-31"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "2026-01-31", body["lastDay"])
	assert.Equal(t, "2026-01-02", body["firstDay"])

	resp, body = env.do(t, http.MethodGet, "/api/habits/"+id+"/card?day=2026-02-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2026-02-01", body["lastDay"])

	resp, _ = env.do(t, http.MethodPost, "/api/habits/"+id+"/jump", map[string]any{"day": "31/01/2026"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCardRandomizeWindow(t *testing.T) {
	env := newTestServer(t, false)
	id := env.createHabit(t, map[string]any{"name": "steps", "target": 3})

	resp, body := env.do(t, http.MethodPost, "/api/habits/"+id+"/randomize", map[string]any{"scope": "window"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, float64(30), body["stored"])

	resp, body = env.do(t, http.MethodPost, "/api/habits/"+id+"/randomize", map[string]any{"scope": "day"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, true, body["changed"])

	resp, _ = env.do(t, http.MethodPost, "/api/habits/"+id+"/randomize", map[string]any{"scope": "year"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCardGridAndHistory(t *testing.T) {
	env := newTestServer(t, false)
	id := env.createHabit(t, map[string]any{"name": "sleep", "target": 8})

	resp, body := env.do(t, http.MethodGet, "/api/habits/"+id+"/grid?first_weekday=monday", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "Mon", body["weekdays"].([]any)[0])
	rows := body["rows"].([]any)
	assert.True(t, len(rows) == 5 || len(rows) == 6, "got %d rows", len(rows))

	resp, _ = env.do(t, http.MethodGet, "/api/habits/"+id+"/grid?first_weekday=funday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/habits/"+id+"/history?days=7", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(7), body["days"])
}

func TestCardOtherUsersHabit(t *testing.T) {
	env := newTestServer(t, false)
	h := &domain.Habit{UserID: 42, Name: "private", Target: 1, Kind: domain.KindGood}
	require.NoError(t, env.db.CreateHabit(context.Background(), h))

	resp, _ := env.do(t, http.MethodGet, "/api/habits/"+h.ID.String()+"/card", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	env := newTestServer(t, true)

	resp, _ := env.do(t, http.MethodGet, "/api/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/auth/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["sso_enabled"])
}

func TestLoginFlow(t *testing.T) {
	env := newTestServer(t, true)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.ts.Client().Jar = jar

	resp, _ := env.do(t, http.MethodPost, "/api/auth/setup", map[string]any{"username": "admin", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/setup", map[string]any{"username": "other", "password": "password123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "admin", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body["username"])

	env.createHabit(t, map[string]any{"name": "water", "target": 8})

	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestForwardAuth(t *testing.T) {
	env := newTestServer(t, true)
	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Remote-User", "proxyuser")

	resp, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, false)
	env.do(t, http.MethodGet, "/api/health", nil)

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSPAFallback(t *testing.T) {
	env := newTestServer(t, false)
	resp, err := env.ts.Client().Get(env.ts.URL + "/some/client/route")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}
