package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/auth"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/browser"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/config"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/db"
)

// brokenLauncher fails every launch so tool plumbing is testable without a browser
type brokenLauncher struct{}

func (brokenLauncher) Launch(browser.SessionOptions, browser.EventSink) (browser.Page, io.Closer, error) {
	return nil, nil, errors.New("chromium not installed")
}

func (brokenLauncher) Close() error { return nil }

type testEnv struct {
	server *Server
	store  *MockStore
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	store := NewMockStore()
	tools := browser.NewRegistry(browser.NewManager(brokenLauncher{}, browser.ManagerConfig{}))

	srv, err := NewServer(cfg, Dependencies{DB: store, Users: store, Items: store, Tools: tools})
	require.NoError(t, err)
	return &testEnv{
		server: srv,
		store:  store,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry),
	}
}

// userToken stores a user and returns a bearer token for it
func (e *testEnv) userToken(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	user := &db.User{Email: email, Name: "Tester"}
	require.NoError(t, e.store.CreateUser(t.Context(), user))
	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)
	return user.ID, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestReadyCheck(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/ready", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]any](t, rr)
	assert.Equal(t, "ready", resp["status"])
	assert.Equal(t, "ok", resp["database"])
	assert.Equal(t, float64(3), resp["validators"].(map[string]any)["total_types"])
	assert.Equal(t, float64(0), resp["browser_sessions"])

	env.store.pingErr = errBoom
	rr = env.do(t, "GET", "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unreachable", decode[map[string]any](t, rr)["database"])
}

func TestReadyCheck_NoDatabase(t *testing.T) {
	srv, err := NewServer(config.Defaults(), Dependencies{})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "not configured", decode[map[string]any](t, rr)["database"])
}

func TestMissingBackendsAnswer503(t *testing.T) {
	cfg := config.Defaults()
	srv, err := NewServer(cfg, Dependencies{})
	require.NoError(t, err)

	user := &db.User{ID: uuid.New(), Email: "a@example.com"}
	token, _, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry).Issue(user)
	require.NoError(t, err)

	for _, path := range []string{"/api/v1/test-items", "/api/v1/tools"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		srv.Router().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/auth/login", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "Dev@Example.com", "password": "correct-horse", "name": "Dev",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	registered := decode[auth.TokenResponse](t, rr)
	assert.Equal(t, "bearer", registered.TokenType)

	rr = env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	login := decode[auth.TokenResponse](t, rr)

	rr = env.do(t, "GET", "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[map[string]any](t, rr)
	assert.Equal(t, "dev@example.com", me["user"].(map[string]any)["email"])

	rr = env.do(t, "GET", "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListTestTypes(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/v1/test-types", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	types := decode[[]TestTypeSummary](t, rr)
	require.Len(t, types, 3)
	assert.Equal(t, "generic", string(types[0].Type))
	assert.True(t, types[0].Default)
	assert.Empty(t, types[0].Required)
	assert.Equal(t, "bdd", string(types[1].Type))
	assert.Contains(t, types[1].Required, "feature_name")
	assert.Contains(t, types[2].Required, "manual_notes")
}

func TestGetTestTypeSchema(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/v1/test-types/MANUAL/schema", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[SchemaResponse](t, rr)
	assert.Equal(t, "manual", string(resp.Type))

	found := false
	for _, f := range resp.Fields {
		if f.Name == "screenshot_urls" {
			found = true
			assert.Equal(t, "string_list", f.Kind)
			assert.Contains(t, f.Constraints, "max_items=10")
		}
	}
	assert.True(t, found)

	rr = env.do(t, "GET", "/api/v1/test-types/bdx/schema", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, `did you mean "bdd"?`)
}

func TestValidateTestType(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/test-types/generic/validate", "", map[string]any{
		"natural_language_steps": []string{"Open the home page"},
		"automation_priority":    "HIGH",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ok := decode[ValidateResponse](t, rr)
	assert.True(t, ok.Valid)
	assert.Equal(t, "high", ok.TypeData["automation_priority"])

	rr = env.do(t, "POST", "/api/v1/test-types/generic/validate", "", map[string]any{
		"ai_confidence_score": 1.5,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	bad := decode[ErrorResponse](t, rr)
	assert.Equal(t, "AI confidence score must be between 0.0 and 1.0", bad.Details["ai_confidence_score"])

	rr = env.do(t, "POST", "/api/v1/test-types/manual/validate", "", map[string]any{
		"manual_notes":      "Open the login page and sign in",
		"expected_outcomes": "Dashboard is shown",
		"screenshot_urls":   []string{"http://a.com/1.png", "HTTP://A.COM/1.PNG"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, "Duplicate screenshot URLs are not allowed")

	rr = env.do(t, "POST", "/api/v1/test-types/xyz/validate", "", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, "generic, bdd, manual")
}

func TestTestItemsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.userToken(t, "owner@example.com")

	rr := env.do(t, "POST", "/api/v1/test-items", token, map[string]any{
		"title":     "Login works",
		"test_type": "manual",
		"type_data": map[string]any{
			"manual_notes":            "Open the login page and sign in",
			"expected_outcomes":       "Dashboard is shown",
			"execution_time_estimate": 15,
		},
		"tags": []string{"smoke", "smoke", "auth"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[db.TestItem](t, rr)
	assert.Equal(t, "manual", string(created.TestType))
	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, "medium", created.Priority)
	assert.Len(t, created.Tags, 2)

	path := "/api/v1/test-items/" + created.ID.String()

	rr = env.do(t, "GET", path, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Login works", decode[db.TestItem](t, rr).Title)

	rr = env.do(t, "GET", path+"?typed=true", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	typed := decode[map[string]any](t, rr)
	assert.Equal(t, float64(15), typed["typed_data"].(map[string]any)["execution_time_estimate"])

	rr = env.do(t, "PUT", path, token, map[string]any{"status": "active", "priority": "high"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[db.TestItem](t, rr)
	assert.Equal(t, "active", updated.Status)
	assert.Equal(t, "high", updated.Priority)

	rr = env.do(t, "GET", "/api/v1/test-items?test_type=manual&mine=true", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[map[string]any](t, rr)
	assert.Equal(t, float64(1), list["total"])
	assert.Equal(t, float64(20), list["limit"])

	rr = env.do(t, "DELETE", path, token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, "GET", path, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTestItems_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.userToken(t, "owner@example.com")
	_, other := env.userToken(t, "other@example.com")

	rr := env.do(t, "POST", "/api/v1/test-items", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, "POST", "/api/v1/test-items", owner, map[string]any{
		"title":     "Bad order",
		"test_type": "bdd",
		"type_data": map[string]any{
			"feature_name":  "Login",
			"scenario_name": "Valid credentials",
			"bdd_blocks": []map[string]string{
				{"type": "when", "content": "I submit the form"},
				{"type": "given", "content": "I am on the login page"},
				{"type": "then", "content": "I see the dashboard"},
			},
		},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, "found before any 'Given'")

	rr = env.do(t, "POST", "/api/v1/test-items", owner, map[string]any{"title": "", "priority": "urgent"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	details := decode[ErrorResponse](t, rr).Details
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "priority")

	rr = env.do(t, "POST", "/api/v1/test-items", owner, map[string]any{"title": "Plain"})
	require.Equal(t, http.StatusCreated, rr.Code)
	item := decode[db.TestItem](t, rr)
	assert.Equal(t, "generic", string(item.TestType))
	assert.Empty(t, item.TypeData)

	path := "/api/v1/test-items/" + item.ID.String()
	rr = env.do(t, "PUT", path, other, map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = env.do(t, "DELETE", path, other, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, "GET", "/api/v1/test-items/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, "GET", "/api/v1/test-items?status=archived", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	env.store.listErr = errBoom
	rr = env.do(t, "GET", "/api/v1/test-items", owner, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "failed to list test items", decode[ErrorResponse](t, rr).Error)
	assert.NotContains(t, rr.Body.String(), errBoom.Error())
}

func TestTestItems_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.userToken(t, "owner@example.com")

	req := httptest.NewRequest("POST", "/api/v1/test-items", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, "invalid request body")
}

func TestTools(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.userToken(t, "owner@example.com")

	rr := env.do(t, "GET", "/api/v1/tools", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, "GET", "/api/v1/tools", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	listed := decode[map[string]any](t, rr)
	assert.Len(t, listed["tools"], 8)
	assert.Empty(t, listed["sessions"])

	rr = env.do(t, "POST", "/api/v1/tools/teleport", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, "POST", "/api/v1/tools/start_session", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	result := decode[browser.ToolResult](t, rr)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "chromium not installed")

	rr = env.do(t, "POST", "/api/v1/tools/click_element", token, map[string]any{"selector": "#go"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "session_id is required", decode[browser.ToolResult](t, rr).Error)
}

func TestRespondJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	respondJSON(rr, http.StatusCreated, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "value", decode[map[string]string](t, rr)["key"])
}

func TestRespondJSON_NilData(t *testing.T) {
	rr := httptest.NewRecorder()

	respondJSON(rr, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}
