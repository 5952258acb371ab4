package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/testutil"
)

const jwtSecret = "test-secret"

type capturedEvents struct {
	mu     sync.Mutex
	userID string
	kinds  []string
}

func (c *capturedEvents) PublishWorkspaceEvent(kind, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, kind+":"+userID)
}

// ServeHTTP is a minimal SSE stub: it records the filter and blocks until
// the request context is done.
func (c *capturedEvents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.userID = r.URL.Query().Get("userId")
	c.mu.Unlock()
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
}

// testEnv sets up a temp SQLite DB, service, and router for testing.
func testEnv(t *testing.T, auth AuthConfig) (http.Handler, *capturedEvents) {
	t.Helper()
	events := &capturedEvents{}
	svc := boardservice.NewService(testutil.TestDB(t), events, nil)
	return NewRouter(svc, Config{Auth: auth, Events: events}), events
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signed(t *testing.T, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).
		SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func boardJSON() map[string]any {
	return map[string]any{"items": []map[string]any{
		{"id": "g", "type": "GROUP", "position": map[string]any{"x": 0, "y": 0},
			"size": map[string]any{"width": 600, "height": 400}, "zIndex": 0, "title": "Q3", "color": "transparent"},
		{"id": "t", "type": "TASK", "position": map[string]any{"x": 20, "y": 20},
			"size": map[string]any{"width": 300, "height": 200}, "zIndex": 2, "groupId": "g",
			"title": "Ship", "description": "", "priority": "High", "completed": true},
		{"id": "n", "type": "NOTE", "position": map[string]any{"x": 700, "y": 20},
			"size": map[string]any{"width": 240, "height": 240}, "zIndex": 3, "groupId": "gone",
			"content": "hello", "color": "#fef3c7"},
	}}
}

func TestLoginCreatesUser(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthDisabled})

	w := do(t, router, http.MethodPost, "/login", LoginRequest{Email: "ada@example.com", Name: "Ada"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var u User
	_ = json.Unmarshal(w.Body.Bytes(), &u)
	if u.ID == "" || u.Preferences.Theme != "light" {
		t.Errorf("user = %+v", u)
	}

	w = do(t, router, http.MethodPut, "/users/"+u.ID, UpdateUserRequest{Name: "Ada L."})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	w = do(t, router, http.MethodPut, "/users/"+u.ID, map[string]any{"preferences": map[string]string{"theme": "neon"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad theme = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPut, "/users/nobody", UpdateUserRequest{Name: "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user = %d, want 404", w.Code)
	}
}

func TestLoginRejectsMissingEmail(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthDisabled})
	if w := do(t, router, http.MethodPost, "/login", LoginRequest{Name: "Nobody"}); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetWorkspaceCreatesEmpty(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthDisabled})

	w := do(t, router, http.MethodGet, "/workspace/u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var ws struct {
		UserID string            `json:"userId"`
		Items  []json.RawMessage `json:"items"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &ws)
	if ws.UserID != "u1" || ws.Items == nil || len(ws.Items) != 0 {
		t.Errorf("workspace = %s", w.Body.String())
	}
}

func TestSaveAndGetWorkspace(t *testing.T) {
	router, events := testEnv(t, AuthConfig{Mode: AuthDisabled})

	w := do(t, router, http.MethodPost, "/workspace/u1", boardJSON())
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved SaveWorkspaceResponse
	_ = json.Unmarshal(w.Body.Bytes(), &saved)
	if !saved.Success || saved.Checksum == "" {
		t.Errorf("save = %+v", saved)
	}
	if len(events.kinds) != 1 || events.kinds[0] != "updated:u1" {
		t.Errorf("events = %v", events.kinds)
	}

	w = do(t, router, http.MethodGet, "/workspace/u1", nil)
	var ws WorkspaceDetail
	if err := json.Unmarshal(w.Body.Bytes(), &ws); err != nil {
		t.Fatal(err)
	}
	if len(ws.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(ws.Items))
	}
	if ws.Items[2].GroupID != "" {
		t.Errorf("dangling groupId kept: %q", ws.Items[2].GroupID)
	}
	if got := w.Header().Get("ETag"); got != `"`+saved.Checksum+`"` {
		t.Errorf("ETag = %s, want checksum %s", got, saved.Checksum)
	}

	// A client holding the current copy gets 304.
	w = do(t, router, http.MethodGet, "/workspace/u1", nil, "If-None-Match", `"`+saved.Checksum+`"`)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}
}

func TestSaveWorkspaceRejectsBadItems(t *testing.T) {
	router, events := testEnv(t, AuthConfig{Mode: AuthDisabled})

	cases := map[string]any{
		"unknown type": map[string]any{"items": []map[string]any{{"id": "x", "type": "STICKER"}}},
		"duplicate id": map[string]any{"items": []map[string]any{
			{"id": "a", "type": "NOTE", "size": map[string]any{"width": 1, "height": 1}},
			{"id": "a", "type": "NOTE", "size": map[string]any{"width": 1, "height": 1}},
		}},
		"zero size": map[string]any{"items": []map[string]any{{"id": "a", "type": "NOTE"}}},
	}
	for name, body := range cases {
		if w := do(t, router, http.MethodPost, "/workspace/u1", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
	if len(events.kinds) != 0 {
		t.Errorf("events published for rejected saves: %v", events.kinds)
	}
}

func TestExportStatsAnalyze(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthDisabled})
	do(t, router, http.MethodPost, "/workspace/u1", boardJSON())

	w := do(t, router, http.MethodGet, "/workspace/u1/export.png", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("export = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if _, err := png.Decode(w.Body); err != nil {
		t.Fatalf("decode png: %v", err)
	}

	w = do(t, router, http.MethodGet, "/workspace/u1/stats", nil)
	var stats StatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Tasks.Total != 1 || stats.Tasks.Completed != 1 {
		t.Errorf("stats = %+v", stats.Tasks)
	}

	w = do(t, router, http.MethodPost, "/workspace/u1/analyze", nil)
	var an AnalysisResponse
	_ = json.Unmarshal(w.Body.Bytes(), &an)
	if an.Analysis != "API Key missing." {
		t.Errorf("analysis = %q", an.Analysis)
	}

	w = do(t, router, http.MethodPost, "/workspace/u1/advice", nil)
	var adv AdviceResponse
	_ = json.Unmarshal(w.Body.Bytes(), &adv)
	if adv.Advice != "Add expenses to get AI insights." {
		t.Errorf("advice = %q", adv.Advice)
	}
}

func TestClassifyWithoutModel(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthDisabled})
	w := do(t, router, http.MethodPost, "/classify", ClassifyRequest{Text: "buy toner"})
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}
}

func TestShare(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthDisabled})

	w := do(t, router, http.MethodGet, "/share/u1?role=edit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var link ShareResponse
	_ = json.Unmarshal(w.Body.Bytes(), &link)
	if link.Role != "edit" || link.Token == "" || link.Link != "/share/u1?role=edit" {
		t.Errorf("link = %+v", link)
	}
	if w := do(t, router, http.MethodGet, "/share/u1?role=owner", nil); w.Code != http.StatusBadRequest {
		t.Errorf("owner role = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_Token(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthToken, Token: "secret123"})

	if w := do(t, router, http.MethodGet, "/workspace/u1", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/workspace/u1", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/workspace/u1", nil, "Authorization", "Bearer secret123"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_JWT(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthJWT, JWTSecret: jwtSecret})

	if w := do(t, router, http.MethodGet, "/workspace/u1", nil, "Authorization", signed(t, "u1")); w.Code != http.StatusOK {
		t.Errorf("own board = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/workspace/u2", nil, "Authorization", signed(t, "u1")); w.Code != http.StatusForbidden {
		t.Errorf("other board = %d, want 403", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/workspace/u2", boardJSON(), "Authorization", signed(t, "u1")); w.Code != http.StatusForbidden {
		t.Errorf("save other board = %d, want 403", w.Code)
	}

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString([]byte("other-secret"))
	if w := do(t, router, http.MethodGet, "/workspace/u1", nil, "Authorization", "Bearer "+forged); w.Code != http.StatusUnauthorized {
		t.Errorf("forged = %d, want 401", w.Code)
	}
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if w := do(t, router, http.MethodGet, "/workspace/u1", nil, "Authorization", "Bearer "+unsigned); w.Code != http.StatusUnauthorized {
		t.Errorf("alg none = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/workspace/u1", nil, "Authorization", signed(t, "")); w.Code != http.StatusUnauthorized {
		t.Errorf("no subject = %d, want 401", w.Code)
	}
}

func TestLoginWithJWTUsesSubject(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthJWT, JWTSecret: jwtSecret})

	w := do(t, router, http.MethodPost, "/login", LoginRequest{Email: "kim@example.com"}, "Authorization", signed(t, "sub-kim"))
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d, body = %s", w.Code, w.Body.String())
	}
	var u User
	_ = json.Unmarshal(w.Body.Bytes(), &u)
	if u.ID != "sub-kim" {
		t.Errorf("id = %q, want sub-kim", u.ID)
	}

	// Same email under another identity.
	w = do(t, router, http.MethodPost, "/login", LoginRequest{Email: "kim@example.com"}, "Authorization", signed(t, "sub-eve"))
	if w.Code != http.StatusForbidden {
		t.Errorf("login as other subject = %d, want 403", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnv(t, AuthConfig{Mode: AuthToken, Token: "secret"})
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_JWTFilter(t *testing.T) {
	router, events := testEnv(t, AuthConfig{Mode: AuthJWT, JWTSecret: jwtSecret})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", signed(t, "u1"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if events.userID != "u1" {
		t.Errorf("filter = %q, want u1", events.userID)
	}

	if w := do(t, router, http.MethodGet, "/events?userId=u2", nil, "Authorization", signed(t, "u1")); w.Code != http.StatusForbidden {
		t.Errorf("foreign filter = %d, want 403", w.Code)
	}
}
