package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyalm/folio/internal/assistant"
	"github.com/eyalm/folio/internal/auth"
	"github.com/eyalm/folio/internal/content"
	"github.com/eyalm/folio/internal/game"
	"github.com/eyalm/folio/internal/github"
	"github.com/eyalm/folio/internal/schedule"
	"github.com/eyalm/folio/internal/storage"
)

type testEnv struct {
	router *Router
	store  *storage.Store
	auth   *auth.Service
	svc    *game.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	store, err := storage.New(filepath.Join(t.TempDir(), "api-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	contentDir := t.TempDir()
	post := "---\ntitle: Hello Go\ndescription: intro\ndate: 2024-04-01\ntags: [go]\ncategory: backend\n---\nSome body text.\n"
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "hello-go.md"), []byte(post), 0o644))
	posts, err := content.Load(contentDir, logger)
	require.NoError(t, err)

	authSvc := auth.NewService("test-secret", time.Hour)

	hub := NewGameHub(logger)
	gameCfg := game.DefaultConfig()
	gameCfg.StartDelay = time.Hour // keep rooms inert during API tests
	svc := game.NewService(gameCfg, game.DefaultBank, hub, logger, nil)
	hub.Bind(svc)
	t.Cleanup(svc.Close)

	router := NewRouter(Deps{
		Store: store,
		Auth:  authSvc,
		Posts: posts,
		Site: content.Site{
			BaseURL: "https://example.dev",
			Title:   "Example Dev",
		},
		// Unroutable API base so the fallback list answers without
		// touching the network.
		GitHub:    github.New("someone", "", time.Hour, logger, github.WithAPIBase("http://127.0.0.1:0")),
		Assistant: assistant.New(assistant.Config{}, logger),
		Schedule:  schedule.New(schedule.Config{CodeTTL: 10 * time.Minute, Dev: true}, store, logger),
		Hub:       hub,
		Logger:    logger,
	})

	return &testEnv{router: router, store: store, auth: authSvc, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListPosts(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	posts := decode[[]postSummary](t, rec)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello-go", posts[0].Slug)
	assert.Equal(t, "Hello Go", posts[0].Title)
}

func TestListPostsFilters(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/api/posts?tag=go", nil, nil)
	assert.Len(t, decode[[]postSummary](t, rec), 1)

	rec = e.do(t, "GET", "/api/posts?tag=rust", nil, nil)
	assert.Empty(t, decode[[]postSummary](t, rec))

	rec = e.do(t, "GET", "/api/posts?category=frontend", nil, nil)
	assert.Empty(t, decode[[]postSummary](t, rec))
}

func TestGetPost(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/api/posts/hello-go", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[postDetail](t, rec)
	assert.Contains(t, detail.Body, "Some body text")

	rec = e.do(t, "GET", "/api/posts/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeeds(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/rss.xml", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "rss+xml")
	assert.Contains(t, rec.Body.String(), "hello-go")

	rec = e.do(t, "GET", "/sitemap.xml", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.dev/blog/hello-go")
}

func TestGitHubReposAlwaysAnswers(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/api/github-repos", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	repos := decode[[]github.Repo](t, rec)
	assert.NotEmpty(t, repos)
}

func TestAIChatFallback(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "POST", "/api/ai-chat", map[string]string{"message": "hello", "context": "blog"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[assistant.Reply](t, rec)
	assert.Equal(t, "fallback", reply.Source)
	assert.NotEmpty(t, reply.Reply)
}

func TestAIChatRateLimit(t *testing.T) {
	e := newTestEnv(t)
	headers := map[string]string{"X-Real-IP": "9.9.9.9"}

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = e.do(t, "POST", "/api/ai-chat", map[string]string{"message": "hi"}, headers)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestScheduleFlowOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "POST", "/api/schedule", map[string]string{
		"action":   "request-code",
		"fullName": "Dana Levi",
		"email":    "dana@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	code := decode[schedule.CodeResponse](t, rec)
	require.NotEmpty(t, code.DevCode)

	rec = e.do(t, "POST", "/api/schedule", map[string]string{
		"action":         "verify-code",
		"verificationId": code.VerificationID,
		"code":           "wrong!",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, "POST", "/api/schedule", map[string]string{
		"action":         "verify-code",
		"verificationId": code.VerificationID,
		"code":           code.DevCode,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "POST", "/api/schedule", map[string]string{
		"action":         "book",
		"verificationId": code.VerificationID,
		"meetingType":    "intro-call",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestScheduleRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "POST", "/api/schedule", map[string]string{"action": "request-code", "fullName": "X"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/api/schedule", map[string]string{"action": "teleport"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func seedUser(t *testing.T, e *testEnv, username, password string, admin bool) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	_, err = e.store.CreateUser(context.Background(), username, hash, admin)
	require.NoError(t, err)
}

func login(t *testing.T, e *testEnv, username, password string) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/auth/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[LoginResponse](t, rec).Token
}

func TestLoginAndAuthCheck(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "admin", "correct-horse", true)

	rec := e.do(t, "POST", "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := login(t, e, "admin", "correct-horse")

	rec = e.do(t, "GET", "/api/auth/check", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[map[string]any](t, rec)
	assert.Equal(t, true, check["authenticated"])
	assert.Equal(t, true, check["is_admin"])

	rec = e.do(t, "GET", "/api/auth/check", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["authenticated"])
}

func TestAdminMeetingsRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "admin", "correct-horse", true)
	seedUser(t, e, "viewer", "also-correct", false)

	rec := e.do(t, "GET", "/api/admin/meetings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewerToken := login(t, e, "viewer", "also-correct")
	rec = e.do(t, "GET", "/api/admin/meetings", nil, map[string]string{"Authorization": "Bearer " + viewerToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := login(t, e, "admin", "correct-horse")
	rec = e.do(t, "GET", "/api/admin/meetings", nil, map[string]string{"Authorization": "Bearer " + adminToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	seedUser(t, e, "admin", "old-password", true)
	token := login(t, e, "admin", "old-password")

	rec := e.do(t, "POST", "/api/auth/change-password", map[string]string{
		"current_password": "old-password",
		"new_password":     "new-password-123",
	}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "POST", "/api/auth/login", map[string]string{"username": "admin", "password": "old-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	login(t, e, "admin", "new-password-123")
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "OPTIONS", "/api/posts", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
