package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/eyalm/folio/internal/assistant"
	"github.com/eyalm/folio/internal/auth"
	"github.com/eyalm/folio/internal/content"
	"github.com/eyalm/folio/internal/github"
	"github.com/eyalm/folio/internal/schedule"
	"github.com/eyalm/folio/internal/storage"
)

// Deps collects everything the router serves.
type Deps struct {
	Store     *storage.Store
	Auth      *auth.Service
	Posts     *content.Library
	Site      content.Site
	GitHub    *github.Client
	Assistant *assistant.Service
	Schedule  *schedule.Service
	Hub       *GameHub
	StaticDir string
	Logger    *slog.Logger
}

// Router holds the HTTP routes and dependencies
type Router struct {
	mux       *http.ServeMux
	store     *storage.Store
	auth      *auth.Service
	posts     *content.Library
	site      content.Site
	github    *github.Client
	assistant *assistant.Service
	schedule  *schedule.Service
	gameHub   *GameHub
	staticDir string
	logger    *slog.Logger
}

// NewRouter creates a new HTTP router
func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := &Router{
		mux:       http.NewServeMux(),
		store:     d.Store,
		auth:      d.Auth,
		posts:     d.Posts,
		site:      d.Site,
		github:    d.GitHub,
		assistant: d.Assistant,
		schedule:  d.Schedule,
		gameHub:   d.Hub,
		staticDir: d.StaticDir,
		logger:    d.Logger,
	}

	// Blog
	r.mux.HandleFunc("GET /api/posts", r.handleListPosts)
	r.mux.HandleFunc("GET /api/posts/{slug}", r.handleGetPost)
	r.mux.HandleFunc("GET /rss.xml", r.handleRSS)
	r.mux.HandleFunc("GET /sitemap.xml", r.handleSitemap)

	// Projects
	r.mux.HandleFunc("GET /api/github-repos", r.handleGitHubRepos)

	// Assistant
	r.mux.HandleFunc("POST /api/ai-chat", r.handleAIChat)

	// Meeting scheduler
	r.mux.HandleFunc("POST /api/schedule", r.handleSchedule)

	// Auth routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("GET /api/auth/check", r.handleAuthCheck)
	r.mux.HandleFunc("POST /api/auth/change-password", r.requireAuth(r.handleChangePassword))

	// Admin routes
	r.mux.HandleFunc("GET /api/admin/meetings", r.requireAdmin(r.handleListMeetings))
	r.mux.HandleFunc("GET /api/admin/users", r.requireAdmin(r.handleListUsers))

	// Game socket
	r.mux.HandleFunc("GET /ws/game", r.handleGameSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	// Static files - only serve if staticDir is configured
	if d.StaticDir != "" {
		r.mux.HandleFunc("GET /", r.handleStatic)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// handleStatic serves static files from the configured directory
// For SPA support, serves index.html for any path that doesn't match a file
func (r *Router) handleStatic(w http.ResponseWriter, req *http.Request) {
	path := filepath.Clean(req.URL.Path)
	if path == "/" {
		path = "/index.html"
	}

	fullPath := filepath.Join(r.staticDir, path)

	// Security: ensure the path is within staticDir
	absStaticDir, _ := filepath.Abs(r.staticDir)
	absPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absPath, absStaticDir) {
		http.NotFound(w, req)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		// SPA fallback: serve index.html for unknown paths
		fullPath = filepath.Join(r.staticDir, "index.html")
		if _, err := os.Stat(fullPath); err != nil {
			http.NotFound(w, req)
			return
		}
	}

	if ct := getContentType(fullPath); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, req, fullPath)
}

// getContentType returns the content type for a file based on extension
func getContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".ico":
		return "image/x-icon"
	default:
		return ""
	}
}
