package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultAPIBase = "https://api.github.com"

// Repo is the subset of the GitHub repository object the projects page
// renders. Field names follow the GitHub REST API.
type Repo struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	HTMLURL     string   `json:"html_url"`
	Homepage    string   `json:"homepage,omitempty"`
	Language    string   `json:"language"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Topics      []string `json:"topics"`
	Fork        bool     `json:"fork"`
	UpdatedAt   string   `json:"updated_at"`
}

// Client fetches a user's public repositories with an in-memory cache.
// Repos never fails outward: on upstream trouble it serves the stale
// cache, then the static fallback list.
type Client struct {
	username string
	token    string
	ttl      time.Duration
	apiBase  string
	http     *http.Client
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	cached    []Repo
	fetchedAt time.Time
}

// Option tweaks a Client, mainly for tests.
type Option func(*Client)

// WithAPIBase points the client at a different GitHub API endpoint.
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = base }
}

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(username, token string, ttl time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &Client{
		username: username,
		token:    token,
		ttl:      ttl,
		apiBase:  defaultAPIBase,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repos returns the user's public repositories, newest-updated first as
// GitHub sorts them. The result is cached; a failed refresh falls back
// to the last good fetch, then to the static list. It never errors.
func (c *Client) Repos(ctx context.Context) []Repo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.cached
	}

	repos, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("github fetch failed", "username", c.username, "error", err)
		if c.cached != nil {
			return c.cached
		}
		return FallbackRepos
	}

	c.cached = repos
	c.fetchedAt = c.now()
	return repos
}

func (c *Client) fetch(ctx context.Context) ([]Repo, error) {
	url := fmt.Sprintf("%s/users/%s/repos?sort=updated&per_page=12", c.apiBase, c.username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned %s", resp.Status)
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("decoding repos: %w", err)
	}

	// Forks clutter the projects page.
	filtered := repos[:0]
	for _, r := range repos {
		if !r.Fork {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// FallbackRepos is served when GitHub is unreachable and no cached
// fetch exists, so the projects page always has content.
var FallbackRepos = []Repo{
	{
		ID: 1, Name: "folio",
		Description: "Personal site backend: blog, projects and a realtime trivia game",
		HTMLURL:     "https://github.com/eyalm/folio",
		Language:    "Go", Stars: 12, Topics: []string{"go", "websocket", "blog"},
	},
	{
		ID: 2, Name: "trivia-arena",
		Description: "Multiplayer trivia rooms over WebSocket",
		HTMLURL:     "https://github.com/eyalm/trivia-arena",
		Language:    "TypeScript", Stars: 8, Topics: []string{"game", "realtime"},
	},
	{
		ID: 3, Name: "md-press",
		Description: "Markdown blog engine with RSS and sitemap generation",
		HTMLURL:     "https://github.com/eyalm/md-press",
		Language:    "Go", Stars: 5, Topics: []string{"markdown", "rss"},
	},
	{
		ID: 4, Name: "sched-bot",
		Description: "Meeting scheduler with phone verification",
		HTMLURL:     "https://github.com/eyalm/sched-bot",
		Language:    "Go", Stars: 3, Topics: []string{"scheduling"},
	},
	{
		ID: 5, Name: "dotfiles",
		Description: "Shell and editor configuration",
		HTMLURL:     "https://github.com/eyalm/dotfiles",
		Language:    "Shell", Stars: 2,
	},
}
