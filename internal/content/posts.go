package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Post is a blog post loaded from a markdown file with YAML frontmatter.
// The collection is read once at startup and immutable afterwards.
type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Author      string    `json:"author"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category"`
	Image       string    `json:"image,omitempty"`
	Draft       bool      `json:"-"`
	ReadingTime int       `json:"readingTime"` // minutes
	Body        string    `json:"-"`
}

// frontmatter is the YAML header of a post file.
type frontmatter struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Date        time.Time `yaml:"date"`
	Author      string    `yaml:"author"`
	Tags        []string  `yaml:"tags"`
	Category    string    `yaml:"category"`
	Image       string    `yaml:"image"`
	Draft       bool      `yaml:"draft"`
	ReadingTime int       `yaml:"readingTime"`
}

// Library holds the loaded blog collection, newest first.
type Library struct {
	posts  []Post
	bySlug map[string]*Post
}

// Load reads every .md file in dir. Files that fail to parse are skipped
// with a warning rather than failing startup. A missing directory yields
// an empty library.
func Load(dir string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lib := &Library{bySlug: make(map[string]*Post)}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Warn("content directory missing, serving empty blog", "dir", dir)
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading content dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		post, err := parseFile(path)
		if err != nil {
			logger.Warn("skipping unparseable post", "file", entry.Name(), "error", err)
			continue
		}
		lib.posts = append(lib.posts, *post)
	}

	sort.Slice(lib.posts, func(i, j int) bool {
		return lib.posts[i].Date.After(lib.posts[j].Date)
	})
	for i := range lib.posts {
		lib.bySlug[lib.posts[i].Slug] = &lib.posts[i]
	}

	logger.Info("blog content loaded", "dir", dir, "posts", len(lib.posts))
	return lib, nil
}

// parseFile splits a markdown file into frontmatter and body.
func parseFile(path string) (*Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, fmt.Errorf("missing frontmatter")
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	if fm.Title == "" {
		return nil, fmt.Errorf("missing title")
	}

	body := strings.TrimLeft(rest[end+len("\n---"):], "-")
	body = strings.TrimSpace(body)

	post := &Post{
		Slug:        strings.TrimSuffix(filepath.Base(path), ".md"),
		Title:       fm.Title,
		Description: fm.Description,
		Date:        fm.Date,
		Author:      fm.Author,
		Tags:        fm.Tags,
		Category:    fm.Category,
		Image:       fm.Image,
		Draft:       fm.Draft,
		ReadingTime: fm.ReadingTime,
		Body:        body,
	}
	if post.ReadingTime == 0 {
		post.ReadingTime = estimateReadingTime(body)
	}
	return post, nil
}

// estimateReadingTime assumes ~200 words per minute, minimum one minute.
func estimateReadingTime(body string) int {
	words := len(strings.Fields(body))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Published returns all non-draft posts, newest first.
func (l *Library) Published() []Post {
	out := make([]Post, 0, len(l.posts))
	for _, p := range l.posts {
		if !p.Draft {
			out = append(out, p)
		}
	}
	return out
}

// Get returns a published post by slug.
func (l *Library) Get(slug string) (*Post, bool) {
	p, ok := l.bySlug[slug]
	if !ok || p.Draft {
		return nil, false
	}
	return p, true
}
