package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Content   ContentConfig   `yaml:"content"`
	GitHub    GitHubConfig    `yaml:"github"`
	Assistant AssistantConfig `yaml:"assistant"`
	Game      GameConfig      `yaml:"game"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
	StaticDir  string `yaml:"static_dir"`
}

// SiteConfig describes the public site, used by the RSS and sitemap feeds
type SiteConfig struct {
	BaseURL     string `yaml:"base_url"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Language    string `yaml:"language"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication settings for the admin surface
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// ContentConfig holds blog content settings
type ContentConfig struct {
	Dir string `yaml:"dir"`
}

// GitHubConfig holds the projects-page GitHub proxy settings
type GitHubConfig struct {
	Username string        `yaml:"username"`
	Token    string        `yaml:"token"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AssistantConfig holds the AI chat settings. With no API key the
// assistant answers from its built-in fallback responses only.
type AssistantConfig struct {
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	Endpoint        string        `yaml:"endpoint"`
	RatePerHour     int           `yaml:"rate_per_hour"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// GameConfig holds the trivia game tunables
type GameConfig struct {
	MaxPlayers       int           `yaml:"max_players"`
	MinPlayers       int           `yaml:"min_players"`
	QuestionsPerRoom int           `yaml:"questions_per_room"`
	PointsPerCorrect int           `yaml:"points_per_correct"`
	StartDelay       time.Duration `yaml:"start_delay"`
	QuestionInterval time.Duration `yaml:"question_interval"`
	FinishedTTL      time.Duration `yaml:"finished_ttl"`
}

// ScheduleConfig holds the meeting scheduler settings
type ScheduleConfig struct {
	CodeTTL time.Duration `yaml:"code_ttl"`
	Dev     bool          `yaml:"dev"` // echo verification codes in responses
}

// Load reads configuration from a YAML file. Secrets may also come from
// the environment (GITHUB_TOKEN, OPENAI_API_KEY, FOLIO_JWT_SECRET), which
// takes precedence over the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is given.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}
	if v := os.Getenv("FOLIO_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	// Note: StaticDir intentionally has no default - empty means don't serve static files

	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.HTTPPort)
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = "My Blog"
	}
	if cfg.Site.Language == "" {
		cfg.Site.Language = "en"
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "folio.db"
	}
	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = 24 * time.Hour
	}
	if cfg.Content.Dir == "" {
		cfg.Content.Dir = "content/blog"
	}

	if cfg.GitHub.CacheTTL == 0 {
		cfg.GitHub.CacheTTL = 24 * time.Hour
	}

	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gpt-4o-mini"
	}
	if cfg.Assistant.Endpoint == "" {
		cfg.Assistant.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.Assistant.RatePerHour == 0 {
		cfg.Assistant.RatePerHour = 10
	}
	if cfg.Assistant.UpstreamTimeout == 0 {
		cfg.Assistant.UpstreamTimeout = 15 * time.Second
	}

	if cfg.Game.MaxPlayers == 0 {
		cfg.Game.MaxPlayers = 4
	}
	if cfg.Game.MinPlayers == 0 {
		cfg.Game.MinPlayers = 2
	}
	if cfg.Game.QuestionsPerRoom == 0 {
		cfg.Game.QuestionsPerRoom = 10
	}
	if cfg.Game.PointsPerCorrect == 0 {
		cfg.Game.PointsPerCorrect = 10
	}
	if cfg.Game.StartDelay == 0 {
		cfg.Game.StartDelay = 3 * time.Second
	}
	if cfg.Game.QuestionInterval == 0 {
		cfg.Game.QuestionInterval = 15 * time.Second
	}
	if cfg.Game.FinishedTTL == 0 {
		cfg.Game.FinishedTTL = 60 * time.Second
	}

	if cfg.Schedule.CodeTTL == 0 {
		cfg.Schedule.CodeTTL = 10 * time.Minute
	}
}
