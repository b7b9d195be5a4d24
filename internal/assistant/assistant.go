package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimited is returned when a client exceeds its hourly budget.
var ErrRateLimited = fmt.Errorf("rate limit exceeded")

const systemPrompt = "You are the assistant on a personal developer site. " +
	"The site has a blog about backend development, a projects page backed by GitHub, " +
	"a realtime multiplayer trivia game, and a meeting scheduler. " +
	"Answer briefly and point visitors at the relevant section. " +
	"If asked about anything unrelated to the site or its author, politely decline."

// Config mirrors the assistant section of the site configuration.
type Config struct {
	APIKey          string
	Model           string
	Endpoint        string
	RatePerHour     int
	UpstreamTimeout time.Duration
}

// Service answers visitor chat messages. With an API key it proxies to
// an OpenAI-compatible chat completions endpoint; without one, or when
// the upstream fails, it answers from keyword rules. Chat never returns
// an error other than ErrRateLimited.
type Service struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	limiter *limiter
}

func New(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.RatePerHour <= 0 {
		cfg.RatePerHour = 10
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 15 * time.Second
	}
	return &Service{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.UpstreamTimeout},
		logger:  logger,
		limiter: newLimiter(cfg.RatePerHour, time.Hour, nil),
	}
}

// Reply is a chat answer plus where it came from ("model" or "fallback").
type Reply struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
}

// Chat answers message for the client identified by key (normally the
// remote IP). pageContext optionally names the section the visitor is on.
func (s *Service) Chat(ctx context.Context, key, message, pageContext string) (Reply, error) {
	if !s.limiter.allow(key) {
		return Reply{}, ErrRateLimited
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{Reply: "Say something and I'll do my best to help.", Source: "fallback"}, nil
	}

	if s.cfg.APIKey != "" {
		answer, err := s.complete(ctx, message, pageContext)
		if err == nil {
			return Reply{Reply: answer, Source: "model"}, nil
		}
		s.logger.Warn("assistant upstream failed, using fallback", "error", err)
	}

	return Reply{Reply: fallbackReply(message, pageContext), Source: "fallback"}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Service) complete(ctx context.Context, message, pageContext string) (string, error) {
	prompt := systemPrompt
	if pageContext != "" {
		prompt += " The visitor is currently on the " + pageContext + " section."
	}

	body, err := json.Marshal(completionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: message},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(s.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned %s", resp.Status)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
