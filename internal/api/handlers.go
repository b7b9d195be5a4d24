package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eyalm/folio/internal/assistant"
	"github.com/eyalm/folio/internal/content"
	"github.com/eyalm/folio/internal/schedule"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// getClientIP extracts the real client IP, checking proxy headers first
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// postSummary is a post without its body, for list responses.
type postSummary struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Category    string    `json:"category,omitempty"`
	ReadingTime int       `json:"readingTime"`
}

// handleListPosts returns all published posts, newest first, optionally
// filtered by ?tag= or ?category=.
func (r *Router) handleListPosts(w http.ResponseWriter, req *http.Request) {
	tag := req.URL.Query().Get("tag")
	category := req.URL.Query().Get("category")

	posts := r.posts.Published()
	out := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		if category != "" && p.Category != category {
			continue
		}
		if tag != "" && !hasTag(p, tag) {
			continue
		}
		out = append(out, postSummary{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: p.Description,
			Date:        p.Date,
			Author:      p.Author,
			Tags:        p.Tags,
			Category:    p.Category,
			ReadingTime: p.ReadingTime,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func hasTag(p content.Post, tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// postDetail is a full post including the markdown body.
type postDetail struct {
	postSummary
	Body string `json:"body"`
}

// handleGetPost returns a single post with its body
func (r *Router) handleGetPost(w http.ResponseWriter, req *http.Request) {
	slug := req.PathValue("slug")
	p, ok := r.posts.Get(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, postDetail{
		postSummary: postSummary{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: p.Description,
			Date:        p.Date,
			Author:      p.Author,
			Tags:        p.Tags,
			Category:    p.Category,
			ReadingTime: p.ReadingTime,
		},
		Body: p.Body,
	})
}

// handleRSS serves the blog RSS feed
func (r *Router) handleRSS(w http.ResponseWriter, req *http.Request) {
	out, err := r.posts.RSS(r.site, time.Now())
	if err != nil {
		r.logger.Error("rendering rss feed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render feed")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(out)
}

// handleSitemap serves sitemap.xml
func (r *Router) handleSitemap(w http.ResponseWriter, req *http.Request) {
	out, err := r.posts.Sitemap(r.site)
	if err != nil {
		r.logger.Error("rendering sitemap", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render sitemap")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write(out)
}

// handleGitHubRepos returns the projects list. Repos never fails, so
// this endpoint always answers 200.
func (r *Router) handleGitHubRepos(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.github.Repos(req.Context()))
}

// ChatRequest is the request body for the assistant endpoint
type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// handleAIChat answers a visitor chat message
func (r *Router) handleAIChat(w http.ResponseWriter, req *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := r.assistant.Chat(req.Context(), getClientIP(req), body.Message, body.Context)
	if errors.Is(err, assistant.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "too many messages, try again later")
		return
	}
	if err != nil {
		r.logger.Error("assistant chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat unavailable")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// ScheduleRequest is the request body for the scheduler endpoint. The
// action field selects the step: request-code, verify-code or book.
type ScheduleRequest struct {
	Action string `json:"action"`

	// request-code
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`

	// verify-code and book
	VerificationID string `json:"verificationId,omitempty"`
	Code           string `json:"code,omitempty"`

	// book
	Company       string `json:"company,omitempty"`
	MeetingType   string `json:"meetingType,omitempty"`
	PreferredDate string `json:"preferredDate,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
	Message       string `json:"message,omitempty"`
}

// handleSchedule dispatches the three steps of the meeting flow
func (r *Router) handleSchedule(w http.ResponseWriter, req *http.Request) {
	var body ScheduleRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch body.Action {
	case "request-code":
		resp, err := r.schedule.RequestCode(req.Context(), schedule.CodeRequest{
			FullName: body.FullName,
			Email:    body.Email,
			Phone:    body.Phone,
		})
		if err != nil {
			writeScheduleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case "verify-code":
		if err := r.schedule.VerifyCode(req.Context(), body.VerificationID, body.Code); err != nil {
			writeScheduleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"verified": true})

	case "book":
		m, err := r.schedule.Book(req.Context(), schedule.BookingRequest{
			VerificationID: body.VerificationID,
			Company:        body.Company,
			MeetingType:    body.MeetingType,
			PreferredDate:  body.PreferredDate,
			TimeZone:       body.TimeZone,
			Message:        body.Message,
		})
		if err != nil {
			writeScheduleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

// writeScheduleError maps scheduler errors to HTTP statuses
func writeScheduleError(w http.ResponseWriter, r *Router, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schedule.ErrNotFound):
		writeError(w, http.StatusNotFound, "verification not found")
	case errors.Is(err, schedule.ErrExpired):
		writeError(w, http.StatusGone, "verification code expired")
	case errors.Is(err, schedule.ErrBadCode):
		writeError(w, http.StatusUnauthorized, "wrong verification code")
	case errors.Is(err, schedule.ErrNotVerified):
		writeError(w, http.StatusForbidden, "verification not completed")
	default:
		r.logger.Error("schedule operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scheduling unavailable")
	}
}

// handleListMeetings returns booked meetings, newest first (admin only)
func (r *Router) handleListMeetings(w http.ResponseWriter, req *http.Request) {
	limit := 100
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	meetings, err := r.store.ListMeetings(req.Context(), limit)
	if err != nil {
		r.logger.Error("listing meetings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

// handleHealth reports liveness plus a little game state
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"game_clients": r.gameHub.ClientCount(),
		"game_rooms":   r.gameHub.svc.RoomCount(),
	})
}
