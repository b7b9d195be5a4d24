package schedule

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eyalm/folio/internal/domain"
	"github.com/eyalm/folio/internal/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("verification not found")
	ErrExpired      = errors.New("verification code expired")
	ErrBadCode      = errors.New("wrong verification code")
	ErrNotVerified  = errors.New("verification not completed")
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+\d{1,3})?0?5[0-9]{8}$`)
)

// Config mirrors the schedule section of the site configuration.
type Config struct {
	CodeTTL time.Duration
	Dev     bool
}

// Service books meetings behind a verification-code step: request a
// code, verify it, then book. Codes live in SQLite with a short TTL.
// Without an SMS/email provider wired in, Dev mode echoes the code in
// the response so the flow can be exercised end to end.
type Service struct {
	cfg    Config
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg Config, store *storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	return &Service{cfg: cfg, store: store, logger: logger, now: time.Now}
}

// CodeRequest starts the flow.
type CodeRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// CodeResponse returns the verification handle. DevCode is only set in
// dev mode.
type CodeResponse struct {
	VerificationID string `json:"verificationId"`
	ExpiresAt      string `json:"expiresAt"`
	DevCode        string `json:"devCode,omitempty"`
}

// RequestCode validates contact details, issues a 6-digit code and
// stores it with a TTL. Expired rows are swept opportunistically.
func (s *Service) RequestCode(ctx context.Context, req CodeRequest) (*CodeResponse, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.ReplaceAll(strings.TrimSpace(req.Phone), "-", "")

	if len(req.FullName) < 2 {
		return nil, fmt.Errorf("%w: full name required", ErrInvalidInput)
	}
	if req.Email == "" && req.Phone == "" {
		return nil, fmt.Errorf("%w: email or phone required", ErrInvalidInput)
	}
	if req.Email != "" && !emailRe.MatchString(req.Email) {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if req.Phone != "" && !phoneRe.MatchString(req.Phone) {
		return nil, fmt.Errorf("%w: malformed phone number", ErrInvalidInput)
	}

	if n, err := s.store.DeleteExpiredVerifications(ctx, s.now()); err != nil {
		s.logger.Warn("sweeping expired verifications failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("swept expired verifications", "count", n)
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generating code: %w", err)
	}

	v := &domain.Verification{
		ID:        uuid.NewString(),
		Code:      code,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		ExpiresAt: s.now().Add(s.cfg.CodeTTL),
	}
	if err := s.store.CreateVerification(ctx, v); err != nil {
		return nil, fmt.Errorf("storing verification: %w", err)
	}

	// Delivery provider integration goes here; until then the code is
	// only reachable in dev mode.
	s.logger.Info("verification code issued", "id", v.ID, "name", v.FullName)

	resp := &CodeResponse{
		VerificationID: v.ID,
		ExpiresAt:      v.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if s.cfg.Dev {
		resp.DevCode = code
	}
	return resp, nil
}

// VerifyCode checks the submitted code against the stored verification.
func (s *Service) VerifyCode(ctx context.Context, verificationID, code string) error {
	v, err := s.store.GetVerification(ctx, verificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading verification: %w", err)
	}
	if v.Expired(s.now()) {
		return ErrExpired
	}
	if v.Code != strings.TrimSpace(code) {
		return ErrBadCode
	}
	if err := s.store.MarkVerified(ctx, v.ID); err != nil {
		return fmt.Errorf("marking verified: %w", err)
	}
	return nil
}

// BookingRequest completes the flow for a verified contact.
type BookingRequest struct {
	VerificationID string `json:"verificationId"`
	Company        string `json:"company"`
	MeetingType    string `json:"meetingType"`
	PreferredDate  string `json:"preferredDate"`
	TimeZone       string `json:"timeZone"`
	Message        string `json:"message"`
}

// Book records a meeting for a verified contact and retires the
// verification so it cannot be reused.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*domain.Meeting, error) {
	v, err := s.store.GetVerification(ctx, req.VerificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading verification: %w", err)
	}
	if !v.Verified {
		return nil, ErrNotVerified
	}
	if v.Expired(s.now()) {
		return nil, ErrExpired
	}

	m := &domain.Meeting{
		ID:             "meet_" + uuid.NewString(),
		VerificationID: v.ID,
		FullName:       v.FullName,
		Email:          v.Email,
		Phone:          v.Phone,
		Company:        strings.TrimSpace(req.Company),
		MeetingType:    strings.TrimSpace(req.MeetingType),
		PreferredDate:  strings.TrimSpace(req.PreferredDate),
		TimeZone:       strings.TrimSpace(req.TimeZone),
		Message:        strings.TrimSpace(req.Message),
	}
	if err := s.store.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("storing meeting: %w", err)
	}
	if err := s.store.DeleteVerification(ctx, v.ID); err != nil {
		s.logger.Warn("deleting used verification failed", "id", v.ID, "error", err)
	}

	s.logger.Info("meeting booked", "id", m.ID, "name", m.FullName, "type", m.MeetingType)
	return m, nil
}

// generateCode produces a 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
