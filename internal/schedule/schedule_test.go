package schedule

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyalm/folio/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(Config{CodeTTL: 10 * time.Minute, Dev: true}, store, slog.New(slog.DiscardHandler))
}

func validRequest() CodeRequest {
	return CodeRequest{FullName: "Dana Levi", Email: "dana@example.com", Phone: "0521234567"}
}

func TestRequestCodeIssuesSixDigitCode(t *testing.T) {
	s := newTestService(t)

	resp, err := s.RequestCode(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.VerificationID)
	assert.Len(t, resp.DevCode, 6)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestRequestCodeValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CodeRequest
	}{
		{"short name", CodeRequest{FullName: "D", Email: "d@example.com"}},
		{"no contact", CodeRequest{FullName: "Dana Levi"}},
		{"bad email", CodeRequest{FullName: "Dana Levi", Email: "not-an-email"}},
		{"bad phone", CodeRequest{FullName: "Dana Levi", Phone: "12345"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RequestCode(ctx, tc.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRequestCodeAcceptsDashedPhone(t *testing.T) {
	s := newTestService(t)

	_, err := s.RequestCode(context.Background(), CodeRequest{FullName: "Dana Levi", Phone: "052-123-4567"})
	assert.NoError(t, err)
}

func TestVerifyCodeFlow(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	resp, err := s.RequestCode(ctx, validRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, s.VerifyCode(ctx, resp.VerificationID, "000000x"), ErrBadCode)
	assert.ErrorIs(t, s.VerifyCode(ctx, "no-such-id", resp.DevCode), ErrNotFound)
	assert.NoError(t, s.VerifyCode(ctx, resp.VerificationID, resp.DevCode))
}

func TestVerifyCodeExpired(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	resp, err := s.RequestCode(ctx, validRequest())
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, s.VerifyCode(ctx, resp.VerificationID, resp.DevCode), ErrExpired)
}

func TestBookRequiresVerification(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	resp, err := s.RequestCode(ctx, validRequest())
	require.NoError(t, err)

	_, err = s.Book(ctx, BookingRequest{VerificationID: resp.VerificationID})
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestBookCreatesMeetingAndRetiresVerification(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	resp, err := s.RequestCode(ctx, validRequest())
	require.NoError(t, err)
	require.NoError(t, s.VerifyCode(ctx, resp.VerificationID, resp.DevCode))

	m, err := s.Book(ctx, BookingRequest{
		VerificationID: resp.VerificationID,
		MeetingType:    "intro-call",
		PreferredDate:  "2026-09-15",
		TimeZone:       "Asia/Jerusalem",
	})
	require.NoError(t, err)

	assert.Contains(t, m.ID, "meet_")
	assert.Equal(t, "Dana Levi", m.FullName)
	assert.Equal(t, "intro-call", m.MeetingType)

	// the verification is single use
	_, err = s.Book(ctx, BookingRequest{VerificationID: resp.VerificationID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestCodeSweepsExpiredRows(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	stale, err := s.RequestCode(ctx, validRequest())
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = s.RequestCode(ctx, validRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, s.VerifyCode(ctx, stale.VerificationID, stale.DevCode), ErrNotFound)
}
