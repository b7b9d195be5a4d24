package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyalm/folio/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "hash1", true)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.True(t, byName.IsAdmin)
	assert.Nil(t, byName.LastLogin)

	require.NoError(t, s.UpdateUserLastLogin(ctx, created.ID))
	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLogin)

	require.NoError(t, s.UpdateUserPassword(ctx, created.ID, "hash2"))
	byID, err = s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash2", byID.PasswordHash)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(ctx, "alice"))
	assert.ErrorIs(t, s.DeleteUser(ctx, "alice"), sql.ErrNoRows)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "hash", false)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice", "hash", false)
	assert.Error(t, err)
}

func TestVerificationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := &domain.Verification{
		ID:        "v-1",
		Code:      "123456",
		FullName:  "Dana Levi",
		Email:     "dana@example.com",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, s.CreateVerification(ctx, v))

	got, err := s.GetVerification(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, "dana@example.com", got.Email)
	assert.Empty(t, got.Phone)
	assert.False(t, got.Verified)

	require.NoError(t, s.MarkVerified(ctx, "v-1"))
	got, err = s.GetVerification(ctx, "v-1")
	require.NoError(t, err)
	assert.True(t, got.Verified)

	require.NoError(t, s.DeleteVerification(ctx, "v-1"))
	_, err = s.GetVerification(ctx, "v-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteExpiredVerifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateVerification(ctx, &domain.Verification{
		ID: "stale", Code: "111111", FullName: "A", ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, s.CreateVerification(ctx, &domain.Verification{
		ID: "fresh", Code: "222222", FullName: "B", ExpiresAt: now.Add(time.Hour),
	}))

	n, err := s.DeleteExpiredVerifications(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetVerification(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMeetingsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"meet_a", "meet_b", "meet_c"} {
		require.NoError(t, s.CreateMeeting(ctx, &domain.Meeting{
			ID:             id,
			VerificationID: "v",
			FullName:       "Dana Levi",
			MeetingType:    "intro-call",
			PreferredDate:  "2026-09-15",
			TimeZone:       "UTC",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	meetings, err := s.ListMeetings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, meetings, 3)
	assert.Equal(t, "meet_c", meetings[0].ID)
	assert.Equal(t, "meet_a", meetings[2].ID)

	limited, err := s.ListMeetings(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
