package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/eyalm/folio/internal/domain"
	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// Store provides database access
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys, WAL mode for better performance, and busy timeout for concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	// Create tables
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- User methods ---

// CreateUser inserts a new user and returns it with the ID populated
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*domain.User, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?)
	`, username, passwordHash, isAdmin, formatTimestamp(now))
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
	}, nil
}

// GetUserByUsername returns a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, last_login
		FROM users WHERE username = ?
	`, username))
}

// GetUserByID returns a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, last_login
		FROM users WHERE id = ?
	`, id))
}

// ListUsers returns all users ordered by creation
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, last_login
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &lastLogin); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			u.LastLogin = &lastLogin.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes a user by username
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserPassword replaces a user's password hash
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	return err
}

// UpdateUserLastLogin records the time of a successful login
func (s *Store) UpdateUserLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", formatTimestamp(time.Now()), id)
	return err
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// --- Verification methods ---

// CreateVerification stores a new verification challenge
func (s *Store) CreateVerification(ctx context.Context, v *domain.Verification) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verifications (id, code, full_name, email, phone, verified, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.Code, v.FullName, nullable(v.Email), nullable(v.Phone), v.Verified,
		formatTimestamp(v.ExpiresAt), formatTimestamp(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("creating verification: %w", err)
	}
	return nil
}

// GetVerification returns a verification by ID
func (s *Store) GetVerification(ctx context.Context, id string) (*domain.Verification, error) {
	var v domain.Verification
	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, full_name, email, phone, verified, expires_at, created_at
		FROM verifications WHERE id = ?
	`, id).Scan(&v.ID, &v.Code, &v.FullName, &email, &phone, &v.Verified, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.Email = email.String
	v.Phone = phone.String
	return &v, nil
}

// MarkVerified flags a verification as completed
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE verifications SET verified = 1 WHERE id = ?", id)
	return err
}

// DeleteVerification removes a verification, typically after booking
func (s *Store) DeleteVerification(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM verifications WHERE id = ?", id)
	return err
}

// DeleteExpiredVerifications clears out challenges past their expiry
func (s *Store) DeleteExpiredVerifications(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM verifications WHERE expires_at < ?", formatTimestamp(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- Meeting methods ---

// CreateMeeting stores a booked meeting
func (s *Store) CreateMeeting(ctx context.Context, m *domain.Meeting) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, verification_id, full_name, email, phone, company,
			meeting_type, preferred_date, time_zone, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.VerificationID, m.FullName, nullable(m.Email), nullable(m.Phone), nullable(m.Company),
		m.MeetingType, m.PreferredDate, m.TimeZone, nullable(m.Message), formatTimestamp(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("creating meeting: %w", err)
	}
	return nil
}

// ListMeetings returns booked meetings, newest first
func (s *Store) ListMeetings(ctx context.Context, limit int) ([]domain.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, verification_id, full_name, email, phone, company,
			meeting_type, preferred_date, time_zone, message, created_at
		FROM meetings ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []domain.Meeting
	for rows.Next() {
		var m domain.Meeting
		var email, phone, company, message sql.NullString
		if err := rows.Scan(&m.ID, &m.VerificationID, &m.FullName, &email, &phone, &company,
			&m.MeetingType, &m.PreferredDate, &m.TimeZone, &message, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Email = email.String
		m.Phone = phone.String
		m.Company = company.String
		m.Message = message.String
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// nullable maps empty strings to NULL so optional columns stay NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
