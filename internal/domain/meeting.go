package domain

import "time"

// Verification is a pending contact-verification challenge for the
// meeting scheduler. The code is delivered out of band; booking requires
// a verified entry.
type Verification struct {
	ID        string    `json:"id"`
	Code      string    `json:"-"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Verified  bool      `json:"verified"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the verification can no longer be used.
func (v *Verification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Meeting is a booked meeting request.
type Meeting struct {
	ID             string    `json:"id"`
	VerificationID string    `json:"verification_id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Company        string    `json:"company,omitempty"`
	MeetingType    string    `json:"meeting_type"`
	PreferredDate  string    `json:"preferred_date"`
	TimeZone       string    `json:"time_zone"`
	Message        string    `json:"message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
