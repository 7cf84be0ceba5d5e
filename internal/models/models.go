package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents an account within the friend graph.
type User struct {
	ID        string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FriendRequest is a pending, directed offer of friendship. UserID sent the
// request and ApplicantID received it.
type FriendRequest struct {
	ID                string
	UserID            string
	ApplicantID       string
	Username          string
	ApplicantUsername string
	CreatedAt         time.Time
}

// Friendship is a confirmed, symmetric relationship stored in canonical order
// (UserLow < UserHigh).
type Friendship struct {
	ID           string
	UserLow      string
	UserHigh     string
	LowUsername  string
	HighUsername string
	CreatedAt    time.Time
}

// Other returns the id and username of the side of the friendship that is not userID.
func (f Friendship) Other(userID string) (string, string) {
	if f.UserLow == userID {
		return f.UserHigh, f.HighUsername
	}
	return f.UserLow, f.LowUsername
}

// Touches reports whether userID is either side of the friendship.
func (f Friendship) Touches(userID string) bool {
	return f.UserLow == userID || f.UserHigh == userID
}

// CanonicalPair orders two user identifiers so that an unordered pair always
// has a single stored representation.
func CanonicalPair(a, b string) (low, high string) {
	if strings.Compare(a, b) > 0 {
		return b, a
	}
	return a, b
}

// NewID returns a time-ordered identifier, so sorting ids descending lists the
// most recent records first.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
