package entity

import (
	"crypto/subtle"
	"time"
)

// RefreshRecord points at the one refresh token currently valid for a
// principal. Writing a new record replaces the previous one.
type RefreshRecord struct {
	PrincipalID string    `json:"principal_id"`
	TokenID     string    `json:"token_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewRefreshRecord(principalID, tokenID string, issuedAt, expiresAt time.Time) *RefreshRecord {
	return &RefreshRecord{
		PrincipalID: principalID,
		TokenID:     tokenID,
		IssuedAt:    issuedAt.UTC(),
		ExpiresAt:   expiresAt.UTC(),
	}
}

// Matches compares the presented token id with the stored one in constant time.
func (r *RefreshRecord) Matches(tokenID string) bool {
	if r == nil || r.TokenID == "" || tokenID == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(r.TokenID), []byte(tokenID)) == 1
}

func (r *RefreshRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
