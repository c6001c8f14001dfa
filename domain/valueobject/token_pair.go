package valueobject

import "time"

// TokenPair is what a successful login, registration or rotation hands out.
// The ids are the jti claims; only RefreshTokenID is ever persisted.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"-"`
	AccessTokenID    string    `json:"-"`
	RefreshTokenID   string    `json:"-"`
	IssuedAt         time.Time `json:"-"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"-"`
}

// AccessTTL returns the remaining access lifetime relative to now, never negative.
func (p *TokenPair) AccessTTL(now time.Time) time.Duration {
	return remaining(p.AccessExpiresAt, now)
}

// RefreshTTL returns the remaining refresh lifetime relative to now, never negative.
func (p *TokenPair) RefreshTTL(now time.Time) time.Duration {
	return remaining(p.RefreshExpiresAt, now)
}

func remaining(expiresAt, now time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
