package valueobject

import "time"

// TokenType is the class marker embedded in every signed token.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AccessClaims is the validated view of an access token.
type AccessClaims struct {
	PrincipalID string
	Role        Role
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// RefreshClaims is the validated view of a refresh token. It carries no role;
// rotation reads the role from the principal again.
type RefreshClaims struct {
	PrincipalID string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
