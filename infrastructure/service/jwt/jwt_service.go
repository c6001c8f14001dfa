package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/techstore/storefront/domain/entity"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/config"
)

var errUnknownTokenType = errors.New("unknown token type")

// sessionClaims is the wire format shared by both token classes. Role is only
// set on access tokens.
type sessionClaims struct {
	Type valueobject.TokenType `json:"typ"`
	Role string                `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTService issues and validates the access/refresh pair. Each class has its
// own HMAC key, picked by the class marker before the signature is checked.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("both access and refresh signing secrets are required")
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("access and refresh tokens must use different secrets")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	return &JWTService{
		accessSecret:  []byte(cfg.JWTAccessSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		issuer:        cfg.JWTIssuer,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}, nil
}

// IssuePair mints a fresh access and refresh token for the principal. The role
// is validated here, once, and embedded only in the access token.
func (s *JWTService) IssuePair(principal *entity.Principal) (*valueobject.TokenPair, error) {
	if principal == nil || principal.ID == "" {
		return nil, fmt.Errorf("principal is required")
	}
	if !principal.Role.IsValid() {
		return nil, fmt.Errorf("cannot mint token for role %q: %w", principal.Role, valueobject.ErrUnknownRole)
	}

	// NumericDate has second precision; truncate so the reported expiry
	// matches what the token carries.
	issuedAt := s.now().UTC().Truncate(time.Second)

	accessID := uuid.NewString()
	accessExp := issuedAt.Add(s.accessTTL)
	accessToken, err := s.sign(s.accessSecret, sessionClaims{
		Type:             valueobject.TokenTypeAccess,
		Role:             principal.Role.String(),
		RegisteredClaims: s.registered(principal.ID, accessID, issuedAt, accessExp),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshID := uuid.NewString()
	refreshExp := issuedAt.Add(s.refreshTTL)
	refreshToken, err := s.sign(s.refreshSecret, sessionClaims{
		Type:             valueobject.TokenTypeRefresh,
		RegisteredClaims: s.registered(principal.ID, refreshID, issuedAt, refreshExp),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &valueobject.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessTokenID:    accessID,
		RefreshTokenID:   refreshID,
		IssuedAt:         issuedAt,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ValidateAccess checks signature, then expiry, then type. A refresh token
// presented here is reported as malformed.
func (s *JWTService) ValidateAccess(token string) (*valueobject.AccessClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != valueobject.TokenTypeAccess {
		return nil, domainerror.ErrTokenMalformed()
	}

	role, err := valueobject.ParseRole(claims.Role)
	if err != nil {
		return nil, domainerror.ErrTokenMalformed()
	}

	return &valueobject.AccessClaims{
		PrincipalID: claims.Subject,
		Role:        role,
		TokenID:     claims.ID,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// ValidateRefresh is ValidateAccess for refresh tokens, except that a valid
// access token yields TokenTypeMismatch.
func (s *JWTService) ValidateRefresh(token string) (*valueobject.RefreshClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != valueobject.TokenTypeRefresh {
		return nil, domainerror.ErrTokenTypeMismatch()
	}

	return &valueobject.RefreshClaims{
		PrincipalID: claims.Subject,
		TokenID:     claims.ID,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTService) registered(subject, id string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (s *JWTService) sign(secret []byte, claims sessionClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *JWTService) parse(token string) (*sessionClaims, error) {
	if token == "" {
		return nil, domainerror.ErrTokenMissing()
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		options = append(options, jwt.WithIssuer(s.issuer))
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFor, options...)
	if err != nil {
		return nil, s.handleValidationError(err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return nil, domainerror.ErrTokenMalformed()
	}
	return claims, nil
}

func (s *JWTService) keyFor(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok {
		return nil, errUnknownTokenType
	}
	switch claims.Type {
	case valueobject.TokenTypeAccess:
		return s.accessSecret, nil
	case valueobject.TokenTypeRefresh:
		return s.refreshSecret, nil
	}
	return nil, errUnknownTokenType
}

// handleValidationError keeps expiry distinguishable; every other failure is
// reported as malformed without saying why.
func (s *JWTService) handleValidationError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return domainerror.ErrTokenExpired()
	}
	return domainerror.ErrTokenMalformed()
}
