package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/config"
	"github.com/techstore/storefront/infrastructure/persistence/memory"
	jwtservice "github.com/techstore/storefront/infrastructure/service/jwt"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/infrastructure/service/password"
)

// sessionHarness wires the use cases to real token and password services on
// top of the in-memory stores.
type sessionHarness struct {
	principals *memory.PrincipalRepository
	store      *memory.RefreshStore
	tokens     *jwtservice.JWTService
	passwords  *password.BcryptPasswordService
	auth       *AuthUseCase
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()

	tokens, err := jwtservice.NewJWTService(&config.Config{
		JWTAccessSecret:  "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		JWTIssuer:        "storefront-test",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	h := &sessionHarness{
		principals: memory.NewPrincipalRepository(),
		store:      memory.NewRefreshStore(),
		tokens:     tokens,
		passwords:  password.NewBcryptPasswordService(bcryptMinCost),
	}
	h.auth = NewAuthUseCase(h.principals, h.store, h.tokens, h.passwords, nil, nil, RateLimits{}, logger.NewNopLogger())
	return h
}

const bcryptMinCost = 4

func (h *sessionHarness) seed(t *testing.T, id, username, secret string, role valueobject.Role) *entity.Principal {
	t.Helper()
	hash, err := h.passwords.HashPassword(secret)
	require.NoError(t, err)
	p := entity.NewPrincipal(id, username, username+"@example.com", hash, username, role)
	require.NoError(t, h.principals.Create(context.Background(), p))
	return p
}

func (h *sessionHarness) login(t *testing.T, identifier, secret string) *valueobject.TokenPair {
	t.Helper()
	result, err := h.auth.Login(context.Background(), loginRequest(identifier, secret))
	require.NoError(t, err)
	return result.Tokens
}
