package authclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/usecase"
	"github.com/techstore/storefront/application/usecase/user_management"
	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/config"
	storehttp "github.com/techstore/storefront/infrastructure/http"
	"github.com/techstore/storefront/infrastructure/http/handler"
	"github.com/techstore/storefront/infrastructure/persistence/memory"
	jwtservice "github.com/techstore/storefront/infrastructure/service/jwt"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/infrastructure/service/password"
	"github.com/techstore/storefront/pkg/authclient"
)

func newStorefront(t *testing.T) string {
	t.Helper()

	tokens, err := jwtservice.NewJWTService(&config.Config{
		JWTAccessSecret:  "client-access-secret",
		JWTRefreshSecret: "client-refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  time.Hour,
	})
	require.NoError(t, err)

	principals := memory.NewPrincipalRepository()
	passwords := password.NewBcryptPasswordService(4)
	log := logger.NewNopLogger()

	for _, seed := range []struct {
		id, username string
		role         valueobject.Role
	}{
		{"p-alice", "alice", valueobject.RoleCustomer},
		{"p-admin", "admin", valueobject.RoleAdmin},
	} {
		hash, err := passwords.HashPassword("correct-secret")
		require.NoError(t, err)
		p := entity.NewPrincipal(seed.id, seed.username, seed.username+"@example.com", hash, seed.username, seed.role)
		require.NoError(t, principals.Create(context.Background(), p))
	}

	router := storehttp.NewRouter(storehttp.ServerConfig{
		Cookies: handler.CookieConfig{AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour},
	}, storehttp.Dependencies{
		Auth:           usecase.NewAuthUseCase(principals, memory.NewRefreshStore(), tokens, passwords, nil, nil, usecase.RateLimits{}, log),
		UserManagement: user_management.NewUserManagementUseCase(principals, passwords, log),
		Tokens:         tokens,
		Logger:         log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCoordinator_AgainstStorefront(t *testing.T) {
	ctx := context.Background()
	baseURL := newStorefront(t)

	client, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)

	p, err := client.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)
	assert.Equal(t, "customer", p.Role)

	p, err = client.ValidateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p-alice", p.ID)

	var profile inbound.ProfileResponse
	require.NoError(t, client.Do(ctx, http.MethodGet, "/auth/me", nil, &profile))
	assert.Equal(t, "alice@example.com", profile.Email)

	err = client.Do(ctx, http.MethodGet, "/admin/users", nil, nil)
	assert.Equal(t, authclient.CodeRoleForbidden, authclient.CodeOf(err))
	assert.NotNil(t, client.Principal(), "forbidden is not an auth failure")

	require.NoError(t, client.EnsureFreshAccess(ctx))
	require.NoError(t, client.Do(ctx, http.MethodGet, "/auth/me", nil, nil))

	client.Logout(ctx)
	assert.Nil(t, client.Principal())

	_, err = client.ValidateSession(ctx)
	assert.Equal(t, authclient.CodeTokenMissing, authclient.CodeOf(err))
}

func TestCoordinator_StaleDeviceEndsTheSession(t *testing.T) {
	ctx := context.Background()
	baseURL := newStorefront(t)

	laptop, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)
	phone, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)

	_, err = laptop.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)
	_, err = phone.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)

	assert.ErrorIs(t, laptop.EnsureFreshAccess(ctx), authclient.ErrSessionCleared)
	assert.Equal(t, authclient.PhaseCleared, laptop.Phase())

	// The replayed token cleared the server-side record, so the phone has to
	// sign in again as well.
	assert.ErrorIs(t, phone.EnsureFreshAccess(ctx), authclient.ErrSessionCleared)

	_, err = phone.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)
	require.NoError(t, phone.EnsureFreshAccess(ctx))
	assert.NotNil(t, phone.Principal())
}

func TestCoordinator_RoleChangeAppliesOnRenewal(t *testing.T) {
	ctx := context.Background()
	baseURL := newStorefront(t)

	alice, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)
	admin, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)

	_, err = alice.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)
	_, err = admin.Login(ctx, "admin", "correct-secret")
	require.NoError(t, err)

	var list inbound.ListUsersResponse
	require.NoError(t, admin.Do(ctx, http.MethodGet, "/admin/users?page=1&limit=10", nil, &list))
	assert.Equal(t, 2, list.Pagination.Total)

	require.NoError(t, admin.Do(ctx, http.MethodPut, "/admin/users/p-alice/role", inbound.UpdateUserRoleRequest{Role: "moderator"}, nil))

	assert.Equal(t, "customer", alice.Principal().Role)
	require.NoError(t, alice.EnsureFreshAccess(ctx))
	assert.Equal(t, "moderator", alice.Principal().Role)
}

func TestCoordinator_ProfileTypoKeepsSession(t *testing.T) {
	ctx := context.Background()
	baseURL := newStorefront(t)

	client, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)
	_, err = client.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)

	err = client.Do(ctx, http.MethodPut, "/auth/profile", map[string]string{
		"new_password":     "another-secret",
		"current_password": "wrong-secret",
	}, nil)
	assert.Equal(t, "InvalidCredentials", authclient.CodeOf(err))
	assert.Equal(t, authclient.PhaseIdle, client.Phase())
	require.NotNil(t, client.Principal())

	var profile inbound.ProfileResponse
	require.NoError(t, client.Do(ctx, http.MethodGet, "/auth/me", nil, &profile))
	assert.Equal(t, "alice", profile.Username)
}

func TestCoordinator_ClearedSessionStopsAuthenticating(t *testing.T) {
	ctx := context.Background()
	baseURL := newStorefront(t)

	client, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)
	_, err = client.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)

	// A second login elsewhere moves the pointer; this client's renewal is
	// then rejected.
	other, err := authclient.NewCoordinator(authclient.Config{BaseURL: baseURL})
	require.NoError(t, err)
	_, err = other.Login(ctx, "alice", "correct-secret")
	require.NoError(t, err)

	assert.ErrorIs(t, client.EnsureFreshAccess(ctx), authclient.ErrSessionCleared)
	assert.Equal(t, authclient.PhaseCleared, client.Phase())

	// The still-valid access token went with the cleared session.
	err = client.Do(ctx, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, authclient.CodeTokenMissing, authclient.CodeOf(err))
	assert.Nil(t, client.Principal())
}
