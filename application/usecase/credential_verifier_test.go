package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

func mustCredentials(t *testing.T, identifier, secret string) *valueobject.Credentials {
	t.Helper()
	c, err := valueobject.NewCredentials(identifier, secret)
	require.NoError(t, err)
	return c
}

func TestCredentialVerifier_Success(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPrincipalRepository)
	passwords := new(MockPasswordService)
	principal := entity.NewPrincipal("p-1", "alice", "alice@example.com", "hashed", "Alice", valueobject.RoleCustomer)

	repo.On("FindByIdentifier", ctx, "alice").Return(principal, nil)
	passwords.On("VerifyPassword", "correct-secret", "hashed").Return(true, nil)
	repo.On("TouchLastLogin", ctx, "p-1", mock.AnythingOfType("time.Time")).Return(nil)

	verifier := NewCredentialVerifier(repo, passwords, logger.NewNopLogger())
	got, err := verifier.Verify(ctx, mustCredentials(t, "alice", "correct-secret"))

	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ID)
	assert.NotNil(t, got.LastLoginAt)
	repo.AssertExpectations(t)
	passwords.AssertExpectations(t)
}

func TestCredentialVerifier_FailuresLookAlike(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown identifier", func(t *testing.T) {
		repo := new(MockPrincipalRepository)
		passwords := new(MockPasswordService)
		repo.On("FindByIdentifier", ctx, "mallory").Return(nil, outbound.ErrPrincipalNotFound)
		passwords.On("HashPassword", dummySecret).Return("dummy-hash", nil).Once()
		passwords.On("VerifyPassword", "whatever", "dummy-hash").Return(false, nil)

		verifier := NewCredentialVerifier(repo, passwords, logger.NewNopLogger())
		_, err := verifier.Verify(ctx, mustCredentials(t, "mallory", "whatever"))

		assert.Equal(t, domainerror.ErrCodeInvalidCredentials, domainerror.CodeOf(err))
		passwords.AssertCalled(t, "VerifyPassword", "whatever", "dummy-hash")
	})

	t.Run("wrong secret", func(t *testing.T) {
		repo := new(MockPrincipalRepository)
		passwords := new(MockPasswordService)
		principal := entity.NewPrincipal("p-1", "alice", "alice@example.com", "hashed", "Alice", valueobject.RoleCustomer)
		repo.On("FindByIdentifier", ctx, "alice").Return(principal, nil)
		passwords.On("VerifyPassword", "wrong-secret", "hashed").Return(false, nil)

		verifier := NewCredentialVerifier(repo, passwords, logger.NewNopLogger())
		_, err := verifier.Verify(ctx, mustCredentials(t, "alice", "wrong-secret"))

		assert.Equal(t, domainerror.ErrCodeInvalidCredentials, domainerror.CodeOf(err))
		repo.AssertNotCalled(t, "TouchLastLogin", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCredentialVerifier_StoreDown(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPrincipalRepository)
	repo.On("FindByIdentifier", ctx, "alice").Return(nil, errors.New("connection refused"))

	verifier := NewCredentialVerifier(repo, new(MockPasswordService), logger.NewNopLogger())
	_, err := verifier.Verify(ctx, mustCredentials(t, "alice", "secret"))

	appErr := domainerror.AsAppError(err)
	assert.Equal(t, domainerror.ErrCodeUpstreamUnavailable, appErr.Code)
	assert.NotContains(t, appErr.Message, "connection refused")
}

func TestCredentialVerifier_TouchFailureDoesNotFailLogin(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPrincipalRepository)
	passwords := new(MockPasswordService)
	principal := entity.NewPrincipal("p-1", "alice", "alice@example.com", "hashed", "Alice", valueobject.RoleCustomer)

	repo.On("FindByIdentifier", ctx, "alice").Return(principal, nil)
	passwords.On("VerifyPassword", "correct-secret", "hashed").Return(true, nil)
	repo.On("TouchLastLogin", ctx, "p-1", mock.Anything).Return(errors.New("timeout"))

	verifier := NewCredentialVerifier(repo, passwords, logger.NewNopLogger())
	got, err := verifier.Verify(ctx, mustCredentials(t, "alice", "correct-secret"))

	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ID)
}
