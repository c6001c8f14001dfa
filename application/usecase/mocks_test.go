package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
)

type MockPrincipalRepository struct {
	mock.Mock
}

func (m *MockPrincipalRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Principal, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Principal), args.Error(1)
}

func (m *MockPrincipalRepository) FindByID(ctx context.Context, id string) (*entity.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Principal), args.Error(1)
}

func (m *MockPrincipalRepository) Create(ctx context.Context, principal *entity.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

func (m *MockPrincipalRepository) Update(ctx context.Context, principal *entity.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

func (m *MockPrincipalRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockPrincipalRepository) FindAll(ctx context.Context, offset, limit int, filters outbound.PrincipalFilters) ([]*entity.Principal, int, error) {
	args := m.Called(ctx, offset, limit, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Principal), args.Int(1), args.Error(2)
}

type MockRefreshStore struct {
	mock.Mock
}

func (m *MockRefreshStore) FindRefreshPointer(ctx context.Context, principalID string) (*entity.RefreshRecord, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefreshRecord), args.Error(1)
}

func (m *MockRefreshStore) UpdateRefreshPointer(ctx context.Context, record *entity.RefreshRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockRefreshStore) ClearRefreshPointer(ctx context.Context, principalID string) error {
	return m.Called(ctx, principalID).Error(0)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssuePair(principal *entity.Principal) (*valueobject.TokenPair, error) {
	args := m.Called(principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*valueobject.TokenPair), args.Error(1)
}

func (m *MockTokenService) ValidateAccess(token string) (*valueobject.AccessClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*valueobject.AccessClaims), args.Error(1)
}

func (m *MockTokenService) ValidateRefresh(token string) (*valueobject.RefreshClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*valueobject.RefreshClaims), args.Error(1)
}

type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) VerifyPassword(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

type MockHumanVerifier struct {
	mock.Mock
}

func (m *MockHumanVerifier) IsHuman(ctx context.Context, challengeID, response string) (bool, error) {
	args := m.Called(ctx, challengeID, response)
	return args.Bool(0), args.Error(1)
}

func (m *MockHumanVerifier) IsEnabled() bool {
	return m.Called().Bool(0)
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	return m.Called(ctx, key, window).Error(0)
}

func (m *MockRateLimitService) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return m.Called(ctx, key, duration, reason).Error(0)
}

func (m *MockRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}
