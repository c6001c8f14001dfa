package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

// dummySecret is hashed once and compared against when the identifier is
// unknown, so both failure paths pay for one hash comparison.
const dummySecret = "storefront-timing-equaliser"

type CredentialVerifier struct {
	principals outbound.PrincipalRepository
	passwords  outbound.PasswordService
	logger     logger.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(principals outbound.PrincipalRepository, passwords outbound.PasswordService, log logger.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		principals: principals,
		passwords:  passwords,
		logger:     log,
		now:        time.Now,
	}
}

// Verify returns the principal behind credentials. An unknown identifier and
// a wrong secret both yield InvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, credentials *valueobject.Credentials) (*entity.Principal, error) {
	principal, err := v.principals.FindByIdentifier(ctx, credentials.Identifier())
	if err != nil {
		if errors.Is(err, outbound.ErrPrincipalNotFound) {
			v.burnComparison(credentials.Secret())
			return nil, domainerror.ErrInvalidCredentials()
		}
		v.logger.Error(ctx, "Failed to look up principal", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("find_principal", err)
	}

	ok, err := v.passwords.VerifyPassword(credentials.Secret(), principal.PasswordHash)
	if err != nil {
		v.logger.Error(ctx, "Password verification error", err, map[string]interface{}{
			"principal_id": principal.ID,
		})
		return nil, domainerror.ErrInvalidCredentials()
	}
	if !ok {
		return nil, domainerror.ErrInvalidCredentials()
	}

	at := v.now()
	if err := v.principals.TouchLastLogin(ctx, principal.ID, at); err != nil {
		v.logger.Warn(ctx, "Failed to record last login", map[string]interface{}{
			"principal_id": principal.ID,
			"error":        err.Error(),
		})
	} else {
		principal.TouchLogin(at)
	}

	return principal, nil
}

func (v *CredentialVerifier) burnComparison(secret string) {
	v.dummyOnce.Do(func() {
		hash, err := v.passwords.HashPassword(dummySecret)
		if err == nil {
			v.dummyHash = hash
		}
	})
	if v.dummyHash != "" {
		_, _ = v.passwords.VerifyPassword(secret, v.dummyHash)
	}
}
