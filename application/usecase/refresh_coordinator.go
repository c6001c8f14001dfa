package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

// RefreshCoordinator rotates a refresh token: validate, compare with the
// stored pointer, mint a new pair, overwrite the pointer.
//
// The find and the overwrite are not locked together. When two rotations for
// one principal race, both succeed and the later write wins; the pair handed
// to the loser fails its next rotation with RefreshMismatch.
type RefreshCoordinator struct {
	principals outbound.PrincipalRepository
	store      outbound.RefreshStore
	tokens     outbound.TokenService
	logger     logger.Logger
	now        func() time.Time
}

func NewRefreshCoordinator(principals outbound.PrincipalRepository, store outbound.RefreshStore, tokens outbound.TokenService, log logger.Logger) *RefreshCoordinator {
	return &RefreshCoordinator{
		principals: principals,
		store:      store,
		tokens:     tokens,
		logger:     log,
		now:        time.Now,
	}
}

func (c *RefreshCoordinator) Rotate(ctx context.Context, refreshToken string) (*inbound.AuthResult, error) {
	if refreshToken == "" {
		return nil, domainerror.ErrTokenMissing()
	}

	claims, err := c.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		logger.LogAuthEvent(ctx, c.logger, "refresh_token_rejected", "", "", false, map[string]interface{}{
			"code": string(domainerror.CodeOf(err)),
		})
		return nil, err
	}
	ctx = logger.ContextWithPrincipalID(ctx, claims.PrincipalID)

	record, err := c.store.FindRefreshPointer(ctx, claims.PrincipalID)
	if err != nil && !errors.Is(err, outbound.ErrRefreshRecordNotFound) {
		c.logger.Error(ctx, "Failed to read refresh pointer", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("find_refresh_pointer", err)
	}
	if !record.Matches(claims.TokenID) {
		return nil, c.rejectStale(ctx, claims, record)
	}
	if record.IsExpired(c.now()) {
		c.clear(ctx, claims.PrincipalID)
		logger.LogAuthEvent(ctx, c.logger, "refresh_pointer_expired", claims.PrincipalID, "", false, nil)
		return nil, domainerror.ErrTokenExpired()
	}

	principal, err := c.principals.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, outbound.ErrPrincipalNotFound) {
			c.clear(ctx, claims.PrincipalID)
			logger.LogSecurityEvent(ctx, c.logger, "refresh_principal_missing", "HIGH", nil)
			return nil, domainerror.ErrRefreshMismatch()
		}
		c.logger.Error(ctx, "Failed to load principal for rotation", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("find_principal", err)
	}

	return c.issue(ctx, principal)
}

// issue mints a pair and makes its refresh id the principal's only valid one.
func (c *RefreshCoordinator) issue(ctx context.Context, principal *entity.Principal) (*inbound.AuthResult, error) {
	pair, err := c.tokens.IssuePair(principal)
	if err != nil {
		c.logger.Error(ctx, "Failed to issue token pair", err, nil)
		return nil, domainerror.ErrInternal("issue_pair", err)
	}

	record := entity.NewRefreshRecord(principal.ID, pair.RefreshTokenID, pair.IssuedAt, pair.RefreshExpiresAt)
	if err := c.store.UpdateRefreshPointer(ctx, record); err != nil {
		c.logger.Error(ctx, "Failed to write refresh pointer", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("update_refresh_pointer", err)
	}

	return &inbound.AuthResult{
		Tokens:    pair,
		Principal: inbound.NewPrincipalSummary(principal),
	}, nil
}

// rejectStale handles a presented token that is not the stored one: either
// it was rotated away or the session was revoked. Both clear the pointer.
func (c *RefreshCoordinator) rejectStale(ctx context.Context, claims *valueobject.RefreshClaims, record *entity.RefreshRecord) error {
	c.clear(ctx, claims.PrincipalID)
	logger.LogSecurityEvent(ctx, c.logger, "refresh_token_reuse", "HIGH", map[string]interface{}{
		"token_id":      claims.TokenID,
		"record_exists": record != nil,
	})
	return domainerror.ErrRefreshMismatch()
}

func (c *RefreshCoordinator) clear(ctx context.Context, principalID string) {
	if err := c.store.ClearRefreshPointer(ctx, principalID); err != nil {
		c.logger.Error(ctx, "Failed to clear refresh pointer", err, nil)
	}
}
