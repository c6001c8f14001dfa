package outbound

import (
	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
)

// TokenService mints and validates the access/refresh pair. Validation
// failures are *domainerror.AppError values with distinct codes.
type TokenService interface {
	IssuePair(principal *entity.Principal) (*valueobject.TokenPair, error)
	ValidateAccess(token string) (*valueobject.AccessClaims, error)
	ValidateRefresh(token string) (*valueobject.RefreshClaims, error)
}
