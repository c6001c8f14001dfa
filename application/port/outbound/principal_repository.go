package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
)

var (
	ErrPrincipalNotFound      = errors.New("principal not found")
	ErrPrincipalAlreadyExists = errors.New("principal already exists")
)

// PrincipalRepository is the credential store.
type PrincipalRepository interface {
	// FindByIdentifier matches the identifier against username or email.
	FindByIdentifier(ctx context.Context, identifier string) (*entity.Principal, error)
	FindByID(ctx context.Context, id string) (*entity.Principal, error)
	// Create fails with ErrPrincipalAlreadyExists when username or email is taken.
	Create(ctx context.Context, principal *entity.Principal) error
	Update(ctx context.Context, principal *entity.Principal) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	FindAll(ctx context.Context, offset, limit int, filters PrincipalFilters) ([]*entity.Principal, int, error)
}

type PrincipalFilters struct {
	Name string
	Role valueobject.Role
}
