package outbound

import (
	"context"
	"errors"

	"github.com/techstore/storefront/domain/entity"
)

var ErrRefreshRecordNotFound = errors.New("refresh record not found")

// RefreshStore keeps at most one RefreshRecord per principal. Update
// overwrites whatever was stored before; there is no compare-and-swap.
type RefreshStore interface {
	FindRefreshPointer(ctx context.Context, principalID string) (*entity.RefreshRecord, error)
	UpdateRefreshPointer(ctx context.Context, record *entity.RefreshRecord) error
	ClearRefreshPointer(ctx context.Context, principalID string) error
}
