package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
)

// refreshStore keeps the refresh pointer in columns of the principals row,
// so a principal can never have more than one.
type refreshStore struct {
	db *sql.DB
}

func NewRefreshStore(db *sql.DB) outbound.RefreshStore {
	return &refreshStore{db: db}
}

func (s *refreshStore) FindRefreshPointer(ctx context.Context, principalID string) (*entity.RefreshRecord, error) {
	query := `
		SELECT refresh_token_id, refresh_issued_at, refresh_expires_at
		FROM principals
		WHERE id = $1
	`

	var (
		tokenID   sql.NullString
		issuedAt  sql.NullTime
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, principalID).Scan(&tokenID, &issuedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrRefreshRecordNotFound
		}
		return nil, fmt.Errorf("failed to find refresh pointer: %w", err)
	}
	if !tokenID.Valid || tokenID.String == "" {
		return nil, outbound.ErrRefreshRecordNotFound
	}

	return entity.NewRefreshRecord(principalID, tokenID.String, issuedAt.Time, expiresAt.Time), nil
}

// UpdateRefreshPointer overwrites the pointer in a single statement. Two
// concurrent rotations both succeed here; the later write wins.
func (s *refreshStore) UpdateRefreshPointer(ctx context.Context, record *entity.RefreshRecord) error {
	if record == nil || record.PrincipalID == "" || record.TokenID == "" {
		return fmt.Errorf("refresh record requires principal and token id")
	}

	query := `
		UPDATE principals
		SET refresh_token_id = $2, refresh_issued_at = $3, refresh_expires_at = $4
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, record.PrincipalID, record.TokenID, record.IssuedAt, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update refresh pointer: %w", err)
	}
	return expectOneRow(result)
}

func (s *refreshStore) ClearRefreshPointer(ctx context.Context, principalID string) error {
	query := `
		UPDATE principals
		SET refresh_token_id = NULL, refresh_issued_at = NULL, refresh_expires_at = NULL
		WHERE id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, principalID); err != nil {
		return fmt.Errorf("failed to clear refresh pointer: %w", err)
	}
	return nil
}
