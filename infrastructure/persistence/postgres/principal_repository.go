package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
)

const uniqueViolation = "23505"

const principalColumns = `id, username, email, password_hash, role, full_name, address, phone, last_login_at, created_at, updated_at`

type principalRepository struct {
	db *sql.DB
}

func NewPrincipalRepository(db *sql.DB) outbound.PrincipalRepository {
	return &principalRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*entity.Principal, error) {
	var (
		principal   entity.Principal
		role        string
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&principal.ID,
		&principal.Username,
		&principal.Email,
		&principal.PasswordHash,
		&role,
		&principal.FullName,
		&principal.Address,
		&principal.Phone,
		&lastLoginAt,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// A role outside the enum is stored data corruption, not a customer.
	principal.Role, err = valueobject.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("principal %s has invalid role %q: %w", principal.ID, role, err)
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		principal.LastLoginAt = &t
	}
	return &principal, nil
}

func (r *principalRepository) findOne(ctx context.Context, where string, arg interface{}) (*entity.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE %s`, principalColumns, where)

	principal, err := scanPrincipal(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}
	return principal, nil
}

func (r *principalRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Principal, error) {
	return r.findOne(ctx, `LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1) LIMIT 1`, identifier)
}

// isPrincipalID reports whether id fits the UUID column. Anything else can
// never match a row and would only make Postgres fail with 22P02.
func isPrincipalID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *principalRepository) FindByID(ctx context.Context, id string) (*entity.Principal, error) {
	if !isPrincipalID(id) {
		return nil, outbound.ErrPrincipalNotFound
	}
	return r.findOne(ctx, `id = $1`, id)
}

func (r *principalRepository) Create(ctx context.Context, principal *entity.Principal) error {
	query := `
		INSERT INTO principals (id, username, email, password_hash, role, full_name, address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		principal.ID,
		principal.Username,
		principal.Email,
		principal.PasswordHash,
		principal.Role.String(),
		principal.FullName,
		principal.Address,
		principal.Phone,
		principal.CreatedAt,
		principal.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return outbound.ErrPrincipalAlreadyExists
		}
		return fmt.Errorf("failed to create principal: %w", err)
	}

	return nil
}

func (r *principalRepository) Update(ctx context.Context, principal *entity.Principal) error {
	if principal == nil || principal.ID == "" {
		return fmt.Errorf("principal ID is required")
	}
	if !isPrincipalID(principal.ID) {
		return outbound.ErrPrincipalNotFound
	}

	query := `
		UPDATE principals
		SET password_hash = $2, role = $3, full_name = $4, address = $5, phone = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		principal.ID,
		principal.PasswordHash,
		principal.Role.String(),
		principal.FullName,
		principal.Address,
		principal.Phone,
		principal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update principal: %w", err)
	}
	return expectOneRow(result)
}

func (r *principalRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE principals SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOneRow(result)
}

func (r *principalRepository) FindAll(ctx context.Context, offset, limit int, filters outbound.PrincipalFilters) ([]*entity.Principal, int, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filters.Name != "" {
		whereClause += fmt.Sprintf(" AND (full_name ILIKE $%d OR username ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+filters.Name+"%")
		argIndex++
	}

	if filters.Role != "" {
		whereClause += fmt.Sprintf(" AND role = $%d", argIndex)
		args = append(args, filters.Role.String())
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM principals %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count principals: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM principals
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, principalColumns, whereClause, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query principals: %w", err)
	}
	defer rows.Close()

	var principals []*entity.Principal
	for rows.Next() {
		principal, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, principal)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate principals: %w", err)
	}

	return principals, total, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return outbound.ErrPrincipalNotFound
	}
	return nil
}
