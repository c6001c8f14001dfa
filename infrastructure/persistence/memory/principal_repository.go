// Package memory holds process-local stores for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
)

type PrincipalRepository struct {
	mu         sync.RWMutex
	principals map[string]*entity.Principal
}

func NewPrincipalRepository() *PrincipalRepository {
	return &PrincipalRepository{principals: make(map[string]*entity.Principal)}
}

// clone keeps callers from mutating stored state without Update.
func clone(p *entity.Principal) *entity.Principal {
	c := *p
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func (r *PrincipalRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.principals {
		if strings.EqualFold(p.Username, identifier) || strings.EqualFold(p.Email, identifier) {
			return clone(p), nil
		}
	}
	return nil, outbound.ErrPrincipalNotFound
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*entity.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[id]
	if !ok {
		return nil, outbound.ErrPrincipalNotFound
	}
	return clone(p), nil
}

func (r *PrincipalRepository) Create(ctx context.Context, principal *entity.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.principals[principal.ID]; ok {
		return outbound.ErrPrincipalAlreadyExists
	}
	for _, p := range r.principals {
		if strings.EqualFold(p.Username, principal.Username) || strings.EqualFold(p.Email, principal.Email) {
			return outbound.ErrPrincipalAlreadyExists
		}
	}
	r.principals[principal.ID] = clone(principal)
	return nil
}

func (r *PrincipalRepository) Update(ctx context.Context, principal *entity.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.principals[principal.ID]; !ok {
		return outbound.ErrPrincipalNotFound
	}
	r.principals[principal.ID] = clone(principal)
	return nil
}

func (r *PrincipalRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.principals[id]
	if !ok {
		return outbound.ErrPrincipalNotFound
	}
	at = at.UTC()
	p.LastLoginAt = &at
	return nil
}

func (r *PrincipalRepository) FindAll(ctx context.Context, offset, limit int, filters outbound.PrincipalFilters) ([]*entity.Principal, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(filters.Name)
	matched := make([]*entity.Principal, 0, len(r.principals))
	for _, p := range r.principals {
		if filters.Role != "" && p.Role != filters.Role {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(p.FullName), name) && !strings.Contains(strings.ToLower(p.Username), name) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*entity.Principal{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	page := make([]*entity.Principal, 0, end-offset)
	for _, p := range matched[offset:end] {
		page = append(page, clone(p))
	}
	return page, total, nil
}
