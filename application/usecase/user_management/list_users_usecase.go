package user_management

import (
	"context"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type ListUsersUseCase struct {
	principals outbound.PrincipalRepository
}

func NewListUsersUseCase(principals outbound.PrincipalRepository) *ListUsersUseCase {
	return &ListUsersUseCase{
		principals: principals,
	}
}

func (uc *ListUsersUseCase) Execute(ctx context.Context, req inbound.ListUsersRequest) (*inbound.ListUsersResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = defaultPageSize
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	filters := outbound.PrincipalFilters{Name: req.Filter.Name}
	if req.Filter.Role != "" {
		role, err := valueobject.ParseRole(req.Filter.Role)
		if err != nil {
			return nil, domainerror.ErrInvalidInput("role filter must be one of customer, admin, moderator")
		}
		filters.Role = role
	}

	offset := (req.Page - 1) * req.Limit
	principals, total, err := uc.principals.FindAll(ctx, offset, req.Limit, filters)
	if err != nil {
		return nil, domainerror.ErrUpstreamUnavailable("list_principals", err)
	}

	users := make([]inbound.PrincipalSummary, len(principals))
	for i, p := range principals {
		users[i] = inbound.NewPrincipalSummary(p)
	}

	return &inbound.ListUsersResponse{
		Users: users,
		Pagination: inbound.PaginationInfo{
			Page:  req.Page,
			Limit: req.Limit,
			Total: total,
		},
	}, nil
}
