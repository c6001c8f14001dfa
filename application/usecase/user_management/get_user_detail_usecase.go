package user_management

import (
	"context"
	"errors"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	domainerror "github.com/techstore/storefront/domain/error"
)

type GetUserDetailUseCase struct {
	principals outbound.PrincipalRepository
}

func NewGetUserDetailUseCase(principals outbound.PrincipalRepository) *GetUserDetailUseCase {
	return &GetUserDetailUseCase{
		principals: principals,
	}
}

func (uc *GetUserDetailUseCase) Execute(ctx context.Context, userID string) (*inbound.ProfileResponse, error) {
	if userID == "" {
		return nil, domainerror.ErrInvalidInput("user ID cannot be empty")
	}

	principal, err := uc.principals.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrPrincipalNotFound) {
			return nil, domainerror.ErrNotFound("user")
		}
		return nil, domainerror.ErrUpstreamUnavailable("find_principal", err)
	}

	return inbound.NewProfileResponse(principal), nil
}
