package user_management

import (
	"context"
	"errors"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

type UpdateUserRoleUseCase struct {
	principals outbound.PrincipalRepository
	logger     logger.Logger
}

func NewUpdateUserRoleUseCase(principals outbound.PrincipalRepository, log logger.Logger) *UpdateUserRoleUseCase {
	return &UpdateUserRoleUseCase{
		principals: principals,
		logger:     log,
	}
}

// Execute stores the new role. Access tokens already issued keep the old
// role until the principal logs in again or rotates.
func (uc *UpdateUserRoleUseCase) Execute(ctx context.Context, userID string, req inbound.UpdateUserRoleRequest) (*inbound.PrincipalSummary, error) {
	role, err := valueobject.ParseRole(req.Role)
	if err != nil {
		return nil, domainerror.ErrInvalidInput("role must be one of customer, admin, moderator")
	}

	principal, err := uc.principals.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrPrincipalNotFound) {
			return nil, domainerror.ErrNotFound("user")
		}
		return nil, domainerror.ErrUpstreamUnavailable("find_principal", err)
	}

	previous := principal.Role
	principal.AssignRole(role)
	if err := uc.principals.Update(ctx, principal); err != nil {
		uc.logger.Error(ctx, "Failed to update principal role", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("update_principal", err)
	}

	logger.LogSecurityEvent(ctx, uc.logger, "role_changed", "MEDIUM", map[string]interface{}{
		"target_id": principal.ID,
		"from":      previous.String(),
		"to":        role.String(),
	})

	summary := inbound.NewPrincipalSummary(principal)
	return &summary, nil
}
