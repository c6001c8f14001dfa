package user_management

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/pkg/validator"
)

type CreateUserUseCase struct {
	principals  outbound.PrincipalRepository
	passwordSvc outbound.PasswordService
	logger      logger.Logger
}

func NewCreateUserUseCase(
	principals outbound.PrincipalRepository,
	passwordSvc outbound.PasswordService,
	log logger.Logger,
) *CreateUserUseCase {
	return &CreateUserUseCase{
		principals:  principals,
		passwordSvc: passwordSvc,
		logger:      log,
	}
}

// Execute onboards a principal with any role, typically staff.
func (uc *CreateUserUseCase) Execute(ctx context.Context, req inbound.CreateUserRequest) (*inbound.PrincipalSummary, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	role, err := uc.validateCreateUserRequest(req)
	if err != nil {
		return nil, err
	}

	for _, identifier := range []string{req.Username, req.Email} {
		_, err := uc.principals.FindByIdentifier(ctx, identifier)
		if err == nil {
			return nil, domainerror.ErrIdentifierConflict()
		}
		if !errors.Is(err, outbound.ErrPrincipalNotFound) {
			return nil, domainerror.ErrUpstreamUnavailable("find_principal", err)
		}
	}

	hashedPassword, err := uc.passwordSvc.HashPassword(req.Password)
	if err != nil {
		return nil, domainerror.ErrInternal("hash_password", err)
	}

	principal := entity.NewPrincipal(uuid.NewString(), req.Username, req.Email, hashedPassword, req.FullName, role)
	if err := uc.principals.Create(ctx, principal); err != nil {
		if errors.Is(err, outbound.ErrPrincipalAlreadyExists) {
			return nil, domainerror.ErrIdentifierConflict()
		}
		uc.logger.Error(ctx, "Failed to create principal", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("create_principal", err)
	}

	uc.logger.Info(ctx, "Principal created by admin", map[string]interface{}{
		"created_id": principal.ID,
		"role":       role.String(),
	})

	summary := inbound.NewPrincipalSummary(principal)
	return &summary, nil
}

func (uc *CreateUserUseCase) validateCreateUserRequest(req inbound.CreateUserRequest) (valueobject.Role, error) {
	if !validator.ValidateUsername(req.Username) {
		return "", domainerror.ErrInvalidInput(fmt.Sprintf("username must be %d-%d characters of letters, digits, '_', '.' or '-'", validator.MinUsernameLength, validator.MaxUsernameLength))
	}
	if !validator.ValidateEmail(req.Email) {
		return "", domainerror.ErrInvalidInput("email is invalid")
	}
	if !validator.ValidatePassword(req.Password) {
		return "", domainerror.ErrInvalidInput(fmt.Sprintf("password must be at least %d characters", validator.MinPasswordLength))
	}
	if !validator.ValidateRequired(req.FullName) {
		return "", domainerror.ErrInvalidInput("full_name is required")
	}

	role, err := valueobject.ParseRole(req.Role)
	if err != nil {
		return "", domainerror.ErrInvalidInput("role must be one of customer, admin, moderator")
	}
	return role, nil
}
