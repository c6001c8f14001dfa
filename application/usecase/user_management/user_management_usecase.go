package user_management

import (
	"context"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

type UserManagementUseCaseImpl struct {
	createUserUseCase     *CreateUserUseCase
	updateUserRoleUseCase *UpdateUserRoleUseCase
	getUserDetailUseCase  *GetUserDetailUseCase
	listUsersUseCase      *ListUsersUseCase
}

func NewUserManagementUseCase(
	principals outbound.PrincipalRepository,
	passwordSvc outbound.PasswordService,
	log logger.Logger,
) inbound.UserManagementUseCase {
	return &UserManagementUseCaseImpl{
		createUserUseCase:     NewCreateUserUseCase(principals, passwordSvc, log),
		updateUserRoleUseCase: NewUpdateUserRoleUseCase(principals, log),
		getUserDetailUseCase:  NewGetUserDetailUseCase(principals),
		listUsersUseCase:      NewListUsersUseCase(principals),
	}
}

func (uc *UserManagementUseCaseImpl) CreateUser(ctx context.Context, req inbound.CreateUserRequest) (*inbound.PrincipalSummary, error) {
	return uc.createUserUseCase.Execute(ctx, req)
}

func (uc *UserManagementUseCaseImpl) UpdateUserRole(ctx context.Context, userID string, req inbound.UpdateUserRoleRequest) (*inbound.PrincipalSummary, error) {
	return uc.updateUserRoleUseCase.Execute(ctx, userID, req)
}

func (uc *UserManagementUseCaseImpl) GetUserDetail(ctx context.Context, userID string) (*inbound.ProfileResponse, error) {
	return uc.getUserDetailUseCase.Execute(ctx, userID)
}

func (uc *UserManagementUseCaseImpl) ListUsers(ctx context.Context, req inbound.ListUsersRequest) (*inbound.ListUsersResponse, error) {
	return uc.listUsersUseCase.Execute(ctx, req)
}
