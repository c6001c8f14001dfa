package inbound

import (
	"context"
)

// Create User
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

// List Users
type ListUsersRequest struct {
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Filter ListUsersFilter `json:"filter"`
}

type ListUsersFilter struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

type ListUsersResponse struct {
	Users      []PrincipalSummary `json:"users"`
	Pagination PaginationInfo     `json:"pagination"`
}

type PaginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// UserManagementUseCase is the admin back office over principals.
type UserManagementUseCase interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*PrincipalSummary, error)
	UpdateUserRole(ctx context.Context, userID string, req UpdateUserRoleRequest) (*PrincipalSummary, error)
	GetUserDetail(ctx context.Context, userID string) (*ProfileResponse, error)
	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error)
}
