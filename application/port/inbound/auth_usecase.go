package inbound

import (
	"context"
	"time"

	"github.com/techstore/storefront/domain/entity"
	"github.com/techstore/storefront/domain/valueobject"
)

type RegisterRequest struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	FullName          string `json:"full_name"`
	Address           string `json:"address,omitempty"`
	Phone             string `json:"phone,omitempty"`
	ChallengeID       string `json:"challenge_id,omitempty"`
	ChallengeResponse string `json:"challenge_response,omitempty"`
	ClientIP          string `json:"-"`
}

type LoginRequest struct {
	Identifier        string `json:"identifier"`
	Password          string `json:"password"`
	ChallengeID       string `json:"challenge_id,omitempty"`
	ChallengeResponse string `json:"challenge_response,omitempty"`
	ClientIP          string `json:"-"`
}

type RefreshRequest struct {
	RefreshToken string
}

// LogoutRequest carries whatever credentials the caller still had; both may be empty.
type LogoutRequest struct {
	AccessToken  string
	RefreshToken string
}

type UpdateProfileRequest struct {
	FullName        *string `json:"full_name,omitempty"`
	Address         *string `json:"address,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	NewPassword     string  `json:"new_password,omitempty"`
	CurrentPassword string  `json:"current_password,omitempty"`
}

// PrincipalSummary is the public view of a principal handed to clients.
type PrincipalSummary struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Role     valueobject.Role `json:"role"`
}

type ProfileResponse struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Role        valueobject.Role `json:"role"`
	FullName    string           `json:"full_name"`
	Address     string           `json:"address,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AuthResult is the outcome of every flow that starts or rotates a session.
type AuthResult struct {
	Tokens    *valueobject.TokenPair
	Principal PrincipalSummary
}

func NewPrincipalSummary(p *entity.Principal) PrincipalSummary {
	return PrincipalSummary{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Role:     p.Role,
	}
}

func NewProfileResponse(p *entity.Principal) *ProfileResponse {
	return &ProfileResponse{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		Role:        p.Role,
		FullName:    p.FullName,
		Address:     p.Address,
		Phone:       p.Phone,
		LastLoginAt: p.LastLoginAt,
		CreatedAt:   p.CreatedAt,
	}
}

type AuthUseCase interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, req RefreshRequest) (*AuthResult, error)
	// Logout never fails; revocation problems are logged.
	Logout(ctx context.Context, req LogoutRequest)
	Validate(ctx context.Context, principalID string) (*PrincipalSummary, error)
	Me(ctx context.Context, principalID string) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, principalID string, req UpdateProfileRequest) (*ProfileResponse, error)
}
