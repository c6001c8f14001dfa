package entity

import (
	"time"

	"github.com/techstore/storefront/domain/valueobject"
)

// Principal is a storefront account. Only registration, profile updates and
// the admin back office mutate it; it is never deleted here.
type Principal struct {
	ID           string           `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	Role         valueobject.Role `json:"role"`
	PasswordHash string           `json:"-"`
	FullName     string           `json:"full_name"`
	Address      string           `json:"address,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	LastLoginAt  *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewPrincipal(id, username, email, passwordHash, fullName string, role valueobject.Role) *Principal {
	now := time.Now().UTC()
	return &Principal{
		ID:           id,
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		FullName:     fullName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ProfileChanges holds the optional profile fields; nil means untouched.
type ProfileChanges struct {
	FullName *string
	Address  *string
	Phone    *string
}

func (c ProfileChanges) IsEmpty() bool {
	return c.FullName == nil && c.Address == nil && c.Phone == nil
}

func (p *Principal) UpdateProfile(changes ProfileChanges) {
	if changes.FullName != nil {
		p.FullName = *changes.FullName
	}
	if changes.Address != nil {
		p.Address = *changes.Address
	}
	if changes.Phone != nil {
		p.Phone = *changes.Phone
	}
	p.UpdatedAt = time.Now().UTC()
}

func (p *Principal) ChangePasswordHash(hash string) {
	p.PasswordHash = hash
	p.UpdatedAt = time.Now().UTC()
}

// AssignRole changes the stored role. Tokens already minted keep the old one
// until the next login or rotation.
func (p *Principal) AssignRole(role valueobject.Role) {
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
}

func (p *Principal) TouchLogin(at time.Time) {
	at = at.UTC()
	p.LastLoginAt = &at
}
