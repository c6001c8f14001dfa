package valueobject

import (
	"errors"
	"strings"
)

var (
	ErrMissingIdentifier = errors.New("identifier is required")
	ErrMissingSecret     = errors.New("password is required")
)

// Credentials is a login attempt: a username or email plus the secret.
type Credentials struct {
	identifier string
	secret     string
}

func NewCredentials(identifier, secret string) (*Credentials, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Credentials{
		identifier: identifier,
		secret:     secret,
	}, nil
}

func (c *Credentials) Identifier() string {
	return c.identifier
}

func (c *Credentials) Secret() string {
	return c.secret
}
