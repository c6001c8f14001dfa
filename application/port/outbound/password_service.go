package outbound

type PasswordService interface {
	HashPassword(password string) (string, error)
	// VerifyPassword returns false, nil on a mismatch.
	VerifyPassword(password, hash string) (bool, error)
}
