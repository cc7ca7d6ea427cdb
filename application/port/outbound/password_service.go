package outbound

// PasswordService hashes and checks employee passwords.
type PasswordService interface {
	HashPassword(password string) (string, error)
	ComparePassword(hashedPassword, password string) error
}
