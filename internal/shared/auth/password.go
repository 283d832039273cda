package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain text password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a plain text password matches the hashed password
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// Bcrypt adapts the package functions to operator.PasswordHasher
type Bcrypt struct{}

func (Bcrypt) Hash(password string) (string, error) { return HashPassword(password) }

func (Bcrypt) Verify(hash, password string) error { return VerifyPassword(hash, password) }
