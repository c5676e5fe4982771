package session

import (
	"strings"

	"bootcamps/pkg/apperr"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the user base was created with.
const DefaultBcryptCost = 12

const minPasswordLen = 8

// CheckPasswordPolicy rejects short passwords and passwords containing "password".
func CheckPasswordPolicy(pw string) error {
	if len(pw) < minPasswordLen {
		return apperr.Validation("Password must be at least 8 characters")
	}
	if strings.Contains(strings.ToLower(pw), "password") {
		return apperr.Validation(`Password cannot contain "password"!`)
	}
	return nil
}

func hashPassword(pw string, cost int) ([]byte, error) {
	if err := CheckPasswordPolicy(pw); err != nil {
		return nil, err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	return h, nil
}

func passwordMatches(hashed []byte, pw string) bool {
	return bcrypt.CompareHashAndPassword(hashed, []byte(pw)) == nil
}
