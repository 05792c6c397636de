package users

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

const (
	letters         = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	digits          = "23456789"
	tempPasswordLen = 12
)

// ValidatePassword enforces at least 8 characters including a letter and a digit.
func ValidatePassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// GenerateTemporaryPassword returns a random password that satisfies
// ValidatePassword. Ambiguous characters (0, O, 1, l, I) are excluded.
func GenerateTemporaryPassword() (string, error) {
	alphabet := letters + digits
	buf := make([]byte, tempPasswordLen)
	for i := range buf {
		set := alphabet
		switch i {
		case 0:
			set = letters
		case 1:
			set = digits
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		buf[i] = set[n.Int64()]
	}
	// move the guaranteed letter and digit away from the front
	j, err := rand.Int(rand.Reader, big.NewInt(int64(tempPasswordLen-2)))
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	k := int(j.Int64()) + 2
	buf[0], buf[k] = buf[k], buf[0]
	return string(buf), nil
}
