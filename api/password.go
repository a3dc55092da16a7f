package main

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const passwordHashCost = 10

// hashPassword returns a bcrypt hash that embeds its own salt and cost.
func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword reports whether plaintext matches hash. A malformed hash is an error,
// a mismatch is not.
func verifyPassword(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
