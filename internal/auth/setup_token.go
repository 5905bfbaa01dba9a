package auth

import (
	"crypto/rand"
	"encoding/base64"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const setupTokenBytes = 32

// NewSetupToken returns a one-time password setup token and the bcrypt hash
// stored on the user. Only the hash is persisted.
func NewSetupToken() (token string, hash string, err error) {
	buf := make([]byte, setupTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", ierr.WithError(err).
			WithHint("Failed to generate setup token").
			Mark(ierr.ErrSystem)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", ierr.WithError(err).
			WithHint("Failed to hash setup token").
			Mark(ierr.ErrSystem)
	}
	return token, string(hashed), nil
}

func VerifySetupToken(hash, token string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ierr.NewError("invalid setup token").
			WithHint("Invalid or expired setup token").
			Mark(ierr.ErrValidation)
	}
	return nil
}
