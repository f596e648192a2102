package password

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const randomCredentialBytes = 24

func Hash(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// RandomHash hashes a freshly generated credential that is never returned.
// Accounts created on someone else's behalf start with it until they set
// their own password.
func RandomHash(cost int) (string, error) {
	buf := make([]byte, randomCredentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate credential: %w", err)
	}
	return Hash(base64.RawURLEncoding.EncodeToString(buf), cost)
}
