// File: internal/platform/crypto/generator.go
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// GenerateSecureRandomString creates a cryptographically secure random string.
// n is the number of bytes of randomness, resulting string length will be larger due to base64 encoding.
func GenerateSecureRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Ambiguous characters (0/O, 1/l/I) are left out so the password can be
// read out over the phone.
const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTemporaryPassword returns a random password of the given length
// drawn from an unambiguous alphabet. It always contains at least one digit.
func GenerateTemporaryPassword(length int) (string, error) {
	if length < 8 {
		return "", fmt.Errorf("temporary password length must be at least 8, got %d", length)
	}
	max := big.NewInt(int64(len(passwordAlphabet)))
	for {
		out := make([]byte, length)
		hasDigit := false
		for i := range out {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			out[i] = passwordAlphabet[n.Int64()]
			if out[i] >= '2' && out[i] <= '9' {
				hasDigit = true
			}
		}
		if hasDigit {
			return string(out), nil
		}
	}
}
