package lifecycle

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// CodeAttempts is how many times a recipient may submit a wrong
// confirmation code before the delivery is locked.
const CodeAttempts = 5

// NewConfirmationCode generates a 6-digit code from a CSPRNG.
func NewConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// codeMatches compares codes in constant time.
func codeMatches(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
