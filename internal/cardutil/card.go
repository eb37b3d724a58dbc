package cardutil

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Rand supplies random bytes for card number and CVV generation. Production
// uses CryptoRand; tests may supply a deterministic sequence.
type Rand interface {
	Read(p []byte) (int, error)
}

// CryptoRand reads from crypto/rand.
type CryptoRand struct{}

func (CryptoRand) Read(p []byte) (int, error) { return rand.Read(p) }

// GenerateCardNumber generates a card number with the specified prefix and
// total length using rnd as the digit source.
func GenerateCardNumber(rnd Rand, prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	digits := make([]byte, length-len(prefix))
	if _, err := rnd.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}
	return builder.String(), nil
}

// GenerateCVV generates a 3-digit CVV code using rnd as the digit source.
func GenerateCVV(rnd Rand) (string, error) {
	b := make([]byte, 3)
	if _, err := rnd.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CVV: %w", err)
	}
	return fmt.Sprintf("%d%d%d", b[0]%10, b[1]%10, b[2]%10), nil
}

// ExpiryDate computes a card expiry date as the issuance date plus the
// configured validity period, at date granularity.
func ExpiryDate(issuedAt time.Time, validityYears int) time.Time {
	y, m, d := issuedAt.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(validityYears, 0, 0)
}
