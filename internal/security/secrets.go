package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"
)

const (
	// MinSecretLength is the shortest secret not reported as weak.
	MinSecretLength = 32

	// MinEntropy is the minimum Shannon entropy threshold for secrets.
	MinEntropy = 3.0
)

const upperHexDigits = "0123456789ABCDEF"

var placeholderSecrets = map[string]bool{
	"licman":          true,
	"secret":          true,
	"password":        true,
	"changeme":        true,
	"topsecret":       true,
	"django-insecure": true,
}

// RandomUpperHex returns n random characters drawn from 0-9A-F.
func RandomUpperHex(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("invalid secret length %d", n)
	}
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(upperHexDigits)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random secret: %w", err)
		}
		b.WriteByte(upperHexDigits[idx.Int64()])
	}
	return b.String(), nil
}

// TokenHex returns nbytes random bytes encoded as lower-case hex.
func TokenHex(nbytes int) (string, error) {
	if nbytes < 0 {
		return "", fmt.Errorf("invalid token size %d", nbytes)
	}
	buf := make([]byte, nbytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateSecret reports why secret is unsuitable, or nil.
// Checks:
// - Minimum length
// - Not a placeholder value
// - Sufficient Shannon entropy
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("secret too short (minimum %d characters, got %d)", MinSecretLength, len(secret))
	}

	lower := strings.ToLower(secret)
	if placeholderSecrets[lower] || strings.Contains(lower, "changeme") || strings.HasPrefix(lower, "django-insecure") {
		return fmt.Errorf("secret appears to be a placeholder value")
	}

	if entropy := calculateEntropy(secret); entropy < MinEntropy {
		return fmt.Errorf("secret has insufficient entropy (%.2f < %.2f)", entropy, MinEntropy)
	}

	return nil
}

// calculateEntropy computes the Shannon entropy of a string.
// Returns a value between 0 (completely predictable) and ~8 (maximum entropy for byte strings).
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	// H = -Σ(p(x) * log2(p(x)))
	var entropy float64
	length := float64(len(s))

	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// IsWeakSecret performs a quick check if a secret is obviously weak.
// Used for warnings; it never blocks configuration.
func IsWeakSecret(secret string) bool {
	if len(secret) < MinSecretLength {
		return true
	}

	// All same character
	if len(strings.Trim(secret, string(secret[0]))) == 0 {
		return true
	}

	if isSequential(secret) {
		return true
	}

	if placeholderSecrets[strings.ToLower(secret)] {
		return true
	}

	return calculateEntropy(secret) < 2.5
}

// isSequential checks if a string consists of sequential characters.
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	sequential := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			sequential++
		}
	}

	// If more than 70% of characters are sequential, it's weak
	return float64(sequential) > float64(len(s))*0.7
}
