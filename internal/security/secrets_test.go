package security

import (
	"regexp"
	"testing"
)

func TestRandomUpperHex(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]*$`)

	for _, n := range []int{0, 1, 32, 50, 64} {
		secret, err := RandomUpperHex(n)
		if err != nil {
			t.Fatalf("RandomUpperHex(%d) error = %v", n, err)
		}
		if len(secret) != n {
			t.Errorf("RandomUpperHex(%d) length = %d", n, len(secret))
		}
		if !pattern.MatchString(secret) {
			t.Errorf("RandomUpperHex(%d) = %q, want upper-case hex", n, secret)
		}
	}

	if _, err := RandomUpperHex(-1); err == nil {
		t.Error("RandomUpperHex(-1) expected error")
	}

	a, _ := RandomUpperHex(50)
	b, _ := RandomUpperHex(50)
	if a == b {
		t.Error("RandomUpperHex() generated duplicate secret")
	}
}

func TestTokenHex(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f]{32}$`)

	token, err := TokenHex(16)
	if err != nil {
		t.Fatalf("TokenHex() error = %v", err)
	}
	if !pattern.MatchString(token) {
		t.Errorf("TokenHex(16) = %q, want 32 lower-case hex chars", token)
	}

	if _, err := TokenHex(-1); err == nil {
		t.Error("TokenHex(-1) expected error")
	}
}

func TestValidateSecret(t *testing.T) {
	generated, err := RandomUpperHex(50)
	if err != nil {
		t.Fatalf("RandomUpperHex() error = %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"generated key", generated, false},
		{"strong mixed secret", "kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS2uW5yA7b", false},
		{"too short", "abc123", true},
		{"empty", "", true},
		{"django insecure prefix", "django-insecure-0123456789abcdefghijklmnopqrstuv", true},
		{"contains changeme", "changeme-changeme-changeme-changeme-x", true},
		{"low entropy", "abababababababababababababababababab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecret(%q) error = %v, wantErr %v", tt.secret, err, tt.wantErr)
			}
		})
	}
}

func TestCalculateEntropy(t *testing.T) {
	tests := []struct {
		name  string
		input string
		min   float64
		max   float64
	}{
		{"empty", "", 0, 0},
		{"single repeated char", "aaaaaaaa", 0, 0},
		{"two chars evenly", "abababab", 1, 1},
		{"hex digits once", "0123456789ABCDEF", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entropy := calculateEntropy(tt.input)
			if entropy < tt.min-0.01 || entropy > tt.max+0.01 {
				t.Errorf("calculateEntropy(%q) = %.2f, want between %.2f and %.2f",
					tt.input, entropy, tt.min, tt.max)
			}
		})
	}
}

func TestIsWeakSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   bool
	}{
		{"default database password", "licman", true},
		{"short", "short", true},
		{"all same character", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"sequential", "abcdefghijklmnopqrstuvwxyzabcdefghij", true},
		{"random hex", "9F3A07C21B6E48D5A0F7C3E91D24B86A5E0C", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWeakSecret(tt.secret); got != tt.want {
				t.Errorf("IsWeakSecret(%q) = %v, want %v", tt.secret, got, tt.want)
			}
		})
	}
}

func TestIsSequential(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", false},
		{"abcdefgh", true},
		{"87654321", true},
		{"a1b9z3", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := isSequential(tt.input); got != tt.want {
				t.Errorf("isSequential(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
