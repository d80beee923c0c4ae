package security

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	groupPattern    = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	hostnamePattern = regexp.MustCompile(`^\.?[a-zA-Z0-9*]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

// ValidateGroupName ensures a process group name is safe for use in paths
// and URLs.
func ValidateGroupName(name string) error {
	if name == "" {
		return fmt.Errorf("group name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("group name too long")
	}
	if !groupPattern.MatchString(name) {
		return fmt.Errorf("group name contains invalid characters (only a-z, 0-9, _, - allowed)")
	}
	return nil
}

// ValidateHost checks a single ALLOWED_HOSTS entry: an IP address, a
// hostname, a ".domain" wildcard or "*".
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if host == "*" {
		return nil
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return nil
	}
	if len(host) > 253 {
		return fmt.Errorf("host %q too long", host)
	}
	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("host %q contains invalid characters", host)
	}
	return nil
}

// ValidateUsername checks a Django username: letters, digits and @.+-_ only.
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(name) > 150 {
		return fmt.Errorf("username too long (maximum 150 characters)")
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}

// WithinDir resolves target and ensures it lies inside base. It returns the
// cleaned absolute target. Used before removing directories.
func WithinDir(base, target string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path: %w", err)
	}

	cleanBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate base path symlinks: %w", err)
	}

	cleanTarget, err := filepath.EvalSymlinks(absTarget)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate target path symlinks: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, cleanTarget)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: target '%s' is outside base '%s'", cleanTarget, cleanBase)
	}

	return cleanTarget, nil
}
