package security

import (
	"fmt"
	"os"
)

const (
	// PermConfigFile is for the YAML configuration and .env files, which hold
	// database passwords and supervisorctl secrets. rw-r-----
	PermConfigFile os.FileMode = 0640

	// PermLogFile is for licman's own log and the install log. rw-r-----
	PermLogFile os.FileMode = 0640

	// PermDBFile is for the event history database. rw-r-----
	PermDBFile os.FileMode = 0640

	// PermDirectory is for var/ subdirectories licman creates. rwxr-x---
	PermDirectory os.FileMode = 0750
)

// CreateSecureFile creates or truncates path with perm, regardless of umask.
func CreateSecureFile(path string, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to create secure file: %w", err)
	}

	// OpenFile only applies perm to new files, and through the umask.
	if err := os.Chmod(path, perm); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}

	return file, nil
}

// OpenAppendFile opens path for appending, creating it with perm.
func OpenAppendFile(path string, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// IsWorldReadable reports whether others may read a file with perm.
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// IsWorldWritable reports whether others may write a file with perm.
func IsWorldWritable(perm os.FileMode) bool {
	return perm&0002 != 0
}

// ValidateSecurePermissions returns an error when a file holding secrets is
// readable or writable by others.
func ValidateSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if IsWorldWritable(perm) {
		return fmt.Errorf("file %s is world-writable (%04o)", path, perm)
	}
	if IsWorldReadable(perm) {
		return fmt.Errorf("file %s is world-readable (%04o) but contains secrets", path, perm)
	}

	return nil
}
