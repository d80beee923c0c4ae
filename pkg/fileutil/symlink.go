package fileutil

import (
	"fmt"
	"os"
)

// CreateSymlink creates a symlink, removing any existing file/link at that path.
func CreateSymlink(linkPath, targetPath string) error {
	// Remove existing link/file if present
	_ = os.Remove(linkPath)

	if err := os.Symlink(targetPath, linkPath); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}

	return nil
}

// EnsureSymlink creates linkPath pointing at targetPath unless something
// already exists at linkPath. Reports whether a link was created.
func EnsureSymlink(linkPath, targetPath string) (bool, error) {
	if _, err := os.Lstat(linkPath); err == nil {
		return false, nil
	}

	if err := CreateSymlink(linkPath, targetPath); err != nil {
		return false, err
	}
	return true, nil
}
