package fileutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TailLines returns the last n lines of the file at path.
// A trailing newline does not count as an extra empty line.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	// Ring buffer of the most recent n lines.
	ring := make([]string, n)
	count := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if count < n {
		return ring[:count], nil
	}

	lines := make([]string, 0, n)
	start := count % n
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return lines, nil
}

// WriteTail writes the last n lines of path to w, one per line.
func WriteTail(w io.Writer, path string, n int) error {
	lines, err := TailLines(path, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDirsNamed deletes every directory called name below root and
// returns the removed paths. root itself is never removed.
func RemoveDirsNamed(root, name string) ([]string, error) {
	var targets []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == name && path != root {
			targets = append(targets, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	removed := make([]string, 0, len(targets))
	for _, target := range targets {
		if err := os.RemoveAll(target); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", target, err)
		}
		removed = append(removed, target)
	}
	return removed, nil
}

// RemoveGlob deletes every directory in dir whose name matches pattern.
// Regular files are left in place.
func RemoveGlob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var removed []string
	for _, match := range matches {
		if !DirExists(match) {
			continue
		}
		if err := os.RemoveAll(match); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", match, err)
		}
		removed = append(removed, match)
	}
	return removed, nil
}
