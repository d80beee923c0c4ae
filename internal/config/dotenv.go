package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"licman/internal/security"

	"github.com/hashicorp/go-envparse"
)

// Pair is one KEY=value entry, kept in order.
type Pair struct {
	Key   string
	Value string
}

// ReadDotEnv parses a .env file. A missing file yields an empty map.
func ReadDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	values, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// WriteDotEnv writes pairs as KEY=value lines. Values are written verbatim,
// without quoting. The file is replaced and readable by owner and group only.
func WriteDotEnv(path string, pairs []Pair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := security.CreateSecureFile(path, security.PermConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "%s=%s\n", p.Key, p.Value); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
