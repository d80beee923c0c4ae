package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout holds the absolute project directories derived from the root.
type Layout struct {
	Root     string
	Bin      string
	Etc      string
	Opt      string
	Src      string
	Tmp      string
	Var      string
	Log      string
	Cache    string
	Pid      string
	Download string
}

// NewLayout builds the directory layout below root.
func NewLayout(root string) Layout {
	varDir := filepath.Join(root, "var")
	return Layout{
		Root:     root,
		Bin:      filepath.Join(root, "bin"),
		Etc:      filepath.Join(root, "etc"),
		Opt:      filepath.Join(root, "opt"),
		Src:      filepath.Join(root, "src"),
		Tmp:      filepath.Join(root, "tmp"),
		Var:      varDir,
		Log:      filepath.Join(varDir, "log"),
		Cache:    filepath.Join(varDir, "cache"),
		Pid:      filepath.Join(varDir, "pid"),
		Download: filepath.Join(varDir, "download"),
	}
}

// Backend is the Django project directory.
func (l Layout) Backend() string { return filepath.Join(l.Src, "backend") }

// ManagePy is the path of Django's manage.py.
func (l Layout) ManagePy() string { return filepath.Join(l.Backend(), "manage.py") }

// Venv is the application virtualenv.
func (l Layout) Venv() string { return filepath.Join(l.Opt, "venv") }

// VenvBin is the virtualenv bin directory.
func (l Layout) VenvBin() string { return filepath.Join(l.Venv(), "bin") }

// VenvPython is the virtualenv interpreter.
func (l Layout) VenvPython() string { return filepath.Join(l.VenvBin(), "python") }

// EnvFile is the .env file consumed by Django.
func (l Layout) EnvFile() string { return filepath.Join(l.Src, ".env") }

// DotEnvFile is the root .env file that selects the environment.
func (l Layout) DotEnvFile() string { return filepath.Join(l.Root, ".env") }

// DefaultConfigFile is the YAML configuration used when no override is set.
func (l Layout) DefaultConfigFile() string { return filepath.Join(l.Root, ".licman-cfg.yml") }

// HistoryDB is the SQLite database holding the event history.
func (l Layout) HistoryDB() string { return filepath.Join(l.Var, "licman.db") }

// LicenseFile is shown on the configure splash screen.
func (l Layout) LicenseFile() string { return filepath.Join(l.Root, "LICENSE") }

// ResolveRoot determines the project root. Order: explicit value,
// LICMAN_ROOT, the parent of the executable when it lives in a bin/
// directory, then the working directory.
func ResolveRoot(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv("LICMAN_ROOT")
	}
	if explicit != "" {
		root, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root %s: %w", explicit, err)
		}
		return root, nil
	}

	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir := filepath.Dir(exe)
		if filepath.Base(dir) == "bin" {
			return filepath.Dir(dir), nil
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return wd, nil
}
