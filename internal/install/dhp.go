package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"licman/internal/config"
	"licman/internal/console"
	"licman/pkg/cmdutil"
	"licman/pkg/fileutil"
)

// DefaultDHBits is the default Diffie-Hellman parameter size.
const DefaultDHBits = 2048

// DHParams generates etc/ssl/certs/dhparam.pem with openssl.
type DHParams struct {
	Layout    config.Layout
	Bits      int
	Overwrite bool

	Runner cmdutil.Runner
	Out    *console.Printer
	Stderr io.Writer
}

// NewDHParams returns a generator for layout with the default size.
func NewDHParams(layout config.Layout, out io.Writer) *DHParams {
	return &DHParams{
		Layout: layout,
		Bits:   DefaultDHBits,
		Runner: cmdutil.Exec,
		Out:    console.New(out),
		Stderr: os.Stderr,
	}
}

// Path is the generated parameter file.
func (d *DHParams) Path() string {
	return filepath.Join(d.Layout.Etc, "ssl", "certs", "dhparam.pem")
}

// Generate writes the parameter file unless it exists. Overwrite replaces
// an existing file.
func (d *DHParams) Generate(ctx context.Context) error {
	if d.Bits <= 0 {
		return fmt.Errorf("invalid bitdepth: %d", d.Bits)
	}

	path := d.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	if d.Overwrite && fileutil.FileExists(path) {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	if fileutil.FileExists(path) {
		d.Out.Println("...dhp file already exists. skipping...")
		return nil
	}

	cmd := []string{"openssl", "dhparam", "-out", path, fmt.Sprint(d.Bits)}
	_, err := d.Runner.Run(ctx, cmdutil.ExecOptions{
		Stdout: d.Out.Writer(),
		Stderr: d.Stderr,
	}, cmd)
	if err != nil {
		return fmt.Errorf("command failed: %s: %w", cmdutil.FormatCommand(cmd), err)
	}

	d.Out.Success("DH parameters generated.")
	return nil
}
