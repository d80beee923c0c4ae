package install

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"licman/internal/security"
	"licman/pkg/fileutil"

	"github.com/klauspost/compress/gzip"
)

// installPython builds CPython into opt/python, then creates opt/venv and
// installs requirements.txt. Existing installs are kept unless force is set.
func (i *Installer) installPython(ctx context.Context, force bool) error {
	c := i.Config

	if fileutil.FileExists(c.PythonBin()) && !force {
		i.Out.Done("Python already installed.")
	} else if err := i.buildPython(ctx); err != nil {
		return err
	}

	venv := c.Layout.Venv()
	if fileutil.DirExists(venv) && !force {
		i.Out.Done("Virtual environment already exists.")
		return nil
	}
	if fileutil.DirExists(venv) {
		i.Out.Println("🗑️ Removing existing virtual environment at " + venv)
		if err := i.removeUnderOpt(venv); err != nil {
			return err
		}
	}

	i.Out.Println("🐍 Creating virtual environment...")
	if err := i.run(ctx, "", c.PythonBin(), "-m", "venv", venv); err != nil {
		return err
	}

	binDir := c.Layout.VenvBin()
	minor := c.minorVersion()
	links := []struct {
		name   string
		target string
	}{
		{"python", "python" + minor},
		{"python3", "python" + minor},
		{"pip", "pip" + minor},
	}
	for _, l := range links {
		created, err := fileutil.EnsureSymlink(filepath.Join(binDir, l.name), l.target)
		if err != nil {
			return err
		}
		if created {
			i.Out.Printf("Creating symlink: %s -> %s\n", l.name, l.target)
		}
	}

	i.Out.Println("Upgrading pip to the latest version...")
	if err := i.run(ctx, "", filepath.Join(binDir, "python"), "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		return err
	}

	requirements := c.RequirementsFile()
	i.Out.Printf("Installing Python packages from %s...\n", filepath.Base(requirements))
	cmd := []string{filepath.Join(binDir, "pip"), "install", "-r", requirements}
	return i.run(ctx, "", append(cmd, c.PipArgs...)...)
}

func (i *Installer) buildPython(ctx context.Context) error {
	c := i.Config
	prefix := c.PythonPrefix()

	if fileutil.DirExists(prefix) {
		i.Out.Println("🗑️ Removing existing Python install at " + prefix)
		if err := i.removeUnderOpt(prefix); err != nil {
			return err
		}
	}

	buildDir := c.PythonBuildDir()
	if fileutil.DirExists(buildDir) {
		if err := i.removeUnderOpt(buildDir); err != nil {
			return err
		}
	}

	tarball := c.PythonTarball()
	i.Out.Step("extracting %s", filepath.Base(tarball))
	if err := ExtractTarGz(tarball, c.Layout.Opt); err != nil {
		return err
	}

	if err := i.run(ctx, buildDir, "./configure", "--prefix="+prefix); err != nil {
		return err
	}
	if err := i.run(ctx, buildDir, "make", "-j4"); err != nil {
		return err
	}
	return i.run(ctx, buildDir, "make", "install")
}

// removeUnderOpt deletes dir after checking that it lies inside opt/.
func (i *Installer) removeUnderOpt(dir string) error {
	target, err := security.WithinDir(i.Config.Layout.Opt, dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove %s: %w", target, err)
	}
	return nil
}

// cleanup removes the Python build directories left in opt/.
func (i *Installer) cleanup() error {
	i.Out.Println("🧹 Cleaning build directories...")
	removed, err := fileutil.RemoveGlob(i.Config.Layout.Opt, "Python-*")
	for _, dir := range removed {
		i.logf("[RM] %s\n", dir)
	}
	return err
}

// ExtractTarGz unpacks a gzip-compressed tar archive into dest. Entries that
// would land outside dest are rejected.
func ExtractTarGz(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", archive, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", archive, err)
		}

		target, err := archivePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		mode := os.FileMode(hdr.Mode).Perm()
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, mode|0700); err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeArchiveFile(target, tr, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("archive entry %s links outside the archive", hdr.Name)
			}
			if _, err := archivePath(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
			}
			if err := fileutil.CreateSymlink(target, hdr.Linkname); err != nil {
				return err
			}
		}
	}
}

func archivePath(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %s escapes %s", name, dest)
	}
	return target, nil
}

func writeArchiveFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
