package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"licman/internal/security"

	"github.com/creasty/defaults"
)

const (
	djangoSecretLength  = 50
	sessionSecretLength = 64
	ctlSecretLength     = 32
	ctlTokenBytes       = 16

	defaultSupervisordPort  = "6160"
	defaultQueueManagerPort = "6161"
)

// SecretSource produces random secrets.
type SecretSource interface {
	// RandomString returns n random upper-case hexadecimal characters.
	RandomString(n int) (string, error)
	// TokenHex returns nbytes random bytes as lower-case hex.
	TokenHex(nbytes int) (string, error)
}

type cryptoSource struct{}

func (cryptoSource) RandomString(n int) (string, error) { return security.RandomUpperHex(n) }
func (cryptoSource) TokenHex(nbytes int) (string, error) { return security.TokenHex(nbytes) }

// Runtime carries the per-invocation facts merging and deriving depend on.
type Runtime struct {
	// User is the operator account written into supervisor and nginx settings.
	User string
	// Path is the PATH value recorded for Django.
	Path string
	// Secrets generates missing secrets.
	Secrets SecretSource
}

// DefaultRuntime describes the current process.
func DefaultRuntime() Runtime {
	path := os.Getenv("PATH")
	if path == "" {
		path = "/usr/bin:/bin"
	}
	return Runtime{
		User:    CurrentUser(),
		Path:    path,
		Secrets: cryptoSource{},
	}
}

// CurrentUser returns LOGNAME, falling back to the account of the process.
func CurrentUser() string {
	if name := os.Getenv("LOGNAME"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// MergeDefaults returns a copy of cfg with every missing default filled in.
// Values already present are never changed, so merging twice is a no-op for
// them. Secrets are generated only for keys that are empty.
func MergeDefaults(cfg *Config, layout Layout, rt Runtime) (*Config, error) {
	out := cfg.Clone()
	out.foldLegacy()

	for _, d := range []any{&out.Django, &out.Celery, &out.Supervisord, &out.QueueManager} {
		if err := defaults.Set(d); err != nil {
			return nil, fmt.Errorf("failed to apply defaults: %w", err)
		}
	}

	dj := &out.Django
	setIfEmpty(&dj.StaticRoot, filepath.Join(layout.Var, "static"))
	setIfEmpty(&dj.MediaRoot, filepath.Join(layout.Var, "media"))
	setIfEmpty(&dj.LogDir, layout.Log)

	if dj.SecretKey == "" {
		key, err := rt.Secrets.RandomString(djangoSecretLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Django secret key: %w", err)
		}
		dj.SecretKey = key
	}

	setIfEmpty(&out.Supervisord.User, rt.User)
	if out.Supervisord.Secret == "" {
		secret, err := rt.Secrets.TokenHex(ctlTokenBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate supervisorctl secret: %w", err)
		}
		out.Supervisord.Secret = secret
	}

	setIfEmpty(&out.QueueManager.User, rt.User)
	if out.QueueManager.Secret == "" {
		secret, err := rt.Secrets.TokenHex(ctlTokenBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate queuectl secret: %w", err)
		}
		out.QueueManager.Secret = secret
	}

	return out, nil
}

func setIfEmpty(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
