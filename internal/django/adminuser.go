package django

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"licman/internal/config"
	"licman/internal/security"
)

// ErrMissingCredentials is returned when the django domain lacks one of the
// ADMIN_* keys.
var ErrMissingCredentials = errors.New("superuser credentials missing")

// adminUserScript runs inside "manage.py shell -c". Credentials arrive via
// the environment so they never appear in the process list.
const adminUserScript = `
import os
from django.contrib.auth import get_user_model
from django.db import IntegrityError

username = os.environ["LICMAN_ADMIN_USERNAME"]
email = os.environ["LICMAN_ADMIN_EMAIL"]
password = os.environ["LICMAN_ADMIN_PASSWORD"]
update = os.environ.get("LICMAN_ADMIN_UPDATE") == "1"

User = get_user_model()
try:
    user = User.objects.get(username=username)
except User.DoesNotExist:
    try:
        User.objects.create_superuser(username=username, email=email, password=password)
        print(f"✅ Created new superuser: {username}")
    except IntegrityError as e:
        print(f"❌ Failed to create superuser: {e}")
        raise SystemExit(1)
else:
    if update:
        user.email = email
        user.set_password(password)
        user.save()
        print(f"✅ Updated existing superuser: {username}")
    else:
        print(f"ℹ️ Superuser '{username}' already exists. Use ` + "`licman adminuser --update`" + ` to modify.")
`

// AdminUser creates the superuser described by dj, or updates its email and
// password when update is set and the account exists.
func (m *Manager) AdminUser(ctx context.Context, dj config.Django, update bool) error {
	var missing []string
	if dj.AdminUsername == "" {
		missing = append(missing, "ADMIN_USERNAME")
	}
	if dj.AdminEmail == "" {
		missing = append(missing, "ADMIN_EMAIL")
	}
	if dj.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (run licman configure)", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if err := security.ValidateUsername(dj.AdminUsername); err != nil {
		return err
	}

	flag := "0"
	if update {
		flag = "1"
	}
	env := map[string]string{
		"LICMAN_ADMIN_USERNAME": dj.AdminUsername,
		"LICMAN_ADMIN_EMAIL":    dj.AdminEmail,
		"LICMAN_ADMIN_PASSWORD": dj.AdminPassword,
		"LICMAN_ADMIN_UPDATE":   flag,
	}
	return m.manage(ctx, nil, env, "shell", "-c", adminUserScript)
}
