package configure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"licman/internal/config"
	"licman/internal/security"

	"golang.org/x/term"
)

// ErrRequiredField is returned when a required prompt gets no value and has
// nothing to fall back on.
var ErrRequiredField = errors.New("required field missing")

// Prompter reads operator answers line by line.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer

	// readSecret reads a line without echo. Nil reads a normal line.
	readSecret func() (string, error)
}

// NewPrompter reads from in and writes prompts to out. When in is a
// terminal, secrets are read without echo.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{reader: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (p *Prompter) readLine() string {
	input, err := p.reader.ReadString('\n')
	if err != nil && input == "" {
		return ""
	}
	return strings.TrimSpace(input)
}

// readValue prints "label [display]: " and returns the trimmed answer.
func (p *Prompter) readValue(label, display string, secret bool) string {
	if display != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, display)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	if secret && p.readSecret != nil {
		value, err := p.readSecret()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(value)
	}
	return p.readLine()
}

// Confirm asks a yes/no question. An empty answer returns def.
func (p *Prompter) Confirm(question string, def bool) bool {
	hint := "n"
	if def {
		hint = "y"
	}
	fmt.Fprintf(p.out, "%s (y or n) [default %s] ", question, hint)

	switch strings.ToLower(p.readLine()) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}

type djangoPrompt struct {
	label  string
	target *string
	def    string
	secret bool
}

// PromptDjango asks for the django settings, keeping existing values when
// the answer is empty. STATIC_ROOT, MEDIA_ROOT and LOG_DIR are then reset to
// the layout paths.
func PromptDjango(p *Prompter, dj *config.Django, layout config.Layout, secrets config.SecretSource) error {
	generated, err := secrets.RandomString(50)
	if err != nil {
		return fmt.Errorf("failed to generate secret key: %w", err)
	}

	prompts := []djangoPrompt{
		{label: "Secret Key", target: &dj.SecretKey, def: generated},
		{label: "Enable Debug Mode (true/false)", target: &dj.Debug, def: "true"},
		{label: "Allowed Hosts (comma-separated)", target: &dj.AllowedHosts, def: "localhost,127.0.0.1"},
		{label: "Database Name", target: &dj.DatabaseName, def: "licman"},
		{label: "Database User", target: &dj.DatabaseUser, def: "licman"},
		{label: "Database Password", target: &dj.DatabasePassword, def: "licman"},
		{label: "Database Host", target: &dj.DatabaseHost, def: "localhost"},
		{label: "Database Port", target: &dj.DatabasePort, def: "5432"},
		{label: "Time Zone", target: &dj.TimeZone, def: "UTC"},

		{label: "Superuser Username (Required)", target: &dj.AdminUsername},
		{label: "Superuser Email (Required)", target: &dj.AdminEmail},
		{label: "Superuser Password (Required)", target: &dj.AdminPassword, secret: true},
	}

	for _, q := range prompts {
		existing := *q.target

		display := existing
		if display == "" {
			display = q.def
		}
		if q.secret && display != "" {
			display = "*****"
		}

		value := p.readValue(q.label, display, q.secret)
		if value == "" {
			switch {
			case existing != "":
				value = existing
			case q.def != "":
				value = q.def
			default:
				fmt.Fprintf(p.out, "❌ %s is required.\n", q.label)
				return fmt.Errorf("%w: %s", ErrRequiredField, q.label)
			}
		}
		*q.target = value
	}

	for _, host := range config.ParseHosts(dj.AllowedHosts) {
		if err := security.ValidateHost(host); err != nil {
			fmt.Fprintf(p.out, "⚠️  %v\n", err)
		}
	}
	if err := security.ValidateUsername(dj.AdminUsername); err != nil {
		fmt.Fprintf(p.out, "⚠️  %v\n", err)
	}

	dj.StaticRoot = filepath.Join(layout.Var, "static")
	dj.MediaRoot = filepath.Join(layout.Var, "media")
	dj.LogDir = layout.Log
	return nil
}
