package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// ExecOptions configures command execution.
type ExecOptions struct {
	// Dir is the working directory for the command.
	Dir string

	// Timeout is the maximum execution time.
	// If zero, no timeout is applied.
	Timeout time.Duration

	// Env contains environment variables for the command.
	// Each entry should be in the form "KEY=value". Nil inherits the
	// current process environment.
	Env []string

	// CombinedOutput determines if stdout and stderr are combined.
	// Ignored when Stdout or Stderr is set.
	CombinedOutput bool

	// Stdin, Stdout and Stderr attach the command to caller streams.
	// When Stdout or Stderr is set the output is streamed, not captured.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result contains the result of a command execution.
type Result struct {
	// Stdout is the standard output (only if CombinedOutput is false).
	Stdout []byte

	// Stderr is the standard error (only if CombinedOutput is false).
	Stderr []byte

	// Output is the combined stdout and stderr (only if CombinedOutput is true).
	Output []byte

	// ExitCode is the exit code of the command.
	ExitCode int

	// Duration is how long the command took to execute.
	Duration time.Duration
}

// Runner executes commands. Production code uses Exec; tests substitute a
// recording fake.
type Runner interface {
	Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	return f(ctx, opts, cmdParts)
}

// Exec is the Runner backed by os/exec.
var Exec Runner = RunnerFunc(Run)

// Run executes a command with the given options.
// The command is provided as a slice of arguments (command and its arguments).
// Returns the result or an error if the command fails. A non-zero exit is
// reported as an error wrapping *exec.ExitError; use ExitCode to extract it.
func Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	if len(cmdParts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	// Apply timeout if specified
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdin = opts.Stdin

	start := time.Now()

	var result Result
	var err error

	switch {
	case opts.Stdout != nil || opts.Stderr != nil:
		cmd.Stdout = opts.Stdout
		cmd.Stderr = opts.Stderr
		err = cmd.Run()
	case opts.CombinedOutput:
		result.Output, err = cmd.CombinedOutput()
	default:
		result.Stdout, err = cmd.Output()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Stderr = exitErr.Stderr
		}
	}

	result.Duration = time.Since(start)

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return &result, fmt.Errorf("command failed: %w", err)
	}

	return &result, nil
}

// ExitCode returns the process exit status carried by err.
// The second value is false when err did not come from a process that ran
// to completion.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	var coded *ExitError
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return 0, false
}

// ExitError reports a non-zero exit status without an underlying
// *exec.ExitError. Fakes return it from Runner implementations.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ParseCommandString parses a shell-quoted command string into parts.
//
// Example:
//
//	"--enable-optimizations --with-lto" -> ["--enable-optimizations", "--with-lto"]
func ParseCommandString(cmdStr string) ([]string, error) {
	parts, err := shellquote.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command string: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command string")
	}
	return parts, nil
}

// FormatCommand formats command parts into a readable string for logging.
// Example: ["pip", "install", "-r", "my reqs.txt"] -> "pip install -r 'my reqs.txt'"
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}

	quoted := make([]string, len(cmdParts))
	for i, part := range cmdParts {
		if strings.ContainsAny(part, " \t\n\"'") {
			quoted[i] = shellquote.Join(part)
		} else {
			quoted[i] = part
		}
	}

	return strings.Join(quoted, " ")
}

// SanitizeOutput removes sensitive information from command output.
func SanitizeOutput(output []byte, secrets []string) []byte {
	sanitized := string(output)
	for _, secret := range secrets {
		if secret != "" {
			sanitized = strings.ReplaceAll(sanitized, secret, "***REDACTED***")
		}
	}
	return []byte(sanitized)
}

// MergeEnv overlays overrides onto base ("KEY=value" entries). Keys in
// overrides replace matching keys in base; the result keeps base order and
// appends new keys in the order given by keys.
func MergeEnv(base []string, overrides map[string]string, keys []string) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name, _, _ := strings.Cut(entry, "=")
		if _, ok := overrides[name]; ok {
			continue
		}
		merged = append(merged, entry)
	}
	for _, key := range keys {
		if value, ok := overrides[key]; ok {
			merged = append(merged, key+"="+value)
		}
	}
	return merged
}
