package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// State is the liveness of a group as seen through its PID file.
type State string

const (
	StateRunning    State = "running"
	StateNotRunning State = "not-running"
)

// Status is the result of probing a PID file.
type Status struct {
	State State `json:"state"`
	PID   int   `json:"pid,omitempty"`
	// PIDFile reports whether the PID file exists, even if malformed.
	PIDFile bool `json:"pid_file"`
}

// Running reports whether the daemon is alive.
func (s Status) Running() bool { return s.State == StateRunning }

// ReadPID reads a positive integer PID from path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed pid %q in %s", text, path)
	}
	return pid, nil
}

// signalZero is unix.Kill(pid, 0); swapped out in tests.
var signalZero = func(pid int) error { return unix.Kill(pid, 0) }

// ProcessAlive probes pid with signal 0. Any probe error, EPERM included,
// means not alive: a PID owned by another user is not our daemon.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return signalZero(pid) == nil
}

// Probe inspects the PID file at path. alive defaults to ProcessAlive.
// A missing, empty or malformed file is not-running.
func Probe(path string, alive func(int) bool) Status {
	if alive == nil {
		alive = ProcessAlive
	}

	status := Status{State: StateNotRunning}
	if _, err := os.Stat(path); err != nil {
		return status
	}
	status.PIDFile = true

	pid, err := ReadPID(path)
	if err != nil {
		return status
	}
	status.PID = pid
	if alive(pid) {
		status.State = StateRunning
	}
	return status
}

func terminate(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	return nil
}
