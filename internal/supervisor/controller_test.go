package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"licman/internal/config"
	"licman/internal/console"
	"licman/internal/history"
	"licman/pkg/cmdutil"
)

type call struct {
	cmd []string
	env []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeRunner) Run(_ context.Context, opts cmdutil.ExecOptions, cmd []string) (*cmdutil.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{cmd: cmd, env: opts.Env})
	return &cmdutil.Result{}, f.err
}

type fakeRecorder struct {
	events []history.Event
	err    error
}

func (f *fakeRecorder) RecordEvent(_ context.Context, e *history.Event) (int64, error) {
	f.events = append(f.events, *e)
	return int64(len(f.events)), f.err
}

type harness struct {
	ctrl       *Controller
	runner     *fakeRunner
	recorder   *fakeRecorder
	out        *bytes.Buffer
	slept      []time.Duration
	terminated []int
	alive      map[int]bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	layout := config.NewLayout(t.TempDir())
	cfg := &config.Config{}
	cfg.Celery.BrokerURL = "redis://localhost:6379/0"

	h := &harness{
		runner:   &fakeRunner{},
		recorder: &fakeRecorder{},
		out:      &bytes.Buffer{},
		alive:    map[int]bool{},
	}
	h.ctrl = &Controller{
		Group:    WebGroup(layout, cfg, "deploy", "/usr/bin"),
		Runner:   h.runner,
		Out:      console.New(h.out),
		Stderr:   io.Discard,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder: h.recorder,
		Sleep:    func(d time.Duration) { h.slept = append(h.slept, d) },
		Alive:    func(pid int) bool { return h.alive[pid] },
		Terminate: func(pid int) error {
			h.terminated = append(h.terminated, pid)
			return nil
		},
		Environ: func() []string { return []string{"HOME=/home/deploy", "PORT=1"} },
	}
	return h
}

func (h *harness) writePID(t *testing.T, content string) {
	t.Helper()
	path := h.ctrl.Group.PIDPath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) commands() [][]string {
	cmds := make([][]string, len(h.runner.calls))
	for i, c := range h.runner.calls {
		cmds[i] = c.cmd
	}
	return cmds
}

func TestController_StopWithoutPIDFile(t *testing.T) {
	h := newHarness(t)

	if err := h.ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := h.out.String(); got != "No running supervisor daemon found.\n" {
		t.Errorf("output = %q", got)
	}
	if len(h.runner.calls) != 0 {
		t.Errorf("Stop() ran %v, want no subprocess", h.commands())
	}
	if len(h.recorder.events) != 1 || h.recorder.events[0].Status != history.StatusSkipped {
		t.Errorf("recorded = %+v, want one skipped event", h.recorder.events)
	}
}

func TestController_RestartWithDeadPID(t *testing.T) {
	h := newHarness(t)
	h.writePID(t, "4242")

	if err := h.ctrl.Restart(context.Background()); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if !strings.Contains(h.out.String(), "No running supervisor daemon found.") {
		t.Errorf("output = %q", h.out.String())
	}
	if len(h.runner.calls) != 0 {
		t.Errorf("Restart() ran %v, want no subprocess", h.commands())
	}
}

func TestController_StartLaunchesDaemon(t *testing.T) {
	h := newHarness(t)
	logPath := h.ctrl.Group.LogPath
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		t.Fatal(err)
	}
	var log strings.Builder
	for i := 1; i <= 20; i++ {
		log.WriteString("line " + string(rune('a'+i-1)) + "\n")
	}
	if err := os.WriteFile(logPath, []byte(log.String()), 0644); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := [][]string{{"supervisord", "-c", h.ctrl.Group.ConfigPath}}
	if got := h.commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(h.slept, []time.Duration{5 * time.Second}) {
		t.Errorf("slept = %v, want [5s]", h.slept)
	}

	out := h.out.String()
	if !strings.HasPrefix(out, "Starting supervisor daemon...\n") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "line a\n") || strings.Contains(out, "line b\n") {
		t.Error("output includes lines beyond the last 18")
	}
	if !strings.Contains(out, "line c\n") || !strings.HasSuffix(out, "line t\n") {
		t.Errorf("output missing log tail: %q", out)
	}
}

func TestController_StartWhenRunning(t *testing.T) {
	h := newHarness(t)
	h.writePID(t, "100")
	h.alive[100] = true

	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := [][]string{{"supervisorctl", "-c", h.ctrl.Group.ConfigPath, "start", "all"}}
	if got := h.commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
	if len(h.slept) != 0 {
		t.Errorf("slept = %v, want no settle delay", h.slept)
	}
	if !strings.Contains(h.out.String(), "Supervisor already running. Starting web services...") {
		t.Errorf("output = %q", h.out.String())
	}
}

func TestController_StopAndRestartWhenRunning(t *testing.T) {
	tests := []struct {
		verb    string
		action  string
		message string
	}{
		{VerbStop, "stop", "Stopping web services..."},
		{VerbRestart, "restart", "Restarting web services..."},
	}

	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			h := newHarness(t)
			h.writePID(t, "100")
			h.alive[100] = true

			if err := h.ctrl.Dispatch(context.Background(), tt.verb); err != nil {
				t.Fatalf("Dispatch(%s) error = %v", tt.verb, err)
			}

			want := [][]string{{"supervisorctl", "-c", h.ctrl.Group.ConfigPath, tt.action, "all"}}
			if got := h.commands(); !reflect.DeepEqual(got, want) {
				t.Errorf("commands = %v, want %v", got, want)
			}
			if !strings.Contains(h.out.String(), tt.message) {
				t.Errorf("output = %q, want %q", h.out.String(), tt.message)
			}
			if h.recorder.events[0].Action != tt.verb || h.recorder.events[0].Status != history.StatusSuccess {
				t.Errorf("recorded = %+v", h.recorder.events[0])
			}
		})
	}
}

func TestController_KillRunning(t *testing.T) {
	h := newHarness(t)
	h.writePID(t, "100")
	h.alive[100] = true

	if err := h.ctrl.Kill(context.Background()); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	want := [][]string{{"supervisorctl", "-c", h.ctrl.Group.ConfigPath, "stop", "all"}}
	if got := h.commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(h.terminated, []int{100}) {
		t.Errorf("terminated = %v, want [100]", h.terminated)
	}
	if !strings.Contains(h.out.String(), "Killing supervisor process 100...") {
		t.Errorf("output = %q", h.out.String())
	}
}

func TestController_KillStalePIDFile(t *testing.T) {
	h := newHarness(t)
	h.writePID(t, "100")

	if err := h.ctrl.Kill(context.Background()); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	want := "No running supervisor daemon found.\nSupervisor PID exists but process is not running.\n"
	if got := h.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if len(h.terminated) != 0 {
		t.Errorf("terminated = %v, want none", h.terminated)
	}
}

func TestController_KillWithoutPIDFile(t *testing.T) {
	h := newHarness(t)

	if err := h.ctrl.Kill(context.Background()); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if got := h.out.String(); got != "No running supervisor daemon found.\n" {
		t.Errorf("output = %q", got)
	}
}

func TestController_PropagatesExitCode(t *testing.T) {
	h := newHarness(t)
	h.writePID(t, "100")
	h.alive[100] = true
	h.runner.err = &cmdutil.ExitError{Code: 7}

	err := h.ctrl.Restart(context.Background())
	if code, ok := cmdutil.ExitCode(err); !ok || code != 7 {
		t.Fatalf("ExitCode(Restart()) = %d, %v; want 7, true", code, ok)
	}

	ev := h.recorder.events[0]
	if ev.Status != history.StatusFailed || ev.ErrorMessage == nil {
		t.Errorf("recorded = %+v, want failed with message", ev)
	}
}

func TestController_RecorderFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.recorder.err = errors.New("database is locked")

	if err := h.ctrl.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v, want nil", err)
	}
}

func TestController_SubprocessEnvironment(t *testing.T) {
	h := newHarness(t)
	h.writePID(t, "100")
	h.alive[100] = true

	if err := h.ctrl.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{}
	for _, entry := range h.runner.calls[0].env {
		k, v, _ := strings.Cut(entry, "=")
		env[k] = v
	}
	root := h.ctrl.Group.Env["DIR"]

	checks := map[string]string{
		"HOME":              "/home/deploy",
		"PORT":              "8282",
		"APP_NAME":          "licman",
		"USER":              "deploy",
		"WEB":               filepath.Join(root, "src/public"),
		"CACHE_DIR":         filepath.Join(root, "var/cache"),
		"CELERY_BROKER_URL": "redis://localhost:6379/0",
		"VIRTUAL_ENV":       filepath.Join(root, "opt/venv"),
		"APP_URL":           "http://localhost:8282",
	}
	for k, want := range checks {
		if env[k] != want {
			t.Errorf("env[%s] = %q, want %q", k, env[k], want)
		}
	}
}

func TestController_DispatchHelp(t *testing.T) {
	for _, verb := range []string{"", "help", "bogus"} {
		h := newHarness(t)
		if err := h.ctrl.Dispatch(context.Background(), verb); err != nil {
			t.Fatalf("Dispatch(%q) error = %v", verb, err)
		}
		if !strings.HasPrefix(h.out.String(), "Usage: web [start|stop|restart|kill|help]") {
			t.Errorf("Dispatch(%q) output = %q", verb, h.out.String())
		}
		if len(h.runner.calls) != 0 || len(h.recorder.events) != 0 {
			t.Errorf("Dispatch(%q) ran commands or recorded events", verb)
		}
	}
}

func TestQueueGroup(t *testing.T) {
	layout := config.NewLayout("/srv/licman")
	g := QueueGroup(layout, &config.Config{}, "deploy", "")

	if g.ConfigPath != "/srv/licman/etc/supervisor/queue-manager.conf" {
		t.Errorf("ConfigPath = %q", g.ConfigPath)
	}
	if g.PIDPath != "/srv/licman/var/pid/queue-manager.pid" {
		t.Errorf("PIDPath = %q", g.PIDPath)
	}
	if g.SettleDelay != 3*time.Second {
		t.Errorf("SettleDelay = %v, want 3s", g.SettleDelay)
	}
	for _, k := range []string{"WEB", "PORT", "SSL", "APP_URL", "VIRTUAL_ENV", "REDIS_HOST"} {
		if _, ok := g.Env[k]; ok {
			t.Errorf("queue env contains web-only key %s", k)
		}
	}
	if g.Env["CELERY_WORKER_CONCURRENCY"] != "2" || g.Env["PATH"] != "/usr/bin:/bin" {
		t.Errorf("queue env = %v", g.Env)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(config.NewLayout("/srv/licman"), &config.Config{}, "deploy", "/usr/bin")

	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if got := r.List(); !reflect.DeepEqual(got, []string{"queue", "web"}) {
		t.Errorf("List() = %v", got)
	}
	if g, err := r.Get("web"); err != nil || g.Name != "web" {
		t.Errorf("Get(web) = %v, %v", g.Name, err)
	}
	if _, err := r.Get("mail"); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("Get(mail) error = %v, want ErrUnknownGroup", err)
	}
}
