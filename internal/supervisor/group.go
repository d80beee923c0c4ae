// Package supervisor controls the web and queue process groups through
// supervisord and supervisorctl.
package supervisor

import (
	"path/filepath"
	"time"

	"licman/internal/config"
	"licman/pkg/cmdutil"
)

// Group names.
const (
	GroupWeb   = "web"
	GroupQueue = "queue"
)

// Group describes one supervisord instance and how to talk to it.
type Group struct {
	Name       string
	ConfigPath string
	LogPath    string
	PIDPath    string

	// SettleDelay is how long start waits before showing the log.
	SettleDelay time.Duration

	// Services and Daemon name the group in operator messages.
	Services string
	Daemon   string

	// Env overlays the process environment of every subprocess, applied in
	// EnvKeys order.
	Env     map[string]string
	EnvKeys []string

	Usage string
}

// Environ returns base with the group environment applied.
func (g Group) Environ(base []string) []string {
	return cmdutil.MergeEnv(base, g.Env, g.EnvKeys)
}

type envBuilder struct {
	env  map[string]string
	keys []string
}

func (b *envBuilder) set(key, value string) {
	if _, ok := b.env[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.env[key] = value
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func baseEnv(layout config.Layout, cfg *config.Config, user, path string, web bool) *envBuilder {
	b := &envBuilder{env: make(map[string]string)}
	b.set("APP_NAME", config.AppName)
	b.set("USER", user)
	b.set("DIR", layout.Root)
	b.set("BIN", layout.Bin)
	b.set("ETC", layout.Etc)
	b.set("OPT", layout.Opt)
	b.set("TMP", layout.Tmp)
	b.set("VAR", layout.Var)
	b.set("SRC", layout.Src)
	if web {
		b.set("WEB", filepath.Join(layout.Src, "public"))
	}
	b.set("CACHE_DIR", layout.Cache)
	b.set("LOG_DIR", layout.Log)
	if web {
		b.set("PORT", valueOr(cfg.Nginx.Port, "8282"))
		b.set("SSL", cfg.Nginx.SSL)
		b.set("REDIS_HOST", valueOr(cfg.Redis.Host, "/var/run/redis/redis.sock"))
	}
	b.set("PATH", valueOr(path, "/usr/bin:/bin"))
	b.set("CELERY_BROKER_URL", cfg.Celery.BrokerURL)
	b.set("CELERY_WORKER_CONCURRENCY", valueOr(cfg.Celery.WorkerConcurrency, "2"))
	if web {
		b.set("APP_URL", valueOr(cfg.Nginx.AppURL, "http://localhost:8282"))
	}
	b.set("BASE_DIR", layout.Root)
	if web {
		b.set("VIRTUAL_ENV", layout.Venv())
	}
	return b
}

// WebGroup describes the supervisord instance running the web layer.
func WebGroup(layout config.Layout, cfg *config.Config, user, path string) Group {
	env := baseEnv(layout, cfg, user, path, true)
	return Group{
		Name:        GroupWeb,
		ConfigPath:  filepath.Join(layout.Etc, "supervisor/conf.d/supervisord.conf"),
		LogPath:     filepath.Join(layout.Log, "supervisord.log"),
		PIDPath:     filepath.Join(layout.Pid, "supervisord.pid"),
		SettleDelay: 5 * time.Second,
		Services:    "web services",
		Daemon:      "supervisor daemon",
		Env:         env.env,
		EnvKeys:     env.keys,
		Usage: `Usage: web [start|stop|restart|kill|help]

Manage the web server layer.

Commands:
  start      Start supervisord and web services
  stop       Stop all services via supervisorctl
  restart    Restart all web services
  kill       Stop services and terminate supervisord
  help       Show this help message
`,
	}
}

// QueueGroup describes the supervisord instance running the Celery workers.
func QueueGroup(layout config.Layout, cfg *config.Config, user, path string) Group {
	env := baseEnv(layout, cfg, user, path, false)
	return Group{
		Name:        GroupQueue,
		ConfigPath:  filepath.Join(layout.Etc, "supervisor/queue-manager.conf"),
		LogPath:     filepath.Join(layout.Log, "queue-manager.log"),
		PIDPath:     filepath.Join(layout.Pid, "queue-manager.pid"),
		SettleDelay: 3 * time.Second,
		Services:    "queue services",
		Daemon:      "queue manager daemon",
		Env:         env.env,
		EnvKeys:     env.keys,
		Usage: `Usage: queue [start|stop|restart|kill|help]

Manage the Celery queue service layer.

Commands:
  start      Start supervisord and queue worker
  stop       Stop all workers via supervisorctl
  restart    Restart all workers
  kill       Stop workers and terminate supervisord
  help       Show this help message
`,
	}
}
