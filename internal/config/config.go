// Package config loads, completes and persists the licman configuration.
//
// The configuration is a YAML document with one mapping per domain
// (django, celery, nginx, ...). Every value is kept as a string, the way it
// ends up in .env files and rendered templates. Keys a domain does not know
// about are preserved in its Extra map so custom template tokens survive a
// load/save cycle.
package config

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
)

// Django holds the django domain. These keys are written to src/.env.
type Django struct {
	SecretKey        string `yaml:"DJANGO_SECRET_KEY"`
	Debug            string `yaml:"DEBUG" default:"true"`
	AllowedHosts     string `yaml:"ALLOWED_HOSTS" default:"localhost,127.0.0.1"`
	DatabaseName     string `yaml:"DATABASE_NAME" default:"licman"`
	DatabaseUser     string `yaml:"DATABASE_USER" default:"licman"`
	DatabasePassword string `yaml:"DATABASE_PASSWORD" default:"licman"`
	DatabaseHost     string `yaml:"DATABASE_HOST" default:"localhost"`
	DatabasePort     string `yaml:"DATABASE_PORT" default:"5432"`
	TimeZone         string `yaml:"TIME_ZONE" default:"UTC"`
	StaticRoot       string `yaml:"STATIC_ROOT"`
	MediaRoot        string `yaml:"MEDIA_ROOT"`
	LogDir           string `yaml:"LOG_DIR"`

	AdminUsername string `yaml:"ADMIN_USERNAME,omitempty"`
	AdminEmail    string `yaml:"ADMIN_EMAIL,omitempty"`
	AdminPassword string `yaml:"ADMIN_PASSWORD,omitempty"`
	AppURL        string `yaml:"APP_URL,omitempty"`

	CSRFTrustedOrigins string `yaml:"CSRF_TRUSTED_ORIGINS,omitempty"`
	AppName            string `yaml:"APP_NAME,omitempty"`
	Path               string `yaml:"PATH,omitempty"`
	BaseDir            string `yaml:"BASE_DIR,omitempty"`
	Src                string `yaml:"SRC,omitempty"`
	VirtualEnv         string `yaml:"VIRTUAL_ENV,omitempty"`
	RedisHost          string `yaml:"REDIS_HOST,omitempty"`
	RedisPort          string `yaml:"REDIS_PORT,omitempty"`
	RedisDB            string `yaml:"REDIS_DB,omitempty"`
	RedisPassword      string `yaml:"REDIS_PASSWORD"`
	CeleryBrokerURL    string `yaml:"CELERY_BROKER_URL,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// Celery holds the celery domain.
type Celery struct {
	ResultBackend     string `yaml:"CELERY_RESULT_BACKEND"`
	WorkerConcurrency string `yaml:"CELERY_WORKER_CONCURRENCY" default:"2"`
	TaskTimeLimit     string `yaml:"CELERY_TASK_TIME_LIMIT" default:"300"`
	TaskSoftTimeLimit string `yaml:"CELERY_TASK_SOFT_TIME_LIMIT" default:"240"`
	BrokerURL         string `yaml:"CELERY_BROKER_URL,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// Nginx holds the nginx domain. Most keys are derived; IS_SSL, SSL_CERT,
// SSL_KEY and PORT are operator input.
type Nginx struct {
	IsSSL   string `yaml:"IS_SSL,omitempty"`
	SSLCert string `yaml:"SSL_CERT,omitempty"`
	SSLKey  string `yaml:"SSL_KEY,omitempty"`

	SessionSecret       string `yaml:"SESSION_SECRET,omitempty"`
	SSL                 string `yaml:"SSL"`
	SSLCertLine         string `yaml:"SSL_CERT_LINE"`
	SSLKeyLine          string `yaml:"SSL_KEY_LINE"`
	IncludeForceSSLLine string `yaml:"INCLUDE_FORCE_SSL_LINE"`
	Domains             string `yaml:"DOMAINS,omitempty"`
	AppURL              string `yaml:"APP_URL,omitempty"`
	Dir                 string `yaml:"DIR,omitempty"`
	Bin                 string `yaml:"BIN,omitempty"`
	Etc                 string `yaml:"ETC,omitempty"`
	Opt                 string `yaml:"OPT,omitempty"`
	Tmp                 string `yaml:"TMP,omitempty"`
	Var                 string `yaml:"VAR,omitempty"`
	Web                 string `yaml:"WEB,omitempty"`
	Src                 string `yaml:"SRC,omitempty"`
	User                string `yaml:"USER,omitempty"`
	Log                 string `yaml:"LOG,omitempty"`
	Port                string `yaml:"PORT,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// Supervisord holds the web supervisor domain.
type Supervisord struct {
	User   string `yaml:"SUPERVISORCTL_USER"`
	Secret string `yaml:"SUPERVISORCTL_SECRET"`
	Port   string `yaml:"SUPERVISORCTL_PORT" default:"6160"`

	Extra map[string]string `yaml:",inline"`
}

// QueueManager holds the queue supervisor domain.
type QueueManager struct {
	User   string `yaml:"QUEUECTL_USER"`
	Secret string `yaml:"QUEUECTL_SECRET"`
	Port   string `yaml:"QUEUECTL_PORT" default:"6161"`

	Extra map[string]string `yaml:",inline"`
}

// Redis holds the redis domain. All keys are optional.
type Redis struct {
	Host     string `yaml:"REDIS_HOST,omitempty"`
	Port     string `yaml:"REDIS_PORT,omitempty"`
	DB       string `yaml:"REDIS_DB,omitempty"`
	Password string `yaml:"REDIS_PASSWORD,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// EtcOnly is the shape of the ssl_params and openssl domains.
type EtcOnly struct {
	Etc string `yaml:"ETC,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// ForceSSL holds the force_ssl domain.
type ForceSSL struct {
	Domains string `yaml:"DOMAINS,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// Config is the complete licman configuration.
type Config struct {
	Django       Django       `yaml:"django"`
	Celery       Celery       `yaml:"celery"`
	Supervisord  Supervisord  `yaml:"supervisord"`
	QueueManager QueueManager `yaml:"queue_manager"`
	Nginx        Nginx        `yaml:"nginx"`
	OpenSSL      EtcOnly      `yaml:"openssl"`
	SSLParams    EtcOnly      `yaml:"ssl_params"`
	ForceSSL     ForceSSL     `yaml:"force_ssl"`
	Redis        Redis        `yaml:"redis"`

	// Supervisor is the legacy name of the supervisord domain. It is folded
	// into Supervisord on load and never written back.
	Supervisor *Supervisord `yaml:"supervisor,omitempty"`

	// Domains holds top-level sections licman has no schema for.
	Domains map[string]any `yaml:",inline"`
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Django.Extra = maps.Clone(c.Django.Extra)
	out.Celery.Extra = maps.Clone(c.Celery.Extra)
	out.Supervisord.Extra = maps.Clone(c.Supervisord.Extra)
	out.QueueManager.Extra = maps.Clone(c.QueueManager.Extra)
	out.Nginx.Extra = maps.Clone(c.Nginx.Extra)
	out.OpenSSL.Extra = maps.Clone(c.OpenSSL.Extra)
	out.SSLParams.Extra = maps.Clone(c.SSLParams.Extra)
	out.ForceSSL.Extra = maps.Clone(c.ForceSSL.Extra)
	out.Redis.Extra = maps.Clone(c.Redis.Extra)
	if c.Supervisor != nil {
		legacy := *c.Supervisor
		legacy.Extra = maps.Clone(c.Supervisor.Extra)
		out.Supervisor = &legacy
	}
	if c.Domains != nil {
		out.Domains = make(map[string]any, len(c.Domains))
		for name, domain := range c.Domains {
			out.Domains[name] = cloneTree(domain)
		}
	}
	return &out
}

func cloneTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneTree(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneTree(item)
		}
		return out
	default:
		return v
	}
}

// foldLegacy moves values from the legacy supervisor domain into
// supervisord, filling only keys supervisord does not set.
func (c *Config) foldLegacy() {
	if c.Supervisor == nil {
		return
	}
	legacy := c.Supervisor
	if c.Supervisord.User == "" {
		c.Supervisord.User = legacy.User
	}
	if c.Supervisord.Secret == "" {
		c.Supervisord.Secret = legacy.Secret
	}
	if c.Supervisord.Port == "" {
		c.Supervisord.Port = legacy.Port
	}
	for k, v := range legacy.Extra {
		if c.Supervisord.Extra == nil {
			c.Supervisord.Extra = make(map[string]string)
		}
		if _, ok := c.Supervisord.Extra[k]; !ok {
			c.Supervisord.Extra[k] = v
		}
	}
	c.Supervisor = nil
}

// SSLEnabled reports whether nginx.IS_SSL holds a true boolean.
func (c *Config) SSLEnabled() bool {
	enabled, err := strconv.ParseBool(c.Nginx.IsSSL)
	return err == nil && enabled
}

// Validate checks that numeric settings hold integers. Empty values pass;
// defaults fill them later.
func (c *Config) Validate() error {
	numeric := []struct {
		key   string
		value string
	}{
		{"django.DATABASE_PORT", c.Django.DatabasePort},
		{"celery.CELERY_WORKER_CONCURRENCY", c.Celery.WorkerConcurrency},
		{"celery.CELERY_TASK_TIME_LIMIT", c.Celery.TaskTimeLimit},
		{"celery.CELERY_TASK_SOFT_TIME_LIMIT", c.Celery.TaskSoftTimeLimit},
		{"supervisord.SUPERVISORCTL_PORT", c.Supervisord.Port},
		{"queue_manager.QUEUECTL_PORT", c.QueueManager.Port},
		{"nginx.PORT", c.Nginx.Port},
		{"redis.REDIS_PORT", c.Redis.Port},
		{"redis.REDIS_DB", c.Redis.DB},
	}

	var errs []error
	for _, n := range numeric {
		if n.value == "" {
			continue
		}
		if _, err := strconv.Atoi(n.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", n.key, n.value))
		}
	}

	if c.Nginx.IsSSL != "" {
		if _, err := strconv.ParseBool(c.Nginx.IsSSL); err != nil {
			errs = append(errs, fmt.Errorf("nginx.IS_SSL: %q is not a boolean", c.Nginx.IsSSL))
		}
	}

	return errors.Join(errs...)
}
