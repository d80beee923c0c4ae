package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultRedisHost = "/var/run/redis/redis.sock"
	defaultRedisPort = "6379"
	defaultRedisDB   = "0"
	defaultWebPort   = "8282"

	// AppName is the application name exported to Django and supervisor.
	AppName = "licman"
)

// BrokerURL returns the Celery broker URL for a Redis endpoint. Hosts
// starting with "/" are Unix sockets.
func BrokerURL(host, port, db string) string {
	if strings.HasPrefix(host, "/") {
		return fmt.Sprintf("redis+socket://%s?virtual_host=%s", host, db)
	}
	return fmt.Sprintf("redis://%s:%s/%s", host, port, db)
}

// ParseHosts splits an ALLOWED_HOSTS value on commas and whitespace.
// Empty entries are dropped.
func ParseHosts(allowed string) []string {
	return strings.Fields(strings.ReplaceAll(allowed, ",", " "))
}

// CSRFOrigins lists the http origin of every host followed by the https
// origin of every host. The port is omitted when it is 80 or 443.
func CSRFOrigins(hosts []string, port string) []string {
	suffix := ":" + port
	if port == "80" || port == "443" {
		suffix = ""
	}

	origins := make([]string, 0, 2*len(hosts))
	for _, scheme := range []string{"http", "https"} {
		for _, h := range hosts {
			origins = append(origins, scheme+"://"+h+suffix)
		}
	}
	return origins
}

// Derive returns a copy of cfg with computed values filled in: SSL lines,
// broker URL, CSRF origins, absolute paths and supervisor credentials.
// It does not persist anything.
func Derive(cfg *Config, layout Layout, rt Runtime) (*Config, error) {
	out := cfg.Clone()
	out.foldLegacy()

	ng := &out.Nginx
	dj := &out.Django

	if ng.SessionSecret == "" {
		secret, err := rt.Secrets.RandomString(sessionSecretLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		ng.SessionSecret = secret
	}

	if out.SSLEnabled() {
		cert := ng.SSLCert
		if cert == "" {
			cert = filepath.Join(layout.Etc, "ssl/certs/licman.cert")
		}
		key := ng.SSLKey
		if key == "" {
			key = filepath.Join(layout.Etc, "ssl/private/licman.key")
		}
		ng.SSL = "ssl http2"
		ng.Port = "443"
		ng.SSLCertLine = "ssl_certificate " + cert
		ng.SSLKeyLine = "ssl_certificate_key " + key
		ng.IncludeForceSSLLine = "include " + filepath.Join(layout.Etc, "nginx/force-ssl.conf")
	} else {
		ng.SSL = ""
		ng.SSLCertLine = ""
		ng.SSLKeyLine = ""
		ng.IncludeForceSSLLine = ""
	}

	redisHost := valueOr(out.Redis.Host, defaultRedisHost)
	redisPort := valueOr(out.Redis.Port, defaultRedisPort)
	redisDB := valueOr(out.Redis.DB, defaultRedisDB)
	broker := BrokerURL(redisHost, redisPort, redisDB)
	out.Celery.BrokerURL = broker

	hosts := ParseHosts(valueOr(dj.AllowedHosts, "localhost,127.0.0.1"))
	port := valueOr(ng.Port, defaultWebPort)

	ng.Domains = strings.Join(hosts, " ")
	dj.CSRFTrustedOrigins = strings.Join(CSRFOrigins(hosts, port), ",")

	firstHost := "localhost"
	if len(hosts) > 0 {
		firstHost = hosts[0]
	}
	ng.AppURL = valueOr(dj.AppURL, fmt.Sprintf("http://%s:%s", firstHost, port))
	ng.Dir = layout.Root
	ng.Bin = layout.Bin
	ng.Etc = layout.Etc
	ng.Opt = layout.Opt
	ng.Tmp = layout.Tmp
	ng.Var = layout.Var
	ng.Web = filepath.Join(layout.Var, "www/html")
	ng.Src = layout.Src
	ng.User = rt.User
	ng.Log = filepath.Join(layout.Log, "error.log")
	ng.Port = port

	out.SSLParams.Etc = layout.Etc
	out.OpenSSL.Etc = layout.Etc
	out.ForceSSL.Domains = ng.Domains

	out.Supervisord.User = rt.User
	if out.Supervisord.Secret == "" {
		secret, err := rt.Secrets.RandomString(ctlSecretLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate supervisorctl secret: %w", err)
		}
		out.Supervisord.Secret = secret
	}
	out.Supervisord.Port = valueOr(out.Supervisord.Port, defaultSupervisordPort)

	out.QueueManager.User = rt.User
	if out.QueueManager.Secret == "" {
		secret, err := rt.Secrets.RandomString(ctlSecretLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate queuectl secret: %w", err)
		}
		out.QueueManager.Secret = secret
	}
	out.QueueManager.Port = valueOr(out.QueueManager.Port, defaultQueueManagerPort)

	dj.AppName = AppName
	dj.Path = rt.Path
	dj.BaseDir = layout.Root
	dj.Src = layout.Src
	dj.VirtualEnv = layout.Venv()
	dj.RedisHost = redisHost
	dj.RedisPort = redisPort
	dj.RedisDB = redisDB
	dj.RedisPassword = out.Redis.Password
	dj.CeleryBrokerURL = broker

	return out, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
