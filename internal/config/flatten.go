package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DomainOrder is the order in which domains are flattened. Later domains
// win on key collisions.
var DomainOrder = []string{
	"django",
	"celery",
	"supervisord",
	"queue_manager",
	"nginx",
	"openssl",
	"ssl_params",
	"force_ssl",
	"redis",
}

func (c *Config) domain(name string) any {
	switch name {
	case "django":
		return &c.Django
	case "celery":
		return &c.Celery
	case "supervisord":
		return &c.Supervisord
	case "queue_manager":
		return &c.QueueManager
	case "nginx":
		return &c.Nginx
	case "openssl":
		return &c.OpenSSL
	case "ssl_params":
		return &c.SSLParams
	case "force_ssl":
		return &c.ForceSSL
	case "redis":
		return &c.Redis
	}
	return nil
}

// DomainPairs returns the key/value pairs of one domain in field order,
// followed by extra keys in sorted order. Keys tagged omitempty are left out
// when empty.
func (c *Config) DomainPairs(name string) ([]Pair, error) {
	d := c.domain(name)
	if d == nil {
		extra, ok := c.Domains[name]
		if !ok {
			return nil, fmt.Errorf("unknown configuration domain %q", name)
		}
		return scalarPairs(extra), nil
	}

	var node yaml.Node
	if err := node.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if node.Kind != yaml.MappingNode {
		return nil, nil
	}

	// Struct fields come first in declaration order; yaml emits inline
	// Extra keys after them, already sorted.
	pairs := make([]Pair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		pairs = append(pairs, Pair{Key: node.Content[i].Value, Value: node.Content[i+1].Value})
	}
	return pairs, nil
}

// scalarPairs returns the scalar entries of an unknown domain sorted by
// key. Nested values are skipped.
func scalarPairs(domain any) []Pair {
	m, ok := domain.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k, v := range m {
		switch v.(type) {
		case map[string]any, map[any]any, []any:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		value := ""
		if m[k] != nil {
			value = fmt.Sprint(m[k])
		}
		pairs = append(pairs, Pair{Key: k, Value: value})
	}
	return pairs
}

// Flatten merges every domain into one namespace, in DomainOrder followed by
// unknown domains sorted by name. On key collisions the last write wins.
func (c *Config) Flatten() (map[string]string, error) {
	names := append([]string(nil), DomainOrder...)
	extraNames := make([]string, 0, len(c.Domains))
	for name := range c.Domains {
		extraNames = append(extraNames, name)
	}
	sort.Strings(extraNames)
	names = append(names, extraNames...)

	flat := make(map[string]string)
	for _, name := range names {
		pairs, err := c.DomainPairs(name)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			flat[p.Key] = p.Value
		}
	}
	return flat, nil
}

// EnvPairs returns the django domain as .env entries.
func (c *Config) EnvPairs() ([]Pair, error) {
	return c.DomainPairs("django")
}
