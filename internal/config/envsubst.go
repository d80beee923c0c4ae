package config

import "regexp"

var placeholderPattern = regexp.MustCompile(`\$ENV\{([^}]+)\}`)

// LookupFunc resolves an environment variable name.
type LookupFunc func(name string) (string, bool)

// MapLookup returns a LookupFunc backed by m.
func MapLookup(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Expand replaces every $ENV{NAME} in s with lookup(NAME), or with the empty
// string when NAME is not set.
func Expand(s string, lookup LookupFunc) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		return ""
	})
}

// ExpandTree returns a copy of v with Expand applied to every string it
// contains, at any depth. Maps and slices are rebuilt, never modified in
// place. Non-string scalars are returned as they are.
func ExpandTree(v any, lookup LookupFunc) any {
	switch t := v.(type) {
	case string:
		return Expand(t, lookup)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ExpandTree(item, lookup)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, item := range t {
			out[k] = ExpandTree(item, lookup)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ExpandTree(item, lookup)
		}
		return out
	default:
		return v
	}
}
