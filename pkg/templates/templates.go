package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches a __KEY__ placeholder. Keys are upper-case letters,
// digits and underscores.
var tokenPattern = regexp.MustCompile(`__([A-Z0-9_]+)__`)

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// Render replaces every __KEY__ token in content with data[KEY].
// Keys are applied in sorted order so output is deterministic when a value
// itself contains a token.
//
// Example:
//
//	data := TemplateData{
//	    "DOMAINS": "example.com",
//	    "PORT":    "8282",
//	}
//	rendered := Render("listen __PORT__;", data)
func Render(content string, data TemplateData) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rendered := content
	for _, key := range keys {
		placeholder := fmt.Sprintf("__%s__", key)
		rendered = strings.ReplaceAll(rendered, placeholder, data[key])
	}

	return rendered
}

// Unreplaced returns the names of __KEY__ tokens still present in content,
// in order of first appearance and without duplicates.
func Unreplaced(content string) []string {
	matches := tokenPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// RenderFile reads src, renders it with data and writes the result to dst,
// replacing any existing file. Parent directories of dst are created.
// The returned slice lists tokens that had no value; they are left verbatim.
func RenderFile(src, dst string, data TemplateData) ([]string, error) {
	content, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("template file not found: %s", src)
		}
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	rendered := Render(string(content), data)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.WriteFile(dst, []byte(rendered), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return Unreplaced(rendered), nil
}
