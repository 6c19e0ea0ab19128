// Package strings provides string list helpers used when reading scheme and
// provider names from configuration.
package strings

import (
	"strings"
)

// NormalizeNames trims, lowercases and removes empty or repeated entries.
// First-seen order is preserved.
//
// Example:
//
//	NormalizeNames([]string{" DOI", "oai", "doi", ""})
//	// Returns: []string{"doi", "oai"}
func NormalizeNames(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		name := strings.ToLower(strings.TrimSpace(v))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}

// SplitList splits a comma separated list (as found in environment variables)
// and normalizes the entries. An empty input yields an empty, non-nil slice.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return NormalizeNames(strings.Split(raw, ","))
}
