// Package strings holds small slice helpers shared by config parsing and
// stores.
package strings

import "strings"

// DedupeAndTrim trims each value and drops blanks and repeats, keeping first
// occurrence order. The result never aliases values.
func DedupeAndTrim(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
