package logship

import "strings"

// shouldInclude reports whether a log line passes the ignore filter.
// A line is excluded iff it contains any pattern as a literal, case-sensitive
// substring. Empty patterns are skipped (they would match everything).
func shouldInclude(line string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(line, p) {
			return false
		}
	}
	return true
}
