// Package strings normalizes list-valued settings such as KAFKA_BROKERS.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element and drops blanks and repeats, keeping
// first-seen order.
//
//	DedupeAndTrim([]string{"  k1:9092 ", "k2:9092", "k1:9092", ""})
//	// []string{"k1:9092", "k2:9092"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma separated setting and normalizes it with
// DedupeAndTrim. An all-blank input yields an empty, non-nil slice.
func SplitList(s string) []string {
	return DedupeAndTrim(strings.Split(s, ","))
}
