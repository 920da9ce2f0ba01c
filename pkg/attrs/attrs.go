// Package attrs reads values back out of slog-style key/value slices
// ([key1, value1, key2, value2, ...]) so one attribute list can feed both a
// log line and a structured event.
package attrs

// ExtractString returns the string stored under key, or "" when the key is
// absent or its value is not a string.
func ExtractString(attrs []any, key string) string {
	if v, ok := lookup(attrs, key).(string); ok {
		return v
	}
	return ""
}

// ExtractStrings returns the []string stored under key, or nil.
func ExtractStrings(attrs []any, key string) []string {
	if v, ok := lookup(attrs, key).([]string); ok {
		return v
	}
	return nil
}

func lookup(attrs []any, key string) any {
	for i := 0; i < len(attrs)-1; i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			return attrs[i+1]
		}
	}
	return nil
}
