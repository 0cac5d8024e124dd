package generate

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```[a-z]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```[ \t]*$")
)

// CleanModelJSON reduces raw model output to a bare JSON object string.
// It is a pure function and idempotent: cleaning already-clean JSON
// returns it unchanged. Wrapper prose and markdown fences in any casing
// are stripped; anything before the first '{' and after the last '}' is
// discarded.
func CleanModelJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start > 0 {
		s = s[start:]
	}
	if end := strings.LastIndex(s, "}"); end >= 0 && end < len(s)-1 {
		s = s[:end+1]
	}

	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return "", &MalformedResponseError{Reason: "no JSON object found in response"}
	}
	return s, nil
}
