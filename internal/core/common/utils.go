package common

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExtractJSON returns the JSON object embedded in tool output. Analysis tools
// often print banner or progress lines around the document they emit, so
// everything before the first '{' and after the last '}' is dropped.
func ExtractJSON(output string) (string, error) {
	start := strings.IndexByte(output, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in output (missing '{')")
	}
	end := strings.LastIndexByte(output, '}')
	if end < start {
		return "", fmt.Errorf("no JSON object found in output (missing '}')")
	}
	return output[start : end+1], nil
}

// Truncate shortens s to at most n bytes for log lines, cutting on a rune
// boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
