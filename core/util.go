package core

import (
	"strconv"
	"strings"
	"unicode"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// StripSpaces removes every whitespace rune in `s`, including the full-width space U+3000.
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) { // covers U+3000
			return -1
		}
		return r
	}, s)
}

// ParseInt parses spreadsheet integers, tolerating the "12.0" artifact left by float columns.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if strings.HasSuffix(s, ".0") {
		if n, err := strconv.Atoi(strings.TrimSuffix(s, ".0")); err == nil {
			return n, true
		}
	}
	return 0, false
}
