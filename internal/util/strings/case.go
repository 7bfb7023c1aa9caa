package strings

import (
	"strings"
	"unicode"
)

// Humanize turns a dotted snake_case identifier into a sentence-cased label.
// The namespace before the last dot is dropped.
//
//	Humanize("dbt_expectations.expect_column_to_exist") // "Expect column to exist"
func Humanize(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		id = id[i+1:]
	}
	s := strings.TrimSpace(strings.ReplaceAll(id, "_", " "))
	if s == "" {
		return s
	}

	// Capitalize the first letter and lower the rest, as a sentence
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// SplitList splits a delimited string, trimming whitespace and dropping empty tokens
func SplitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
