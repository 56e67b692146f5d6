package model

import (
	"strings"
	"unicode"
)

// NormalizeStatement strips leading whitespace and SQL comments from stmt and
// lower-cases the remainder.
func NormalizeStatement(stmt string) string {
	s := stmt
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			s = ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s[2:], "*/"); i >= 0 {
				s = s[i+4:]
				continue
			}
			s = ""
		}
		break
	}
	return strings.ToLower(strings.TrimRightFunc(s, unicode.IsSpace))
}

// LeadingKeyword returns the first word of the normalized statement, or ""
// for a statement that is empty after normalization.
func LeadingKeyword(stmt string) string {
	s := NormalizeStatement(stmt)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	if end < 0 {
		return s
	}
	return s[:end]
}

// MainKeyword returns the verb that decides what stmt does. It is the
// leading keyword, except for a statement opening with a WITH clause, where
// it is the first select/values/insert/replace/update/delete keyword after
// the common table expressions. If none is found it returns "with".
func MainKeyword(stmt string) string {
	lead := LeadingKeyword(stmt)
	if lead != "with" {
		return lead
	}

	s := NormalizeStatement(stmt)
	depth := 0
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closing := c
			if c == '[' {
				closing = ']'
			}
			j := strings.IndexByte(s[i+1:], closing)
			if j < 0 {
				return lead
			}
			i += j + 2
		case strings.HasPrefix(s[i:], "--"):
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				return lead
			}
			i += j + 1
		case strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			if j < 0 {
				return lead
			}
			i += j + 4
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			if depth == 0 {
				switch w := s[i:j]; w {
				case "select", "values", "insert", "replace", "update", "delete":
					return w
				}
			}
			i = j
		default:
			i++
		}
	}
	return lead
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80
}

// ReturnsRows reports whether stmt's main keyword produces a result set.
func ReturnsRows(stmt string) bool {
	switch MainKeyword(stmt) {
	case "select", "with", "pragma", "explain", "values":
		return true
	}
	return false
}
