package extract

import (
	"regexp"
	"strings"
)

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	barewordKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuotedRe  = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
)

// Repair applies a fixed sequence of textual fixes to an almost-JSON span:
// trailing commas before closers are stripped, bareword keys are quoted,
// single-quoted strings become double-quoted, and literal newlines/tabs
// inside string spans are escaped. The result is not guaranteed to parse;
// the caller retries exactly once.
func Repair(candidate string) string {
	s := trailingCommaRe.ReplaceAllString(candidate, "$1")
	s = barewordKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = singleQuotedRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[1 : len(m)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
	return escapeControlInStrings(s)
}

// escapeControlInStrings walks the span tracking string state and escapes
// raw newlines and tabs that appear between double quotes.
func escapeControlInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			case r == '\n':
				b.WriteString(`\n`)
				continue
			case r == '\r':
				b.WriteString(`\r`)
				continue
			case r == '\t':
				b.WriteString(`\t`)
				continue
			}
		} else if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
