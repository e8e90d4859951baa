package pathmatch

import (
	"regexp"
	"strings"
)

// Fnmatch reports whether a repository-relative path matches a single
// shell-glob pattern under the simpler commit-trailer rules: no negation,
// no base directory, "*" and "?" within a segment, "**" across segments.
// A pattern naming a leading directory matches everything beneath it.
func Fnmatch(pattern, p string) bool {
	s := strings.TrimSpace(pattern)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return false
	}
	expr := "^" + globToRegex(s)
	if !strings.HasSuffix(s, "/**") {
		expr += "(?:/.*)?"
	}
	expr += "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(p)
}

// globToRegex translates glob syntax into a regular expression body. The
// caller anchors it and appends subtree handling.
func globToRegex(pat string) string {
	var b strings.Builder
	i, n := 0, len(pat)
	for i < n {
		switch c := pat[i]; c {
		case '*':
			if i+1 < n && pat[i+1] == '*' {
				atSegStart := i == 0 || pat[i-1] == '/'
				if atSegStart && i+2 < n && pat[i+2] == '/' {
					// "**/" spans zero or more whole segments.
					b.WriteString(`(?:.*/)?`)
					i += 3
					continue
				}
				b.WriteString(`.*`)
				i += 2
				continue
			}
			b.WriteString(`[^/]*`)
			i++
		case '?':
			b.WriteString(`[^/]`)
			i++
		case '[':
			if cls, rest, ok := scanClass(pat, i); ok {
				b.WriteString(cls)
				i = rest
			} else {
				b.WriteString(`\[`)
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}

// scanClass consumes a character class starting at pat[start] == '['.
// It returns the translated class, the index after the closing ']', and
// whether the class was terminated. "[!" negation becomes "[^", and a ']'
// in first position is literal.
func scanClass(pat string, start int) (string, int, bool) {
	i := start + 1
	var b strings.Builder
	b.WriteByte('[')
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		b.WriteByte('^')
		i++
	}
	if i < len(pat) && pat[i] == ']' {
		b.WriteString(`\]`)
		i++
	}
	for i < len(pat) && pat[i] != ']' {
		if pat[i] == '\\' {
			b.WriteString(`\\`)
			i++
			continue
		}
		b.WriteByte(pat[i])
		i++
	}
	if i >= len(pat) {
		return "", start, false
	}
	b.WriteByte(']')
	return b.String(), i + 1, true
}
