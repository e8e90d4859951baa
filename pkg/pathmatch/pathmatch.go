package pathmatch

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrEmptyPattern indicates a pattern with no content after trimming and
// prefix handling. Empty patterns are rejected rather than silently matching
// nothing.
var ErrEmptyPattern = errors.New("empty pattern")

// rule is one compiled pattern in a List.
type rule struct {
	negated bool // leading "!": a match deselects instead of selecting
	rooted  bool // leading "/": anchored at the repository root
	dirOnly bool // trailing "/": matches the subtree only, never a file
	re      *regexp.Regexp
}

// List is an ordered set of compiled patterns sharing one base directory.
// Matching follows ignore-file layering: every pattern is consulted in
// order and the last one matching a path decides its fate.
type List struct {
	rules []rule
}

// Compile builds a List from pattern texts.
//
// Patterns use ignore-file conventions: "*" and "?" stay within a path
// segment, "**" crosses segments, character classes like "[a-z]" and "[!a-z]"
// apply within a segment, and a leading "!" negates. A pattern starting with
// "/" is anchored at the repository root; any other pattern is anchored at
// baseDir, regardless of whether it contains a "/". A pattern whose segments
// name a leading directory of a path matches the whole subtree; a trailing
// "/" restricts the pattern to the subtree, excluding a same-named file.
//
// baseDir is repository-root-relative ("" for the root itself). Paths given
// to Match must be repository-root-relative, slash-separated.
func Compile(patterns []string, baseDir string) (*List, error) {
	l := &List{rules: make([]rule, 0, len(patterns))}
	for _, text := range patterns {
		r, err := compileRule(text, baseDir)
		if err != nil {
			return nil, err
		}
		l.rules = append(l.rules, r)
	}
	return l, nil
}

// Match reports whether p is selected by the list. The last matching
// pattern wins; a path matched by no pattern is not selected.
func (l *List) Match(p string) bool {
	selected := false
	for _, r := range l.rules {
		if r.re.MatchString(p) {
			selected = !r.negated
		}
	}
	return selected
}

// Resolve returns the universe paths selected by the pattern list, in
// universe order. An empty pattern list selects the entire universe.
func Resolve(patterns []string, baseDir string, universe []string) ([]string, error) {
	if len(patterns) == 0 {
		out := make([]string, len(universe))
		copy(out, universe)
		return out, nil
	}
	l, err := Compile(patterns, baseDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range universe {
		if l.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func compileRule(text, baseDir string) (rule, error) {
	var r rule
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "!") {
		r.negated = true
		s = strings.TrimSpace(s[1:])
	}
	if strings.HasPrefix(s, "/") {
		r.rooted = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "/") {
		r.dirOnly = true
		s = strings.TrimSuffix(s, "/")
	}
	if s == "" {
		return r, fmt.Errorf("match: pattern %q: %w", text, ErrEmptyPattern)
	}
	if !r.rooted && baseDir != "" {
		// Anchoring a relative pattern means prefixing the base directory.
		// path.Join also cleans, so "../sibling" from "a/b" lands on
		// "a/sibling".
		s = path.Join(baseDir, s)
	}
	expr := "^" + globToRegex(s)
	switch {
	case strings.HasSuffix(s, "/**"):
		// "**" already covers everything below; no self-match either way.
	case r.dirOnly:
		expr += "/.+"
	default:
		expr += "(?:/.*)?"
	}
	expr += "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return r, fmt.Errorf("match: compile pattern %q: %w", text, err)
	}
	r.re = re
	return r, nil
}
