package directive

import (
	"fmt"
	"strings"
)

const (
	kwIfChanged  = "if-changed"
	kwThenChange = "then-change"
)

// commentLeaders are the bytes stripped from the start of every fresh line
// inside a then-change list, after leading whitespace. This keeps
// multi-line lists written inside line comments ("//", "#", "<!--", ...)
// readable without any language-specific lexing.
const commentLeaders = "/#-';!*<"

type tokenKind int

const (
	tokenIfChanged tokenKind = iota
	tokenThenChange
)

// rawEntry is one unsplit then-change entry with the line it started on.
type rawEntry struct {
	text string
	line int
}

// token is one keyword occurrence. An if-changed token carries the
// optional block name; a then-change token carries its raw entries and the
// line of the closing ")". A token with err set is malformed; its other
// payload fields are meaningless.
type token struct {
	kind    tokenKind
	line    int
	name    string
	hasName bool
	entries []rawEntry
	endLine int
	err     *ParseError
}

// scanner walks file content line by line, emitting keyword tokens. It
// matches keywords anywhere in a line, processes the earliest occurrence
// first, and resumes after each consumed token, so keyword-like text
// inside a consumed argument is never re-scanned.
type scanner struct {
	path  string
	lines []string
	ln    int    // 0-based index into lines
	rest  string // unscanned remainder of the current line
}

func newScanner(path string, content []byte) *scanner {
	lines := splitLines(content)
	s := &scanner{path: path, lines: lines}
	if len(lines) > 0 {
		s.rest = lines[0]
	}
	return s
}

// next returns the following token, or nil at EOF. Malformed tokens are
// returned with err set and scanning stays usable: the caller keeps
// calling next until nil.
func (s *scanner) next() *token {
	for s.ln < len(s.lines) {
		iIdx := strings.Index(s.rest, kwIfChanged)
		tIdx := strings.Index(s.rest, kwThenChange)
		switch {
		case iIdx < 0 && tIdx < 0:
			s.advanceLine()
		case iIdx >= 0 && (tIdx < 0 || iIdx < tIdx):
			s.rest = s.rest[iIdx+len(kwIfChanged):]
			return s.scanIfChanged()
		default:
			s.rest = s.rest[tIdx+len(kwThenChange):]
			return s.scanThenChange()
		}
	}
	return nil
}

// scanIfChanged captures the optional "(name)" following the keyword.
func (s *scanner) scanIfChanged() *token {
	line := s.ln + 1
	rest := strings.TrimLeft(s.rest, " \t")
	if !strings.HasPrefix(rest, "(") {
		s.rest = rest
		return &token{kind: tokenIfChanged, line: line}
	}
	rest = rest[1:]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		s.rest = rest
		return &token{kind: tokenIfChanged, line: line, err: s.errorf(line, `could not find ')' for %q`, kwIfChanged)}
	}
	name := strings.TrimSpace(rest[:end])
	s.rest = rest[end+1:]
	return &token{kind: tokenIfChanged, line: line, name: name, hasName: true}
}

// scanThenChange requires "(" after the keyword and consumes the entry
// list through the matching ")", across lines if needed.
func (s *scanner) scanThenChange() *token {
	line := s.ln + 1
	rest := strings.TrimLeft(s.rest, " \t")
	s.rest = rest
	if !strings.HasPrefix(rest, "(") {
		return &token{kind: tokenThenChange, line: line, err: s.errorf(line, `could not find '(' for %q`, kwThenChange)}
	}
	s.rest = rest[1:]
	return s.scanEntries(line)
}

// scanEntries reads raw entries until the closing ")".
//
// Entries end at "," or ")" or end-of-line, whichever comes first. A line
// whose trailing non-blank byte is "\" splices the next line onto the
// current entry instead of ending it. Fresh lines are stripped of leading
// whitespace and comment-leader bytes before being read. Consecutive and
// trailing delimiters yield no entries.
func (s *scanner) scanEntries(kwLine int) *token {
	tok := &token{kind: tokenThenChange, line: kwLine}
	var cur strings.Builder
	curLine := 0
	for {
		rest := s.rest
		iC := strings.IndexByte(rest, ',')
		iP := strings.IndexByte(rest, ')')
		switch {
		case iP >= 0 && (iC < 0 || iP < iC):
			s.appendFragment(&cur, &curLine, rest[:iP])
			completeEntry(tok, &cur, &curLine)
			s.rest = rest[iP+1:]
			tok.endLine = s.ln + 1
			return tok
		case iC >= 0:
			s.appendFragment(&cur, &curLine, rest[:iC])
			completeEntry(tok, &cur, &curLine)
			s.rest = rest[iC+1:]
		default:
			if trimmed := strings.TrimRight(rest, " \t"); strings.HasSuffix(trimmed, `\`) {
				s.appendFragment(&cur, &curLine, trimmed[:len(trimmed)-1])
			} else {
				s.appendFragment(&cur, &curLine, rest)
				completeEntry(tok, &cur, &curLine)
			}
			if !s.advanceLine() {
				tok.err = s.errorf(kwLine, `could not find ')' for %q`, kwThenChange)
				return tok
			}
			stripped := strings.TrimLeft(s.rest, " \t")
			s.rest = strings.TrimLeft(stripped, commentLeaders)
		}
	}
}

// appendFragment adds an edge-trimmed fragment to the pending entry,
// recording the line the entry started on.
func (s *scanner) appendFragment(cur *strings.Builder, curLine *int, frag string) {
	frag = strings.TrimSpace(frag)
	if frag == "" {
		return
	}
	if cur.Len() == 0 {
		*curLine = s.ln + 1
	}
	cur.WriteString(frag)
}

// completeEntry closes the pending entry. Empty buffers complete to
// nothing so that consecutive delimiters produce no entries.
func completeEntry(tok *token, cur *strings.Builder, curLine *int) {
	if cur.Len() > 0 {
		tok.entries = append(tok.entries, rawEntry{text: cur.String(), line: *curLine})
	}
	cur.Reset()
	*curLine = 0
}

func (s *scanner) advanceLine() bool {
	s.ln++
	if s.ln >= len(s.lines) {
		s.rest = ""
		return false
	}
	s.rest = s.lines[s.ln]
	return true
}

func (s *scanner) errorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Path: s.path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// splitLines splits on "\n" and drops a trailing "\r" from each line, so
// CRLF content scans the same as LF content. A trailing newline does not
// open a final empty line.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
