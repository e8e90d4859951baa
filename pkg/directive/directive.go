package directive

import (
	"fmt"
	"strings"
)

// NamedPattern is one entry of a then-change list: a path pattern with an
// optional block name after ":". An empty Pattern with a name refers to a
// named block in the directive's own file.
type NamedPattern struct {
	Pattern string
	Name    string
	HasName bool
	Line    int // line the entry starts on, 1-based
}

// Block is one if-changed / then-change pair.
//
// Start is the line carrying the if-changed keyword and End the line
// carrying the closing ")" of the then-change list, so edits to a
// multi-line pattern list count as edits to the block. ThenLine is the
// line of the then-change keyword itself; diagnostics cite it.
type Block struct {
	Name     string
	HasName  bool
	Start    int
	End      int
	ThenLine int
	Patterns []NamedPattern
}

// ParseError is one malformed-directive finding, positioned in its file.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// ParseErrors collects every malformed-directive finding of one file.
type ParseErrors []*ParseError

func (e ParseErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	for i, pe := range e {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pe.Error())
	}
	return b.String()
}
