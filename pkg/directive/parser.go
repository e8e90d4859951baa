package directive

import "strings"

// openBlock is an if-changed awaiting its then-change.
type openBlock struct {
	name    string
	hasName bool
	line    int
}

// Parse extracts every directive block from content.
//
// Blocks pair by stack: each then-change closes the nearest preceding open
// if-changed. Scanning does not stop at a malformed directive; the finding
// is recorded and scanning resumes after the bad token, so one pass
// reports everything. The returned error is nil or a ParseErrors with all
// findings. Callers enforcing blocks should treat any error as fatal for
// this file and ignore the returned blocks.
func Parse(path string, content []byte) ([]Block, error) {
	s := newScanner(path, content)
	var (
		blocks []Block
		open   []openBlock
		errs   ParseErrors
	)
	for {
		tok := s.next()
		if tok == nil {
			break
		}
		switch {
		case tok.kind == tokenIfChanged:
			if tok.err != nil {
				errs = append(errs, tok.err)
				continue
			}
			open = append(open, openBlock{name: tok.name, hasName: tok.hasName, line: tok.line})
		case tok.err != nil:
			// A malformed then-change still consumes the block it would
			// have closed.
			if len(open) > 0 {
				open = open[:len(open)-1]
			} else {
				errs = append(errs, missingIfChanged(path, tok.line))
			}
			errs = append(errs, tok.err)
		default:
			if len(open) == 0 {
				errs = append(errs, missingIfChanged(path, tok.line))
				continue
			}
			ob := open[len(open)-1]
			open = open[:len(open)-1]
			if len(tok.entries) == 0 {
				errs = append(errs, &ParseError{Path: path, Line: tok.line, Msg: `empty pattern list for "then-change"`})
				continue
			}
			blocks = append(blocks, Block{
				Name:     ob.name,
				HasName:  ob.hasName,
				Start:    ob.line,
				End:      tok.endLine,
				ThenLine: tok.line,
				Patterns: splitEntries(tok.entries),
			})
		}
	}
	for _, ob := range open {
		errs = append(errs, &ParseError{Path: path, Line: ob.line, Msg: `missing "then-change" for "if-changed"`})
	}
	if len(errs) > 0 {
		return blocks, errs
	}
	return blocks, nil
}

// splitEntries turns raw entries into NamedPatterns, splitting each on its
// first ":".
func splitEntries(raw []rawEntry) []NamedPattern {
	out := make([]NamedPattern, 0, len(raw))
	for _, e := range raw {
		pattern, name, found := strings.Cut(e.text, ":")
		np := NamedPattern{Pattern: strings.TrimSpace(pattern), Line: e.line}
		if found {
			np.Name = strings.TrimSpace(name)
			np.HasName = true
		}
		out = append(out, np)
	}
	return out
}

func missingIfChanged(path string, line int) *ParseError {
	return &ParseError{Path: path, Line: line, Msg: `missing "if-changed" for "then-change"`}
}
