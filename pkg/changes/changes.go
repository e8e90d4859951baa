package changes

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
)

// LineRange is an inclusive span of lines, 1-based.
type LineRange struct {
	Start int
	End   int
}

// Hunk mirrors one unified-diff hunk header: the starting line and line
// count on each side. A pure deletion has NewLines == 0, a pure addition
// OldLines == 0.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// Set holds the changed lines of one file as sorted, disjoint ranges in
// new-side (post-change) numbering. The zero value is an empty set.
type Set struct {
	ranges []LineRange
}

// FromHunks maps diff hunks onto a Set of new-side line ranges.
//
// A hunk that adds or rewrites lines contributes exactly those lines. A
// pure deletion has no new-side lines, so it contributes the two lines
// adjacent to the deletion site; a deletion at the very top of the file
// contributes line 1. This keeps deletions at a range's edge counting as
// changes to that range.
func FromHunks(hunks []Hunk) Set {
	ranges := make([]LineRange, 0, len(hunks))
	for _, h := range hunks {
		if h.NewLines > 0 {
			ranges = append(ranges, LineRange{Start: h.NewStart, End: h.NewStart + h.NewLines - 1})
			continue
		}
		start := h.NewStart
		if start < 1 {
			start = 1
		}
		end := h.NewStart + 1
		if end < start {
			end = start
		}
		ranges = append(ranges, LineRange{Start: start, End: end})
	}
	return normalize(ranges)
}

// CountLines counts content lines the way a diff does: a trailing newline
// does not open a final empty line, and empty content has zero lines.
func CountLines(content []byte) int {
	n := bytes.Count(content, []byte("\n"))
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		n++
	}
	return n
}

// Any reports whether the Set contains at least one changed line.
func (s Set) Any() bool {
	return len(s.ranges) > 0
}

// Intersects reports whether any changed line falls inside r.
func (s Set) Intersects(r LineRange) bool {
	for _, cr := range s.ranges {
		if cr.Start > r.End {
			return false
		}
		if cr.End >= r.Start {
			return true
		}
	}
	return false
}

// Ranges returns the changed ranges in ascending order. The returned slice
// is a copy.
func (s Set) Ranges() []LineRange {
	out := make([]LineRange, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// String renders the set compactly, e.g. "1-3,7,9-12".
func (s Set) String() string {
	if len(s.ranges) == 0 {
		return "-"
	}
	var b strings.Builder
	for i, r := range s.ranges {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(r.Start))
		if r.End > r.Start {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(r.End))
		}
	}
	return b.String()
}

// normalize sorts ranges and merges overlapping or adjacent ones.
func normalize(ranges []LineRange) Set {
	if len(ranges) == 0 {
		return Set{}
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return Set{ranges: merged}
}
