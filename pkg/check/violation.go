package check

import (
	"fmt"
	"sort"

	"github.com/mathematic-inc/if-changed/pkg/directive"
)

// ViolationKind classifies why an obligation failed.
type ViolationKind int

const (
	// TargetUnchanged means a resolved target file (or its named block)
	// saw no change while its triggering block did.
	TargetUnchanged ViolationKind = iota
	// MissingNamedBlock means the target file has no "if-changed" block
	// with the referenced name.
	MissingNamedBlock
	// UnresolvedTarget means a pattern matched no file at all.
	UnresolvedTarget
)

// Violation is one failed "then-change" obligation.
type Violation struct {
	Kind ViolationKind

	// Path and Line locate the "then-change" keyword the obligation
	// came from.
	Path string
	Line int

	// Target is the resolved target file; empty for UnresolvedTarget.
	Target string
	// Pattern is the pattern as resolved from the directive's file,
	// set for UnresolvedTarget.
	Pattern string
	// Name is the referenced block name, when the entry has one.
	Name    string
	HasName bool
}

func (v Violation) String() string {
	switch v.Kind {
	case UnresolvedTarget:
		return fmt.Sprintf("could not find any file matching %q for %q in %q at line %d",
			v.Pattern, "then-change", v.Path, v.Line)
	case MissingNamedBlock:
		return fmt.Sprintf("could not find %q with name %q in %q for %q in %q at line %d",
			"if-changed", v.Name, v.Target, "then-change", v.Path, v.Line)
	default:
		return fmt.Sprintf("expected %q to be modified because of %q in %q at line %d",
			v.Target, "then-change", v.Path, v.Line)
	}
}

// Report is the outcome of one checker run.
type Report struct {
	// Violations are failed obligations from well-formed directives.
	Violations []Violation
	// ParseErrors are malformed directives found while extracting
	// blocks, from checked files and referenced targets alike.
	ParseErrors directive.ParseErrors
	// Checked is the number of files whose directives were evaluated.
	Checked int
}

// Sort orders violations by file, line, then target and pattern, and
// parse errors by file then line, so output is stable across runs.
func (r *Report) Sort() {
	sort.Slice(r.Violations, func(i, j int) bool {
		a, b := r.Violations[i], r.Violations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Pattern < b.Pattern
	})
	sort.Slice(r.ParseErrors, func(i, j int) bool {
		a, b := r.ParseErrors[i], r.ParseErrors[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
}
