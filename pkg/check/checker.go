package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mathematic-inc/if-changed/pkg/changes"
	"github.com/mathematic-inc/if-changed/pkg/directive"
	"github.com/mathematic-inc/if-changed/pkg/pathmatch"
)

// Checker evaluates "if-changed"/"then-change" obligations between two
// revisions of a repository.
type Checker struct {
	Repo Repository
	From Revision
	To   Revision
	// Jobs caps concurrent file checks; <= 0 means GOMAXPROCS.
	Jobs int
}

// Run checks every changed file selected by patterns and returns the
// collected violations and parse errors. An empty pattern list selects
// all candidates. The returned error reports repository failures only;
// directive problems land in the report.
func (c *Checker) Run(ctx context.Context, patterns []string) (*Report, error) {
	diff, err := c.Repo.Diff(ctx, c.From, c.To)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", c.From, c.To, err)
	}
	targets, err := c.Repo.Files(ctx, c.To)
	if err != nil {
		return nil, fmt.Errorf("list files at %s: %w", c.To, err)
	}
	sort.Strings(targets)

	sets := make(map[string]changes.Set, len(diff))
	universe := make([]string, 0, len(diff))
	for p, hunks := range diff {
		sets[p] = changes.FromHunks(hunks)
		universe = append(universe, p)
	}
	sort.Strings(universe)
	if len(universe) == 0 {
		// Nothing differs, so no obligation can trigger; still parse
		// every file so malformed directives surface.
		universe = targets
	}

	selected, err := pathmatch.Resolve(patterns, "", universe)
	if err != nil {
		return nil, fmt.Errorf("resolve selection: %w", err)
	}

	trailers, err := c.Repo.TrailerLines(ctx, c.From, c.To)
	if err != nil {
		return nil, fmt.Errorf("read trailers %s..%s: %w", c.From, c.To, err)
	}
	exemptions := CollectExemptions(trailers)

	files := make([]string, 0, len(selected))
	for _, p := range selected {
		if ex, ok := exempted(exemptions, p); ok {
			slog.Debug("skipping exempted file", "path", p, "reason", ex.Reason)
			continue
		}
		files = append(files, p)
	}
	slog.Debug("checking files", "candidates", len(universe), "selected", len(files))

	run := &runner{
		repo:    c.Repo,
		to:      c.To,
		sets:    sets,
		targets: targets,
		parsed:  make(map[string]*parsedFile),
		report:  &Report{Checked: len(files)},
	}

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, p := range files {
		p := p
		g.Go(func() error { return run.checkFile(gctx, p) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	run.report.Sort()
	return run.report, nil
}

func exempted(exemptions []Exemption, path string) (Exemption, bool) {
	for _, ex := range exemptions {
		if ex.Matches(path) {
			return ex, true
		}
	}
	return Exemption{}, false
}

// runner carries the per-run caches shared by the check goroutines.
// sets and targets are read-only once built; parsed and report are
// guarded by mu.
type runner struct {
	repo    Repository
	to      Revision
	sets    map[string]changes.Set
	targets []string

	mu     sync.Mutex
	parsed map[string]*parsedFile
	report *Report
}

type parsedFile struct {
	blocks []directive.Block
	failed bool
}

func (r *runner) checkFile(ctx context.Context, p string) error {
	pf, err := r.parsedFile(ctx, p)
	if err != nil {
		return err
	}
	if pf.failed {
		// Malformed directives were recorded; block spans are not
		// trustworthy past them.
		return nil
	}
	set := r.sets[p]
	for _, b := range pf.blocks {
		if !set.Intersects(changes.LineRange{Start: b.Start, End: b.End}) {
			continue
		}
		for _, np := range b.Patterns {
			if err := r.checkEntry(ctx, p, b, np); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runner) checkEntry(ctx context.Context, src string, b directive.Block, np directive.NamedPattern) error {
	if np.Pattern == "" {
		// ":name" points back into the directive's own file.
		return r.checkTarget(ctx, src, b, np, src)
	}
	dir := path.Dir(src)
	if dir == "." {
		dir = ""
	}
	resolved, err := pathmatch.Resolve([]string{np.Pattern}, dir, r.targets)
	if err != nil {
		r.addParseErrors(directive.ParseErrors{{Path: src, Line: np.Line, Msg: err.Error()}})
		return nil
	}
	if len(resolved) == 0 {
		r.addViolation(Violation{
			Kind:    UnresolvedTarget,
			Path:    src,
			Line:    b.ThenLine,
			Pattern: displayPattern(dir, np.Pattern),
			Name:    np.Name,
			HasName: np.HasName,
		})
		return nil
	}
	for _, tgt := range resolved {
		if err := r.checkTarget(ctx, src, b, np, tgt); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) checkTarget(ctx context.Context, src string, b directive.Block, np directive.NamedPattern, tgt string) error {
	if !np.HasName {
		if !r.sets[tgt].Any() {
			r.addViolation(Violation{Kind: TargetUnchanged, Path: src, Line: b.ThenLine, Target: tgt})
		}
		return nil
	}
	pf, err := r.parsedFile(ctx, tgt)
	if err != nil {
		return err
	}
	if pf.failed {
		return nil
	}
	set := r.sets[tgt]
	found := false
	for _, tb := range pf.blocks {
		if !tb.HasName || tb.Name != np.Name {
			continue
		}
		found = true
		// Any block carrying the name satisfies the obligation.
		if set.Intersects(changes.LineRange{Start: tb.Start, End: tb.End}) {
			return nil
		}
	}
	if !found {
		r.addViolation(Violation{Kind: MissingNamedBlock, Path: src, Line: b.ThenLine, Target: tgt, Name: np.Name, HasName: true})
		return nil
	}
	r.addViolation(Violation{Kind: TargetUnchanged, Path: src, Line: b.ThenLine, Target: tgt, Name: np.Name, HasName: true})
	return nil
}

// parsedFile extracts and caches the directive blocks of one file at
// the "to" revision. Parse errors are recorded exactly once, by
// whichever goroutine fills the cache entry; a file absent at "to"
// caches as having no blocks.
func (r *runner) parsedFile(ctx context.Context, p string) (*parsedFile, error) {
	r.mu.Lock()
	if pf, ok := r.parsed[p]; ok {
		r.mu.Unlock()
		return pf, nil
	}
	r.mu.Unlock()

	pf := &parsedFile{}
	var perrs directive.ParseErrors
	content, err := r.repo.Content(ctx, r.to, p)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read %s at %s: %w", p, r.to, err)
	default:
		blocks, perr := directive.Parse(p, content)
		pf.blocks = blocks
		if perr != nil {
			errors.As(perr, &perrs)
			pf.failed = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.parsed[p]; ok {
		return existing, nil
	}
	r.parsed[p] = pf
	r.report.ParseErrors = append(r.report.ParseErrors, perrs...)
	return pf, nil
}

func (r *runner) addViolation(v Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Violations = append(r.report.Violations, v)
}

func (r *runner) addParseErrors(errs directive.ParseErrors) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.ParseErrors = append(r.report.ParseErrors, errs...)
}

// displayPattern renders a pattern the way resolution saw it, joined
// onto the directive file's directory unless rooted.
func displayPattern(dir, pattern string) string {
	p := strings.TrimSpace(pattern)
	if rest, ok := strings.CutPrefix(p, "/"); ok {
		return rest
	}
	return path.Join(dir, p)
}
