package check

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/mathematic-inc/if-changed/pkg/pathmatch"
)

// TrailerKey is the commit trailer that exempts paths from checking,
// e.g. "Ignore-if-changed: src/gen/*, docs/api.md -- regenerated".
const TrailerKey = "Ignore-if-changed"

// Exemption is one parsed ignore trailer.
type Exemption struct {
	Patterns []string
	Reason   string
}

// Matches reports whether path falls under any of the exemption's
// patterns.
func (e Exemption) Matches(path string) bool {
	for _, p := range e.Patterns {
		if pathmatch.Fnmatch(p, path) {
			return true
		}
	}
	return false
}

// ParseExemption parses a trailer value of the form
// "<pattern>, <pattern> -- <reason>". The reason is mandatory so the
// exemption is explained in history.
func ParseExemption(value string) (Exemption, error) {
	raw, reason, found := strings.Cut(value, "--")
	if !found {
		return Exemption{}, errors.New(`missing "--" before the reason`)
	}
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return Exemption{}, errors.New("no patterns before the reason")
	}
	return Exemption{Patterns: patterns, Reason: strings.TrimSpace(reason)}, nil
}

// CollectExemptions extracts ignore trailers from "Key: value" lines.
// The key comparison is case-insensitive; malformed values are logged
// and skipped rather than failing the run.
func CollectExemptions(lines []string) []Exemption {
	var out []Exemption
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(key), TrailerKey) {
			continue
		}
		ex, err := ParseExemption(strings.TrimSpace(value))
		if err != nil {
			slog.Warn("skipping malformed ignore trailer", "trailer", strings.TrimSpace(line), "error", err)
			continue
		}
		out = append(out, ex)
	}
	return out
}
