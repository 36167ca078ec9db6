package config

import (
	"strings"

	"gitlab.com/hg2git/hg2git/internal/glob"
)

// projectFilter is one comma-separated --project token: a project-name
// glob, optionally negated with a leading '!'.
type projectFilter struct {
	pattern  *glob.Pattern
	negative bool
}

// ParseProjectFilters splits the repeatable, comma-separable --project
// values into individual filters.
func ParseProjectFilters(values []string) ([]projectFilter, error) {
	var out []projectFilter
	for _, value := range values {
		for _, tok := range strings.Split(value, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			negative := strings.HasPrefix(tok, "!")
			if negative {
				tok = tok[1:]
			}
			pat, err := glob.CompileAnchored(tok)
			if err != nil {
				return nil, err
			}
			out = append(out, projectFilter{pattern: pat, negative: negative})
		}
	}
	return out, nil
}

// SelectEnabled returns the subset of projects enabled for this run: a
// project is enabled if at least one positive filter matches its name and
// no negative filter matches it; with no positive filters given, every
// non-ExplicitOnly project is enabled. NeedsProjects dependencies are
// force-enabled transitively even when excluded by a negative filter.
func SelectEnabled(projects []*ResolvedProject, filters []projectFilter) []*ResolvedProject {
	hasPositive := false
	for _, f := range filters {
		if !f.negative {
			hasPositive = true
		}
	}

	enabled := make(map[string]bool)
	byName := make(map[string]*ResolvedProject)
	for _, p := range projects {
		byName[p.Name] = p
		excluded := false
		matchedPositive := !hasPositive && !p.ExplicitOnly
		for _, f := range filters {
			if ok, _ := f.pattern.Match(p.Name); ok {
				if f.negative {
					excluded = true
				} else {
					matchedPositive = true
				}
			}
		}
		if matchedPositive && !excluded {
			enabled[p.Name] = true
		}
	}

	// Transitively force-enable NeedsProjects dependencies.
	changed := true
	for changed {
		changed = false
		for name := range enabled {
			p, ok := byName[name]
			if !ok {
				continue
			}
			for _, need := range p.NeedsProjects {
				if !enabled[need] {
					enabled[need] = true
					changed = true
				}
			}
		}
	}

	var out []*ResolvedProject
	for _, p := range projects {
		if enabled[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

// Owner returns the first enabled project (in configuration order) whose
// Branch filter matches branchLabel, or nil if none does.
func Owner(enabled []*ResolvedProject, branchLabel string) *ResolvedProject {
	for _, p := range enabled {
		if ok, _ := p.BranchFilter.Match(branchLabel); ok {
			return p
		}
	}
	return nil
}
