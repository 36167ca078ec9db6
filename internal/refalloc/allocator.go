// Package refalloc maps (project, source name) pairs to unique Git
// refnames, resolving collisions with a "__<N>" suffix and remembering
// every claim for the lifetime of a run so the mapping is stable.
//
// The registry is backed by gods' linkedhashmap instead of a plain Go map
// so that claims iterate in allocation order, which keeps collision
// logging and dumps deterministic.
package refalloc

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"gitlab.com/hg2git/hg2git/internal/config"
	"gitlab.com/hg2git/hg2git/internal/refname"
)

// Claim records who owns a refname once it has been allocated.
type Claim struct {
	Refname string
	Project string
	Source  string
	Kind    config.Kind
}

// Allocator is the Ref registry plus the per-(project,source,kind) claim
// cache that makes repeated allocation requests for the same name return
// the same refname for the whole run.
type Allocator struct {
	registry *linkedhashmap.Map // refname -> *Claim
	claims   map[string]string  // project\x00kind\x00source -> refname
}

// New returns an empty allocator.
func New() *Allocator {
	return &Allocator{
		registry: linkedhashmap.New(),
		claims:   make(map[string]string),
	}
}

// Allocate finds the first MapBranch/MapTag rule on project whose pattern
// matches sourceName, substitutes its Refname template, sanitizes the
// result, and resolves any collision with the registry. unmapped is true
// when the matching rule (or the absence of any matching rule) means the
// source name is explicitly unmapped; the caller should then suppress
// commit emission for it but keep tracking pipeline state.
func (a *Allocator) Allocate(project *config.ResolvedProject, sourceName string, kind config.Kind) (refname_ string, unmapped bool, captures []string, err error) {
	claimKey := project.Name + "\x00" + kind.String() + "\x00" + sourceName
	if existing, ok := a.claims[claimKey]; ok {
		return existing, existing == "", nil, nil
	}

	rule, caps, found := firstMatch(project.RuleList(kind), sourceName)
	if !found || rule.RefnameTemplate == nil {
		a.claims[claimKey] = ""
		return "", true, caps, nil
	}

	raw, err := project.Env.Substitute(*rule.RefnameTemplate, caps, false)
	if err != nil {
		return "", false, nil, fmt.Errorf("resolving refname for %s %q in project %q: %w", kind, sourceName, project.Name, err)
	}
	sanitized, err := refname.Sanitize(raw, project.Replace)
	if err != nil {
		return "", false, nil, fmt.Errorf("sanitizing refname for %s %q in project %q: %w", kind, sourceName, project.Name, err)
	}

	claimed, err := a.claim(sanitized, &Claim{Project: project.Name, Source: sourceName, Kind: kind})
	if err != nil {
		return "", false, nil, err
	}
	a.claims[claimKey] = claimed
	return claimed, false, caps, nil
}

// claim finds an unused refname starting at proposed, trying "__1", "__2",
// ... until one is free, and records ownership.
func (a *Allocator) claim(proposed string, c *Claim) (string, error) {
	candidate := proposed
	for n := 1; ; n++ {
		if _, found := a.registry.Get(candidate); !found {
			c.Refname = candidate
			a.registry.Put(candidate, c)
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s__%d", proposed, n)
		if err := refname.Validate(candidate); err != nil {
			return "", fmt.Errorf("collision suffix produced an invalid refname %q: %w", candidate, err)
		}
	}
}

// Owner returns the claim currently holding refname, if any.
func (a *Allocator) Owner(refname string) (*Claim, bool) {
	v, found := a.registry.Get(refname)
	if !found {
		return nil, false
	}
	return v.(*Claim), true
}

// RevisionRef computes the auxiliary ref that should point at the Git
// commit for one HG revision: the rule's RevisionRef template substituted
// with the same captures plus "$rev" bound to the revision number, or -
// absent an explicit template - the default form
// "refs/revisions/<branch>/r<rev>" where <branch> is the allocated branch
// ref with its namespace prefix stripped.
func (a *Allocator) RevisionRef(project *config.ResolvedProject, rule config.MapRule, captures []string, allocatedBranchRef, rev string) (string, error) {
	scoped := project.Env.Clone()
	scoped.Define("rev", rev)

	var template string
	if rule.RevisionRef != nil {
		template = *rule.RevisionRef
	} else {
		branchesNS, err := project.Env.Substitute("$Branches", nil, false)
		if err != nil {
			return "", fmt.Errorf("resolving $Branches for rev %s in project %q: %w", rev, project.Name, err)
		}
		branch := strings.TrimPrefix(allocatedBranchRef, branchesNS)
		template = "refs/revisions/" + branch + "/r$rev"
	}
	raw, err := scoped.Substitute(template, captures, false)
	if err != nil {
		return "", fmt.Errorf("resolving revision-ref for rev %s in project %q: %w", rev, project.Name, err)
	}
	return refname.Sanitize(raw, project.Replace)
}

// MatchedRule returns the MapBranch/MapTag rule (and captures) that
// Allocate would use for (project, sourceName, kind), without claiming a
// refname. The Revision Pipeline uses this to find the matching rule's
// RevisionRef template after a branch ref has already been allocated.
func (a *Allocator) MatchedRule(project *config.ResolvedProject, sourceName string, kind config.Kind) (config.MapRule, []string, bool) {
	return firstMatch(project.RuleList(kind), sourceName)
}

func firstMatch(rules []config.MapRule, sourceName string) (config.MapRule, []string, bool) {
	for _, rule := range rules {
		if ok, caps := rule.Pattern.Match(sourceName); ok {
			return rule, caps, true
		}
	}
	return config.MapRule{}, nil, false
}
