// Package config resolves the layered configuration model (hardcoded
// defaults -> Default section -> Project section) into the immutable,
// per-project rule sets the rest of the engine consumes: MapBranch,
// MapTag, Vars, and Replace, plus a compiled branch filter and flags.
package config

import (
	"gitlab.com/hg2git/hg2git/internal/glob"
	"gitlab.com/hg2git/hg2git/internal/refname"
	"gitlab.com/hg2git/hg2git/internal/vars"
)

// Kind distinguishes branch mappings from tag mappings, since MapBranch and
// MapTag are resolved and consulted identically except for which rule list
// and which hardcoded namespace variable they fall back to.
type Kind int

const (
	KindBranch Kind = iota
	KindTag
)

func (k Kind) String() string {
	if k == KindTag {
		return "tag"
	}
	return "branch"
}

// MapRule is a single MapBranch or MapTag entry: a source-name pattern and
// the refname/revision-ref templates it produces on a match. A nil
// template pointer means "explicitly unmapped" for Refname, or "use the
// default revision-ref form" for RevisionRef.
type MapRule struct {
	Pattern         *glob.Pattern
	RefnameTemplate *string
	RevisionRef     *string
}

// ResolvedProject is a fully layered project: everything the Ref Allocator
// and Commit Builder need, with variable cycles already checked and rule
// lists already flattened into their final evaluation order.
type ResolvedProject struct {
	Name                   string
	BranchFilter           *glob.Sequence
	ExplicitOnly           bool
	NeedsProjects          []string
	Env                    *vars.Environment
	Replace                []refname.Rule
	MapBranch              []MapRule
	MapTag                 []MapRule
	ConfigOrder            int // position among Project children, for tie-breaking project ownership
}

// Options carries the CLI overrides that seed and gate configuration
// resolution.
type Options struct {
	BranchesNamespace string // --branches, default "refs/heads/"
	TagsNamespace     string // --tags, default "refs/tags/"
	NoDefaultConfig   bool   // --no-default-config
}

func (o Options) branchesNS() string {
	if o.BranchesNamespace != "" {
		return o.BranchesNamespace
	}
	return "refs/heads/"
}

func (o Options) tagsNS() string {
	if o.TagsNamespace != "" {
		return o.TagsNamespace
	}
	return "refs/tags/"
}

// RuleList returns the MapBranch or MapTag list for kind.
func (rp *ResolvedProject) RuleList(kind Kind) []MapRule {
	if kind == KindTag {
		return rp.MapTag
	}
	return rp.MapBranch
}

// DefaultNamespaceVar is the hardcoded namespace variable name consulted
// by a kind's implicit catch-all mapping rule.
func (k Kind) DefaultNamespaceVar() string {
	if k == KindTag {
		return "Tags"
	}
	return "Branches"
}
