package config

import (
	"fmt"

	"gitlab.com/hg2git/hg2git/internal/glob"
	"gitlab.com/hg2git/hg2git/internal/refname"
	"gitlab.com/hg2git/hg2git/internal/vars"
	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// Resolve layers hardcoded defaults, the Default section, and each Project
// section into a list of immutable ResolvedProject values. Project names
// must be unique and every NeedsProjects reference must resolve to
// another project in the list.
func Resolve(raw *RawConfig, opts Options) ([]*ResolvedProject, error) {
	seen := make(map[string]bool)
	var out []*ResolvedProject
	for i := range raw.Projects {
		p := &raw.Projects[i]
		if seen[p.Name] {
			return nil, xlog.Throw(xlog.Config, "duplicate project name %q", p.Name)
		}
		seen[p.Name] = true
		rp, err := resolveOne(p, raw.Default, opts, i)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	for _, rp := range out {
		for _, need := range rp.NeedsProjects {
			if !seen[need] {
				return nil, xlog.Throw(xlog.Config, "project %q needs undefined project %q", rp.Name, need)
			}
		}
	}
	return out, nil
}

func resolveOne(p *RawProject, def *RawProject, opts Options, order int) (*ResolvedProject, error) {
	env := vars.New()
	env.Define("Branches", opts.branchesNS())
	env.Define("Tags", opts.tagsNS())

	inheritDefault := def != nil && p.InheritDefault != "No" && !opts.NoDefaultConfig
	if inheritDefault {
		for _, v := range def.Vars {
			env.Define(v.Name, v.Value)
		}
	}
	for _, v := range p.Vars {
		env.Define(v.Name, v.Value)
	}
	if err := env.CheckCycles(); err != nil {
		return nil, xlog.Throw(xlog.Config, "project %q: %v", p.Name, err)
	}

	var replaceRules []refname.Rule
	if inheritDefault {
		replaceRules = append(replaceRules, convertReplace(def.Replace)...)
	}
	replaceRules = append(replaceRules, convertReplace(p.Replace)...)

	inheritMappings := !opts.NoDefaultConfig && p.InheritDefaultMappings != "No"

	mapBranch, err := compileMapRules(p.MapBranch, def, inheritDefault, inheritMappings, KindBranch)
	if err != nil {
		return nil, xlog.Throw(xlog.Config, "project %q: %v", p.Name, err)
	}
	mapTag, err := compileMapRules(p.MapTag, def, inheritDefault, inheritMappings, KindTag)
	if err != nil {
		return nil, xlog.Throw(xlog.Config, "project %q: %v", p.Name, err)
	}

	branchFilter, err := glob.CompileSequence(p.Branch)
	if err != nil {
		return nil, xlog.Throw(xlog.Config, "project %q: invalid Branch filter: %v", p.Name, err)
	}

	return &ResolvedProject{
		Name:          p.Name,
		BranchFilter:  branchFilter,
		ExplicitOnly:  p.ExplicitOnly == "Yes",
		NeedsProjects: append([]string(nil), p.NeedsProjects...),
		Env:           env,
		Replace:       replaceRules,
		MapBranch:     mapBranch,
		MapTag:        mapTag,
		ConfigOrder:   order,
	}, nil
}

func convertReplace(rules []RawReplace) []refname.Rule {
	out := make([]refname.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, refname.Rule{Chars: r.Chars, With: r.With})
	}
	return out
}

// compileMapRules builds the final MapBranch/MapTag list for one project:
// the project's own rules first, then (if inherited) the Default
// section's rules, then (if inherited) the hardcoded catch-all identity
// mapping. Order matters - earlier rules win.
func compileMapRules(own []RawMapRule, def *RawProject, inheritDefault, inheritMappings bool, kind Kind) ([]MapRule, error) {
	var out []MapRule
	for _, r := range own {
		rule, err := compileOneRule(r, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if inheritMappings && def != nil {
		defRules := def.MapBranch
		if kind == KindTag {
			defRules = def.MapTag
		}
		for _, r := range defRules {
			rule, err := compileOneRule(r, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, rule)
		}
	}
	if inheritMappings {
		catchAll, err := hardcodedCatchAll(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, catchAll)
	}
	return out, nil
}

func compileOneRule(r RawMapRule, kind Kind) (MapRule, error) {
	pat, err := glob.Compile(r.Source)
	if err != nil {
		return MapRule{}, fmt.Errorf("invalid %s pattern %q: %w", kind, r.Source, err)
	}
	return MapRule{Pattern: pat, RefnameTemplate: r.Refname, RevisionRef: r.RevisionRef}, nil
}

// hardcodedCatchAll is the implicit last-resort mapping "** -> $Branches/$1"
// (or "$Tags/$1"), anchored to the whole source name. It is appended last
// whenever a project inherits mappings, so it only applies to names that no
// earlier rule matched.
func hardcodedCatchAll(kind Kind) (MapRule, error) {
	pat, err := glob.CompileAnchored("**")
	if err != nil {
		return MapRule{}, err
	}
	template := "$" + kind.DefaultNamespaceVar() + "/$1"
	return MapRule{Pattern: pat, RefnameTemplate: &template}, nil
}
