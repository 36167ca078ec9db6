package config

import "gopkg.in/yaml.v3"

// dumpRule and dumpProject are yaml-friendly projections of a
// ResolvedProject, used by --verbose=dump / dump_all to let operators see
// exactly what the Default -> Project layering produced.
type dumpRule struct {
	Source  string `yaml:"source"`
	Refname string `yaml:"refname,omitempty"`
}

type dumpProject struct {
	Name          string     `yaml:"name"`
	BranchFilter  string     `yaml:"branchFilter"`
	ExplicitOnly  bool       `yaml:"explicitOnly"`
	NeedsProjects []string   `yaml:"needsProjects,omitempty"`
	MapBranch     []dumpRule `yaml:"mapBranch,omitempty"`
	MapTag        []dumpRule `yaml:"mapTag,omitempty"`
}

// Dump renders the resolved project list as YAML for diagnostic logging.
func Dump(projects []*ResolvedProject) (string, error) {
	var out []dumpProject
	for _, p := range projects {
		dp := dumpProject{
			Name:          p.Name,
			BranchFilter:  p.BranchFilter.Source(),
			ExplicitOnly:  p.ExplicitOnly,
			NeedsProjects: p.NeedsProjects,
		}
		for _, r := range p.MapBranch {
			dp.MapBranch = append(dp.MapBranch, toDumpRule(r))
		}
		for _, r := range p.MapTag {
			dp.MapTag = append(dp.MapTag, toDumpRule(r))
		}
		out = append(out, dp)
	}
	b, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toDumpRule(r MapRule) dumpRule {
	dr := dumpRule{Source: r.Pattern.Source()}
	if r.RefnameTemplate != nil {
		dr.Refname = *r.RefnameTemplate
	}
	return dr
}
