package config

import "testing"

func mkProject(name string, explicitOnly bool, needs ...string) *ResolvedProject {
	return &ResolvedProject{Name: name, ExplicitOnly: explicitOnly, NeedsProjects: needs}
}

func TestSelectEnabledDefaultsToAllNonExplicit(t *testing.T) {
	projects := []*ResolvedProject{mkProject("a", false), mkProject("b", true)}
	enabled := SelectEnabled(projects, nil)
	assertTrue(t, len(enabled) == 1)
	assertEqual(t, enabled[0].Name, "a")
}

func TestSelectEnabledNegativeFilterExcludes(t *testing.T) {
	projects := []*ResolvedProject{mkProject("a", false), mkProject("b", false)}
	filters, err := ParseProjectFilters([]string{"*,!b"})
	assertTrue(t, err == nil)
	enabled := SelectEnabled(projects, filters)
	assertTrue(t, len(enabled) == 1)
	assertEqual(t, enabled[0].Name, "a")
}

func TestSelectEnabledForceEnablesDependency(t *testing.T) {
	projects := []*ResolvedProject{
		mkProject("a", false, "lib"),
		mkProject("lib", true),
	}
	filters, err := ParseProjectFilters([]string{"a"})
	assertTrue(t, err == nil)
	enabled := SelectEnabled(projects, filters)
	assertTrue(t, len(enabled) == 2)
}
