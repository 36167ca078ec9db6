package refalloc

import (
	"strings"
	"testing"

	"gitlab.com/hg2git/hg2git/internal/config"
)

func assertTrue(t *testing.T, see bool) {
	t.Helper()
	if !see {
		t.Errorf("assertTrue: expected true, saw false")
	}
}

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("assertEqual: expected %q, saw %q", want, got)
	}
}

func oneProject(t *testing.T, xmlDoc string, opts config.Options) *config.ResolvedProject {
	t.Helper()
	raw, err := config.LoadXML(strings.NewReader(xmlDoc))
	assertTrue(t, err == nil)
	resolved, err := config.Resolve(raw, opts)
	assertTrue(t, err == nil)
	assertTrue(t, len(resolved) == 1)
	return resolved[0]
}

func TestAllocateCollisionGetsSuffix(t *testing.T) {
	project := oneProject(t, `<Projects>
  <Project Name="main" Branch="*" InheritDefaultMappings="No">
    <MapBranch Branch="alpha" Refname="refs/heads/shared"/>
    <MapBranch Branch="beta" Refname="refs/heads/shared"/>
  </Project>
</Projects>`, config.Options{})

	a := New()
	first, unmapped, _, err := a.Allocate(project, "alpha", config.KindBranch)
	assertTrue(t, err == nil)
	assertTrue(t, !unmapped)
	assertEqual(t, first, "refs/heads/shared")

	second, unmapped, _, err := a.Allocate(project, "beta", config.KindBranch)
	assertTrue(t, err == nil)
	assertTrue(t, !unmapped)
	assertEqual(t, second, "refs/heads/shared__1")

	owner, found := a.Owner("refs/heads/shared__1")
	assertTrue(t, found)
	assertEqual(t, owner.Source, "beta")
}

func TestAllocateRepeatedRequestReturnsSameRefname(t *testing.T) {
	project := oneProject(t, `<Projects>
  <Project Name="main" Branch="*" InheritDefaultMappings="No">
    <MapBranch Branch="alpha" Refname="refs/heads/alpha"/>
  </Project>
</Projects>`, config.Options{})

	a := New()
	first, _, _, err := a.Allocate(project, "alpha", config.KindBranch)
	assertTrue(t, err == nil)
	second, _, _, err := a.Allocate(project, "alpha", config.KindBranch)
	assertTrue(t, err == nil)
	assertEqual(t, first, second)
}

func TestRevisionRefDefaultFormStripsResolvedBranchesNamespace(t *testing.T) {
	project := oneProject(t, `<Projects>
  <Project Name="main" Branch="*"/>
</Projects>`, config.Options{BranchesNamespace: "refs/custom-heads/"})

	a := New()
	branchRef, unmapped, caps, err := a.Allocate(project, "feature", config.KindBranch)
	assertTrue(t, err == nil)
	assertTrue(t, !unmapped)
	assertEqual(t, branchRef, "refs/custom-heads/feature")

	rule, ruleCaps, found := a.MatchedRule(project, "feature", config.KindBranch)
	assertTrue(t, found)
	if ruleCaps != nil {
		caps = ruleCaps
	}

	revRef, err := a.RevisionRef(project, rule, caps, branchRef, "5")
	assertTrue(t, err == nil)
	assertEqual(t, revRef, "refs/revisions/feature/r5")
}

func TestRevisionRefExplicitTemplateOverridesDefault(t *testing.T) {
	project := oneProject(t, `<Projects>
  <Project Name="main" Branch="*" InheritDefaultMappings="No">
    <MapBranch Branch="*" Refname="refs/heads/alpha" RevisionRef="refs/custom-revs/$1/$rev"/>
  </Project>
</Projects>`, config.Options{})

	a := New()
	branchRef, _, caps, err := a.Allocate(project, "alpha", config.KindBranch)
	assertTrue(t, err == nil)

	rule, ruleCaps, found := a.MatchedRule(project, "alpha", config.KindBranch)
	assertTrue(t, found)
	if ruleCaps != nil {
		caps = ruleCaps
	}

	revRef, err := a.RevisionRef(project, rule, caps, branchRef, "9")
	assertTrue(t, err == nil)
	assertEqual(t, revRef, "refs/custom-revs/alpha/9")
}
