package config

import (
	"strings"
	"testing"
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

func TestLoadAndResolveSimpleConfig(t *testing.T) {
	xmlDoc := `<Projects>
  <Default>
    <MapBranch Branch="release-*" Refname="$Branches/releases/$1"/>
  </Default>
  <Project Name="main" Branch="*">
    <Vars><Trunk>default</Trunk></Vars>
    <Replace Chars="A" With="a"/>
    <MapBranch Branch="feature/*" Refname="$Branches/feat-$1"/>
  </Project>
</Projects>`

	raw, err := LoadXML(strings.NewReader(xmlDoc))
	assertTrue(t, err == nil)
	assertTrue(t, raw.Default != nil)
	assertTrue(t, len(raw.Projects) == 1)

	resolved, err := Resolve(raw, Options{})
	assertTrue(t, err == nil)
	assertTrue(t, len(resolved) == 1)

	p := resolved[0]
	assertEqual(t, p.Name, "main")
	// Project's own MapBranch first, then Default's, then the hardcoded catch-all.
	assertTrue(t, len(p.MapBranch) == 3)
	assertEqual(t, p.MapBranch[0].Pattern.Source(), "feature/*")
	assertEqual(t, p.MapBranch[1].Pattern.Source(), "release-*")

	val, err := p.Env.Substitute("$Trunk", nil, false)
	assertTrue(t, err == nil)
	assertEqual(t, val, "default")
}

func TestDuplicateProjectNameRejected(t *testing.T) {
	raw := &RawConfig{Projects: []RawProject{
		{Name: "a", ExplicitOnly: "No", InheritDefault: "No", InheritDefaultMappings: "No"},
		{Name: "a", ExplicitOnly: "No", InheritDefault: "No", InheritDefaultMappings: "No"},
	}}
	_, err := Resolve(raw, Options{})
	assertTrue(t, err != nil)
}

func TestUnresolvedNeedsProjectsRejected(t *testing.T) {
	raw := &RawConfig{Projects: []RawProject{
		{Name: "a", NeedsProjects: []string{"ghost"}, InheritDefault: "No", InheritDefaultMappings: "No"},
	}}
	_, err := Resolve(raw, Options{})
	assertTrue(t, err != nil)
}

func TestNoInheritDefaultSkipsDefaultMappings(t *testing.T) {
	raw := &RawConfig{
		Default: &RawProject{MapBranch: []RawMapRule{{Source: "release-*"}}},
		Projects: []RawProject{
			{Name: "a", InheritDefault: "No", InheritDefaultMappings: "No"},
		},
	}
	resolved, err := Resolve(raw, Options{})
	assertTrue(t, err == nil)
	assertTrue(t, len(resolved[0].MapBranch) == 0)
}

func TestUnknownElementRejected(t *testing.T) {
	_, err := LoadXML(strings.NewReader(`<Projects><Bogus/></Projects>`))
	assertTrue(t, err != nil)
}
