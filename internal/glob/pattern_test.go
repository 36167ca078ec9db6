package glob

import "testing"

func assertTrue(t *testing.T, see bool) {
	t.Helper()
	if !see {
		t.Errorf("assertTrue: expected true, saw false")
	}
}

func assertFalse(t *testing.T, see bool) {
	t.Helper()
	if see {
		t.Errorf("assertFalse: expected false, saw true")
	}
}

func assertCapsEqual(t *testing.T, got []string, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("assertCapsEqual: expected %q, saw %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assertCapsEqual: expected %q, saw %q", want, got)
		}
	}
}

func TestAlternationWithCapture(t *testing.T) {
	p, err := Compile("releases/{1.0,2.0}/hotfix-*")
	assertTrue(t, err == nil)
	ok, caps := p.Match("releases/2.0/hotfix-abc")
	assertTrue(t, ok)
	assertCapsEqual(t, caps, []string{"2.0", "abc"})
}

func TestAlternationMismatch(t *testing.T) {
	p, _ := Compile("releases/{1.0,2.0}/hotfix-*")
	ok, _ := p.Match("releases/3.0/hotfix-abc")
	assertFalse(t, ok)
}

func TestUnanchoredSingleComponent(t *testing.T) {
	p, _ := Compile("main")
	ok, caps := p.Match("main")
	assertTrue(t, ok)
	assertCapsEqual(t, caps, nil)
	// unanchored: matches any whole '/'-delimited component, not just the
	// full candidate.
	ok, _ = p.Match("refs/heads/main")
	assertTrue(t, ok)
	ok, _ = p.Match("refs/heads/mainline")
	assertFalse(t, ok)
}

func TestDoubleStarCrossesSlash(t *testing.T) {
	p, _ := Compile("refs/**")
	ok, caps := p.Match("refs/heads/main")
	assertTrue(t, ok)
	assertCapsEqual(t, caps, []string{"heads/main"})
}

func TestStarDoesNotCrossSlash(t *testing.T) {
	p, _ := Compile("refs/*")
	ok, _ := p.Match("refs/heads/main")
	assertFalse(t, ok)
}

func TestBetweenSlashesRequiresOneChar(t *testing.T) {
	p, _ := Compile("a/*/b")
	ok, _ := p.Match("a//b")
	assertFalse(t, ok)
	ok, caps := p.Match("a/x/b")
	assertTrue(t, ok)
	assertCapsEqual(t, caps, []string{"x"})
}

func TestCharacterRangeRejected(t *testing.T) {
	_, err := Compile("release-[0-9]")
	assertTrue(t, err != nil)
}

func TestNestedAlternation(t *testing.T) {
	p, err := Compile("{a,{b,c}d}")
	assertTrue(t, err == nil)
	ok, caps := p.Match("cd")
	assertTrue(t, ok)
	assertCapsEqual(t, caps, []string{"cd"})
}

func TestQuestionMark(t *testing.T) {
	p, _ := Compile("v?")
	ok, caps := p.Match("v2")
	assertTrue(t, ok)
	assertCapsEqual(t, caps, []string{"2"})
}
