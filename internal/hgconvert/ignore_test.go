package hgconvert

import (
	"strings"
	"testing"
)

func TestTranslateIgnoreGlobSection(t *testing.T) {
	src := "syntax: glob\n*.o\n!keep.o\n"
	out, ok := Translate(".hgignore", []byte(src), true, false)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	got := string(out)
	if !strings.Contains(got, "*.o\n") {
		t.Fatalf("expected literal glob line, got %q", got)
	}
	if !strings.Contains(got, `\!keep.o`) {
		t.Fatalf("expected leading '!' escaped, got %q", got)
	}
}

func TestTranslateIgnoreDefaultRegexpModeCommented(t *testing.T) {
	src := "^foo\\.bar$\n"
	out, _ := Translate(".hgignore", []byte(src), true, false)
	if !strings.Contains(string(out), "unconverted regexp pattern") {
		t.Fatalf("expected a comment marker for untranslated regexp, got %q", string(out))
	}
}

func TestTranslateUnrelatedPathUnchanged(t *testing.T) {
	_, ok := Translate("README.md", []byte("hi"), true, true)
	if ok {
		t.Fatalf("expected ok=false for an unrelated path")
	}
}

func TestTranslateEolPatterns(t *testing.T) {
	src := "[patterns]\n**.txt = native\n*.sh = LF\n"
	out, ok := Translate(".hgeol", []byte(src), false, true)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	got := string(out)
	if !strings.Contains(got, "**.txt text=auto") {
		t.Fatalf("expected native mapped to text=auto, got %q", got)
	}
	if !strings.Contains(got, "*.sh text eol=lf") {
		t.Fatalf("expected LF mapped to eol=lf, got %q", got)
	}
}
