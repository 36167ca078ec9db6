// Package refname applies character-replacement rules to produce valid Git
// refnames, and validates the result against Git's refname grammar.
package refname

import (
	"fmt"
	"strings"
)

// Rule is a single source-character (or short string) to replacement-char
// mapping, applied in inheritance order: hardcoded defaults, then the
// Default section's rules, then the Project section's own rules.
type Rule struct {
	Chars string
	With  string
}

// forbiddenSequences holds the Git refname grammar's banned substrings, checked
// after all Replace rules have run. See git-check-ref-format(1).
var forbiddenSequences = []string{
	"..", "~", "^", ":", "?", "*", "[", "\\",
	"@{", "//",
}

// Sanitize applies rules in order, then ensures the result starts with
// "refs/" and satisfies Git's refname validity predicate.
func Sanitize(name string, rules []Rule) (string, error) {
	out := name
	for _, r := range rules {
		out = strings.ReplaceAll(out, r.Chars, r.With)
	}
	if !strings.HasPrefix(out, "refs/") {
		out = "refs/" + out
	}
	if err := Validate(out); err != nil {
		return "", fmt.Errorf("refname: %q is not a valid refname after sanitization: %w", out, err)
	}
	return out, nil
}

// Validate reports whether name satisfies Git's refname validity predicate:
// it must start with "refs/", contain no path component equal to "." or
// ending in ".lock", no forbidden substring, no control characters or
// space, no leading/trailing '/', and no empty component.
func Validate(name string) error {
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("does not start with refs/")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("leading or trailing '/'")
	}
	for _, seq := range forbiddenSequences {
		if strings.Contains(name, seq) {
			return fmt.Errorf("contains forbidden sequence %q", seq)
		}
	}
	for _, component := range strings.Split(name, "/") {
		if component == "" {
			return fmt.Errorf("empty path component")
		}
		if component == "." || component == ".." {
			return fmt.Errorf("path component %q is not allowed", component)
		}
		if strings.HasSuffix(component, ".lock") {
			return fmt.Errorf("path component %q ends in .lock", component)
		}
	}
	for _, c := range name {
		if c < 0x20 || c == 0x7f || c == ' ' {
			return fmt.Errorf("contains a control character or space")
		}
	}
	return nil
}
