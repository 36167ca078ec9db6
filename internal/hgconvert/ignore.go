// Package hgconvert translates a checked-in .hgignore into .gitignore, and
// a checked-in .hgeol into .gitattributes, as per-changeset file-content
// rewrites rather than new pipeline stages.
package hgconvert

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Translate rewrites data if path names a file this package knows how to
// convert and the matching --convert-* flag is set; ok is false (data
// unchanged) for every other path, so callers can unconditionally swap in
// the result.
func Translate(path string, data []byte, convertHgignore, convertHgeol bool) (out []byte, ok bool) {
	switch {
	case convertHgignore && path == ".hgignore":
		return translateIgnore(data), true
	case convertHgeol && path == ".hgeol":
		return translateEol(data), true
	default:
		return data, false
	}
}

// translateIgnore converts Mercurial's ignore-file syntax to gitignore's.
// The two formats agree almost everywhere, with three differences that
// matter in practice:
//
//   - Mercurial's default pattern syntax (before any "syntax:" directive)
//     is Python regexp, not glob; gitignore has no regexp mode at all. A
//     pattern encountered in regexp mode is carried over as a comment
//     rather than guessed at, since a wrong silent translation is worse
//     than a visible no-op.
//   - "syntax: glob" / "syntax: regexp" directive lines have no gitignore
//     equivalent and are dropped (glob sections translate verbatim; once a
//     regexp section starts, its lines fall back to the rule above).
//   - gitignore gives a leading '!' special meaning (negation) that
//     Mercurial's glob syntax does not; a glob pattern starting with '!'
//     is escaped with a backslash so it still means "this literal path",
//     not "negate". Lines starting with '#' are comments in both formats
//     and are copied through unchanged, as are blank lines.
func translateIgnore(data []byte) []byte {
	var out bytes.Buffer
	mode := "regexp" // Mercurial's documented default
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if directive, ok := parseSyntaxDirective(trimmed); ok {
			mode = directive
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			fmt.Fprintln(&out, line)
			continue
		}
		if mode != "glob" {
			fmt.Fprintf(&out, "# unconverted regexp pattern: %s\n", line)
			continue
		}
		if strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "#") {
			trimmed = `\` + trimmed
		}
		fmt.Fprintln(&out, trimmed)
	}
	return out.Bytes()
}

func parseSyntaxDirective(line string) (string, bool) {
	const prefix = "syntax:"
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
}
