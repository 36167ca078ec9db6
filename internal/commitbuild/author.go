// Package commitbuild normalizes HG usernames and synthesizes Git commit
// messages: the last piece of the conversion engine needed to produce
// well-formed Git objects from whatever a Mercurial changeset happens to
// carry.
package commitbuild

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Author is a parsed Name/Email pair. Git's author and committer fields
// are set identically from it.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

var (
	nameAngleEmail = regexp.MustCompile(`^([^<>]+?)\s*<([^<>@]+(?:@|\s+at\s+|\s+AT\s+)[^<>@]+)>$`)
	nameParenEmail = regexp.MustCompile(`^([^()]+?)\s*\(([^()@]+@[^()@]+)\)$`)
	bareEmail      = regexp.MustCompile(`^[^\s<>@]+@[^\s<>@]+$`)
	atForm         = regexp.MustCompile(`(?i)\s+at\s+`)
	dotForm        = regexp.MustCompile(`(?i)\s+dot\s+`)
)

// ParseAuthor extracts a Name/Email pair from an HG username string in any
// of the accepted forms: "Name <email>", "Name (email)", a quoted name, a
// bare email, or a bare name. An empty username falls back to the literal
// "(no author)" / "no-author@localhost" pair, since `git commit-tree`
// refuses an empty author; any other unparseable username synthesizes
// "<user>@localhost".
func ParseAuthor(username string) Author {
	username = strings.TrimSpace(username)
	if username == "" {
		return Author{Name: "(no author)", Email: "no-author@localhost"}
	}

	if m := nameAngleEmail.FindStringSubmatch(username); m != nil {
		name := unquote(strings.TrimSpace(m[1]))
		email := normalizeEmail(m[2])
		return Author{Name: normalize(name), Email: email}
	}
	if m := nameParenEmail.FindStringSubmatch(username); m != nil {
		name := unquote(strings.TrimSpace(m[1]))
		return Author{Name: normalize(name), Email: normalizeEmail(m[2])}
	}
	if bareEmail.MatchString(username) {
		local := username[:strings.IndexByte(username, '@')]
		return Author{Name: normalize(local), Email: normalize(username)}
	}
	// Bare name: the last whitespace-separated token becomes the local
	// part of a synthesized localhost address.
	if fields := strings.Fields(username); len(fields) > 0 {
		last := fields[len(fields)-1]
		return Author{Name: normalize(username), Email: normalize(last) + "@localhost"}
	}
	return Author{Name: normalize(username), Email: normalize(username) + "@localhost"}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func normalizeEmail(email string) string {
	email = atForm.ReplaceAllString(email, "@")
	email = dotForm.ReplaceAllString(email, ".")
	return normalize(email)
}

// normalize applies Unicode NFC normalization so that usernames and emails
// drawn from HG's loosely-encoded commit metadata round-trip cleanly
// through Git's object format.
func normalize(s string) string {
	return norm.NFC.String(s)
}
