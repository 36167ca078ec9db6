package commitbuild

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"gitlab.com/hg2git/hg2git/internal/hgsource"
)

// Commit is the fully normalized set of fields the Git writer needs to
// create a commit object: author and committer are identical.
type Commit struct {
	Author    Author
	Committer Author
	Message   string
	When      time.Time
}

// Options controls commit-message decoration, driven by the CLI's
// --decorate-commit-message flag.
type Options struct {
	DecorateRevisionID bool
}

// Build composes the Commit for one changeset: the HG message verbatim
// when non-empty, otherwise a synthesized file-operation summary, with an
// optional "HG-revision:" tagline appended.
func Build(cs *hgsource.Changeset, opts Options) Commit {
	message := strings.TrimSpace(norm.NFC.String(cs.Message))
	if message == "" {
		message = synthesizeMessage(cs.Files)
	}
	if opts.DecorateRevisionID {
		tagline := fmt.Sprintf("HG-revision: %s", cs.Rev)
		if message == "" {
			message = tagline
		} else {
			message = message + "\n\n" + tagline
		}
	}
	author := ParseAuthor(cs.Author)
	return Commit{
		Author:    author,
		Committer: author,
		Message:   message,
		When:      cs.Date,
	}
}

// HasContent reports whether the changeset carries either a real message
// or at least one file operation. The pipeline gates commit emission on
// this, absent --verbose=dump_all, which it consults separately.
func HasContent(cs *hgsource.Changeset) bool {
	return strings.TrimSpace(cs.Message) != "" || len(cs.Files) > 0
}

// synthesizeMessage builds an "Added: x\nDeleted: y\n..." summary for a
// changeset with no HG message: sections in fixed
// added/modified/deleted/renamed order, paths sorted lexicographically
// within each section.
func synthesizeMessage(files []hgsource.FileOp) string {
	var added, modified, deleted []string
	var renamed []hgsource.FileOp
	for _, f := range files {
		switch f.Action {
		case hgsource.ActionAdd:
			added = append(added, f.Path)
		case hgsource.ActionModify:
			modified = append(modified, f.Path)
		case hgsource.ActionDelete:
			deleted = append(deleted, f.Path)
		case hgsource.ActionRename:
			renamed = append(renamed, f)
		}
	}
	sort.Strings(added)
	sort.Strings(modified)
	sort.Strings(deleted)
	sort.Slice(renamed, func(i, j int) bool { return renamed[i].OldPath < renamed[j].OldPath })

	var lines []string
	for _, p := range added {
		lines = append(lines, "Added: "+p)
	}
	for _, p := range modified {
		lines = append(lines, "Modified: "+p)
	}
	for _, p := range deleted {
		lines = append(lines, "Deleted: "+p)
	}
	for _, f := range renamed {
		lines = append(lines, fmt.Sprintf("Renamed: %s → %s", f.OldPath, f.Path))
	}
	return strings.Join(lines, "\n")
}
