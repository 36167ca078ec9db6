package pipeline

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"

	"gitlab.com/hg2git/hg2git/internal/commitbuild"
	"gitlab.com/hg2git/hg2git/internal/config"
	"gitlab.com/hg2git/hg2git/internal/gitsink"
	"gitlab.com/hg2git/hg2git/internal/hgsource"
	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// processTagChanges applies the .hgtags changes a changeset carries: each
// addition allocates (or reuses) a tag ref and points it at an annotated
// tag object carrying the tag-adding changeset's author and date, rather
// than a bare ref update; each removal deletes that ref.
func (p *Pipeline) processTagChanges(cs *hgsource.Changeset, project *config.ResolvedProject) error {
	for _, tc := range cs.TagChanges {
		tagRef, unmapped, _, err := p.alloc.Allocate(project, tc.Name, config.KindTag)
		if err != nil {
			return xlog.Throw(xlog.Pattern, "tag %q: %v", tc.Name, err)
		}
		if unmapped {
			if p.opts.DumpAll {
				p.log.WithField("tag", tc.Name).Debug("tag explicitly unmapped")
			}
			continue
		}
		if !tc.Added {
			if err := p.sink.DeleteRef(tagRef); err != nil {
				return err
			}
			continue
		}
		commit, ok := p.commitMap[tc.Rev]
		if !ok {
			p.log.WithFields(logrus.Fields{"tag": tc.Name, "rev": tc.Rev}).Warn("tag points at a revision with no corresponding Git commit; skipped")
			continue
		}
		tagHash, err := p.createTagObject(cs, tc, commit)
		if err != nil {
			return err
		}
		if err := p.sink.UpdateRef(tagRef, tagHash); err != nil {
			return err
		}
	}
	return nil
}

// createTagObject writes the annotated tag object for tc, carrying the
// same author and date the tag-adding changeset cs carried, so a
// downstream `git for-each-ref` shows a real annotated tag rather than a
// lightweight one.
func (p *Pipeline) createTagObject(cs *hgsource.Changeset, tc hgsource.TagChange, commit plumbing.Hash) (plumbing.Hash, error) {
	tagger := commitbuild.ParseAuthor(cs.Author)
	message := strings.TrimSpace(cs.Message)
	if message == "" {
		message = fmt.Sprintf("Added tag %s", tc.Name)
	}
	hash, err := p.sink.CreateTag(commit, gitsink.Signature{Name: tagger.Name, Email: tagger.Email, When: cs.Date}, tc.Name, message)
	if err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "tag %q: %v", tc.Name, err)
	}
	return hash, nil
}
