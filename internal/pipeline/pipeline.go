// Package pipeline consumes changesets in topological order, drives the
// ref allocator and commit builder, writes through the Git sink, and
// maintains the HG->Git commit map and per-project branch-head table
// needed to resolve parents for every subsequent changeset.
package pipeline

import (
	"fmt"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"

	"gitlab.com/hg2git/hg2git/internal/baton"
	"gitlab.com/hg2git/hg2git/internal/commitbuild"
	"gitlab.com/hg2git/hg2git/internal/config"
	"gitlab.com/hg2git/hg2git/internal/gitsink"
	"gitlab.com/hg2git/hg2git/internal/hgconvert"
	"gitlab.com/hg2git/hg2git/internal/hgsource"
	"gitlab.com/hg2git/hg2git/internal/refalloc"
	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// Options carries the CLI settings that change the pipeline's behavior,
// including the .hgignore/.hgeol conversion supplements.
type Options struct {
	EndRevision     *int64
	DumpAll         bool // --verbose=dump_all: log skips, emit truly-empty commits
	ConvertHgignore bool
	ConvertHgeol    bool
	Commit          commitbuild.Options
}

// head is everything needed to extend one (project, HG branch) frontier
// with its next commit.
type head struct {
	refname string
	tree    *gitsink.PathTree
	commit  plumbing.Hash
}

// Pipeline ties the Config Model's enabled projects to a concrete HG
// Source and Git Sink.
type Pipeline struct {
	projects  []*config.ResolvedProject
	alloc     *refalloc.Allocator
	source    hgsource.Source
	sink      *gitsink.Sink
	log       *logrus.Logger
	baton     *baton.Baton
	opts      Options

	commitMap map[string]plumbing.Hash // HG rev -> Git commit
	heads     map[string]*head         // "project\x00branch" -> head state

	processed int64
	skipped   int64
}

// New assembles a Pipeline. enabledProjects must already have gone through
// config.SelectEnabled.
func New(enabledProjects []*config.ResolvedProject, alloc *refalloc.Allocator, source hgsource.Source, sink *gitsink.Sink, log *logrus.Logger, bat *baton.Baton, opts Options) *Pipeline {
	return &Pipeline{
		projects:  enabledProjects,
		alloc:     alloc,
		source:    source,
		sink:      sink,
		log:       log,
		baton:     bat,
		opts:      opts,
		commitMap: make(map[string]plumbing.Hash),
		heads:     make(map[string]*head),
	}
}

// Stats is a snapshot of the pipeline's terminal counters, printed by the
// CLI driver once Run returns.
type Stats struct {
	Processed int64
	Skipped   int64
}

// Run drives the full conversion: pull every changeset from source, in
// order, until exhausted or --end-revision is reached.
func (p *Pipeline) Run() (Stats, error) {
	if n, ok := p.source.Count(); ok {
		p.baton.SetExpected(n)
	}
	for {
		cs, ok, err := p.source.Next()
		if err != nil {
			return p.stats(), err
		}
		if !ok {
			break
		}
		if err := p.processChangeset(cs); err != nil {
			return p.stats(), err
		}
		if p.opts.EndRevision != nil && cs.Num >= *p.opts.EndRevision {
			p.log.Infof("reached --end-revision %d, stopping", *p.opts.EndRevision)
			break
		}
	}
	return p.stats(), nil
}

func (p *Pipeline) stats() Stats {
	return Stats{Processed: p.processed, Skipped: p.skipped}
}

func (p *Pipeline) skip(cs *hgsource.Changeset, reason string) {
	p.skipped++
	p.baton.BumpSkipped()
	if p.opts.DumpAll {
		p.log.WithField("rev", cs.Rev).Debugf("skipped: %s", reason)
	}
}

// processChangeset resolves the owning project, builds and writes the Git
// commit for one changeset, advances the branch head, and applies any
// .hgtags changes it carries.
func (p *Pipeline) processChangeset(cs *hgsource.Changeset) error {
	project := config.Owner(p.projects, cs.Branch)
	if project == nil {
		p.skip(cs, fmt.Sprintf("branch %q matched no enabled project", cs.Branch))
		return nil
	}

	refname, unmapped, caps, err := p.alloc.Allocate(project, cs.Branch, config.KindBranch)
	if err != nil {
		return xlog.Throw(xlog.Pattern, "rev %s: %v", cs.Rev, err)
	}
	if unmapped {
		p.skip(cs, fmt.Sprintf("branch %q is explicitly unmapped in project %q", cs.Branch, project.Name))
		return p.processTagChanges(cs, project)
	}

	if !commitbuild.HasContent(cs) && !p.opts.DumpAll {
		p.skip(cs, fmt.Sprintf("rev %s carries no message and no file changes", cs.Rev))
		return p.processTagChanges(cs, project)
	}

	headKey := project.Name + "\x00" + cs.Branch
	h := p.heads[headKey]
	if h == nil {
		h = &head{refname: refname, tree: gitsink.NewPathTree()}
		p.heads[headKey] = h
	}

	parents := p.resolveParents(cs.Parents)

	tree, err := p.applyFileOps(h.tree.Snapshot(), cs)
	if err != nil {
		return xlog.Throw(xlog.Source, "rev %s: building tree: %v", cs.Rev, err)
	}
	h.tree = tree

	treeHash, err := p.sink.BuildTree(tree)
	if err != nil {
		return err
	}

	commit := commitbuild.Build(cs, p.opts.Commit)
	authorSig := gitsink.Signature{Name: commit.Author.Name, Email: commit.Author.Email, When: commit.When}
	committerSig := gitsink.Signature{Name: commit.Committer.Name, Email: commit.Committer.Email, When: commit.When}

	commitHash, err := p.sink.CreateCommit(treeHash, parents, authorSig, committerSig, commit.Message)
	if err != nil {
		return err
	}

	p.commitMap[cs.Rev] = commitHash
	h.commit = commitHash
	h.refname = refname
	if err := p.sink.UpdateRef(refname, commitHash); err != nil {
		return err
	}
	p.processed++
	p.baton.BumpProcessed()

	if err := p.updateRevisionRef(project, cs, refname, caps, commitHash); err != nil {
		return err
	}

	return p.processTagChanges(cs, project)
}

// resolveParents maps HG parent revisions to already-emitted Git commits,
// dropping any parent that was skipped or unmapped: a two-parent
// changeset with only one resolvable parent becomes a normal (non-merge)
// commit.
func (p *Pipeline) resolveParents(hgParents []string) []plumbing.Hash {
	var out []plumbing.Hash
	for _, rev := range hgParents {
		if hash, ok := p.commitMap[rev]; ok {
			out = append(out, hash)
		}
	}
	return out
}

// applyFileOps mutates tree (already a Snapshot) with cs's file
// operations, writing new blob content through the Git Sink as it goes,
// and applying the .hgignore/.hgeol content translation supplement when
// enabled.
func (p *Pipeline) applyFileOps(tree *gitsink.PathTree, cs *hgsource.Changeset) (*gitsink.PathTree, error) {
	for _, op := range cs.Files {
		switch op.Action {
		case hgsource.ActionDelete:
			tree = tree.Remove(op.Path)
			continue
		case hgsource.ActionRename:
			tree = tree.Remove(op.OldPath)
		}

		data, mode := op.Data, op.Mode
		if translated, ok := hgconvert.Translate(op.Path, data, p.opts.ConvertHgignore, p.opts.ConvertHgeol); ok {
			data = translated
		}
		hash, err := p.sink.WriteBlob(data)
		if err != nil {
			return nil, err
		}
		tree = tree.Set(op.Path, hash.String(), mode)
	}
	return tree, nil
}

// updateRevisionRef resolves and writes the auxiliary revision ref:
// "refs/revisions/<branch>/r<rev>" by default, or the MapBranch rule's own
// RevisionRef template.
func (p *Pipeline) updateRevisionRef(project *config.ResolvedProject, cs *hgsource.Changeset, branchRef string, caps []string, commit plumbing.Hash) error {
	rule, ruleCaps, found := p.alloc.MatchedRule(project, cs.Branch, config.KindBranch)
	if !found {
		return nil
	}
	if ruleCaps != nil {
		caps = ruleCaps
	}
	revRef, err := p.alloc.RevisionRef(project, rule, caps, branchRef, strconv.FormatInt(cs.Num, 10))
	if err != nil {
		return xlog.Throw(xlog.Pattern, "rev %s: %v", cs.Rev, err)
	}
	return p.sink.UpdateRef(revRef, commit)
}
