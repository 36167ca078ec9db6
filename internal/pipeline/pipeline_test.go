package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gitlab.com/hg2git/hg2git/internal/baton"
	"gitlab.com/hg2git/hg2git/internal/config"
	"gitlab.com/hg2git/hg2git/internal/gitsink"
	"gitlab.com/hg2git/hg2git/internal/hgsource"
	"gitlab.com/hg2git/hg2git/internal/refalloc"
)

// fakeSource is an in-memory hgsource.Source used to drive the pipeline
// in tests without a real `hg` binary.
type fakeSource struct {
	changesets []*hgsource.Changeset
	pos        int
}

func (f *fakeSource) Next() (*hgsource.Changeset, bool, error) {
	if f.pos >= len(f.changesets) {
		return nil, false, nil
	}
	cs := f.changesets[f.pos]
	f.pos++
	return cs, true, nil
}

func (f *fakeSource) Count() (int64, bool) { return int64(len(f.changesets)), true }
func (f *fakeSource) Close() error         { return nil }

func testProjects(t *testing.T) []*config.ResolvedProject {
	t.Helper()
	xmlDoc := `<Projects>
  <Project Name="main" Branch="*">
    <MapBranch Branch="*" Refname="$Branches/$1"/>
    <MapTag Tag="*" Refname="$Tags/$1"/>
  </Project>
</Projects>`
	raw, err := config.LoadXML(strings.NewReader(xmlDoc))
	if err != nil {
		t.Fatalf("LoadXML: %v", err)
	}
	resolved, err := config.Resolve(raw, config.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return resolved
}

func newTestPipeline(t *testing.T, source hgsource.Source) *Pipeline {
	t.Helper()
	sink, err := gitsink.Open(t.TempDir())
	if err != nil {
		t.Fatalf("gitsink.Open: %v", err)
	}
	log := logrus.New()
	log.SetOutput(discard{})
	return New(testProjects(t), refalloc.New(), source, sink, log, baton.New(nil, 0), Options{})
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRootCommitAndBranchRef(t *testing.T) {
	cs := &hgsource.Changeset{
		Rev: "r0", Num: 0, Branch: "default", Author: "Alice <alice@example.org>",
		Message: "initial", Date: time.Unix(1000, 0),
		Files: []hgsource.FileOp{{Action: hgsource.ActionAdd, Path: "a.txt", Mode: 0o100644, Data: []byte("hi")}},
	}
	p := newTestPipeline(t, &fakeSource{changesets: []*hgsource.Changeset{cs}})
	stats, err := p.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("expected 1 processed commit, got %d", stats.Processed)
	}
	if _, ok := p.commitMap["r0"]; !ok {
		t.Fatalf("expected r0 to be in the commit map")
	}
}

func TestMergeWithOneSkippedParentBecomesNormalCommit(t *testing.T) {
	root := &hgsource.Changeset{
		Rev: "r0", Num: 0, Branch: "default", Author: "bob",
		Message: "root", Date: time.Unix(1000, 0),
		Files: []hgsource.FileOp{{Action: hgsource.ActionAdd, Path: "a.txt", Mode: 0o100644, Data: []byte("1")}},
	}
	merge := &hgsource.Changeset{
		Rev: "r1", Num: 1, Branch: "default", Parents: []string{"r0", "ghost-unmapped-parent"},
		Author: "bob", Message: "merge", Date: time.Unix(2000, 0),
		Files: []hgsource.FileOp{{Action: hgsource.ActionModify, Path: "a.txt", Mode: 0o100644, Data: []byte("2")}},
	}
	p := newTestPipeline(t, &fakeSource{changesets: []*hgsource.Changeset{root, merge}})
	stats, err := p.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 2 {
		t.Fatalf("expected 2 processed commits, got %d", stats.Processed)
	}
}

func TestTagAddedAfterCommitUpdatesTagRef(t *testing.T) {
	root := &hgsource.Changeset{
		Rev: "r0", Num: 0, Branch: "default", Author: "bob",
		Message: "root", Date: time.Unix(1000, 0),
		Files: []hgsource.FileOp{{Action: hgsource.ActionAdd, Path: "a.txt", Mode: 0o100644, Data: []byte("1")}},
	}
	tagRev := &hgsource.Changeset{
		Rev: "r1", Num: 1, Branch: "default", Parents: []string{"r0"},
		Author: "bob", Message: "tag v1", Date: time.Unix(2000, 0),
		TagChanges: []hgsource.TagChange{{Added: true, Name: "v1", Rev: "r0"}},
	}
	p := newTestPipeline(t, &fakeSource{changesets: []*hgsource.Changeset{root, tagRev}})
	if _, err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := p.commitMap["r0"]; !ok {
		t.Fatalf("expected r0 committed before its tag was processed")
	}
}

func TestSkippedChangesetOmittedFromParents(t *testing.T) {
	// "*" matches every branch, so exercise the "no content, not
	// dump_all" skip path via an empty message and no files instead.
	p := newTestPipeline(t, &fakeSource{changesets: []*hgsource.Changeset{
		{Rev: "r0", Num: 0, Branch: "default", Date: time.Unix(1000, 0)},
	}})
	stats, err := p.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 0 || stats.Skipped != 1 {
		t.Fatalf("expected the empty changeset to be skipped, got %+v", stats)
	}
	if _, ok := p.commitMap["r0"]; ok {
		t.Fatalf("a skipped changeset must not appear in the commit map")
	}
}
