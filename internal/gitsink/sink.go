package gitsink

import (
	"sort"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// Sink is the concrete Git object writer the pipeline drives: it owns one
// target Git repository and exposes blob/tree/commit creation and ref
// updates through go-git's plumbing layer instead of hand-rolled object
// serialization.
type Sink struct {
	repo   *git.Repository
	storer *filesystem.Storage
}

// Open opens target (creating it as a bare repository if it doesn't exist
// yet), the --target-repository destination the pipeline writes to.
func Open(target string) (*Sink, error) {
	fs := osfs.New(target)
	storer := filesystem.NewStorage(fs, nil)

	repo, err := git.Open(storer, nil)
	if err == git.ErrRepositoryNotExists {
		repo, err = git.Init(storer, nil)
	}
	if err != nil {
		return nil, xlog.Throw(xlog.Target, "opening target repository %q: %v", target, err)
	}
	return &Sink{repo: repo, storer: storer}, nil
}

// WriteBlob stores data as a Git blob object and returns its hash.
func (s *Sink) WriteBlob(data []byte) (plumbing.Hash, error) {
	obj := s.storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "blob writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "writing blob content: %v", err)
	}
	w.Close()
	hash, err := s.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "storing blob: %v", err)
	}
	return hash, nil
}

// BuildTree recursively writes the Git tree objects represented by pt and
// returns the root tree's hash. Directory and blob entries within one tree
// object are emitted in Git's own tree-entry order: sorted by name, with a
// directory compared as if its name ended in '/'.
func (s *Sink) BuildTree(pt *PathTree) (plumbing.Hash, error) {
	blobNames, dirNames := pt.entryNames()

	var entries []object.TreeEntry
	for _, name := range blobNames {
		b := pt.blobs[name]
		hash := plumbing.NewHash(b.hash)
		entries = append(entries, object.TreeEntry{Name: name, Mode: gitFileMode(b.mode), Hash: hash})
	}
	for _, name := range dirNames {
		sub := pt.dirs[name]
		hash, err := s.BuildTree(sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool { return sortKey(entries[i]) < sortKey(entries[j]) })

	tree := &object.Tree{Entries: entries}
	obj := s.storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "encoding tree: %v", err)
	}
	hash, err := s.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "storing tree: %v", err)
	}
	return hash, nil
}

func gitFileMode(mode uint32) filemode.FileMode {
	switch mode {
	case 0o120000:
		return filemode.Symlink
	case 0o100755:
		return filemode.Executable
	default:
		return filemode.Regular
	}
}

// Signature is the author/committer pair plus timestamp a commit carries;
// kept local to gitsink rather than importing commitbuild, so the Git
// writer stays a leaf the pipeline can drive without a dependency cycle.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// CreateCommit writes a commit object pointing at tree with the given
// parents (0, 1, or 2) and returns its hash.
func (s *Sink) CreateCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer Signature, message string) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       object.Signature{Name: author.Name, Email: author.Email, When: author.When},
		Committer:    object.Signature{Name: committer.Name, Email: committer.Email, When: committer.When},
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	obj := s.storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "encoding commit: %v", err)
	}
	hash, err := s.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "storing commit: %v", err)
	}
	return hash, nil
}

// CreateTag writes an annotated tag object pointing at target (normally a
// commit) under the given short name, with tagger and message, and
// returns the tag object's hash.
func (s *Sink) CreateTag(target plumbing.Hash, tagger Signature, name, message string) (plumbing.Hash, error) {
	tag := &object.Tag{
		Name:       name,
		Tagger:     object.Signature{Name: tagger.Name, Email: tagger.Email, When: tagger.When},
		Message:    message,
		TargetType: plumbing.CommitObject,
		Target:     target,
	}
	obj := s.storer.NewEncodedObject()
	if err := tag.Encode(obj); err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "encoding tag: %v", err)
	}
	hash, err := s.storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, xlog.Throw(xlog.Target, "storing tag: %v", err)
	}
	return hash, nil
}

// UpdateRef points refname at hash, creating it if absent. refname must
// already have passed internal/refname's validity predicate.
func (s *Sink) UpdateRef(refname string, hash plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(refname), hash)
	if err := s.storer.SetReference(ref); err != nil {
		return xlog.Throw(xlog.Target, "updating ref %q: %v", refname, err)
	}
	return nil
}

// DeleteRef removes refname, for .hgtags removal events.
func (s *Sink) DeleteRef(refname string) error {
	if err := s.storer.RemoveReference(plumbing.ReferenceName(refname)); err != nil {
		return xlog.Throw(xlog.Target, "deleting ref %q: %v", refname, err)
	}
	return nil
}

// Close releases the underlying repository handle. go-git's filesystem
// storage has no separate close step; this exists so the pipeline can
// treat the Git writer uniformly with the HG reader's resource lifecycle,
// released on both normal and error exit paths.
func (s *Sink) Close() error {
	return nil
}
