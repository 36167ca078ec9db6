// Package gitsink is the concrete Git object writer. It turns a flat
// file-operation list into nested Git tree objects and writes
// blobs/trees/commits/refs through go-git's plumbing.
package gitsink

import "sort"

// blob is a leaf: the content hash and Git mode bits of one tracked file.
type blob struct {
	hash string // hex object id, filled in once the blob is written
	mode uint32
}

// PathTree is a copy-on-write mapping from repository-relative path to a
// tracked file's blob entry, used to carry each branch head's full file
// state forward from one revision to the next without re-walking the
// whole tree on every commit. Set and Remove copy only the nodes that a
// Snapshot has marked shared, so after a Snapshot the returned tree shares
// unmodified subtrees with the receiver and mutating it never affects the
// snapshotted tree; on a tree that was never snapshotted they update the
// receiver in place and return it.
type PathTree struct {
	dirs   map[string]*PathTree
	blobs  map[string]blob
	shared bool
}

// NewPathTree returns an empty tree, the state of a branch before its
// first commit.
func NewPathTree() *PathTree {
	return &PathTree{dirs: map[string]*PathTree{}, blobs: map[string]blob{}}
}

// Snapshot returns a lazily-copied view of pt: cheap to call on every
// commit, since no actual copying happens until a subsequent Set/Remove on
// either the snapshot or its source mutates a shared node.
func (pt *PathTree) Snapshot() *PathTree {
	pt.markShared()
	return pt
}

func (pt *PathTree) markShared() {
	if pt.shared {
		return
	}
	pt.shared = true
	for _, d := range pt.dirs {
		d.markShared()
	}
}

// clone makes an unshared, one-level copy of pt so a mutation can proceed
// without affecting any other snapshot that still references pt.
func (pt *PathTree) clone() *PathTree {
	c := &PathTree{
		dirs:  make(map[string]*PathTree, len(pt.dirs)),
		blobs: make(map[string]blob, len(pt.blobs)),
	}
	for k, v := range pt.dirs {
		c.dirs[k] = v
	}
	for k, v := range pt.blobs {
		c.blobs[k] = v
	}
	return c
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segs = append(segs, path[start:])
	}
	return segs
}

// Set returns a tree with path pointing at (hash, mode), copying only the
// nodes along path whose current value is shared with another snapshot.
func (pt *PathTree) Set(path string, hash string, mode uint32) *PathTree {
	return pt.setSegs(splitPath(path), blob{hash: hash, mode: mode})
}

func (pt *PathTree) setSegs(segs []string, b blob) *PathTree {
	root := pt
	if root.shared {
		root = root.clone()
	}
	if len(segs) == 1 {
		root.blobs[segs[0]] = b
		return root
	}
	child, ok := root.dirs[segs[0]]
	if !ok {
		child = NewPathTree()
	}
	root.dirs[segs[0]] = child.setSegs(segs[1:], b)
	return root
}

// Remove returns a tree with path deleted, pruning now-empty directories.
func (pt *PathTree) Remove(path string) *PathTree {
	root, _ := pt.removeSegs(splitPath(path))
	return root
}

func (pt *PathTree) removeSegs(segs []string) (*PathTree, bool) {
	root := pt
	if root.shared {
		root = root.clone()
	}
	if len(segs) == 1 {
		delete(root.blobs, segs[0])
		return root, len(root.blobs) == 0 && len(root.dirs) == 0
	}
	child, ok := root.dirs[segs[0]]
	if !ok {
		return root, len(root.blobs) == 0 && len(root.dirs) == 0
	}
	newChild, empty := child.removeSegs(segs[1:])
	if empty {
		delete(root.dirs, segs[0])
	} else {
		root.dirs[segs[0]] = newChild
	}
	return root, len(root.blobs) == 0 && len(root.dirs) == 0
}

// entryNames returns this node's direct blob and subdirectory names,
// sorted, for deterministic tree-object construction.
func (pt *PathTree) entryNames() (blobNames, dirNames []string) {
	for name := range pt.blobs {
		blobNames = append(blobNames, name)
	}
	for name := range pt.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(blobNames)
	sort.Strings(dirNames)
	return
}
