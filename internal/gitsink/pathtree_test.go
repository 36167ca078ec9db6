package gitsink

import "testing"

func TestSnapshotIsolatesMutation(t *testing.T) {
	base := NewPathTree()
	base = base.Set("a/b.txt", "hash1", 0o100644)

	snap := base.Snapshot()
	mutated := snap.Set("a/c.txt", "hash2", 0o100644)

	if _, ok := base.dirs["a"].blobs["c.txt"]; ok {
		t.Fatalf("mutating the snapshot must not affect the original tree")
	}
	if _, ok := mutated.dirs["a"].blobs["c.txt"]; !ok {
		t.Fatalf("expected the mutated snapshot to contain the new blob")
	}
	if _, ok := mutated.dirs["a"].blobs["b.txt"]; !ok {
		t.Fatalf("expected the mutated snapshot to retain the original blob")
	}
}

func TestRemovePrunesEmptyDirectories(t *testing.T) {
	tree := NewPathTree()
	tree = tree.Set("a/b/c.txt", "hash1", 0o100644)
	tree = tree.Remove("a/b/c.txt")

	if _, ok := tree.dirs["a"]; ok {
		t.Fatalf("expected the now-empty 'a' directory to be pruned")
	}
}

func TestEntryNamesSorted(t *testing.T) {
	tree := NewPathTree()
	tree = tree.Set("b.txt", "h1", 0o100644)
	tree = tree.Set("a.txt", "h2", 0o100644)
	tree = tree.Set("sub/x.txt", "h3", 0o100644)

	blobNames, dirNames := tree.entryNames()
	if len(blobNames) != 2 || blobNames[0] != "a.txt" || blobNames[1] != "b.txt" {
		t.Fatalf("expected sorted blob names, got %v", blobNames)
	}
	if len(dirNames) != 1 || dirNames[0] != "sub" {
		t.Fatalf("expected one 'sub' directory, got %v", dirNames)
	}
}
