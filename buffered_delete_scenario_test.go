package betree

import (
	"context"
	"testing"
)

// TestBufferedDeleteScenario inserts a key and deletes it while both
// messages still sit unflushed in the root's buffer, well short of the
// threshold that would trigger a cascade. The query must resolve to
// KeyNotFound purely from buffer inspection, never touching a leaf.
func TestBufferedDeleteScenario(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()

	tr.Insert(ctx, 42, 4242)
	tr.Delete(ctx, 42)

	root := tr.resolve(ctx, tr.rootID)
	if root.BufferSize() != 2 {
		t.Fatalf("expected both messages still buffered, buffer size = %d", root.BufferSize())
	}
	if root.IsLeaf() {
		t.Fatalf("expected root to still be an internal node holding the buffer")
	}

	if got := tr.Query(ctx, 42); got != KeyNotFound {
		t.Fatalf("query(42) = %d, want KeyNotFound from buffered tombstone", got)
	}
}
