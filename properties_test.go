package betree

import (
	"context"
	"testing"
)

// TestPivotInvariant checks that every internal node's pivots are strictly
// increasing after 20,000 ascending inserts, at every level of the tree.
func TestPivotInvariant(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()
	for i := uint32(1); i <= 20000; i++ {
		tr.Insert(ctx, i, i*10)
	}

	walkInternal(t, tr, func(s internalSnapshot) {
		for i := 1; i < len(s.pivots); i++ {
			if s.pivots[i-1] >= s.pivots[i] {
				t.Fatalf("node %d: pivots not strictly increasing at %d: %d >= %d",
					s.id, i, s.pivots[i-1], s.pivots[i])
			}
		}
	})
}

// TestBufferCapacity checks that no internal node's buffer or flush region
// ever exceeds its capacity after 20,000 ascending inserts.
func TestBufferCapacity(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()
	for i := uint32(1); i <= 20000; i++ {
		tr.Insert(ctx, i, i)
	}

	walkInternal(t, tr, func(s internalSnapshot) {
		if s.bufSize > tr.p.Nu {
			t.Fatalf("node %d: buffer size %d exceeds Nu %d", s.id, s.bufSize, tr.p.Nu)
		}
		if s.flushSize > s.bufSize {
			t.Fatalf("node %d: flush size %d exceeds buffer size %d", s.id, s.flushSize, s.bufSize)
		}
	})
}

// TestParentInvariant checks that every non-root node's parent_id names a
// node whose pointer array actually contains it, and that no id is aliased
// by more than one pointer slot.
func TestParentInvariant(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()
	for i := uint32(1); i <= 20000; i++ {
		tr.Insert(ctx, i, i)
	}

	seen := map[uint32]int{}
	byID := map[uint32]internalSnapshot{}
	walkInternal(t, tr, func(s internalSnapshot) {
		byID[s.id] = s
		for _, childID := range s.pointers {
			seen[childID]++
		}
	})

	for id, count := range seen {
		if count != 1 {
			t.Fatalf("node %d referenced by %d pointer slots, want 1", id, count)
		}
		n := tr.resolve(ctx, id)
		parentID := n.ParentID()
		if parentID == 0 {
			continue
		}
		parent, ok := byID[parentID]
		if !ok {
			t.Fatalf("node %d claims parent %d, which was never visited as an internal node", id, parentID)
		}
		found := false
		for _, childID := range parent.pointers {
			if childID == id {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("node %d claims parent %d, but %d does not point back to it", id, parentID, parentID)
		}
	}
}

// TestTimestampMonotonicity checks that the global timestamp strictly
// increases with every ingress call.
func TestTimestampMonotonicity(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()
	last := tr.globalTS
	for i := uint32(1); i <= 5000; i++ {
		tr.Insert(ctx, i, i)
		if tr.globalTS <= last {
			t.Fatalf("timestamp did not advance at key %d: %d <= %d", i, tr.globalTS, last)
		}
		last = tr.globalTS
	}
}

// TestQueryIdempotence checks that repeated queries of the same key return
// the same result.
func TestQueryIdempotence(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()
	for i := uint32(1); i <= 500; i++ {
		tr.Insert(ctx, i, i*3)
	}

	for i := uint32(1); i <= 500; i++ {
		want := tr.Query(ctx, i)
		for j := 0; j < 5; j++ {
			if got := tr.Query(ctx, i); got != want {
				t.Fatalf("query(%d) not idempotent: got %d, want %d", i, got, want)
			}
		}
	}
}

// TestPointReadConsistency replays a mixed insert/update/delete sequence
// against both the tree and a plain map, checking every touched key.
func TestPointReadConsistency(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()
	reference := map[uint32]uint32{}

	for i := uint32(1); i <= 3000; i++ {
		tr.Insert(ctx, i, i)
		reference[i] = i
	}
	for i := uint32(1); i <= 3000; i += 2 {
		tr.Update(ctx, i, i+1)
		reference[i] = i + 1
	}
	for i := uint32(1); i <= 3000; i += 3 {
		tr.Delete(ctx, i)
		delete(reference, i)
	}

	for i := uint32(1); i <= 3000; i++ {
		want, ok := reference[i]
		if !ok {
			want = KeyNotFound
		}
		if got := tr.Query(ctx, i); got != want {
			t.Fatalf("query(%d) = %d, want %d", i, got, want)
		}
	}
}
