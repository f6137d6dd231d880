package betree

import (
	"context"
	"testing"
)

// TestForcedEvictionScenario runs with M=2 resident pages so nearly every
// tree access requires an eviction, and checks that results still match a
// reference map despite the constant churn.
func TestForcedEvictionScenario(t *testing.T) {
	params := NewParams(4096, 2)
	tr := newTestTree(t, params)
	ctx := context.Background()

	reference := map[uint32]uint32{}
	const count = 5000
	for i := uint32(1); i <= count; i++ {
		tr.Insert(ctx, i, i*2)
		reference[i] = i * 2
	}

	for k, want := range reference {
		if got := tr.Query(ctx, k); got != want {
			t.Fatalf("query(%d) = %d, want %d", k, got, want)
		}
	}

	if tr.mgr.NumWrites() == 0 {
		t.Fatalf("expected at least one page write-back with M=2, got 0")
	}
	if tr.mgr.Resident() > tr.mgr.Capacity() {
		t.Fatalf("resident %d exceeds capacity %d", tr.mgr.Resident(), tr.mgr.Capacity())
	}
}
