package betree

import (
	"context"
	"testing"

	"github.com/go-betree/betree/block"
)

// TestReopenPersistence closes a tree after a batch of writes, including
// enough inserts to force at least one flush and split, then reopens the
// same on-disk directory and checks every key still resolves correctly.
// This exercises meta persistence (root id, page counter, timestamp
// counter) across a real Close/Open cycle rather than a single session.
func TestReopenPersistence(t *testing.T) {
	dir := t.TempDir()
	params := DefaultParams()
	ctx := context.Background()

	store, err := block.NewLocalStore(params.B, dir)
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	tr, err := Open(ctx, store, Options{Params: params})
	if err != nil {
		t.Fatalf("open tree: %v", err)
	}

	const size = 5000
	reference := map[uint32]uint32{}
	for i := uint32(1); i <= size; i++ {
		tr.Insert(ctx, i, i*7)
		reference[i] = i * 7
	}
	tr.Delete(ctx, 1)
	delete(reference, 1)

	if err := tr.Close(ctx); err != nil {
		t.Fatalf("close tree: %v", err)
	}

	store2, err := block.NewLocalStore(params.B, dir)
	if err != nil {
		t.Fatalf("reopen local store: %v", err)
	}
	tr2, err := Open(ctx, store2, Options{Params: params})
	if err != nil {
		t.Fatalf("reopen tree: %v", err)
	}
	defer tr2.Close(ctx)

	if got := tr2.Query(ctx, 1); got != KeyNotFound {
		t.Fatalf("query(1) = %d after reopen, want KeyNotFound (deleted before close)", got)
	}
	for k, want := range reference {
		if got := tr2.Query(ctx, k); got != want {
			t.Fatalf("query(%d) = %d after reopen, want %d", k, got, want)
		}
	}

	tr2.Insert(ctx, size+1, 999)
	if got := tr2.Query(ctx, size+1); got != 999 {
		t.Fatalf("query(%d) = %d after post-reopen insert, want 999", size+1, got)
	}
}
