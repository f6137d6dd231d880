package betree

import (
	"context"
	"testing"

	"github.com/go-betree/betree/block"
)

func newTestTree(t *testing.T, params Params) *Tree {
	t.Helper()
	store, err := block.NewLocalStore(params.B, t.TempDir())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	tr, err := Open(context.Background(), store, Options{Params: params})
	if err != nil {
		t.Fatalf("open tree: %v", err)
	}
	t.Cleanup(func() { tr.Close(context.Background()) })
	return tr
}

func newDefaultTestTree(t *testing.T) *Tree {
	return newTestTree(t, DefaultParams())
}

// internalSnapshot is a copy of one internal node's pivots/pointers/ids, so
// callers can walk the whole tree without holding a node cursor across the
// resolve calls that visiting its children requires.
type internalSnapshot struct {
	id       uint32
	parentID uint32
	pivots   []uint32
	pointers []uint32
	bufSize  int
	flushSize int
}

// walkInternal visits every internal node reachable from the root and calls
// fn with a snapshot of it, so property tests can assert invariants that
// span the whole tree without duplicating the traversal in every test.
func walkInternal(t *testing.T, tr *Tree, fn func(s internalSnapshot)) {
	t.Helper()
	ctx := context.Background()
	var visit func(id uint32)
	visit = func(id uint32) {
		n := tr.resolve(ctx, id)
		if n.IsLeaf() {
			return
		}
		s := internalSnapshot{
			id:        id,
			parentID:  n.ParentID(),
			bufSize:   n.BufferSize(),
			flushSize: n.FlushSize(),
		}
		for i := 0; i < n.PivotSize(); i++ {
			s.pivots = append(s.pivots, n.Pivot(i))
		}
		for i := 0; i <= n.PivotSize(); i++ {
			s.pointers = append(s.pointers, n.Pointer(i))
		}
		fn(s)
		for _, childID := range s.pointers {
			visit(childID)
		}
	}
	visit(tr.rootID)
}
