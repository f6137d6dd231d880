package betree

import (
	"context"
	"testing"
)

func TestUpdateOverrideScenario(t *testing.T) {
	tr := newDefaultTestTree(t)
	ctx := context.Background()

	tr.Insert(ctx, 7, 70)
	if got := tr.Query(ctx, 7); got != 70 {
		t.Fatalf("query(7) = %d after insert, want 70", got)
	}

	for i := 0; i < 20; i++ {
		tr.Update(ctx, 7, uint32(i*100+71))
	}
	tr.Update(ctx, 7, 71)
	if got := tr.Query(ctx, 7); got != 71 {
		t.Fatalf("query(7) = %d after updates, want 71", got)
	}

	tr.Delete(ctx, 7)
	if got := tr.Query(ctx, 7); got != KeyNotFound {
		t.Fatalf("query(7) = %d after delete, want KeyNotFound", got)
	}
}
