package betree

import (
	"context"
	log "log/slog"
	"sort"

	"github.com/google/uuid"
)

// flushResult reports whether a flush or split step produced a new
// sibling that an ancestor must record as a pivot.
type flushResult struct {
	split    bool
	splitKey uint32
	newID    uint32
}

// fullFlush is the heart of the system: it makes room in the root's buffer
// by choosing the child that would drain the most messages, moving as
// large a chunk of the buffer as fits in one pass, recursing deeper first
// whenever the target child itself has no room, and propagating any leaf
// split all the way back up to the root, splitting internal nodes and
// growing a new root as needed.
//
// A single call drains exactly one flush region at whatever depth the
// target child settles at; it does not attempt to empty the whole tree of
// buffered messages, matching spec §4.4's per-call granularity.
func (t *Tree) fullFlush(ctx context.Context) {
	n := t.resolve(ctx, t.rootID)
	if n.BufferSize() == 0 {
		return
	}

	cascadeID := uuid.NewString()
	log.Debug("flush cascade start", "cascade", cascadeID, "root", t.rootID, "buffered", n.BufferSize())

	setupFlushRegion(n)
	t.mgr.MarkDirty(t.rootID)

	// owner tracks which node result belongs to: drainFlushRegion's own
	// cascade can relocate the root's flush region onto a fresh sibling if
	// draining it recurses deep enough to split the root itself, so the
	// final propagateSplit call must target wherever the region actually
	// settled, not t.rootID unconditionally.
	result, owner := t.drainFlushRegion(ctx, t.rootID)
	t.propagateSplit(ctx, owner, result)

	log.Debug("flush cascade done", "cascade", cascadeID, "root", t.rootID, "split", result.split)
}

// setupFlushRegion picks the child slot with the most buffered messages
// routed to it, partitions the buffer so those messages occupy the
// trailing region, and sorts that region descending by timestamp so the
// oldest message is always at the tail: every "take the oldest k" step
// downstream is then a plain slice of the end of the region, and older
// messages for a key always leave a node before newer ones.
func setupFlushRegion(n node) {
	assertf(n.FlushSize() == 0, n.id, "flush setup on node %d with a pending flush region", n.id)

	size := n.BufferSize()
	if size == 0 {
		return
	}

	counts := make([]int, n.p.Nc)
	targets := make([]int, size)
	for i := 0; i < size; i++ {
		c := n.IndexOfKey(n.Upsert(i).Key)
		targets[i] = c
		counts[c]++
	}

	best := 0
	for c := 1; c <= n.PivotSize(); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}

	kept := make([]Upsert, 0, size)
	moved := make([]Upsert, 0, counts[best])
	for i := 0; i < size; i++ {
		u := n.Upsert(i)
		if targets[i] == best {
			moved = append(moved, u)
		} else {
			kept = append(kept, u)
		}
	}
	sort.Slice(moved, func(i, j int) bool { return moved[i].Timestamp > moved[j].Timestamp })

	for i, u := range kept {
		n.setUpsert(i, u)
	}
	for i, u := range moved {
		n.setUpsert(len(kept)+i, u)
	}
	n.setFlushSize(len(moved))
}

// drainFlushRegion moves id's already-set-up flush region into its target
// child, recursing into the child first to make room whenever it lacks
// enough. It loops until id's flush region is fully drained (Fi/Fl-limited
// partial moves leave a shrunk but nonzero flush region that must be
// retried), and returns whatever split the eventual leaf application
// produced.
//
// It also returns the id result actually belongs to. That is id itself,
// except when draining recurses through drainOnce and that recursion's own
// ascent splits id and relocates its still-pending region onto a fresh
// sibling; the returned id follows the region there so a caller never acts
// on a stale, already-relocated node.
func (t *Tree) drainFlushRegion(ctx context.Context, id uint32) (flushResult, uint32) {
	for {
		n := t.resolve(ctx, id)
		flushSize := n.FlushSize()
		if flushSize == 0 {
			return flushResult{}, id
		}

		firstKey := n.Upsert(n.BufferSize() - flushSize).Key
		childSlot := n.IndexOfKey(firstKey)
		childID := n.Pointer(childSlot)
		child := t.resolve(ctx, childID)

		if child.IsLeaf() {
			return t.drainIntoLeaf(ctx, id, childID), id
		}

		empty := n.p.Nu - child.BufferSize()
		switch {
		case empty >= flushSize:
			t.moveMessages(ctx, id, childID, flushSize)
		case empty >= n.p.Fi:
			t.moveMessages(ctx, id, childID, n.p.Fi)
		default:
			id = t.drainOnce(ctx, childID, id)
		}
	}
}

// drainOnce is drainFlushRegion's recursive counterpart for making room in
// a full internal child: it runs one full setup+drain+propagate cycle on
// that child, exactly as fullFlush does for the root, before the caller
// retries its own pending move against it.
//
// That cycle's propagateSplit can ripple all the way up into callerID
// (childID's parent) and split it, relocating callerID's own paused flush
// region onto a new sibling in the process. drainOnce returns callerID's
// id updated to follow that relocation, so the caller's own loop resumes
// against the region's real location instead of a now-empty husk.
func (t *Tree) drainOnce(ctx context.Context, childID, callerID uint32) uint32 {
	n := t.resolve(ctx, childID)
	if n.BufferSize() == 0 {
		return callerID
	}
	setupFlushRegion(n)
	t.mgr.MarkDirty(childID)

	result, owner := t.drainFlushRegion(ctx, childID)
	relocations := t.propagateSplit(ctx, owner, result)
	for _, r := range relocations {
		if r.from == callerID {
			callerID = r.to
		}
	}
	return callerID
}

// moveMessages relocates the oldest count messages of id's flush region
// (which are always its trailing count entries) into childID's buffer.
func (t *Tree) moveMessages(ctx context.Context, id, childID uint32, count int) {
	n := t.resolve(ctx, id)
	size := n.BufferSize()
	flushSize := n.FlushSize()
	assertf(count <= flushSize, id, "moving %d messages exceeds flush region of %d", count, flushSize)

	start := size - count
	moved := make([]Upsert, count)
	for i := 0; i < count; i++ {
		moved[i] = n.Upsert(start + i)
	}

	child := t.resolve(ctx, childID)
	childSize := child.BufferSize()
	assertf(childSize+count <= child.p.Nu, childID, "flush overflow: child %d can't hold %d more messages", childID, count)
	for i, u := range moved {
		child.setUpsert(childSize+i, u)
	}
	child.setBufferSize(childSize + count)
	t.mgr.MarkDirty(childID)

	n = t.resolve(ctx, id)
	n.setBufferSize(size - count)
	n.setFlushSize(flushSize - count)
	t.mgr.MarkDirty(id)
}

// drainIntoLeaf fully applies id's flush region to leafID, splitting the
// leaf and continuing onto whichever half now owns the remaining messages
// whenever it fills. It returns the split produced by the last leaf split,
// if any.
func (t *Tree) drainIntoLeaf(ctx context.Context, id, leafID uint32) flushResult {
	var last flushResult
	for {
		n := t.resolve(ctx, id)
		flushSize := n.FlushSize()
		if flushSize == 0 {
			return last
		}

		k := flushSize
		if k > n.p.Fl {
			k = n.p.Fl
		}
		size := n.BufferSize()
		msgs := make([]Upsert, k)
		for i := 0; i < k; i++ {
			msgs[i] = n.Upsert(size - k + i)
		}

		result := t.applyToLeaf(ctx, leafID, msgs)
		if result.split {
			last = result
		}

		n = t.resolve(ctx, id)
		n.setBufferSize(size - k)
		n.setFlushSize(flushSize - k)
		t.mgr.MarkDirty(id)
	}
}

// applyToLeaf consumes msgs oldest-first (from the tail), applying each to
// leafID. Whenever a message fills the leaf to capacity, the leaf is split
// immediately and the remaining messages continue against whichever half
// now owns their key range.
func (t *Tree) applyToLeaf(ctx context.Context, leafID uint32, msgs []Upsert) flushResult {
	var result flushResult
	for i := len(msgs) - 1; i >= 0; i-- {
		leaf := t.resolve(ctx, leafID)
		applyOneToLeaf(leaf, msgs[i])
		t.mgr.MarkDirty(leafID)

		leaf = t.resolve(ctx, leafID)
		if leaf.LeafSize() == leaf.p.Nd {
			splitKey, newID := t.splitLeaf(ctx, leafID)
			result = flushResult{split: true, splitKey: splitKey, newID: newID}
			if i > 0 && msgs[i-1].Key >= splitKey {
				leafID = newID
			}
		}
	}
	return result
}

// applyOneToLeaf implements UpsertLeaf's single-message semantics.
// Violated preconditions (re-inserting a live key, updating or deleting an
// absent one) are logical errors surfaced fatally.
func applyOneToLeaf(leaf node, u Upsert) {
	switch u.Kind {
	case KindInsert:
		if idx := leaf.indexOfLeafKey(u.Key); idx >= 0 {
			fatalf(LogicalPrecondition, u.Key, "insert of already-present key %d", u.Key)
		}
		size := leaf.LeafSize()
		assertf(size < leaf.p.Nd, leaf.id, "leaf %d overflowed past capacity", leaf.id)
		leaf.setLeafKey(size, u.Key)
		leaf.setLeafValue(size, u.Parameter)
		leaf.setLeafSize(size + 1)
	case KindUpdate:
		idx := leaf.indexOfLeafKey(u.Key)
		if idx < 0 {
			fatalf(LogicalPrecondition, u.Key, "update of absent key %d", u.Key)
		}
		leaf.setLeafValue(idx, u.Parameter)
	case KindDelete:
		idx := leaf.indexOfLeafKey(u.Key)
		if idx < 0 {
			fatalf(LogicalPrecondition, u.Key, "delete of absent key %d", u.Key)
		}
		size := leaf.LeafSize()
		for i := idx; i < size-1; i++ {
			leaf.setLeafKey(i, leaf.LeafKey(i+1))
			leaf.setLeafValue(i, leaf.LeafValue(i+1))
		}
		leaf.setLeafSize(size - 1)
	default:
		fatalf(LogicalPrecondition, u.Key, "invalid upsert kind %d for key %d", u.Kind, u.Key)
	}
}
