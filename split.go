package betree

import (
	"context"
	"sort"
)

// splitLeaf sorts the leaf's entries by key, allocates a sibling with the
// same parent, and moves the upper half into it. It returns the sibling's
// first key (the split key propagated to the parent) and its id.
func (t *Tree) splitLeaf(ctx context.Context, id uint32) (uint32, uint32) {
	n := t.resolve(ctx, id)
	size := n.LeafSize()

	type pair struct{ key, value uint32 }
	pairs := make([]pair, size)
	for i := 0; i < size; i++ {
		pairs[i] = pair{n.LeafKey(i), n.LeafValue(i)}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	mid := size / 2
	newID := t.allocateLeaf(ctx, n.ParentID())

	newLeaf := t.resolve(ctx, newID)
	for i := mid; i < size; i++ {
		newLeaf.setLeafKey(i-mid, pairs[i].key)
		newLeaf.setLeafValue(i-mid, pairs[i].value)
	}
	newLeaf.setLeafSize(size - mid)
	t.mgr.MarkDirty(newID)

	n = t.resolve(ctx, id)
	for i := 0; i < mid; i++ {
		n.setLeafKey(i, pairs[i].key)
		n.setLeafValue(i, pairs[i].value)
	}
	n.setLeafSize(mid)
	t.mgr.MarkDirty(id)

	return pairs[mid].key, newID
}

// splitInternal halves a full pivot array, moving the upper half (and the
// buffered messages that key beyond the split point) to a new sibling with
// the same parent. Precondition: pivots.size == Np.
//
// A split can relocate id's own pending flush region to the new sibling
// (redistributeBuffer decides this by the region's target key); movedFlush
// and flushHome report that so a caller mid-cascade on id can follow its
// region to its new home instead of finding FlushSize()==0 and concluding,
// wrongly, that the region was drained.
func (t *Tree) splitInternal(ctx context.Context, id uint32) (splitKey, newID uint32, movedFlush bool, flushHome uint32) {
	n := t.resolve(ctx, id)
	np := n.p.Np
	assertf(n.PivotSize() == np, id, "splitInternal precondition violated on node %d", id)

	m := (np + 2) / 2 // ceil((Np+1)/2)
	parentID := n.ParentID()

	splitKey = n.Pivot(m - 1)
	movedPivots := make([]uint32, np-m)
	for i := range movedPivots {
		movedPivots[i] = n.Pivot(m + i)
	}
	movedPointers := make([]uint32, np-m+1)
	for i := range movedPointers {
		movedPointers[i] = n.Pointer(m + i)
	}

	newID = t.allocateInternal(ctx, parentID)
	newNode := t.resolve(ctx, newID)
	for i, k := range movedPivots {
		newNode.setPivot(i, k)
	}
	for i, ptr := range movedPointers {
		newNode.setPointer(i, ptr)
	}
	newNode.setPivotSize(len(movedPivots))
	t.mgr.MarkDirty(newID)

	for _, childID := range movedPointers {
		child := t.resolve(ctx, childID)
		child.SetParentID(newID)
		t.mgr.MarkDirty(childID)
	}

	n = t.resolve(ctx, id)
	n.setPivotSize(m - 1)
	t.mgr.MarkDirty(id)

	movedFlush, flushHome = t.redistributeBuffer(ctx, id, newID, splitKey)

	return splitKey, newID, movedFlush, flushHome
}

// redistributeBuffer moves every buffered message keyed at or past
// splitKey to the new sibling. The flush region, guaranteed to target a
// single child, is checked once via its first entry and relocated whole
// when it belongs on the new side; it cannot straddle the split. Reports
// whether the flush region moved, and if so, its new home (newID).
func (t *Tree) redistributeBuffer(ctx context.Context, id, newID, splitKey uint32) (movedFlush bool, flushHome uint32) {
	n := t.resolve(ctx, id)
	size := n.BufferSize()
	flushSize := n.FlushSize()
	nonFlushCount := size - flushSize

	kept := make([]Upsert, 0, size)
	moved := make([]Upsert, 0, size)
	for i := 0; i < nonFlushCount; i++ {
		u := n.Upsert(i)
		if u.Key >= splitKey {
			moved = append(moved, u)
		} else {
			kept = append(kept, u)
		}
	}

	var flushMsgs []Upsert
	if flushSize > 0 {
		if n.Upsert(nonFlushCount).Key >= splitKey {
			movedFlush = true
			for i := 0; i < flushSize; i++ {
				flushMsgs = append(flushMsgs, n.Upsert(nonFlushCount+i))
			}
		} else {
			for i := 0; i < flushSize; i++ {
				kept = append(kept, n.Upsert(nonFlushCount+i))
			}
		}
	}

	newNode := t.resolve(ctx, newID)
	newSize := 0
	for _, u := range moved {
		newNode.setUpsert(newSize, u)
		newSize++
	}
	if movedFlush {
		for _, u := range flushMsgs {
			newNode.setUpsert(newSize, u)
			newSize++
		}
		newNode.setFlushSize(len(flushMsgs))
	}
	newNode.setBufferSize(newSize)
	t.mgr.MarkDirty(newID)

	n = t.resolve(ctx, id)
	for i, u := range kept {
		n.setUpsert(i, u)
	}
	n.setBufferSize(len(kept))
	if movedFlush {
		n.setFlushSize(0)
		flushHome = newID
	}
	t.mgr.MarkDirty(id)

	return movedFlush, flushHome
}

// addPivot inserts (splitKey, newID) into id's pivot/pointer arrays at the
// position IndexOfKey resolves for splitKey. It reports whether the
// insertion filled the node to Np pivots, requiring the caller to split it.
func (t *Tree) addPivot(ctx context.Context, id uint32, splitKey, newID uint32) bool {
	n := t.resolve(ctx, id)
	size := n.PivotSize()
	assertf(size < n.p.Np, id, "addPivot on node %d already at pivot capacity", id)

	pos := n.IndexOfKey(splitKey)
	for i := size; i > pos; i-- {
		n.setPivot(i, n.Pivot(i-1))
	}
	for i := size + 1; i > pos+1; i-- {
		n.setPointer(i, n.Pointer(i-1))
	}
	n.setPivot(pos, splitKey)
	n.setPointer(pos+1, newID)
	n.setPivotSize(size + 1)
	t.mgr.MarkDirty(id)

	return size+1 == n.p.Np
}

// flushRelocation records that a split moved the pending flush region of
// node from onto node to. propagateSplit can split a node whose flush
// region belongs to a cascade still paused higher up the call stack (a
// drainFlushRegion loop waiting on this ascent to finish); reporting every
// relocation lets that paused loop follow its region to its new home
// instead of finding FlushSize()==0 and wrongly concluding it drained.
type flushRelocation struct {
	from, to uint32
}

// propagateSplit ascends from id, recording (splitKey, newID) as a pivot
// at each level and splitting that level in turn if it fills, all the way
// to a fresh root if the split reaches the top.
func (t *Tree) propagateSplit(ctx context.Context, id uint32, result flushResult) []flushRelocation {
	var relocations []flushRelocation
	for result.split {
		atCapacity := t.addPivot(ctx, id, result.splitKey, result.newID)
		if !atCapacity {
			return relocations
		}

		splitKey, newID, movedFlush, flushHome := t.splitInternal(ctx, id)
		if movedFlush {
			relocations = append(relocations, flushRelocation{from: id, to: flushHome})
		}
		n := t.resolve(ctx, id)
		parentID := n.ParentID()
		if parentID == 0 {
			t.createNewRoot(ctx, splitKey, id, newID)
			return relocations
		}

		result = flushResult{split: true, splitKey: splitKey, newID: newID}
		id = parentID
	}
	return relocations
}

// createNewRoot grows the tree by one level: a fresh internal node with a
// single pivot separating the old root from its new sibling becomes root.
func (t *Tree) createNewRoot(ctx context.Context, splitKey, oldRootID, newID uint32) {
	newRootID := t.mgr.CreateBlock(ctx)
	root := t.resolve(ctx, newRootID)
	root.SetParentID(0)
	root.SetIsLeaf(false)
	root.setBufferSize(0)
	root.setFlushSize(0)
	root.setPivot(0, splitKey)
	root.setPointer(0, oldRootID)
	root.setPointer(1, newID)
	root.setPivotSize(1)
	t.mgr.MarkDirty(newRootID)

	old := t.resolve(ctx, oldRootID)
	old.SetParentID(newRootID)
	t.mgr.MarkDirty(oldRootID)

	sibling := t.resolve(ctx, newID)
	sibling.SetParentID(newRootID)
	t.mgr.MarkDirty(newID)

	t.rootID = newRootID
}
