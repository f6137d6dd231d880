package betree

import "context"

// Insert adds key with value. Fatal if key already exists, though that
// violation may only surface once the message reaches a leaf (spec §7).
func (t *Tree) Insert(ctx context.Context, key, value uint32) {
	t.upsert(ctx, key, KindInsert, value)
}

// Update overwrites key's value. Fatal if key is absent, deferred to leaf
// application the same way Insert's precondition is.
func (t *Tree) Update(ctx context.Context, key, value uint32) {
	t.upsert(ctx, key, KindUpdate, value)
}

// Delete removes key. Fatal if key is absent, deferred to leaf application.
func (t *Tree) Delete(ctx context.Context, key uint32) {
	t.upsert(ctx, key, KindDelete, 0)
}

// upsert appends a message to the root's buffer, running a full flush
// first if the root has no room. This is the sole entry point for message
// ingress: spec §3 invariant 3 restricts direct buffer appends to the root.
func (t *Tree) upsert(ctx context.Context, key uint32, kind Kind, parameter uint32) {
	assertf(key != 0 && key != KeyNotFound, key, "key %d is reserved", key)

	root := t.resolve(ctx, t.rootID)
	if root.BufferSize() == root.p.Nu {
		t.fullFlush(ctx)
	}

	t.globalTS++
	root = t.resolve(ctx, t.rootID)
	size := root.BufferSize()
	root.setUpsert(size, Upsert{Key: key, Kind: kind, Parameter: parameter, Timestamp: t.globalTS})
	root.setBufferSize(size + 1)
	t.mgr.MarkDirty(t.rootID)
}
