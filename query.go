package betree

import "context"

// Query walks from the root down to a leaf, returning the live value for
// key or KeyNotFound. At each internal node it scans the full upsert
// buffer for the highest-timestamp message matching key; such a message
// strictly supersedes anything further down the tree, since all messages
// carry monotonic timestamps assigned at ingress and only ever move
// downward from there.
func (t *Tree) Query(ctx context.Context, key uint32) uint32 {
	id := t.rootID
	for {
		n := t.resolve(ctx, id)
		if n.IsLeaf() {
			if idx := n.indexOfLeafKey(key); idx >= 0 {
				return n.LeafValue(idx)
			}
			return KeyNotFound
		}

		if u, ok := latestMatch(n, key); ok {
			if u.Kind == KindDelete {
				return KeyNotFound
			}
			return u.Parameter
		}

		id = n.Pointer(n.IndexOfKey(key))
	}
}

// latestMatch scans an internal node's upsert buffer for the message
// targeting key with the largest timestamp.
func latestMatch(n node, key uint32) (Upsert, bool) {
	var best Upsert
	found := false
	for i := 0; i < n.BufferSize(); i++ {
		u := n.Upsert(i)
		if u.Key != key {
			continue
		}
		if !found || u.Timestamp > best.Timestamp {
			best = u
			found = true
		}
	}
	return best, found
}
