package betree

import (
	"context"
	"encoding/binary"
	"errors"
	"math"

	"github.com/go-betree/betree/block"
	"github.com/go-betree/betree/lrucache"
)

// rootSentinel upper-bounds every key a caller may legitimately insert,
// used as the sole pivot of a freshly seeded tree. MaxUint32-1 leaves the
// entire practical key space below it and keeps KeyNotFound (MaxUint32)
// distinct from any pivot value.
const rootSentinel = math.MaxUint32 - 1

// metaPageID stores the tree's root id, page id counter, and timestamp
// counter directly through Store, bypassing Manager's page cache: 0 is
// already claimed as the "no parent" / "no eviction" sentinel throughout
// the block and lrucache packages, so metadata needs an id CreateBlock
// will never issue. CreateBlock counts up from 1, so the far end of the
// id space is never reached by real page allocation.
const metaPageID = ^uint32(0)

// Tree is a persistent, block-backed Bε-tree keyed by fixed 32-bit
// unsigned integers. It runs single-threaded: no operation suspends
// partway through, and callers must not invoke a Tree from more than one
// goroutine concurrently.
type Tree struct {
	mgr      *block.Manager
	store    block.Store
	rootID   uint32
	p        Params
	globalTS uint32
}

// Options configures Open.
type Options struct {
	Params Params
	Guard  lrucache.Guard
}

// DefaultOptions returns Options with DefaultParams and no eviction guard.
func DefaultOptions() Options {
	return Options{Params: DefaultParams()}
}

// Open opens (or, if store holds no metadata yet, creates) a tree backed
// by store. store is assumed dedicated to this tree; nothing else should
// write page ids into it.
func Open(ctx context.Context, store block.Store, opts Options) (*Tree, error) {
	p := opts.Params
	if p.B == 0 {
		p = DefaultParams()
	}
	mgr := block.New(p.B, p.M, store)
	if opts.Guard != nil {
		mgr.SetGuard(opts.Guard)
	}

	t := &Tree{mgr: mgr, store: store, p: p}

	meta, err := readMeta(ctx, store, p.B)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		t.seed(ctx)
		t.saveMeta(ctx)
	} else {
		t.rootID = meta.rootID
		t.globalTS = meta.globalTS
		mgr.SetCounter(meta.counter)
	}
	return t, nil
}

// Close flushes every resident dirty page and the tree's metadata, then
// releases the backing store.
func (t *Tree) Close(ctx context.Context) error {
	t.saveMeta(ctx)
	return t.mgr.Close(ctx)
}

// seed pre-allocates an internal root and two empty leaf children joined
// by a single sentinel pivot.
func (t *Tree) seed(ctx context.Context) {
	leftID := t.allocateLeaf(ctx, 0)
	rightID := t.allocateLeaf(ctx, 0)
	rootID := t.mgr.CreateBlock(ctx)

	root := t.resolve(ctx, rootID)
	root.SetParentID(0)
	root.SetIsLeaf(false)
	root.setBufferSize(0)
	root.setFlushSize(0)
	root.setPivot(0, rootSentinel)
	root.setPointer(0, leftID)
	root.setPointer(1, rightID)
	root.setPivotSize(1)
	t.mgr.MarkDirty(rootID)

	left := t.resolve(ctx, leftID)
	left.SetParentID(rootID)
	t.mgr.MarkDirty(leftID)

	right := t.resolve(ctx, rightID)
	right.SetParentID(rootID)
	t.mgr.MarkDirty(rightID)

	t.rootID = rootID
}

// resolve loads id's page into a slot and wraps it as a node. The returned
// value aliases Manager's memory and is only valid until the next resolve
// of a different id, which may evict it.
func (t *Tree) resolve(ctx context.Context, id uint32) node {
	return wrapNode(id, t.mgr.OpenBlock(ctx, id), t.p)
}

func (t *Tree) allocateLeaf(ctx context.Context, parentID uint32) uint32 {
	id := t.mgr.CreateBlock(ctx)
	n := t.resolve(ctx, id)
	n.SetParentID(parentID)
	n.SetIsLeaf(true)
	n.setLeafSize(0)
	t.mgr.MarkDirty(id)
	return id
}

func (t *Tree) allocateInternal(ctx context.Context, parentID uint32) uint32 {
	id := t.mgr.CreateBlock(ctx)
	n := t.resolve(ctx, id)
	n.SetParentID(parentID)
	n.SetIsLeaf(false)
	n.setBufferSize(0)
	n.setFlushSize(0)
	n.setPivotSize(0)
	t.mgr.MarkDirty(id)
	return id
}

type treeMeta struct {
	rootID   uint32
	counter  uint32
	globalTS uint32
}

func readMeta(ctx context.Context, store block.Store, pageSize int) (*treeMeta, error) {
	buf, err := store.Read(ctx, metaPageID)
	if err != nil {
		var notFound block.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(buf) < 12 {
		return nil, nil
	}
	m := &treeMeta{
		rootID:   binary.LittleEndian.Uint32(buf[0:4]),
		counter:  binary.LittleEndian.Uint32(buf[4:8]),
		globalTS: binary.LittleEndian.Uint32(buf[8:12]),
	}
	if m.rootID == 0 {
		return nil, nil
	}
	return m, nil
}

func (t *Tree) saveMeta(ctx context.Context) {
	buf := make([]byte, t.p.B)
	binary.LittleEndian.PutUint32(buf[0:4], t.rootID)
	binary.LittleEndian.PutUint32(buf[4:8], t.mgr.Counter())
	binary.LittleEndian.PutUint32(buf[8:12], t.globalTS)
	if err := t.store.Create(ctx, metaPageID); err != nil {
		ioFatal(metaPageID, "create metadata", err)
	}
	if err := t.store.Write(ctx, metaPageID, buf); err != nil {
		ioFatal(metaPageID, "write metadata", err)
	}
}

func ioFatal(id uint32, op string, err error) {
	fatalf(IOFailure, id, "%s: %v", op, err)
}

// Debug returns a snapshot of tree-level counters useful for an admin
// surface's /stats endpoint: resident page count and I/O counters from the
// block manager, the current root id and global timestamp, and the tree's
// height.
type Debug struct {
	RootID     uint32
	Height     int
	GlobalTS   uint32
	Resident   int
	Capacity   int
	NumReads   int64
	NumWrites  int64
	CacheHits  int64
	CacheMisses int64
}

func (t *Tree) Debug() Debug {
	return Debug{
		RootID:      t.rootID,
		Height:      t.Height(context.Background()),
		GlobalTS:    t.globalTS,
		Resident:    t.mgr.Resident(),
		Capacity:    t.mgr.Capacity(),
		NumReads:    t.mgr.NumReads(),
		NumWrites:   t.mgr.NumWrites(),
		CacheHits:   t.mgr.CacheHits(),
		CacheMisses: t.mgr.CacheMisses(),
	}
}

// DumpRoot renders the root page's Dump summary, for the admin surface's
// verbose /stats mode.
func (t *Tree) DumpRoot(ctx context.Context) string {
	return t.resolve(ctx, t.rootID).Dump()
}

// Height walks the leftmost path from the root to a leaf and returns the
// number of internal levels crossed (0 when the root is itself a leaf,
// which never happens after Open but is handled for robustness). Used by
// tests asserting a split reached a given depth and by the admin /stats
// endpoint; not one of the tree's four core operations.
func (t *Tree) Height(ctx context.Context) int {
	id := t.rootID
	height := 0
	for {
		n := t.resolve(ctx, id)
		if n.IsLeaf() {
			return height
		}
		height++
		id = n.Pointer(0)
	}
}
