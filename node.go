package betree

import (
	"encoding/binary"
	"fmt"
)

// node is a transient cursor over a page buffer: (page id, byte slice). The
// slice aliases memory owned by the block manager's slot array, so a node
// value is only valid until the next operation that might evict its page;
// callers must re-open (re-resolve) after any such operation, per the
// "page guard" design note in spec §9. node never copies the page; every
// accessor reads or writes directly through buf at an offset derived from
// Params, matching the "treat the page as a raw byte window" guidance.
type node struct {
	id  uint32
	buf []byte // length p.B
	p   Params
}

func wrapNode(id uint32, buf []byte, p Params) node {
	assertf(len(buf) == p.B, id, "page %d buffer length %d != B %d", id, len(buf), p.B)
	return node{id: id, buf: buf, p: p}
}

// ---- header (offset 0, size H) ----

func (n node) ParentID() uint32 {
	return binary.LittleEndian.Uint32(n.buf[0:4])
}

func (n node) SetParentID(id uint32) {
	binary.LittleEndian.PutUint32(n.buf[0:4], id)
}

func (n node) IsLeaf() bool {
	return binary.LittleEndian.Uint32(n.buf[4:8]) != 0
}

func (n node) SetIsLeaf(leaf bool) {
	v := uint32(0)
	if leaf {
		v = 1
	}
	binary.LittleEndian.PutUint32(n.buf[4:8], v)
}

func (n node) IsRoot() bool { return n.ParentID() == 0 }

// payload begins right after the header.
const payloadOffset = headerSize

// ---- leaf payload: size:u32; keys[Nd]:u32; values[Nd]:u32 ----

func (n node) leafSizeOffset() int   { return payloadOffset }
func (n node) leafKeysOffset() int   { return payloadOffset + 4 }
func (n node) leafValuesOffset(p Params) int {
	return n.leafKeysOffset() + p.Nd*4
}

func (n node) LeafSize() int {
	return int(binary.LittleEndian.Uint32(n.buf[n.leafSizeOffset():]))
}

func (n node) setLeafSize(size int) {
	binary.LittleEndian.PutUint32(n.buf[n.leafSizeOffset():], uint32(size))
}

func (n node) LeafKey(i int) uint32 {
	off := n.leafKeysOffset() + i*4
	return binary.LittleEndian.Uint32(n.buf[off:])
}

func (n node) setLeafKey(i int, key uint32) {
	off := n.leafKeysOffset() + i*4
	binary.LittleEndian.PutUint32(n.buf[off:], key)
}

func (n node) LeafValue(i int) uint32 {
	off := n.leafValuesOffset(n.p) + i*4
	return binary.LittleEndian.Uint32(n.buf[off:])
}

func (n node) setLeafValue(i int, value uint32) {
	off := n.leafValuesOffset(n.p) + i*4
	binary.LittleEndian.PutUint32(n.buf[off:], value)
}

// indexOfLeafKey linearly scans a leaf's unsorted key array, returning -1
// if key is absent.
func (n node) indexOfLeafKey(key uint32) int {
	for i := 0; i < n.LeafSize(); i++ {
		if n.LeafKey(i) == key {
			return i
		}
	}
	return -1
}

// ---- internal payload: upsert buffer, then pivot block ----

func (n node) bufSizeOffset() int      { return payloadOffset }
func (n node) bufFlushSizeOffset() int { return payloadOffset + 4 }
func (n node) bufEntriesOffset() int   { return payloadOffset + 8 }

func (n node) pivotBlockOffset(p Params) int {
	return n.bufEntriesOffset() + p.Nu*upsertSize
}
func (n node) pivotSizeOffset(p Params) int { return n.pivotBlockOffset(p) }
func (n node) pivotsOffset(p Params) int    { return n.pivotBlockOffset(p) + 4 }
func (n node) pointersOffset(p Params) int  { return n.pivotsOffset(p) + p.Np*4 }

func (n node) BufferSize() int {
	return int(binary.LittleEndian.Uint32(n.buf[n.bufSizeOffset():]))
}

func (n node) setBufferSize(size int) {
	binary.LittleEndian.PutUint32(n.buf[n.bufSizeOffset():], uint32(size))
}

func (n node) FlushSize() int {
	return int(binary.LittleEndian.Uint32(n.buf[n.bufFlushSizeOffset():]))
}

func (n node) setFlushSize(size int) {
	binary.LittleEndian.PutUint32(n.buf[n.bufFlushSizeOffset():], uint32(size))
}

func (n node) Upsert(i int) Upsert {
	off := n.bufEntriesOffset() + i*upsertSize
	return Upsert{
		Key:       binary.LittleEndian.Uint32(n.buf[off:]),
		Kind:      Kind(binary.LittleEndian.Uint32(n.buf[off+4:])),
		Parameter: binary.LittleEndian.Uint32(n.buf[off+8:]),
		Timestamp: binary.LittleEndian.Uint32(n.buf[off+12:]),
	}
}

func (n node) setUpsert(i int, u Upsert) {
	off := n.bufEntriesOffset() + i*upsertSize
	binary.LittleEndian.PutUint32(n.buf[off:], u.Key)
	binary.LittleEndian.PutUint32(n.buf[off+4:], uint32(u.Kind))
	binary.LittleEndian.PutUint32(n.buf[off+8:], u.Parameter)
	binary.LittleEndian.PutUint32(n.buf[off+12:], u.Timestamp)
}

func (n node) PivotSize() int {
	return int(binary.LittleEndian.Uint32(n.buf[n.pivotSizeOffset(n.p):]))
}

func (n node) setPivotSize(size int) {
	binary.LittleEndian.PutUint32(n.buf[n.pivotSizeOffset(n.p):], uint32(size))
}

func (n node) Pivot(i int) uint32 {
	off := n.pivotsOffset(n.p) + i*4
	return binary.LittleEndian.Uint32(n.buf[off:])
}

func (n node) setPivot(i int, key uint32) {
	off := n.pivotsOffset(n.p) + i*4
	binary.LittleEndian.PutUint32(n.buf[off:], key)
}

func (n node) Pointer(i int) uint32 {
	off := n.pointersOffset(n.p) + i*4
	return binary.LittleEndian.Uint32(n.buf[off:])
}

func (n node) setPointer(i int, id uint32) {
	off := n.pointersOffset(n.p) + i*4
	binary.LittleEndian.PutUint32(n.buf[off:], id)
}

// IndexOfKey returns the child slot that key routes to: the smallest i such
// that key < pivots[i], or PivotSize() if key is >= every pivot. Per spec
// §3 invariant 2, the subtree at pointers[i] owns keys in
// [pivots[i-1], pivots[i]) with sentinels -inf/+inf at the ends.
//
// The root is seeded with at least one pivot at tree creation and every
// split preserves that, so a wholly empty internal node (PivotSize()==0) is
// unreachable by construction; §9's open question is resolved by asserting
// that here rather than silently returning an ambiguous index.
func (n node) IndexOfKey(key uint32) int {
	size := n.PivotSize()
	assertf(size >= 1, n.id, "IndexOfKey called on internal node %d with zero pivots", n.id)
	for i := 0; i < size; i++ {
		if key < n.Pivot(i) {
			return i
		}
	}
	return size
}

// Dump renders a one-line summary of a page's header and payload sizes.
// It exists for the admin surface's verbose /stats mode (via
// Tree.DumpRoot); it never participates in tree logic.
func (n node) Dump() string {
	if n.IsLeaf() {
		return fmt.Sprintf("leaf(id=%d parent=%d size=%d/%d)",
			n.id, n.ParentID(), n.LeafSize(), n.p.Nd)
	}
	return fmt.Sprintf("internal(id=%d parent=%d buf=%d/%d flush=%d pivots=%d/%d)",
		n.id, n.ParentID(), n.BufferSize(), n.p.Nu, n.FlushSize(), n.PivotSize(), n.p.Np)
}
