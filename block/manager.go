package block

import (
	"context"
	"sync/atomic"

	"github.com/go-betree/betree/lrucache"
	"golang.org/x/sync/errgroup"
)

// Manager owns a contiguous array of fixed-size in-memory page buffers and
// mediates every disk I/O against a pluggable Store: allocating new page
// ids, reading pages on demand, writing dirty pages back on eviction and on
// Close. This is spec §4.2's block manager.
//
// Manager's own operations run single-threaded, matching the tree's
// scheduling model. The sole exception is Close, which fans dirty pages
// out across goroutines because independent page writes are embarrassingly
// parallel I/O with no shared tree invariant to protect.
type Manager struct {
	pageSize int
	store    Store

	mem   [][]byte
	dirty []bool

	lru     *lrucache.LRU
	counter uint32 // last-allocated page id; 0 is reserved

	numReads  atomic.Int64
	numWrites atomic.Int64
}

// New creates a Manager with `capacity` resident page slots of `pageSize`
// bytes each, backed by store.
func New(pageSize, capacity int, store Store) *Manager {
	m := &Manager{
		pageSize: pageSize,
		store:    store,
		mem:      make([][]byte, capacity),
		dirty:    make([]bool, capacity),
		lru:      lrucache.New(capacity),
	}
	for i := range m.mem {
		m.mem[i] = make([]byte, pageSize)
	}
	return m
}

// SetGuard installs an LRU eviction guard (see lrucache.Guard).
func (m *Manager) SetGuard(g lrucache.Guard) { m.lru.SetGuard(g) }

// PageSize returns B.
func (m *Manager) PageSize() int { return m.pageSize }

// Capacity returns M.
func (m *Manager) Capacity() int { return m.lru.Capacity() }

// Resident returns the current number of resident pages.
func (m *Manager) Resident() int { return m.lru.Len() }

// CacheHits returns the number of OpenBlock calls that found their page
// already resident.
func (m *Manager) CacheHits() int64 { return m.lru.Hits() }

// CacheMisses returns the number of OpenBlock calls that had to load their
// page from the backing store.
func (m *Manager) CacheMisses() int64 { return m.lru.Misses() }

// NumReads returns the count of pages read from the backing store.
func (m *Manager) NumReads() int64 { return m.numReads.Load() }

// NumWrites returns the count of pages written to the backing store.
func (m *Manager) NumWrites() int64 { return m.numWrites.Load() }

// Counter returns the last page id issued by CreateBlock.
func (m *Manager) Counter() uint32 { return m.counter }

// SetCounter restores the id generator's high-water mark, used when
// reopening a tree so subsequent CreateBlock calls resume past every id
// already allocated in a prior session instead of reissuing them.
func (m *Manager) SetCounter(c uint32) { m.counter = c }

// CreateBlock allocates a fresh page id and asks the store to create its
// backing entry (an empty file for LocalStore, an all-zero page for the
// other stores). The page is not made resident; its first OpenBlock
// zero-fills the slot and reads back all zeros.
func (m *Manager) CreateBlock(ctx context.Context) uint32 {
	m.counter++
	id := m.counter
	if err := m.store.Create(ctx, id); err != nil {
		ioFatal(id, "create", err)
	}
	return id
}

// DeleteBlock removes id's backing storage. The core never calls this
// (spec §4.2); the capability is preserved for completeness. Any I/O
// failure is fatal.
func (m *Manager) DeleteBlock(ctx context.Context, id uint32) {
	if slot, ok := m.lru.Remove(id); ok {
		m.dirty[slot] = false
	}
	if err := m.store.Delete(ctx, id); err != nil {
		ioFatal(id, "delete", err)
	}
}

// OpenBlock resolves id to its resident slot buffer, loading it from the
// backing store (evicting a victim if the cache is full) if it is not
// already resident. The returned slice aliases Manager's own memory and is
// only valid until the next operation that might evict; see the doc
// comment on the betree package's node type.
func (m *Manager) OpenBlock(ctx context.Context, id uint32) []byte {
	if slot, ok := m.lru.Get(id); ok {
		return m.mem[slot]
	}

	slot, evictedID := m.lru.Put(id)
	if evictedID != 0 {
		if m.dirty[slot] {
			if err := m.store.Write(ctx, evictedID, m.mem[slot]); err != nil {
				ioFatal(evictedID, "write-back on eviction", err)
			}
			m.numWrites.Add(1)
		}
	}

	buf := m.mem[slot]
	for i := range buf {
		buf[i] = 0
	}
	m.dirty[slot] = false

	page, err := m.store.Read(ctx, id)
	if err != nil {
		ioFatal(id, "read", err)
	}
	copy(buf, page)
	m.numReads.Add(1)
	return buf
}

// MarkDirty marks id's resident page as needing write-back. id must already
// be resident (i.e. the caller has just OpenBlock'd it).
func (m *Manager) MarkDirty(id uint32) {
	slot, ok := m.lru.Slot(id)
	assertResident(ok, id)
	m.dirty[slot] = true
}

// Close writes every resident dirty page back to the store, then closes it.
// Writes fan out one goroutine per dirty page (bounded implicitly by the
// resident set size, which is at most M) since each is independent I/O
// against a distinct backing key.
func (m *Manager) Close(ctx context.Context) error {
	residents := m.lru.Residents()
	eg, ctx := errgroup.WithContext(ctx)
	for _, id := range residents {
		id := id
		slot, ok := m.lru.Slot(id)
		if !ok || !m.dirty[slot] {
			continue
		}
		page := m.mem[slot]
		eg.Go(func() error {
			if err := m.store.Write(ctx, id, page); err != nil {
				return err
			}
			m.numWrites.Add(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		ioFatal(0, "shutdown flush", err)
	}
	return m.store.Close()
}
