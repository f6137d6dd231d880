// Package lrucache implements a bounded page-id -> slot-index map with
// least-recently-used eviction order: a map for O(1) lookup paired with an
// intrusive doubly linked list for O(1) recency updates and O(1) eviction
// of the tail.
package lrucache

// Guard vetoes a candidate eviction victim. It is consulted by Put before a
// slot is reused; returning false protects the candidate and forces the
// caller to consider the next-least-recently-used entry instead. A nil
// Guard accepts every candidate (pure LRU).
type Guard func(id uint32, rank int) bool

type entry struct {
	id         uint32
	slot       int
	prev, next *entry
}

// LRU is a bounded map from page id (nonzero uint32) to slot index [0, M),
// ordered by recency. Slot indices in use always form the prefix [0, size)
// until capacity is reached, after which slots are recycled from evicted
// entries.
type LRU struct {
	capacity int
	byID     map[uint32]*entry
	head     *entry // most recently used
	tail     *entry // least recently used
	freeSlot int     // next never-yet-used slot index
	freeList []int   // slots freed by Remove, reused before freeSlot advances
	guard    Guard

	hits, misses int64
}

// New creates an LRU with the given capacity (M in spec §2).
func New(capacity int) *LRU {
	if capacity <= 0 {
		panic("lrucache: capacity must be positive")
	}
	return &LRU{
		capacity: capacity,
		byID:     make(map[uint32]*entry, capacity),
	}
}

// SetGuard installs an eviction guard. See Guard's doc comment.
func (l *LRU) SetGuard(g Guard) { l.guard = g }

// Len returns the number of resident entries.
func (l *LRU) Len() int { return len(l.byID) }

// Capacity returns M.
func (l *LRU) Capacity() int { return l.capacity }

// Hits returns the number of Get calls that found id resident.
func (l *LRU) Hits() int64 { return l.hits }

// Misses returns the number of Get calls that did not find id resident.
func (l *LRU) Misses() int64 { return l.misses }

func (l *LRU) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (l *LRU) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

func (l *LRU) promote(e *entry) {
	if l.head == e {
		return
	}
	l.unlink(e)
	l.pushFront(e)
}

// Get returns the slot for id and promotes it to most-recently-used. The
// second return is false on a miss.
func (l *LRU) Get(id uint32) (int, bool) {
	e, ok := l.byID[id]
	if !ok {
		l.misses++
		return 0, false
	}
	l.hits++
	l.promote(e)
	return e.slot, true
}

// Slot returns id's slot without affecting recency or the hit/miss
// counters. Used by callers that already know id is resident (or are
// checking incidentally, as Close's flush loop does over Residents) and
// aren't performing the kind of cache lookup Hits/Misses track.
func (l *LRU) Slot(id uint32) (int, bool) {
	e, ok := l.byID[id]
	if !ok {
		return 0, false
	}
	return e.slot, true
}

// Put assigns id a slot, evicting the least-recently-used entry if the
// cache is at capacity. It returns the assigned slot and, if an eviction
// occurred, the evicted id (0 otherwise: 0 is never a valid resident page
// id). If id is already resident this behaves like Get.
func (l *LRU) Put(id uint32) (slot int, evicted uint32) {
	if e, ok := l.byID[id]; ok {
		l.promote(e)
		return e.slot, 0
	}

	if len(l.byID) < l.capacity {
		var s int
		if n := len(l.freeList); n > 0 {
			s = l.freeList[n-1]
			l.freeList = l.freeList[:n-1]
		} else {
			s = l.freeSlot
			l.freeSlot++
		}
		e := &entry{id: id, slot: s}
		l.byID[id] = e
		l.pushFront(e)
		return s, 0
	}

	victim := l.chooseVictim()
	slot = victim.slot
	evicted = victim.id
	l.unlink(victim)
	delete(l.byID, evicted)

	e := &entry{id: id, slot: slot}
	l.byID[id] = e
	l.pushFront(e)
	return slot, evicted
}

// chooseVictim walks from the tail (least-recently-used) applying the
// guard, if any. If every candidate is vetoed it falls back to the strict
// LRU tail: capacity is a hard contract (spec §4.1) and Put must never
// refuse to evict.
func (l *LRU) chooseVictim() *entry {
	if l.guard == nil {
		return l.tail
	}
	rank := 0
	for e := l.tail; e != nil; e = e.prev {
		if l.guard(e.id, rank) {
			return e
		}
		rank++
	}
	return l.tail
}

// Remove evicts id immediately, independent of recency order. Used by
// DeleteBlock: the core never calls it, but the capability is preserved.
// Returns the freed slot and true if id was resident.
func (l *LRU) Remove(id uint32) (int, bool) {
	e, ok := l.byID[id]
	if !ok {
		return 0, false
	}
	l.unlink(e)
	delete(l.byID, id)
	l.freeList = append(l.freeList, e.slot)
	return e.slot, true
}

// Residents returns every currently resident id, in no particular order.
// Used for shutdown flush (spec §4.1).
func (l *LRU) Residents() []uint32 {
	ids := make([]uint32, 0, len(l.byID))
	for id := range l.byID {
		ids = append(ids, id)
	}
	return ids
}
