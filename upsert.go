package betree

// Kind identifies what an Upsert message does to a key when it is finally
// applied at a leaf.
type Kind uint32

const (
	// KindInsert requires the key to be absent at the leaf.
	KindInsert Kind = 1
	// KindUpdate requires the key to be present at the leaf.
	KindUpdate Kind = 2
	// KindDelete requires the key to be present at the leaf.
	KindDelete Kind = 3
	// KindInvalid is reserved; this implementation never writes it (split
	// compaction rebuilds the buffer without vacated slots), and
	// applyOneToLeaf rejects it as an invalid kind.
	KindInvalid Kind = 4
)

// KeyNotFound is the sentinel Query returns for an absent key. Keys 0 and
// KeyNotFound are reserved and must never be inserted as live keys.
const KeyNotFound uint32 = 1<<32 - 1

// Upsert is a single buffered update message: a 16-byte record consisting of
// the target key, what to do with it, the value parameter (meaningful for
// INSERT/UPDATE only), and the timestamp that totally orders messages
// sharing a key. Widening timestamp beyond 32 bits is a known open point
// (spec §9's "Timestamp width" note); the on-disk format fixes it at 32
// bits and this implementation matches that literally.
type Upsert struct {
	Key       uint32
	Kind      Kind
	Parameter uint32
	Timestamp uint32
}
