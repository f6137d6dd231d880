package erasure

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
)

// ErrNoShards is returned by Decode when it is handed an empty shards
// slice. A slice of nil entries is not this case: Decode tries to
// reconstruct those instead.
var ErrNoShards = errors.New("erasure: no shards available to decode")

// Decode rebuilds a page from shards, using shardMeta (as produced by
// Codec.ShardMetadata, one entry per shard slot, nil for a slot that
// wasn't read) to detect bitrot in shards Verify would otherwise accept.
// It returns the indices of shards it had to reconstruct, so a caller can
// choose to repair those roots on disk.
//
// Decode tries the cheap path first: if every present shard already
// satisfies the Reed-Solomon parity check, nothing needs reconstructing. A
// nil slot in shards is always reconstructed. A non-nil slot that fails
// its checksum is treated as corrupt and reconstructed in a second pass,
// since Verify alone can't distinguish a corrupt shard from a valid one
// that simply doesn't match its neighbors after a partial reconstruction.
func (c *Codec) Decode(shards [][]byte, shardMeta [][]byte) ([]byte, []int, error) {
	if len(shards) == 0 {
		return nil, nil, ErrNoShards
	}

	var reconstructed []int
	if ok, _ := c.rs.Verify(shards); !ok {
		missing, err := c.reconstructMissing(shards)
		if err != nil {
			return nil, nil, fmt.Errorf("erasure: reconstructing missing shards: %w", err)
		}
		reconstructed = missing

		if ok, _ := c.rs.Verify(shards); !ok {
			bad, err := c.reconstructCorrupt(shards, shardMeta)
			if err != nil {
				return nil, nil, fmt.Errorf("erasure: shards failed checksum and could not be reconstructed: %w", err)
			}
			reconstructed = bad
		}
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	size := len(shards[0]) * c.DataShards
	if err := c.rs.Join(w, shards, size); err != nil {
		return nil, nil, fmt.Errorf("erasure: joining shards: %w", err)
	}
	w.Flush()

	stuffed := firstMetadata(shardMeta)
	page := make([]byte, buf.Len()-int(stuffed))
	copy(page, buf.Bytes())
	return page, reconstructed, nil
}

// firstMetadata returns the stuffed-zero count from the first non-nil
// metadata entry. ErasureStore only reads shards whose file it could open,
// so a nil entry means that root was skipped, not that stuffing differs
// shard to shard — every shard was padded against the same page size.
func firstMetadata(shardMeta [][]byte) byte {
	for _, m := range shardMeta {
		if m != nil {
			return m[0]
		}
	}
	return 0
}

// reconstructCorrupt checksums every shard against its recorded metadata,
// nils out any mismatch, and reconstructs from the survivors. It reports
// the indices it had to rebuild.
func (c *Codec) reconstructCorrupt(shards [][]byte, shardMeta [][]byte) ([]int, error) {
	var bad []int
	for i := range shards {
		if shards[i] == nil || shardMeta[i] == nil {
			continue
		}
		want := shardMeta[i][1:]
		got := md5.Sum(shards[i])
		if !bytes.Equal(want, got[:]) {
			bad = append(bad, i)
			shards[i] = nil
		}
	}
	if len(bad) == 0 {
		return nil, errors.New("shards passed checksum verification but Reed-Solomon parity still disagrees")
	}
	if err := c.rs.Reconstruct(shards); err != nil {
		return nil, err
	}
	if ok, err := c.rs.Verify(shards); !ok {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("reconstructed shards still fail parity verification")
	}
	return bad, nil
}

// reconstructMissing fills in any nil shard slot from its survivors. It
// reports the indices it filled in.
func (c *Codec) reconstructMissing(shards [][]byte) ([]int, error) {
	var missing []int
	needed := make([]bool, len(shards))
	for i, s := range shards {
		if s == nil {
			missing = append(missing, i)
			needed[i] = true
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	if err := c.rs.ReconstructSome(shards, needed); err != nil {
		return nil, err
	}
	return missing, nil
}
