// Package erasure Reed-Solomon-codes a fixed-size page into a set of data
// and parity shards, so the page survives the loss of up to ParityShards
// of its shards. block.ErasureStore is the only caller: it hands Encode a
// page read from a Manager, writes one shard per root directory, and asks
// Decode to rebuild the page from whatever subset of roots answered.
package erasure

import (
	"crypto/md5"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// MetaDataSize is the fixed header ErasureStore stores ahead of every shard
// on disk: 1 stuffed-zero-count byte plus a 16-byte MD5 checksum.
const MetaDataSize = 1 + md5.Size

// Codec splits a page into DataShards+ParityShards shards and rejoins them.
// ErasureStore keeps one Codec per Store and reuses it across every page,
// since reedsolomon.Encoder construction is independent of any single
// page's contents.
type Codec struct {
	DataShards   int
	ParityShards int
	rs           reedsolomon.Encoder
}

// NewCodec builds a Codec for the given shard counts. The reedsolomon
// matrix construction is the expensive part, so callers should build one
// Codec per Store rather than one per page.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards+parityShards > 256 {
		return nil, fmt.Errorf("erasure: %d data + %d parity shards exceeds the 256-shard limit", dataShards, parityShards)
	}
	rs, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("erasure: building codec: %w", err)
	}
	return &Codec{DataShards: dataShards, ParityShards: parityShards, rs: rs}, nil
}

// Encode splits page into DataShards data shards, zero-padding the final
// shard as needed, then computes ParityShards parity shards over them.
func (c *Codec) Encode(page []byte) ([][]byte, error) {
	shards, err := c.rs.Split(page)
	if err != nil {
		return nil, fmt.Errorf("erasure: splitting page into shards: %w", err)
	}
	if err := c.rs.Encode(shards); err != nil {
		return nil, fmt.Errorf("erasure: computing parity shards: %w", err)
	}
	return shards, nil
}

// ShardMetadata returns the on-disk header for shards[shardIndex]: the
// number of zero bytes Split stuffed into the page's final shard (the same
// value in every shard's header, so any one header is enough for Decode to
// trim the joined page) and an MD5 checksum of
// the shard's own bytes. ErasureStore prefixes this to the shard file so a
// later Decode can detect bitrot before trusting a shard.
func (c *Codec) ShardMetadata(pageSize int, shards [][]byte, shardIndex int) []byte {
	sum := md5.Sum(shards[shardIndex])
	meta := make([]byte, MetaDataSize)
	if r := pageSize % c.DataShards; r != 0 {
		meta[0] = byte(c.DataShards - r)
	}
	copy(meta[1:], sum[:])
	return meta
}
