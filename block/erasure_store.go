package block

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"

	"github.com/go-betree/betree/block/erasure"
)

// ErasureStore splits each page into DataShards data shards and
// ParityShards parity shards with github.com/klauspost/reedsolomon, and
// stores every shard in its own root directory. A page survives the loss
// of up to ParityShards of its roots (a failed disk, in the common case),
// at the cost of writing len(roots) files per page instead of one.
//
// Each shard file is the erasure.MetaDataSize-byte header computed by
// Codec.ShardMetadata (stuffed-zero count plus an MD5 checksum) followed
// by the shard's own bytes. Read runs the Reed-Solomon parity check first,
// reconstructs missing shards, and only when parity still fails checks
// each shard against its checksum and reconstructs the corrupted ones from
// the survivors, before rejoining them into the page.
type ErasureStore struct {
	pageSize int
	roots    []string
	codec    *erasure.Codec
}

// NewErasureStore creates (if absent) one root directory per shard and
// returns a Store that erasure-codes every page across them. len(roots)
// must equal dataShards+parityShards.
func NewErasureStore(pageSize, dataShards, parityShards int, roots ...string) (*ErasureStore, error) {
	if len(roots) != dataShards+parityShards {
		return nil, fmt.Errorf("block: NewErasureStore needs %d roots, got %d", dataShards+parityShards, len(roots))
	}
	codec, err := erasure.NewCodec(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	for _, r := range roots {
		if err := os.MkdirAll(r, 0o755); err != nil {
			return nil, fmt.Errorf("block: mkdir %s: %w", r, err)
		}
	}
	return &ErasureStore{pageSize: pageSize, roots: roots, codec: codec}, nil
}

func (s *ErasureStore) shardPath(root string, id uint32) string {
	return filepath.Join(root, fmt.Sprintf("%d", id))
}

func (s *ErasureStore) Create(ctx context.Context, id uint32) error {
	return s.Write(ctx, id, make([]byte, s.pageSize))
}

func (s *ErasureStore) Write(ctx context.Context, id uint32, page []byte) error {
	if len(page) != s.pageSize {
		return fmt.Errorf("block: page %d write size %d != pageSize %d", id, len(page), s.pageSize)
	}
	shards, err := s.codec.Encode(page)
	if err != nil {
		return err
	}
	for i, root := range s.roots {
		meta := s.codec.ShardMetadata(len(page), shards, i)
		f, err := os.OpenFile(s.shardPath(root, id), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		_, werr := f.Write(append(meta, shards[i]...))
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

func (s *ErasureStore) Read(ctx context.Context, id uint32) ([]byte, error) {
	shards := make([][]byte, len(s.roots))
	metas := make([][]byte, len(s.roots))
	present := 0
	for i, root := range s.roots {
		data, err := os.ReadFile(s.shardPath(root, id))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if len(data) < erasure.MetaDataSize {
			continue
		}
		metas[i] = data[:erasure.MetaDataSize]
		shards[i] = data[erasure.MetaDataSize:]
		present++
	}
	if present == 0 {
		return nil, ErrNotFound(id)
	}

	page, reconstructed, err := s.codec.Decode(shards, metas)
	if err != nil {
		return nil, fmt.Errorf("block: erasure decode page %d: %w", id, err)
	}
	if len(reconstructed) > 0 {
		log.Info("erasure store reconstructed shards", "page", id, "shards", reconstructed)
	}
	if len(page) != s.pageSize {
		padded := make([]byte, s.pageSize)
		copy(padded, page)
		page = padded
	}
	return page, nil
}

func (s *ErasureStore) Delete(ctx context.Context, id uint32) error {
	for _, root := range s.roots {
		if err := os.Remove(s.shardPath(root, id)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *ErasureStore) Close() error { return nil }
