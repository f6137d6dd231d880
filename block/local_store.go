package block

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// LocalStore is the default Store: one file per page, named <root>/<id>,
// containing exactly pageSize raw bytes (spec §6's on-disk format). It
// follows the familiar disk-pager pattern: os.OpenFile with
// O_RDWR|O_CREATE, ReadAt/WriteAt at offset 0 within the page's own file,
// and zero-padding a short read.
//
// When more than one root directory is configured, page placement is
// chosen by rendezvous (highest random weight) hashing on the page id, the
// same technique gocql uses to pick a coordinator node for a partition key,
// applied here to disk placement. Adding or removing a root reshuffles only
// the pages rendezvous hashing assigns to it, not the whole keyspace.
type LocalStore struct {
	pageSize int
	roots    []string
	pick     *rendezvous.Rendezvous
}

// NewLocalStore creates (if absent) each root directory and returns a
// Store that shards page files across them.
func NewLocalStore(pageSize int, roots ...string) (*LocalStore, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("block: NewLocalStore requires at least one root directory")
	}
	for _, r := range roots {
		if err := os.MkdirAll(r, 0o755); err != nil {
			return nil, fmt.Errorf("block: mkdir %s: %w", r, err)
		}
	}
	return &LocalStore{
		pageSize: pageSize,
		roots:    roots,
		pick:     rendezvous.New(roots, xxhash.Sum64String),
	}, nil
}

func (s *LocalStore) rootFor(id uint32) string {
	if len(s.roots) == 1 {
		return s.roots[0]
	}
	return s.pick.Lookup(fmt.Sprintf("%d", id))
}

func (s *LocalStore) path(id uint32) string {
	return filepath.Join(s.rootFor(id), fmt.Sprintf("%d", id))
}

func (s *LocalStore) Create(ctx context.Context, id uint32) error {
	f, err := os.OpenFile(s.path(id), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *LocalStore) Read(ctx context.Context, id uint32) ([]byte, error) {
	f, err := os.OpenFile(s.path(id), os.O_RDONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound(id)
		}
		return nil, err
	}
	defer f.Close()

	page := make([]byte, s.pageSize)
	_, err = f.ReadAt(page, 0)
	// A page whose file exists but is empty or short (freshly created, or
	// truncated by a prior partial write) reads back as all zeros, per
	// spec §4.2. Any other read error is fatal to the caller.
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return page, nil
}

func (s *LocalStore) Write(ctx context.Context, id uint32, page []byte) error {
	if len(page) != s.pageSize {
		return fmt.Errorf("block: page %d write size %d != pageSize %d", id, len(page), s.pageSize)
	}
	f, err := os.OpenFile(s.path(id), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteAt(page, 0)
	return err
}

func (s *LocalStore) Delete(ctx context.Context, id uint32) error {
	err := os.Remove(s.path(id))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStore) Close() error { return nil }
