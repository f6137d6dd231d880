package block

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
)

// CassandraStore stores each page as a row keyed by page id in a single
// table of a Cassandra keyspace, so the block manager's backing store can
// live behind the same wide-column cluster a deployment already runs for
// other data. Grounded on sop/adapters/cassandra's connection management
// (cluster config, keyspace/table auto-creation) and blob store
// (parameterized SELECT/INSERT/DELETE against a blob column), narrowed to
// a single fixed-size blob column instead of SOP's per-store blob tables.
type CassandraStore struct {
	pageSize int
	session  *gocql.Session
	keyspace string
	table    string
	closeErr error
}

// CassandraConfig configures a CassandraStore's cluster session.
type CassandraConfig struct {
	Hosts             []string
	Keyspace          string
	Table             string
	Consistency       gocql.Consistency
	ReplicationClause string
}

// NewCassandraStore opens a session against the configured cluster,
// creating the keyspace and page table if they do not already exist.
func NewCassandraStore(pageSize int, cfg CassandraConfig) (*CassandraStore, error) {
	if cfg.Keyspace == "" {
		cfg.Keyspace = "betree"
	}
	if cfg.Table == "" {
		cfg.Table = "page"
	}
	if cfg.Consistency == gocql.Any {
		cfg.Consistency = gocql.LocalQuorum
	}
	if cfg.ReplicationClause == "" {
		cfg.ReplicationClause = "{'class':'SimpleStrategy', 'replication_factor':1}"
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = cfg.Consistency
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("block: cassandra session: %w", err)
	}

	ddl := fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = %s;", cfg.Keyspace, cfg.ReplicationClause)
	if err := session.Query(ddl).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("block: create keyspace %s: %w", cfg.Keyspace, err)
	}
	ddl = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (id int PRIMARY KEY, page blob);", cfg.Keyspace, cfg.Table)
	if err := session.Query(ddl).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("block: create table %s.%s: %w", cfg.Keyspace, cfg.Table, err)
	}

	return &CassandraStore{
		pageSize: pageSize,
		session:  session,
		keyspace: cfg.Keyspace,
		table:    cfg.Table,
	}, nil
}

func (s *CassandraStore) Create(ctx context.Context, id uint32) error {
	return s.Write(ctx, id, make([]byte, s.pageSize))
}

func (s *CassandraStore) Read(ctx context.Context, id uint32) ([]byte, error) {
	stmt := fmt.Sprintf("SELECT page FROM %s.%s WHERE id = ?;", s.keyspace, s.table)
	var page []byte
	err := Retry(ctx, func(ctx context.Context) error {
		err := s.session.Query(stmt, int32(id)).WithContext(ctx).Scan(&page)
		if err == gocql.ErrNotFound {
			return ErrNotFound(id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(page) != s.pageSize {
		padded := make([]byte, s.pageSize)
		copy(padded, page)
		page = padded
	}
	return page, nil
}

func (s *CassandraStore) Write(ctx context.Context, id uint32, page []byte) error {
	if len(page) != s.pageSize {
		return fmt.Errorf("block: page %d write size %d != pageSize %d", id, len(page), s.pageSize)
	}
	stmt := fmt.Sprintf("INSERT INTO %s.%s (id, page) VALUES (?, ?);", s.keyspace, s.table)
	return Retry(ctx, func(ctx context.Context) error {
		return s.session.Query(stmt, int32(id), page).WithContext(ctx).Exec()
	})
}

func (s *CassandraStore) Delete(ctx context.Context, id uint32) error {
	stmt := fmt.Sprintf("DELETE FROM %s.%s WHERE id = ?;", s.keyspace, s.table)
	return Retry(ctx, func(ctx context.Context) error {
		return s.session.Query(stmt, int32(id)).WithContext(ctx).Exec()
	})
}

func (s *CassandraStore) Close() error {
	s.session.Close()
	return s.closeErr
}
