package indexstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/latticeforge/gridlex/pkg/index"
)

// pgxStore is an alternative Postgres backend built directly on pgx's native
// connection (rather than database/sql), for callers that already manage a
// pgx.Conn lifecycle elsewhere and want the Index cache on the same
// connection instead of a second database/sql pool.
type pgxStore struct {
	conn *pgx.Conn
}

// NewPGXStore wraps an already-connected pgx.Conn as a Store. The caller
// retains ownership of conn's lifecycle beyond Close, which only drops the
// package's reference.
func NewPGXStore(ctx context.Context, conn *pgx.Conn) (Store, error) {
	_, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS index_cache (
		content_hash TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("indexstore: migrate pgx store: %w", err)
	}
	return &pgxStore{conn: conn}, nil
}

func (s *pgxStore) Get(hash string) (*index.Index, error) {
	ctx := context.Background()
	var payload []byte
	err := s.conn.QueryRow(ctx, `SELECT payload FROM index_cache WHERE content_hash = $1`, hash).Scan(&payload)
	if err != nil {
		return nil, convertDBError(err)
	}
	return decode(payload)
}

func (s *pgxStore) Put(hash string, idx *index.Index) error {
	ctx := context.Background()
	payload, err := json.Marshal(idx.Encode())
	if err != nil {
		return fmt.Errorf("indexstore: encode: %w", err)
	}
	_, err = s.conn.Exec(ctx,
		`INSERT INTO index_cache (content_hash, payload) VALUES ($1, $2)
		 ON CONFLICT (content_hash) DO UPDATE SET payload = excluded.payload`,
		hash, payload,
	)
	return convertDBError(err)
}

func (s *pgxStore) Close() error {
	return s.conn.Close(context.Background())
}
