// Package indexstore optionally persists built Indexes keyed by the content
// hash of their (regex, vocabulary) inputs, so a grid server or CLI process
// serving the same grammar repeatedly does not repeat Index construction.
// This is ambient infrastructure around pkg/index, not part of its core
// contract: pkg/index itself has no file format or wire protocol.
package indexstore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/latticeforge/gridlex/pkg/index"
)

// ContentHash computes the cache key for a (regex, vocabulary-snapshot)
// pair: the sha256 of the regex string followed by a canonical JSON
// encoding of the vocabulary's token map and eos id.
func ContentHash(regex string, vocabSnapshotJSON []byte) string {
	h := sha256.New()
	h.Write([]byte(regex))
	h.Write([]byte{0})
	h.Write(vocabSnapshotJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// Store persists and retrieves built Indexes by content hash.
type Store interface {
	// Get returns the Index stored under hash, or ErrNotFound.
	Get(hash string) (*index.Index, error)
	// Put stores idx under hash, overwriting any existing entry.
	Put(hash string, idx *index.Index) error
	// Close releases the backend's resources.
	Close() error
}

// sqlStore implements Store over any database/sql driver that speaks
// standard SQL (sqlite3 and lib/pq both do); pgxStore (pgxstore.go) is a
// separate Store over a single native pgx.Conn instead of database/sql.
type sqlStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a go-sqlite3-backed Store at dsn, e.g.
// "file:gridlex-index-cache.db?cache=shared".
func NewSQLiteStore(dsn string) (Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("indexstore: open sqlite: %w", err)
	}
	if err := migrateSQL(db, "TEXT PRIMARY KEY", "BLOB"); err != nil {
		db.Close()
		return nil, err
	}
	return &sqlStore{db: db}, nil
}

// NewPQStore opens a lib/pq-backed Store at dsn.
func NewPQStore(dsn string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("indexstore: open postgres: %w", err)
	}
	if err := migrateSQL(db, "TEXT PRIMARY KEY", "BYTEA"); err != nil {
		db.Close()
		return nil, err
	}
	return &sqlStore{db: db}, nil
}

func migrateSQL(db *sql.DB, keyType, blobType string) error {
	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS index_cache (content_hash %s, payload %s NOT NULL)`,
		keyType, blobType,
	))
	return err
}

func (s *sqlStore) Get(hash string) (*index.Index, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM index_cache WHERE content_hash = $1`, hash).Scan(&payload)
	if err != nil {
		return nil, convertDBError(err)
	}
	return decode(payload)
}

func (s *sqlStore) Put(hash string, idx *index.Index) error {
	payload, err := json.Marshal(idx.Encode())
	if err != nil {
		return fmt.Errorf("indexstore: encode: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO index_cache (content_hash, payload) VALUES ($1, $2)
		 ON CONFLICT (content_hash) DO UPDATE SET payload = excluded.payload`,
		hash, payload,
	)
	return convertDBError(err)
}

func (s *sqlStore) Close() error { return s.db.Close() }

func decode(payload []byte) (*index.Index, error) {
	var enc index.Encoded
	if err := json.Unmarshal(payload, &enc); err != nil {
		return nil, fmt.Errorf("indexstore: decode: %w", err)
	}
	return index.FromEncoded(enc), nil
}
