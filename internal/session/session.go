// Package session registers in-flight Guide cursors by id so a grid server
// can serve decode-loop clients across multiple requests (or WebSocket
// frames) without holding a goroutine per client. Sessions are
// Redis-backed so a server process restart does not strand a client
// mid-generation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/latticeforge/gridlex/pkg/automaton"
	"github.com/latticeforge/gridlex/pkg/guide"
	"github.com/latticeforge/gridlex/pkg/index"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

// ErrSessionNotFound is returned when a session id has no registered state.
var ErrSessionNotFound = errors.New("session: not found")

// ErrSessionExpired is returned when a session's TTL has lapsed.
var ErrSessionExpired = errors.New("session: expired")

// Snapshot is the serializable form of a Guide cursor: just enough to
// reconstruct it against an Index the caller already holds (the Index
// itself, and the grammar it compiled from, are looked up separately by the
// grid server using GrammarID).
type Snapshot struct {
	GrammarID string            `json:"grammar_id"`
	State     automaton.StateID `json:"state"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// IsExpired reports whether s has passed its expiry time.
func (s *Snapshot) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store is a Redis-backed registry of Guide snapshots, keyed by a generated
// session id.
type Store struct {
	client *redis.Client
	prefix string
}

// Config holds Redis connection configuration for a Store.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	KeyPrefix    string
}

// DefaultConfig returns sensible defaults for addr.
func DefaultConfig(addr string) *Config {
	return &Config{
		Addr:         addr,
		DB:           0,
		PoolSize:     100,
		MinIdleConns: 10,
		KeyPrefix:    "gridlex:session:",
	}
}

// NewStore opens a Redis connection per cfg.
func NewStore(cfg *Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "gridlex:session:"
	}
	return &Store{client: client, prefix: prefix}
}

// NewStoreFromClient wraps an already-configured *redis.Client, e.g. one
// pointed at a miniredis instance in tests.
func NewStoreFromClient(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "gridlex:session:"
	}
	return &Store{client: client, prefix: keyPrefix}
}

// Begin registers a new session holding g's current state, tagged with
// grammarID so the caller can look the Index back up on a later
// request, and returns the session id.
func (s *Store) Begin(ctx context.Context, grammarID string, g *guide.Guide, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	snap := &Snapshot{
		GrammarID: grammarID,
		State:     g.CurrentState(),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.set(ctx, id, snap, ttl); err != nil {
		return "", err
	}
	return id, nil
}

// Load returns the Snapshot registered under id.
func (s *Store) Load(ctx context.Context, id string) (*Snapshot, error) {
	key := s.key(id)
	data, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	if snap.IsExpired() {
		s.client.Del(ctx, key)
		return nil, ErrSessionExpired
	}
	return &snap, nil
}

// Advance applies tokenID to the Guide behind id (reconstructed against
// idx) and persists the resulting state, refreshing the TTL. The returned
// state lets callers distinguish a final state (only EOS left to emit) from
// the terminal state (EOS already consumed), since both can expose the same
// single-element allowed set [eos].
func (s *Store) Advance(ctx context.Context, id string, idx *index.Index, tokenID vocabulary.TokenID, ttl time.Duration) ([]vocabulary.TokenID, automaton.StateID, error) {
	snap, err := s.Load(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	restored := guide.At(idx, snap.State)
	allowed, err := restored.Advance(tokenID)
	if err != nil {
		return nil, 0, err
	}
	snap.State = restored.CurrentState()
	snap.ExpiresAt = time.Now().Add(ttl)
	if err := s.set(ctx, id, snap, ttl); err != nil {
		return nil, 0, err
	}
	return allowed, snap.State, nil
}

// Delete removes a session immediately.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error { return s.client.Close() }

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) set(ctx context.Context, id string, snap *Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *Store) key(id string) string { return s.prefix + id }
