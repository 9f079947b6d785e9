package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/gridlex/pkg/automaton"
	"github.com/latticeforge/gridlex/pkg/guide"
	"github.com/latticeforge/gridlex/pkg/index"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewStoreFromClient(client, "test:"), mr
}

func buildBooleanIndexForSession(t *testing.T) *index.Index {
	t.Helper()
	d, err := automaton.Compile("(true|false)")
	require.NoError(t, err)
	vocab, err := vocabulary.New(9, map[string][]vocabulary.TokenID{
		"true": {0}, "false": {1},
	})
	require.NoError(t, err)
	idx, err := index.Build(d, vocab, index.Options{})
	require.NoError(t, err)
	return idx
}

func TestStore_BeginThenLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	idx := buildBooleanIndexForSession(t)
	g := guide.New(idx)

	id, err := store.Begin(ctx, "bool-grammar", g, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snap, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bool-grammar", snap.GrammarID)
	assert.Equal(t, g.CurrentState(), snap.State)
}

func TestStore_Load_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Advance_PersistsNewState(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	idx := buildBooleanIndexForSession(t)
	g := guide.New(idx)

	id, err := store.Begin(ctx, "bool-grammar", g, time.Hour)
	require.NoError(t, err)

	allowed, state, err := store.Advance(ctx, id, idx, 0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []vocabulary.TokenID{idx.EOSTokenID()}, allowed)
	assert.NotEqual(t, index.Terminal, state, "a final state is not yet terminal")

	allowed, state, err = store.Advance(ctx, id, idx, idx.EOSTokenID(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []vocabulary.TokenID{idx.EOSTokenID()}, allowed)
	assert.Equal(t, index.Terminal, state)

	snap, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, index.Terminal, snap.State)
}

func TestStore_Advance_InvalidTokenLeavesStateUnchanged(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	idx := buildBooleanIndexForSession(t)
	g := guide.New(idx)

	id, err := store.Begin(ctx, "bool-grammar", g, time.Hour)
	require.NoError(t, err)

	before, err := store.Load(ctx, id)
	require.NoError(t, err)

	_, _, err = store.Advance(ctx, id, idx, 999, time.Hour)
	require.Error(t, err)

	after, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.State, after.State)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	idx := buildBooleanIndexForSession(t)
	g := guide.New(idx)

	id, err := store.Begin(ctx, "bool-grammar", g, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_ExpiredSessionIsDeletedLazily(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	idx := buildBooleanIndexForSession(t)

	// Redis TTL outlives the snapshot's own ExpiresAt so the lazy
	// expiry check inside Load, not Redis itself, is what's exercised.
	snap := &Snapshot{GrammarID: "bool-grammar", State: idx.InitialState(), ExpiresAt: time.Now().Add(10 * time.Millisecond)}
	require.NoError(t, store.set(ctx, "expiring", snap, time.Hour))

	time.Sleep(50 * time.Millisecond)

	_, err := store.Load(ctx, "expiring")
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = store.Load(ctx, "expiring")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("localhost:6379")
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, "gridlex:session:", cfg.KeyPrefix)
}
