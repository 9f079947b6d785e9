package vocabulary_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

func TestNew_RejectsEOSClash(t *testing.T) {
	_, err := vocabulary.New(5, map[string][]vocabulary.TokenID{"x": {5}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, vocabulary.ErrEOSTokenClash))
}

func TestNew_BuildsBidirectionalMap(t *testing.T) {
	v, err := vocabulary.New(99, map[string][]vocabulary.TokenID{
		"tr": {0}, "ue": {1}, "fa": {2}, "lse": {3},
	})
	require.NoError(t, err)
	assert.Equal(t, vocabulary.TokenID(99), v.EOSTokenID())
	assert.Equal(t, 4, v.Len())

	ids, ok := v.Get("tr")
	require.True(t, ok)
	assert.Equal(t, []vocabulary.TokenID{0}, ids)

	_, ok = v.Get("missing")
	assert.False(t, ok)
}

func TestInsert_AppendsPreservingOrder(t *testing.T) {
	v, err := vocabulary.New(99, nil)
	require.NoError(t, err)

	require.NoError(t, v.Insert("dup", 1))
	require.NoError(t, v.Insert("dup", 2))

	ids, ok := v.Get("dup")
	require.True(t, ok)
	assert.Equal(t, []vocabulary.TokenID{1, 2}, ids)
}

func TestInsert_RejectsEOS(t *testing.T) {
	v, err := vocabulary.New(99, nil)
	require.NoError(t, err)
	err = v.Insert("x", 99)
	assert.True(t, errors.Is(err, vocabulary.ErrEOSTokenClash))
}

func TestRemove_IsNoopWhenAbsent(t *testing.T) {
	v, err := vocabulary.New(99, map[string][]vocabulary.TokenID{"a": {1}})
	require.NoError(t, err)
	v.Remove("does-not-exist")
	assert.Equal(t, 1, v.Len())
	v.Remove("a")
	assert.Equal(t, 0, v.Len())
}

func TestSnapshot_IsIndependentOfLaterMutation(t *testing.T) {
	v, err := vocabulary.New(99, map[string][]vocabulary.TokenID{"a": {1}})
	require.NoError(t, err)

	snap := v.Snapshot()
	require.NoError(t, v.Insert("b", 2))
	v.Remove("a")

	_, hasA := snap["a"]
	_, hasB := snap["b"]
	assert.True(t, hasA, "snapshot must retain state as of the call")
	assert.False(t, hasB, "snapshot must not observe later mutation")
}

func TestEqual(t *testing.T) {
	a, _ := vocabulary.New(9, map[string][]vocabulary.TokenID{"x": {1, 2}})
	b, _ := vocabulary.New(9, map[string][]vocabulary.TokenID{"x": {1, 2}})
	c, _ := vocabulary.New(9, map[string][]vocabulary.TokenID{"x": {2, 1}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
