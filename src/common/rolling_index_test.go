package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingIndex(t *testing.T) {
	size := 10
	r := NewRollingIndex[string]("test", size)

	_, ok := r.LastIndex()
	assert.False(t, ok)

	for i := uint64(0); i < uint64(3*size); i++ {
		require.NoError(t, r.Set(string(rune('a'+i%26)), i))
	}

	last, ok := r.LastIndex()
	require.True(t, ok)
	assert.Equal(t, uint64(3*size-1), last)

	window, lastIndex := r.GetLastWindow()
	assert.Equal(t, last, lastIndex)
	assert.True(t, len(window) >= size && len(window) <= 2*size)

	_, err := r.GetItem(0)
	assert.True(t, IsIndexErr(err, TooLate))

	_, err = r.GetItem(last + 1)
	assert.True(t, IsIndexErr(err, KeyNotFound))

	item, err := r.GetItem(last)
	require.NoError(t, err)
	assert.Equal(t, string(rune('a'+last%26)), item)

	err = r.Set("x", last+2)
	assert.True(t, IsIndexErr(err, SkippedIndex))

	require.NoError(t, r.Set("y", last))
	item, _ = r.GetItem(last)
	assert.Equal(t, "y", item)
}

func TestRollingIndexSince(t *testing.T) {
	r := NewRollingIndex[int]("test", 2)
	for i := 0; i < 6; i++ {
		require.NoError(t, r.Set(i*10, uint64(i)))
	}

	items, err := r.Since(3)
	require.NoError(t, err)
	assert.Equal(t, []int{40, 50}, items)

	items, err = r.Since(5)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = r.Since(0)
	assert.True(t, IsIndexErr(err, TooLate))
}
