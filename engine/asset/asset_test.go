package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clip struct{ name string }

func TestAssets_AddGet(t *testing.T) {
	store := NewAssets[*clip]()

	h := store.Add(&clip{name: "walk"})
	assert.False(t, h.IsZero())

	got, ok := store.Get(h)
	require.True(t, ok)
	assert.Equal(t, "walk", got.name)

	_, ok = store.Get(Handle[*clip]{})
	assert.False(t, ok, "zero handle must not resolve")
	assert.Equal(t, 1, store.Len())
}

func TestAssets_Paths(t *testing.T) {
	store := NewAssets[*clip]()

	h, err := store.AddWithPath("anims/walk", &clip{name: "walk"})
	require.NoError(t, err)

	p, ok := store.Path(h)
	require.True(t, ok)
	assert.Equal(t, "anims/walk", p)

	byPath, ok := store.ByPath("anims/walk")
	require.True(t, ok)
	assert.Equal(t, h, byPath)

	_, err = store.AddWithPath("anims/walk", &clip{name: "other"})
	assert.ErrorIs(t, err, ErrPathInUse)

	_, err = store.AddWithPath("", &clip{})
	assert.ErrorIs(t, err, ErrEmptyPath)

	plain := store.Add(&clip{name: "idle"})
	_, ok = store.Path(plain)
	assert.False(t, ok)
}

func TestAssets_RemoveReleasesPath(t *testing.T) {
	store := NewAssets[*clip]()
	h, err := store.AddWithPath("a", &clip{})
	require.NoError(t, err)

	store.Remove(h)
	assert.False(t, store.Contains(h))
	_, ok := store.ByPath("a")
	assert.False(t, ok)

	_, err = store.AddWithPath("a", &clip{})
	assert.NoError(t, err)
}

func TestAssets_FirstIDAndHandles(t *testing.T) {
	store := NewAssets(WithFirstID[*clip](100))
	a := store.Add(&clip{})
	b := store.Add(&clip{})

	assert.Equal(t, ID(100), a.ID())
	assert.Equal(t, ID(101), b.ID())
	assert.Equal(t, []Handle[*clip]{a, b}, store.Handles())

	got, ok := store.Get(HandleFromID[*clip](101))
	require.True(t, ok)
	assert.NotNil(t, got)
}

func TestAssets_DrainModified(t *testing.T) {
	store := NewAssets[*clip]()
	a := store.Add(&clip{})
	b := store.Add(&clip{})

	_, _ = store.Get(a)
	_, ok := store.GetMut(b)
	require.True(t, ok)
	_, _ = store.GetMut(b)

	assert.Equal(t, []Handle[*clip]{b}, store.DrainModified())
	assert.Empty(t, store.DrainModified())
}
