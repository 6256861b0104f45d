package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_DiscardsOlderResponse(t *testing.T) {
	s := New()

	older := s.Begin(KeyAuctions)
	newer := s.Begin(KeyAuctions)

	assert.True(t, s.Commit(KeyAuctions, newer, []string{"fresh"}))
	assert.False(t, s.Commit(KeyAuctions, older, []string{"old"}), "older response must not overwrite")

	v, e, ok := Typed[[]string](s, KeyAuctions)
	require.True(t, ok)
	assert.Equal(t, []string{"fresh"}, v)
	assert.Equal(t, newer, e.Seq)
}

func TestCommit_OlderArrivingFirstIsStillDropped(t *testing.T) {
	s := New()
	older := s.Begin(KeyShop)
	newer := s.Begin(KeyShop)

	assert.False(t, s.Commit(KeyShop, older, "old"))
	_, ok := s.Get(KeyShop)
	assert.False(t, ok)

	assert.True(t, s.Commit(KeyShop, newer, "new"))
}

func TestMarkStale_AndRecommit(t *testing.T) {
	s := New()
	seq := s.Begin(KeyInventory)
	require.True(t, s.Commit(KeyInventory, seq, 1))
	assert.False(t, s.NeedsFetch(KeyInventory))

	s.MarkStale(KeyInventory, KeyFriends) // friends not cached: no-op
	assert.True(t, s.NeedsFetch(KeyInventory))
	assert.True(t, s.NeedsFetch(KeyFriends))
	assert.Equal(t, []Key{KeyInventory}, s.StaleKeys())

	seq = s.Begin(KeyInventory)
	require.True(t, s.Commit(KeyInventory, seq, 2))
	e, _ := s.Get(KeyInventory)
	assert.False(t, e.Stale)
	assert.Equal(t, 2, e.Data)
}

func TestPatch_SupersedesInFlightFetch(t *testing.T) {
	s := New()
	seq := s.Begin(KeyPlayer)
	require.True(t, s.Commit(KeyPlayer, seq, 10))

	inFlight := s.Begin(KeyPlayer)
	require.True(t, s.Patch(KeyPlayer, func(old any) any { return old.(int) + 110 }))
	assert.False(t, s.Commit(KeyPlayer, inFlight, 5), "fetch issued before the patch carries older data")

	v, _, _ := Typed[int](s, KeyPlayer)
	assert.Equal(t, 120, v)
}

func TestPatch_MissingKey(t *testing.T) {
	s := New()
	assert.False(t, s.Patch(KeyPlayer, func(old any) any { return old }))
}

func TestMaxAge(t *testing.T) {
	now := time.Unix(1000, 0)
	s := New(WithMaxAge(time.Minute), WithClock(func() time.Time { return now }))
	seq := s.Begin(KeyShop)
	require.True(t, s.Commit(KeyShop, seq, "items"))
	assert.False(t, s.NeedsFetch(KeyShop))

	now = now.Add(61 * time.Second)
	assert.True(t, s.NeedsFetch(KeyShop))
	assert.Equal(t, []Key{KeyShop}, s.StaleKeys())
}

func TestReset_InvalidatesInFlight(t *testing.T) {
	s := New()
	seq := s.Begin(KeyPlayer)
	require.True(t, s.Commit(KeyPlayer, seq, "neo"))

	inFlight := s.Begin(KeyPlayer)
	s.Reset()

	_, ok := s.Get(KeyPlayer)
	assert.False(t, ok)
	assert.False(t, s.Commit(KeyPlayer, inFlight, "neo-late"))
}

func TestVersion_Increments(t *testing.T) {
	s := New()
	v0 := s.Version()
	seq := s.Begin(KeyShop)
	s.Commit(KeyShop, seq, 1)
	s.MarkStale(KeyShop)
	s.MarkStale(KeyShop) // already stale
	assert.Equal(t, v0+2, s.Version())
}
