package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRU_TTLExpiry(t *testing.T) {
	c := NewLRU(10, time.Minute)
	c.SetTTL("a", "value", -time.Second) // already expired

	_, ok := c.Get("a")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestLRU_EvictsOldest(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRU_UpdateExistingKeepsSize(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestLRU_ClearResetsCounters(t *testing.T) {
	c := NewLRU(10, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("b")

	c.Clear()
	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestPolicy_KeyStableAndFieldSensitive(t *testing.T) {
	p := NodePolicies[NodeDataAgent]

	k1 := p.Key(NodeDataAgent, map[string]any{"question": "ventas", "date_from": "2025-01-01", "date_to": "2025-02-01"})
	k2 := p.Key(NodeDataAgent, map[string]any{"question": "ventas", "date_from": "2025-01-01", "date_to": "2025-02-01"})
	k3 := p.Key(NodeDataAgent, map[string]any{"question": "ventas", "date_from": "2025-02-01", "date_to": "2025-03-01"})

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	// node prefix + 16 hex chars
	assert.Len(t, k1, len(NodeDataAgent)+1+16)
}

func TestPolicy_KeyIgnoresNilFields(t *testing.T) {
	p := NodePolicies[NodeDataAgent]

	k1 := p.Key(NodeDataAgent, map[string]any{"question": "ventas"})
	k2 := p.Key(NodeDataAgent, map[string]any{"question": "ventas", "date_from": nil})
	assert.Equal(t, k1, k2)
}

func TestSet_InvalidateAll(t *testing.T) {
	s := NewSet()
	s.For(NodeRouter).Set("k", 1)
	s.For(NodeDataAgent).Set("k", 2)

	s.InvalidateAll()

	_, ok := s.For(NodeRouter).Get("k")
	assert.False(t, ok)
	_, ok = s.For(NodeDataAgent).Get("k")
	assert.False(t, ok)
}

func TestSet_UnknownNodeUsesDataCache(t *testing.T) {
	s := NewSet()
	s.For("Reflection").Set("k", 1)
	v, ok := s.For(NodeDataAgent).Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}
