package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		s := NewMemoryStorage[string, int]()
		s.Set("a", 1)

		v, ok := s.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = s.Get("missing")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		s := NewMemoryStorage[string, int]()
		s.Set("a", 1)

		assert.True(t, s.Delete("a"))
		assert.False(t, s.Delete("a"))
		assert.Zero(t, s.Count())
	})

	t.Run("dirty tracking", func(t *testing.T) {
		s := NewMemoryStorage[string, int]()
		s.Set("a", 1)
		s.Set("b", 2)

		dirty := s.GetDirty()
		assert.Len(t, dirty, 2)

		s.ClearDirty([]string{"a"})
		dirty = s.GetDirty()
		require.Len(t, dirty, 1)
		assert.Equal(t, 2, dirty["b"])

		// Updating re-marks the key dirty
		s.Set("a", 3)
		assert.Len(t, s.GetDirty(), 2)
	})

	t.Run("for each can stop early", func(t *testing.T) {
		s := NewMemoryStorage[string, int]()
		s.Set("a", 1)
		s.Set("b", 2)
		s.Set("c", 3)

		visited := 0
		s.ForEach(func(key string, value int) bool {
			visited++
			return false
		})
		assert.Equal(t, 1, visited)
	})

	t.Run("get all returns a copy", func(t *testing.T) {
		s := NewMemoryStorage[string, int]()
		s.Set("a", 1)

		all := s.GetAll()
		all["a"] = 99

		v, _ := s.Get("a")
		assert.Equal(t, 1, v)
	})
}
