package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalanet/bloodmatch/internal/model"
)

func TestStore(t *testing.T) {
	t.Run("Empty store", func(t *testing.T) {
		s := NewStore()
		assert.Zero(t, s.Size())
		assert.Empty(t, s.Snapshot())
	})

	t.Run("Replace swaps the pool", func(t *testing.T) {
		s := NewStore()
		s.Replace([]model.Donor{{ID: "D1"}, {ID: "D2"}})
		assert.Equal(t, 2, s.Size())

		s.Replace([]model.Donor{{ID: "D3"}})
		require.Equal(t, 1, s.Size())
		assert.Equal(t, "D3", s.Snapshot()[0].ID)
	})

	t.Run("Snapshot is isolated from later replaces", func(t *testing.T) {
		s := NewStore()
		s.Replace([]model.Donor{{ID: "D1"}})

		snap := s.Snapshot()
		s.Replace([]model.Donor{{ID: "D2"}})

		require.Len(t, snap, 1)
		assert.Equal(t, "D1", snap[0].ID)
	})

	t.Run("Snapshot mutation does not leak back", func(t *testing.T) {
		s := NewStore()
		s.Replace([]model.Donor{{ID: "D1"}})

		snap := s.Snapshot()
		snap[0].ID = "mutated"
		assert.Equal(t, "D1", s.Snapshot()[0].ID)
	})

	t.Run("Concurrent readers and writers", func(t *testing.T) {
		s := NewStore()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				s.Replace([]model.Donor{{ID: "D1"}})
			}()
			go func() {
				defer wg.Done()
				_ = s.Snapshot()
				_ = s.Size()
			}()
		}
		wg.Wait()
	})
}
