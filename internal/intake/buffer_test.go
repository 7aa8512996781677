package intake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalanet/bloodmatch/internal/model"
)

func TestBuffer(t *testing.T) {
	t.Run("Drain empties the buffer", func(t *testing.T) {
		var b Buffer
		b.Add(model.EmergencyRequest{RequestID: "REQ1"})
		b.Add(model.EmergencyRequest{RequestID: "REQ2"})
		require.Equal(t, 2, b.Len())

		drained := b.Drain()
		assert.Len(t, drained, 2)
		assert.Equal(t, "REQ1", drained[0].RequestID)
		assert.Zero(t, b.Len())
	})

	t.Run("Drain on empty buffer", func(t *testing.T) {
		var b Buffer
		assert.Empty(t, b.Drain())
	})

	t.Run("Adds after drain start a fresh batch", func(t *testing.T) {
		var b Buffer
		b.Add(model.EmergencyRequest{RequestID: "REQ1"})
		b.Drain()

		b.Add(model.EmergencyRequest{RequestID: "REQ2"})
		drained := b.Drain()
		require.Len(t, drained, 1)
		assert.Equal(t, "REQ2", drained[0].RequestID)
	})

	t.Run("Concurrent producers", func(t *testing.T) {
		var b Buffer
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Add(model.EmergencyRequest{RequestID: "REQ"})
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, b.Len())
	})
}
