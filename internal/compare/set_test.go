package compare

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Illuminatus66/byqr/internal/persist"
)

type members map[string]bool

func (m members) Has(id string) bool { return m[id] }

func newSet() (*Set, *persist.Gateway) {
	gw := persist.NewGateway(persist.NewMemStore(), nil)
	return NewSet(gw, nil), gw
}

func TestAdd_NoOpAtCapacityOrWhenPresent(t *testing.T) {
	ctx := context.Background()
	s, _ := newSet()

	assert.True(t, s.Add(ctx, "A"))
	assert.False(t, s.CanCompare())
	assert.False(t, s.Add(ctx, "A"))
	assert.True(t, s.Add(ctx, "B"))
	assert.True(t, s.CanCompare())
	assert.True(t, s.Add(ctx, "C"))

	assert.False(t, s.Add(ctx, "D"))
	assert.Equal(t, []string{"A", "B", "C"}, s.IDs())
	assert.True(t, s.CanCompare())
}

func TestBound_RandomSequences(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))
	ids := []string{"A", "B", "C", "D", "E", "F"}
	s, _ := newSet()

	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			s.Add(ctx, ids[rng.Intn(len(ids))])
		case 1:
			s.Remove(ctx, ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))])
		case 2:
			cat := members{}
			for _, id := range ids {
				cat[id] = rng.Intn(4) > 0
			}
			s.Prune(ctx, cat)
		}
		require.LessOrEqual(t, s.Len(), MaxSize)
		assert.Equal(t, s.Len() >= MinCompare, s.CanCompare())
	}
}

func TestPrune_Completeness(t *testing.T) {
	ctx := context.Background()
	s, _ := newSet()
	for _, id := range []string{"A", "B", "C"} {
		s.Add(ctx, id)
	}

	cat := members{"A": true, "C": true}
	dropped := s.Prune(ctx, cat)

	assert.Equal(t, []string{"B"}, dropped)
	assert.Equal(t, []string{"A", "C"}, s.IDs())
	for _, id := range s.IDs() {
		assert.True(t, cat.Has(id))
	}
}

func TestRemoveMany(t *testing.T) {
	ctx := context.Background()
	s, _ := newSet()
	for _, id := range []string{"A", "B", "C"} {
		s.Add(ctx, id)
	}
	s.Remove(ctx, "A", "C", "Z")
	assert.Equal(t, []string{"B"}, s.IDs())

	s.Clear(ctx)
	assert.Zero(t, s.Len())
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s, gw := newSet()
	s.Add(ctx, "A")
	s.Add(ctx, "B")

	s2 := NewSet(gw, nil)
	require.NoError(t, s2.Restore(ctx))
	assert.Equal(t, []string{"A", "B"}, s2.IDs())
}

func TestRestore_TrimsOversizedBlob(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(persist.NewMemStore(), nil)
	require.NoError(t, gw.Save(ctx, persist.KeyComparison, []string{"A", "A", "B", "C", "D", "E"}))

	s := NewSet(gw, nil)
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, []string{"A", "B", "C"}, s.IDs())
}
