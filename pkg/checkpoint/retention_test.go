package checkpoint

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func meta(epoch, batch int, created time.Time) Metadata {
	return Metadata{
		ID:        checkpointName(epoch, batch, created),
		Epoch:     epoch,
		Batch:     batch,
		CreatedAt: created,
	}
}

func TestPrune(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	all := []Metadata{
		meta(0, 10, base),
		meta(2, 0, base.Add(time.Second)),
		meta(1, 99, base.Add(2*time.Second)),
		meta(2, 5, base.Add(3*time.Second)),
	}

	tests := []struct {
		name    string
		max     int
		deleted [][2]int
	}{
		{"under limit", 10, nil},
		{"at limit", 4, nil},
		{"keep two", 2, [][2]int{{1, 99}, {0, 10}}},
		{"keep one", 1, [][2]int{{2, 0}, {1, 99}, {0, 10}}},
		{"unlimited", 0, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doomed := Prune(all, test.max)
			if test.deleted == nil {
				assert.Empty(t, doomed)
				return
			}
			assert.Equal(t, test.deleted, progressOf(doomed))
		})
	}
}

func TestPruneDoesNotReorderInput(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	all := []Metadata{meta(0, 0, base), meta(5, 0, base), meta(3, 0, base)}

	Prune(all, 1)

	assert.Equal(t, [][2]int{{0, 0}, {5, 0}, {3, 0}}, progressOf(all))
}

func TestPruneIsIdempotent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var all []Metadata
	for i := 0; i < 8; i++ {
		all = append(all, meta(i%3, i, base.Add(time.Duration(i)*time.Minute)))
	}

	doomed := Prune(all, 3)
	gone := make(map[string]bool)
	for _, md := range doomed {
		gone[md.ID] = true
	}
	var kept []Metadata
	for _, md := range all {
		if !gone[md.ID] {
			kept = append(kept, md)
		}
	}

	assert.Len(t, kept, 3)
	assert.Empty(t, Prune(kept, 3))
}

func TestPruneTiesBrokenByCreatedAt(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := meta(4, 4, base)
	newer := meta(4, 4, base.Add(time.Millisecond))

	doomed := Prune([]Metadata{newer, older}, 1)

	assert.Len(t, doomed, 1)
	assert.Equal(t, older.ID, doomed[0].ID)
}

func TestPruneIsOrderIndependent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var all []Metadata
	for i := 0; i < 12; i++ {
		all = append(all, meta(i%4, (i*7)%5, base.Add(time.Duration(i)*time.Second)))
	}
	want := keptIDs(all, Prune(all, 5))

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		shuffled := append([]Metadata(nil), all...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		assert.Equal(t, want, keptIDs(shuffled, Prune(shuffled, 5)), fmt.Sprintf("round %d", round))
	}
}

func keptIDs(all, doomed []Metadata) map[string]bool {
	gone := make(map[string]bool)
	for _, md := range doomed {
		gone[md.ID] = true
	}
	kept := make(map[string]bool)
	for _, md := range all {
		if !gone[md.ID] {
			kept[md.ID] = true
		}
	}
	return kept
}

func TestCompare(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, Compare(meta(10, 50, base), meta(3, 999, base)))
	assert.Equal(t, -1, Compare(meta(3, 1, base), meta(3, 2, base)))
	assert.Equal(t, 1, Compare(meta(3, 2, base.Add(time.Second)), meta(3, 2, base)))
	assert.Equal(t, 0, Compare(meta(3, 2, base), meta(3, 2, base)))
}

func TestBest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, best(nil))
	top := best([]Metadata{meta(3, 999, base), meta(10, 50, base), meta(10, 49, base)})
	assert.Equal(t, 10, top.Epoch)
	assert.Equal(t, 50, top.Batch)
}
