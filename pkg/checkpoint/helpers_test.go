package checkpoint

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"trainckpt/pkg/state"
)

// fakeModel is a minimal state.Model holding its weights in memory
type fakeModel struct {
	kind       string
	weights    map[string][]float64
	extractErr error
}

func newFakeModel(seed float64) *fakeModel {
	return &fakeModel{
		kind: "fake/v1",
		weights: map[string][]float64{
			"dense/kernel": {seed, seed * 2, -seed / 3},
			"dense/bias":   {seed + 0.5},
		},
	}
}

func (f *fakeModel) ExtractState() (state.ModelState, error) {
	if f.extractErr != nil {
		return state.ModelState{}, f.extractErr
	}
	return state.ModelState{Kind: f.kind, Weights: f.weights}.Clone(), nil
}

func (f *fakeModel) ApplyState(s state.ModelState) error {
	if s.Kind != f.kind {
		return errors.New("incompatible model state")
	}
	f.weights = s.Clone().Weights
	return nil
}

// stepClock returns strictly increasing times, one second apart
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

func newTestManager(t *testing.T, maxCheckpoints int, opts ...StoreOption) (*Manager, *FSStore) {
	t.Helper()
	store, err := NewFSStore(t.TempDir(), append([]StoreOption{WithClock(newStepClock().Now)}, opts...)...)
	require.NoError(t, err)
	mgr, err := NewManager(Config{MaxCheckpoints: maxCheckpoints, Location: time.UTC}, WithStore(store))
	require.NoError(t, err)
	return mgr, store
}

func progressOf(mds []Metadata) [][2]int {
	out := make([][2]int, len(mds))
	for i, md := range mds {
		out[i] = [2]int{md.Epoch, md.Batch}
	}
	return out
}

// permutations returns every ordering of pairs
func permutations(pairs [][2]int) [][][2]int {
	if len(pairs) <= 1 {
		return [][][2]int{append([][2]int(nil), pairs...)}
	}
	var out [][][2]int
	for i := range pairs {
		rest := make([][2]int, 0, len(pairs)-1)
		rest = append(rest, pairs[:i]...)
		rest = append(rest, pairs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([][2]int{pairs[i]}, p...))
		}
	}
	return out
}
