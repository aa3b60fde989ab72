// Package state defines the training state a checkpoint carries: the tagged
// optimizer-state values and the opaque model weights, plus the Model
// capability the checkpoint manager needs from a trainable model.
package state

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ModelState is the opaque snapshot a model produces. Kind names the model
// family so that a snapshot is not applied to an incompatible model.
type ModelState struct {
	Kind    string               `json:"kind"`
	Weights map[string][]float64 `json:"-"`
}

// Model is the capability a trainable model exposes to the checkpoint manager
type Model interface {
	ExtractState() (ModelState, error)
	ApplyState(ModelState) error
}

// Names returns the weight names in sorted order
func (s ModelState) Names() []string {
	names := make([]string, 0, len(s.Weights))
	for name := range s.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumParams returns the total number of scalar weights
func (s ModelState) NumParams() int {
	n := 0
	for _, w := range s.Weights {
		n += len(w)
	}
	return n
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot
func (s ModelState) Clone() ModelState {
	out := ModelState{Kind: s.Kind, Weights: make(map[string][]float64, len(s.Weights))}
	for name, w := range s.Weights {
		out.Weights[name] = append([]float64(nil), w...)
	}
	return out
}

type wireModelState struct {
	Kind    string           `json:"kind"`
	Weights map[string]Value `json:"weights"`
}

// MarshalJSON stores each weight tensor as a tagged float sequence so that
// non-finite weights survive the round trip
func (s ModelState) MarshalJSON() ([]byte, error) {
	w := wireModelState{Kind: s.Kind, Weights: make(map[string]Value, len(s.Weights))}
	for name, weights := range s.Weights {
		w.Weights[name] = Floats(weights...)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON
func (s *ModelState) UnmarshalJSON(data []byte) error {
	var w wireModelState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := ModelState{Kind: w.Kind, Weights: make(map[string][]float64, len(w.Weights))}
	for name, v := range w.Weights {
		if v.Kind != KindFloats {
			return fmt.Errorf("state: weight %q has type %q, want %q", name, v.Kind, KindFloats)
		}
		out.Weights[name] = v.Floats
	}
	*s = out
	return nil
}

// ApproxEqual reports whether two snapshots have the same kind and shapes
// and every weight is within tol of its counterpart
func (s ModelState) ApproxEqual(o ModelState, tol float64) bool {
	if s.Kind != o.Kind || len(s.Weights) != len(o.Weights) {
		return false
	}
	for name, w := range s.Weights {
		ow, ok := o.Weights[name]
		if !ok || len(ow) != len(w) {
			return false
		}
		for i := range w {
			if math.IsNaN(w[i]) && math.IsNaN(ow[i]) {
				continue
			}
			if w[i] == ow[i] {
				continue
			}
			if math.Abs(w[i]-ow[i]) > tol {
				return false
			}
		}
	}
	return true
}
