package skin

import "slices"

// Weight is one distinct bone influence.
type Weight struct {
	Bone   int
	Weight float32
}

// WeightSet lists the weights of one vertex as indices into the weight table.
type WeightSet struct {
	Weights []int
}

// Table deduplicates weights and weight sets with linear scans. A weight
// matches an entry with the same bone whose value is within the tolerance.
// A set matches an entry of the same cardinality holding the same indices
// in any order.
type Table struct {
	tolerance float32
	weights   []Weight
	sets      []WeightSet
}

// NewTable returns an empty table with the given match tolerance.
func NewTable(tolerance float32) *Table {
	return &Table{tolerance: tolerance}
}

// AddWeight returns the index of a matching weight, appending one if none
// exists.
func (t *Table) AddWeight(bone int, weight float32) int {
	for i, w := range t.weights {
		if w.Bone == bone && abs(w.Weight-weight) < t.tolerance {
			return i
		}
	}
	t.weights = append(t.weights, Weight{Bone: bone, Weight: weight})
	return len(t.weights) - 1
}

// AddSet returns the index of a matching weight set, appending a copy of
// indices if none exists.
func (t *Table) AddSet(indices []int) int {
	for i, s := range t.sets {
		if sameSet(s.Weights, indices) {
			return i
		}
	}
	t.sets = append(t.sets, WeightSet{Weights: slices.Clone(indices)})
	return len(t.sets) - 1
}

// Weights returns the distinct weights added so far.
func (t *Table) Weights() []Weight { return t.weights }

// Sets returns the distinct weight sets added so far.
func (t *Table) Sets() []WeightSet { return t.sets }

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range b {
		if !slices.Contains(a, x) {
			return false
		}
	}
	return true
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
