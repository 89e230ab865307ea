// Package skin turns per-bone cluster weights into a compact per-vertex
// weight representation with shared weights and weight sets.
package skin

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/math"
	"github.com/Faultbox/midgard-fbx/pkg/rig"
)

const (
	// MatchTolerance is the largest difference between two weights of the
	// same bone that still share one table entry.
	MatchTolerance = 0.001

	// ZeroInfluence is the smallest weight sum that still counts as skinned.
	ZeroInfluence = 1e-4
)

// NoSet marks a vertex without effective influence.
const NoSet = -1

var (
	ErrClusterLength = errors.New("cluster index and weight arrays differ in length")
	ErrVertexIndex   = errors.New("cluster vertex index out of range")
)

// Group describes the weight sets sharing one influence count. Sets of a
// group occupy the contiguous range [FirstSet, FirstSet+Sets).
type Group struct {
	Influences int
	FirstSet   int
	Sets       int
	Vertices   int
}

// Bind is the bind-time placement of one cluster, in engine space.
type Bind struct {
	Bone          int
	Transform     math.Mat4
	TransformLink math.Mat4
}

// Weights is the skin of one geometry.
type Weights struct {
	Weights []Weight
	Sets    []WeightSet
	Groups  []Group

	// VertexSet maps every vertex to its weight set, or NoSet.
	VertexSet []int

	Binds []Bind

	// Unmatched names clusters whose bone is not part of the rig.
	Unmatched []string
}

// SetFor returns the weight set of a vertex, if it has one.
func (w *Weights) SetFor(vertex int) (WeightSet, bool) {
	if vertex < 0 || vertex >= len(w.VertexSet) || w.VertexSet[vertex] == NoSet {
		return WeightSet{}, false
	}
	return w.Sets[w.VertexSet[vertex]], true
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	tolerance float32
}

// WithLogger sets the logger unmatched clusters are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// provisional is one raw influence in the working buffer. next links the
// influences of one vertex by buffer index.
type provisional struct {
	bone   int
	weight float32
	next   int
}

// Build collects the skin deformers bound to a geometry. It returns nil
// without error when the geometry is not skinned.
func Build(scene *fbx.Scene, geometryID int64, vertexCount int, r *rig.Rig, opts ...Option) (*Weights, error) {
	o := options{logger: zap.NewNop(), tolerance: MatchTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	geom, err := scene.Graph.RecordWithID(geometryID)
	if err != nil {
		return nil, fmt.Errorf("skin of geometry: %w", err)
	}

	deformers, err := scene.Graph.ResolveSources(geometryID, "Deformer")
	if err != nil {
		return nil, fmt.Errorf("deformers of geometry %q: %w", geom.ObjectName(), err)
	}
	var skins []fbx.Node
	for _, d := range deformers {
		if d.Kind() == "Skin" {
			skins = append(skins, d)
		}
	}
	if len(skins) == 0 {
		return nil, nil
	}

	basis := scene.Basis()
	out := &Weights{VertexSet: make([]int, vertexCount)}

	var buf []provisional
	head := make([]int, vertexCount)
	for i := range head {
		head[i] = -1
	}

	for _, sk := range skins {
		clusters, err := scene.Graph.ResolveSources(sk.ID(), "Deformer")
		if err != nil {
			return nil, fmt.Errorf("clusters of skin %q: %w", sk.ObjectName(), err)
		}
		for _, cluster := range clusters {
			if cluster.Kind() != "Cluster" {
				continue
			}
			bone, ok, err := clusterBone(scene, cluster, r)
			if err != nil {
				return nil, err
			}
			if !ok {
				out.Unmatched = append(out.Unmatched, cluster.ObjectName())
				o.logger.Warn("cluster has no rig bone",
					zap.String("cluster", cluster.ObjectName()),
					zap.Int64("object_id", cluster.ID()),
					zap.String("geometry", geom.ObjectName()))
				continue
			}

			indices, weights, err := clusterArrays(cluster)
			if err != nil {
				return nil, err
			}
			for i, v := range indices {
				if v < 0 || int(v) >= vertexCount {
					return nil, fmt.Errorf("%w: cluster %q vertex %d, geometry has %d",
						ErrVertexIndex, cluster.ObjectName(), v, vertexCount)
				}
				buf = appendInfluence(buf, head, int(v), bone, float32(weights[i]))
			}

			b := Bind{Bone: bone}
			if m, err := cluster.Child("Transform").Prop(0).AsFloat64s(); err == nil && len(m) == 16 {
				b.Transform = basis.Transform(math.Mat4From64(m))
			}
			if m, err := cluster.Child("TransformLink").Prop(0).AsFloat64s(); err == nil && len(m) == 16 {
				b.TransformLink = basis.Transform(math.Mat4From64(m))
			}
			out.Binds = append(out.Binds, b)
		}
	}

	table := NewTable(o.tolerance)
	var scratch []int
	for v := range vertexCount {
		var sum float32
		for h := head[v]; h != -1; h = buf[h].next {
			sum += buf[h].weight
		}
		if sum < ZeroInfluence {
			out.VertexSet[v] = NoSet
			continue
		}

		scratch = scratch[:0]
		for h := head[v]; h != -1; h = buf[h].next {
			scratch = append(scratch, table.AddWeight(buf[h].bone, buf[h].weight/sum))
		}
		out.VertexSet[v] = table.AddSet(scratch)
	}

	out.Weights = table.Weights()
	out.Sets, out.Groups = group(table.Sets(), out.VertexSet)

	o.logger.Debug("skin built",
		zap.String("geometry", geom.ObjectName()),
		zap.Int("weights", len(out.Weights)),
		zap.Int("sets", len(out.Sets)),
		zap.Int("groups", len(out.Groups)),
		zap.Int("unmatched", len(out.Unmatched)))
	return out, nil
}

// appendInfluence adds a raw weight to a vertex, merging it into an
// existing influence of the same bone.
func appendInfluence(buf []provisional, head []int, vertex, bone int, weight float32) []provisional {
	last := -1
	for h := head[vertex]; h != -1; h = buf[h].next {
		if buf[h].bone == bone {
			buf[h].weight += weight
			return buf
		}
		last = h
	}
	buf = append(buf, provisional{bone: bone, weight: weight, next: -1})
	if last == -1 {
		head[vertex] = len(buf) - 1
	} else {
		buf[last].next = len(buf) - 1
	}
	return buf
}

func clusterBone(scene *fbx.Scene, cluster fbx.Node, r *rig.Rig) (int, bool, error) {
	models, err := scene.Graph.ResolveSources(cluster.ID(), "Model")
	if err != nil {
		return 0, false, fmt.Errorf("bone of cluster %q: %w", cluster.ObjectName(), err)
	}
	if r == nil {
		return 0, false, nil
	}
	for _, m := range models {
		if i, ok := r.BoneByModel(m.ID()); ok {
			return i, true, nil
		}
		if i, ok := r.BoneNamed(m.ObjectName()); ok {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func clusterArrays(cluster fbx.Node) ([]int32, []float64, error) {
	idx := cluster.Child("Indexes")
	wts := cluster.Child("Weights")
	if !idx.Valid() && !wts.Valid() {
		return nil, nil, nil
	}
	indices, err := idx.Prop(0).AsInt32s()
	if err != nil {
		return nil, nil, fmt.Errorf("cluster %q indexes: %w", cluster.ObjectName(), err)
	}
	weights, err := wts.Prop(0).AsFloat64s()
	if err != nil {
		return nil, nil, fmt.Errorf("cluster %q weights: %w", cluster.ObjectName(), err)
	}
	if len(indices) != len(weights) {
		return nil, nil, fmt.Errorf("%w: cluster %q has %d indexes and %d weights",
			ErrClusterLength, cluster.ObjectName(), len(indices), len(weights))
	}
	return indices, weights, nil
}

// group orders sets by cardinality, remaps vertexSet in place and counts
// sets and vertices per cardinality.
func group(sets []WeightSet, vertexSet []int) ([]WeightSet, []Group) {
	order := make([]int, len(sets))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return len(sets[a].Weights) - len(sets[b].Weights)
	})

	remap := make([]int, len(sets))
	sorted := make([]WeightSet, len(sets))
	var groups []Group
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
		sorted[newIdx] = sets[oldIdx]

		n := len(sets[oldIdx].Weights)
		if len(groups) == 0 || groups[len(groups)-1].Influences != n {
			groups = append(groups, Group{Influences: n, FirstSet: newIdx})
		}
		groups[len(groups)-1].Sets++
	}

	for v, s := range vertexSet {
		if s == NoSet {
			continue
		}
		vertexSet[v] = remap[s]
		for i := range groups {
			g := &groups[i]
			if vertexSet[v] >= g.FirstSet && vertexSet[v] < g.FirstSet+g.Sets {
				g.Vertices++
				break
			}
		}
	}
	return sorted, groups
}
