// Package mesh extracts triangulated geometry from mesh models, optionally
// with the skin weights of a rig.
package mesh

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/math"
	"github.com/Faultbox/midgard-fbx/pkg/rig"
	"github.com/Faultbox/midgard-fbx/pkg/skin"
)

// Corner is one polygon vertex with its per-corner attributes.
type Corner struct {
	Vertex int
	Normal math.Vec3
	UV     math.Vec2
}

// Mesh is the geometry of one mesh model in engine space.
type Mesh struct {
	Name       string
	ModelID    int64
	GeometryID int64

	// Positions are the control points; corners refer to them by index.
	Positions []math.Vec3
	Corners   []Corner
	Triangles [][3]int
	// TriangleMaterial indexes Materials for every triangle.
	TriangleMaterial []int
	Polygons         int

	// Materials are the material object IDs bound to the model.
	Materials []int64

	HasNormals bool
	HasUVs     bool

	// Weights is nil for static meshes. SkinErr holds the reason when a
	// skin exists but could not be built.
	Weights *skin.Weights
	SkinErr error
}

// VertexSet returns the weight set index of a control point, or skin.NoSet.
func (m *Mesh) VertexSet(vertex int) int {
	if m.Weights == nil || vertex < 0 || vertex >= len(m.Weights.VertexSet) {
		return skin.NoSet
	}
	return m.Weights.VertexSet[vertex]
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Build extracts every mesh model of scene. r may be nil; skins are then
// not resolved. A mesh that fails is left out and its error is joined into
// the returned error, so the remaining meshes stay usable.
func Build(scene *fbx.Scene, r *rig.Rig, opts ...Option) ([]*Mesh, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var meshes []*Mesh
	var errs []error
	for _, model := range scene.Objects("Model") {
		if model.Kind() != "Mesh" {
			continue
		}
		geoms, err := scene.Graph.ResolveSources(model.ID(), "Geometry")
		if err != nil {
			errs = append(errs, fmt.Errorf("mesh %q: %w", model.ObjectName(), err))
			o.logger.Warn("mesh skipped", zap.String("model", model.ObjectName()), zap.Error(err))
			continue
		}
		var geom fbx.Node
		for _, g := range geoms {
			if g.Kind() == "Mesh" {
				geom = g
				break
			}
		}
		if !geom.Valid() {
			o.logger.Debug("mesh model without geometry", zap.String("model", model.ObjectName()))
			continue
		}

		m, err := build(scene, model, geom)
		if err != nil {
			errs = append(errs, fmt.Errorf("mesh %q: %w", model.ObjectName(), err))
			o.logger.Warn("mesh skipped", zap.String("model", model.ObjectName()), zap.Error(err))
			continue
		}

		if r != nil && len(r.Bones) > 0 {
			w, err := skin.Build(scene, geom.ID(), len(m.Positions), r, skin.WithLogger(o.logger))
			if err != nil {
				m.SkinErr = err
				o.logger.Warn("mesh kept static",
					zap.String("model", m.Name),
					zap.Error(err))
			} else {
				m.Weights = w
			}
		}

		o.logger.Debug("mesh built",
			zap.String("model", m.Name),
			zap.Int("vertices", len(m.Positions)),
			zap.Int("triangles", len(m.Triangles)),
			zap.Bool("skinned", m.Weights != nil))
		meshes = append(meshes, m)
	}
	return meshes, errors.Join(errs...)
}

func build(scene *fbx.Scene, model, geom fbx.Node) (*Mesh, error) {
	m := &Mesh{Name: model.ObjectName(), ModelID: model.ID(), GeometryID: geom.ID()}
	mats, err := scene.Graph.ResolveSources(model.ID(), "Material")
	if err != nil {
		return nil, err
	}
	for _, mat := range mats {
		m.Materials = append(m.Materials, mat.ID())
	}

	verts, err := geom.Child("Vertices").Prop(0).AsFloat64s()
	if err != nil {
		return nil, fmt.Errorf("vertices: %w", err)
	}
	if len(verts)%3 != 0 {
		return nil, fmt.Errorf("%w: %d vertex components", fbx.ErrMalformedContainer, len(verts))
	}
	polyIndex, err := geom.Child("PolygonVertexIndex").Prop(0).AsInt32s()
	if err != nil {
		return nil, fmt.Errorf("polygon vertex index: %w", err)
	}

	basis := scene.Basis()
	xf := scene.WorldMatrix(model).Mul(scene.GeometricTransform(model).Matrix())
	normalXf := xf.Inverse().Transpose()
	flip := basis.FlipsWinding() != (xf.Determinant3() < 0)

	m.Positions = make([]math.Vec3, len(verts)/3)
	for i := range m.Positions {
		p := math.Vec3From64(verts[i*3], verts[i*3+1], verts[i*3+2])
		m.Positions[i] = basis.Point(xf.TransformPoint(p))
	}

	normals, normalLayer, err := readNormals(geom)
	if err != nil {
		return nil, err
	}
	uvs, uvLayer, err := readUVs(geom)
	if err != nil {
		return nil, err
	}
	materials, materialLayer, err := readMaterials(geom)
	if err != nil {
		return nil, err
	}
	m.HasNormals = normalLayer != nil
	m.HasUVs = uvLayer != nil

	m.Corners = make([]Corner, len(polyIndex))
	start := 0
	for c, raw := range polyIndex {
		end := raw < 0
		v := int(raw)
		if end {
			v = int(^raw)
		}
		if v >= len(m.Positions) {
			return nil, fmt.Errorf("%w: polygon vertex %d of %d", ErrLayerIndex, v, len(m.Positions))
		}

		corner := Corner{Vertex: v}
		if normalLayer != nil {
			i, err := normalLayer.lookup(c, v, m.Polygons)
			if err != nil {
				return nil, err
			}
			n := math.Vec3From64(normals[i*3], normals[i*3+1], normals[i*3+2])
			corner.Normal = basis.Normal(normalXf.TransformDirection(n))
		}
		if uvLayer != nil {
			i, err := uvLayer.lookup(c, v, m.Polygons)
			if err != nil {
				return nil, err
			}
			corner.UV = math.Vec2{X: float32(uvs[i*2]), Y: float32(uvs[i*2+1])}.FlipV()
		}
		m.Corners[c] = corner

		if !end {
			continue
		}
		material := 0
		if materialLayer != nil {
			i, err := materialLayer.lookup(c, v, m.Polygons)
			if err != nil {
				return nil, err
			}
			material = int(materials[i])
			// a mesh without bound materials still has the implicit slot 0
			if material < 0 || material >= max(len(m.Materials), 1) {
				return nil, fmt.Errorf("%w: polygon %d material %d of %d",
					ErrLayerIndex, m.Polygons, material, len(m.Materials))
			}
		}
		for k := start + 1; k+1 <= c; k++ {
			tri := [3]int{start, k, k + 1}
			if flip {
				tri[1], tri[2] = tri[2], tri[1]
			}
			m.Triangles = append(m.Triangles, tri)
			m.TriangleMaterial = append(m.TriangleMaterial, material)
		}
		m.Polygons++
		start = c + 1
	}
	if start != len(polyIndex) {
		return nil, fmt.Errorf("%w: last polygon is not terminated", fbx.ErrMalformedContainer)
	}
	return m, nil
}

func readNormals(geom fbx.Node) ([]float64, *layer, error) {
	elem := geom.Child("LayerElementNormal")
	if !elem.Valid() {
		return nil, nil, nil
	}
	data, err := elem.Child("Normals").Prop(0).AsFloat64s()
	if err != nil {
		return nil, nil, fmt.Errorf("normals: %w", err)
	}
	l, err := readLayer(elem, "NormalsIndex", len(data)/3)
	return data, l, err
}

func readUVs(geom fbx.Node) ([]float64, *layer, error) {
	elem := geom.Child("LayerElementUV")
	if !elem.Valid() {
		return nil, nil, nil
	}
	data, err := elem.Child("UV").Prop(0).AsFloat64s()
	if err != nil {
		return nil, nil, fmt.Errorf("uv: %w", err)
	}
	l, err := readLayer(elem, "UVIndex", len(data)/2)
	return data, l, err
}

func readMaterials(geom fbx.Node) ([]int32, *layer, error) {
	elem := geom.Child("LayerElementMaterial")
	if !elem.Valid() {
		return nil, nil, nil
	}
	data, err := elem.Child("Materials").Prop(0).AsInt32s()
	if err != nil {
		return nil, nil, fmt.Errorf("materials: %w", err)
	}
	m, err := parseMapping(elem.Name(), elem.Child("MappingInformationType").PropString(0))
	if err != nil {
		return nil, nil, err
	}
	// material indices are always a per-polygon (or single) list of slots
	if m != ByPolygon && m != AllSame {
		return nil, nil, &fbx.MappingError{Element: elem.Name(), Field: "MappingInformationType",
			Value: elem.Child("MappingInformationType").PropString(0)}
	}
	return data, &layer{name: elem.Name(), mapping: m, count: len(data)}, nil
}
