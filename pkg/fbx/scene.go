package fbx

import (
	"fmt"

	"github.com/Faultbox/midgard-fbx/pkg/math"
)

// TicksPerSecond is the container's time resolution.
const TicksPerSecond int64 = 46186158000

// GlobalSettings holds the scene-wide conventions read from the top-level
// "GlobalSettings" record. Every field defaults on its own when absent.
type GlobalSettings struct {
	UpAxis, UpAxisSign       int
	FrontAxis, FrontAxisSign int
	CoordAxis, CoordAxisSign int
	UnitScaleFactor          float64

	TimeMode        int
	CustomFrameRate float64
	TimeSpanStart   int64
	TimeSpanStop    int64

	// AxisFallback is set when the stored axes did not form a permutation
	// and the defaults were used instead.
	AxisFallback bool
}

// DefaultGlobalSettings returns Y-up, +Z front, +X coord, centimeters.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		UpAxis: 1, UpAxisSign: 1,
		FrontAxis: 2, FrontAxisSign: 1,
		CoordAxis: 0, CoordAxisSign: 1,
		UnitScaleFactor: 1,
		CustomFrameRate: -1,
	}
}

// FrameRate returns the frames per second implied by TimeMode, or 0 when
// the mode is the application default.
func (gs GlobalSettings) FrameRate() float64 {
	switch gs.TimeMode {
	case 1:
		return 120
	case 2:
		return 100
	case 3:
		return 60
	case 4:
		return 50
	case 5:
		return 48
	case 6, 7:
		return 30
	case 8, 9:
		return 29.97
	case 10:
		return 25
	case 11:
		return 24
	case 12:
		return 1000
	case 13:
		return 23.976
	case 14:
		if gs.CustomFrameRate > 0 {
			return gs.CustomFrameRate
		}
	case 15:
		return 96
	case 16:
		return 72
	case 17:
		return 59.94
	}
	return 0
}

// Scene owns one decoded container together with its object graph and
// basis. It is read-only after Prepare, so every builder can run over the
// same Scene independently.
type Scene struct {
	Doc      *Document
	Graph    *ObjectGraph
	Path     string
	Settings GlobalSettings

	basis     Basis
	templates map[string]Node
}

// Prepare indexes the document and computes its basis. path is the
// container's location on disk, used to resolve relative file references;
// it may be empty.
func Prepare(doc *Document, path string) (*Scene, error) {
	g, err := NewObjectGraph(doc)
	if err != nil {
		return nil, fmt.Errorf("indexing objects: %w", err)
	}

	s := &Scene{
		Doc:       doc,
		Graph:     g,
		Path:      path,
		templates: make(map[string]Node),
	}

	for _, def := range doc.Root().Child("Definitions").ChildrenNamed("ObjectType") {
		if tmpl := def.Child("PropertyTemplate"); tmpl.Valid() {
			s.templates[def.PropString(0)] = tmpl
		}
	}

	s.Settings = s.readGlobalSettings()
	s.basis = NewBasis(s.Settings)
	return s, nil
}

// Basis returns the scene's cached basis.
func (s *Scene) Basis() Basis { return s.basis }

func (s *Scene) readGlobalSettings() GlobalSettings {
	gs := DefaultGlobalSettings()
	node := s.Doc.Root().Child("GlobalSettings")

	gs.UpAxis = int(s.PropertyInt(node, "UpAxis", int64(gs.UpAxis)))
	gs.UpAxisSign = sign(s.PropertyInt(node, "UpAxisSign", int64(gs.UpAxisSign)))
	gs.FrontAxis = int(s.PropertyInt(node, "FrontAxis", int64(gs.FrontAxis)))
	gs.FrontAxisSign = sign(s.PropertyInt(node, "FrontAxisSign", int64(gs.FrontAxisSign)))
	gs.CoordAxis = int(s.PropertyInt(node, "CoordAxis", int64(gs.CoordAxis)))
	gs.CoordAxisSign = sign(s.PropertyInt(node, "CoordAxisSign", int64(gs.CoordAxisSign)))
	gs.UnitScaleFactor = s.PropertyFloat(node, "UnitScaleFactor", gs.UnitScaleFactor)
	if gs.UnitScaleFactor <= 0 {
		gs.UnitScaleFactor = 1
	}

	gs.TimeMode = int(s.PropertyInt(node, "TimeMode", 0))
	gs.CustomFrameRate = s.PropertyFloat(node, "CustomFrameRate", gs.CustomFrameRate)
	gs.TimeSpanStart = s.PropertyInt(node, "TimeSpanStart", 0)
	gs.TimeSpanStop = s.PropertyInt(node, "TimeSpanStop", 0)

	if !isPermutation(gs.CoordAxis, gs.UpAxis, gs.FrontAxis) {
		def := DefaultGlobalSettings()
		gs.CoordAxis, gs.UpAxis, gs.FrontAxis = def.CoordAxis, def.UpAxis, def.FrontAxis
		gs.AxisFallback = true
	}
	return gs
}

func sign(v int64) int {
	if v < 0 {
		return -1
	}
	return 1
}

func isPermutation(a, b, c int) bool {
	seen := [3]bool{}
	for _, v := range []int{a, b, c} {
		if v < 0 || v > 2 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Property returns the "P" record named name from obj's Properties70,
// falling back to the property template for obj's record type.
func (s *Scene) Property(obj Node, name string) (Node, bool) {
	if p, ok := findProperty(obj, name); ok {
		return p, true
	}
	if tmpl, ok := s.templates[obj.Name()]; ok {
		return findProperty(tmpl, name)
	}
	return Node{}, false
}

func findProperty(obj Node, name string) (Node, bool) {
	for _, p := range obj.Child("Properties70").ChildrenNamed("P") {
		if p.PropString(0) == name {
			return p, true
		}
	}
	return Node{}, false
}

// PropertyFloat reads the first value of a property as a float.
func (s *Scene) PropertyFloat(obj Node, name string, def float64) float64 {
	p, ok := s.Property(obj, name)
	if !ok {
		return def
	}
	v, err := p.Prop(4).AsFloat64()
	if err != nil {
		return def
	}
	return v
}

// PropertyInt reads the first value of a property as an integer.
func (s *Scene) PropertyInt(obj Node, name string, def int64) int64 {
	p, ok := s.Property(obj, name)
	if !ok {
		return def
	}
	v, err := p.Prop(4).AsInt64()
	if err != nil {
		return def
	}
	return v
}

// PropertyString reads the first value of a property as a string.
func (s *Scene) PropertyString(obj Node, name string, def string) string {
	p, ok := s.Property(obj, name)
	if !ok {
		return def
	}
	v, err := p.Prop(4).AsString()
	if err != nil {
		return def
	}
	return v
}

// PropertyVec3 reads three consecutive values of a property.
func (s *Scene) PropertyVec3(obj Node, name string, def math.Vec3) math.Vec3 {
	p, ok := s.Property(obj, name)
	if !ok {
		return def
	}
	var v [3]float64
	for i := range v {
		f, err := p.Prop(4 + i).AsFloat64()
		if err != nil {
			return def
		}
		v[i] = f
	}
	return math.Vec3From64(v[0], v[1], v[2])
}

// NodeTransform reads the transform channels of a Model record in
// container space.
func (s *Scene) NodeTransform(model Node) math.NodeTransform {
	var zero math.Vec3
	return math.NodeTransform{
		Translation:    s.PropertyVec3(model, "Lcl Translation", zero),
		Rotation:       s.PropertyVec3(model, "Lcl Rotation", zero),
		Scaling:        s.PropertyVec3(model, "Lcl Scaling", math.Vec3{X: 1, Y: 1, Z: 1}),
		Order:          math.RotationOrder(s.PropertyInt(model, "RotationOrder", 0)),
		PreRotation:    s.PropertyVec3(model, "PreRotation", zero),
		PostRotation:   s.PropertyVec3(model, "PostRotation", zero),
		RotationOffset: s.PropertyVec3(model, "RotationOffset", zero),
		RotationPivot:  s.PropertyVec3(model, "RotationPivot", zero),
		ScalingOffset:  s.PropertyVec3(model, "ScalingOffset", zero),
		ScalingPivot:   s.PropertyVec3(model, "ScalingPivot", zero),
	}
}

// GeometricTransform reads the vertex-only offset of a Model record.
func (s *Scene) GeometricTransform(model Node) math.GeometricTransform {
	var zero math.Vec3
	return math.GeometricTransform{
		Translation: s.PropertyVec3(model, "GeometricTranslation", zero),
		Rotation:    s.PropertyVec3(model, "GeometricRotation", zero),
		Scaling:     s.PropertyVec3(model, "GeometricScaling", math.Vec3{X: 1, Y: 1, Z: 1}),
	}
}

// ParentModel returns the Model record that model is connected under.
func (s *Scene) ParentModel(model Node) (Node, bool) {
	for _, c := range s.Graph.Targets(model.ID()) {
		if c.Kind != ConnObjectObject {
			continue
		}
		if p, ok := s.Graph.RecordWithIDOrNone(c.Target); ok && p.Name() == "Model" {
			return p, true
		}
	}
	return Node{}, false
}

// WorldMatrix composes model's local matrix with those of its ancestors,
// in container space. Cyclic parent chains stop at the first repeat.
func (s *Scene) WorldMatrix(model Node) math.Mat4 {
	m := s.NodeTransform(model).Matrix()
	seen := map[int64]bool{model.ID(): true}
	for p, ok := s.ParentModel(model); ok && !seen[p.ID()]; p, ok = s.ParentModel(p) {
		seen[p.ID()] = true
		m = s.NodeTransform(p).Matrix().Mul(m)
	}
	return m
}

// Objects returns the direct children of "Objects" with the given record
// name, in file order.
func (s *Scene) Objects(name string) []Node {
	return s.Doc.Root().Child("Objects").ChildrenNamed(name)
}
