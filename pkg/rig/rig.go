// Package rig builds an index-linked bone hierarchy from a prepared scene.
package rig

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/math"
)

// Model kinds that make up a skeleton.
const (
	KindLimbNode = "LimbNode"
	KindRoot     = "Root"
)

// NoParent marks a root bone.
const NoParent = -1

// Bone is one joint of the rig. Matrices and the decomposed rest pose are
// in engine space; Local keeps the raw container channels for animation.
type Bone struct {
	Index   int
	Name    string
	ModelID int64
	Kind    string
	Parent  int

	Local       math.NodeTransform
	LocalMatrix math.Mat4
	WorldMatrix math.Mat4

	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3

	// BindMatrix is the pose's global matrix for this bone, when the
	// container has a bind pose entry for it.
	BindMatrix math.Mat4
	HasBind    bool
}

// DiagnosticKind classifies a recoverable rig inconsistency.
type DiagnosticKind int

const (
	DuplicateName DiagnosticKind = iota
	MissingParent
	AmbiguousParent
)

func (k DiagnosticKind) String() string {
	switch k {
	case DuplicateName:
		return "duplicate-name"
	case MissingParent:
		return "missing-parent"
	case AmbiguousParent:
		return "ambiguous-parent"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic records a bone that was dropped or attached as a root
// because the source data was inconsistent.
type Diagnostic struct {
	Kind    DiagnosticKind
	Bone    string
	ModelID int64
	Err     error
}

// Rig is the result of Build. Bones are ordered so that every parent
// precedes its children.
type Rig struct {
	Bones       []Bone
	Diagnostics []Diagnostic

	byName  map[string]int
	byModel map[int64]int
}

// BoneNamed returns the index of the bone with the given name.
func (r *Rig) BoneNamed(name string) (int, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// BoneByModel returns the index of the bone built from a model ID.
func (r *Rig) BoneByModel(id int64) (int, bool) {
	i, ok := r.byModel[id]
	return i, ok
}

// Roots returns the indices of all parentless bones.
func (r *Rig) Roots() []int {
	var out []int
	for _, b := range r.Bones {
		if b.Parent == NoParent {
			out = append(out, b.Index)
		}
	}
	return out
}

// Err joins the topology errors among the diagnostics. Dropped duplicate
// names are not errors and are left out.
func (r *Rig) Err() error {
	var errs []error
	for _, d := range r.Diagnostics {
		if d.Kind != DuplicateName {
			errs = append(errs, d.Err)
		}
	}
	return errors.Join(errs...)
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger diagnostics are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Build collects the skeleton of scene. Bones are found through the bind
// pose when one exists, then through Root-kind models, and finally through
// LimbNodes whose parent is not a skeleton node.
//
// A pose entry that points at a missing object fails the build with an
// error matching fbx.ErrUnresolvedReference. Duplicate names and parent
// inconsistencies are recovered from and reported in Rig.Diagnostics.
func Build(scene *fbx.Scene, opts ...Option) (*Rig, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &builder{
		scene:   scene,
		log:     o.logger,
		byName:  make(map[string]int),
		byModel: make(map[int64]int),
		visited: make(map[int64]bool),
		binds:   make(map[int64]math.Mat4),
		entries: make(map[int64]bool),
	}

	if err := b.collect(); err != nil {
		return nil, err
	}
	if err := b.resolveParents(); err != nil {
		return nil, err
	}
	r := b.finish()

	b.log.Debug("rig built",
		zap.Int("bones", len(r.Bones)),
		zap.Int("roots", len(r.Roots())),
		zap.Int("diagnostics", len(r.Diagnostics)))
	return r, nil
}

type builder struct {
	scene *fbx.Scene
	log   *zap.Logger

	bones   []Bone
	diags   []Diagnostic
	byName  map[string]int
	byModel map[int64]int

	visited map[int64]bool
	binds   map[int64]math.Mat4
	// entries are models a descent started from; they may be parentless.
	entries map[int64]bool
}

func isSkeleton(n fbx.Node) bool {
	if n.Name() != "Model" {
		return false
	}
	k := n.Kind()
	return k == KindLimbNode || k == KindRoot
}

func (b *builder) collect() error {
	if err := b.fromPoses(); err != nil {
		return err
	}
	if len(b.bones) > 0 {
		return nil
	}

	for _, m := range b.scene.Objects("Model") {
		if m.Kind() == KindRoot {
			b.entries[m.ID()] = true
			b.add(m)
			if err := b.descend(m); err != nil {
				return err
			}
		}
	}
	if len(b.bones) > 0 {
		return nil
	}

	for _, m := range b.scene.Objects("Model") {
		if m.Kind() != KindLimbNode {
			continue
		}
		if p, ok := b.scene.ParentModel(m); ok && isSkeleton(p) {
			continue
		}
		b.entries[m.ID()] = true
		b.add(m)
		if err := b.descend(m); err != nil {
			return err
		}
	}
	if len(b.bones) > 0 {
		b.log.Debug("skeleton found by LimbNode heuristic", zap.Int("roots", len(b.entries)))
	}
	return nil
}

func (b *builder) fromPoses() error {
	for _, pose := range b.scene.Objects("Pose") {
		for _, pn := range pose.ChildrenNamed("PoseNode") {
			id, err := pn.Child("Node").Prop(0).AsInt64()
			if err != nil {
				return fmt.Errorf("pose %q node at offset %d: %w", pose.ObjectName(), pn.Offset(), err)
			}
			model, err := b.scene.Graph.RecordWithID(id)
			if err != nil {
				var re *fbx.ReferenceError
				if errors.As(err, &re) {
					re.Context = "PoseNode of " + pose.ObjectName()
				}
				return err
			}
			if m, err := pn.Child("Matrix").Prop(0).AsFloat64s(); err == nil && len(m) == 16 {
				b.binds[id] = math.Mat4From64(m)
			}

			switch model.Kind() {
			case KindLimbNode:
				b.add(model)
			case KindRoot:
				b.entries[id] = true
				b.add(model)
				if err := b.descend(model); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// descend walks child models of a skeleton node. Each model is expanded at
// most once, which terminates diamonds and cycles. A connection from a
// missing object fails the walk.
func (b *builder) descend(model fbx.Node) error {
	if b.visited[model.ID()] {
		return nil
	}
	b.visited[model.ID()] = true

	children, err := b.scene.Graph.ResolveSources(model.ID(), "Model")
	if err != nil {
		return fmt.Errorf("children of bone %q: %w", model.ObjectName(), err)
	}
	for _, child := range children {
		if !isSkeleton(child) {
			continue
		}
		if b.add(child) {
			if err := b.descend(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// add creates a bone for model unless one exists. It reports whether the
// model is now part of the rig.
func (b *builder) add(model fbx.Node) bool {
	id := model.ID()
	if _, ok := b.byModel[id]; ok {
		return true
	}
	name := model.ObjectName()
	if prev, ok := b.byName[name]; ok {
		b.diags = append(b.diags, Diagnostic{
			Kind:    DuplicateName,
			Bone:    name,
			ModelID: id,
			Err:     fmt.Errorf("bone %q: model %d duplicates model %d", name, id, b.bones[prev].ModelID),
		})
		b.log.Warn("dropping duplicate bone",
			zap.String("bone", name),
			zap.Int64("object_id", id),
			zap.Int64("kept_object_id", b.bones[prev].ModelID),
			zap.String("reason", DuplicateName.String()))
		return false
	}

	i := len(b.bones)
	b.bones = append(b.bones, Bone{
		Name:    name,
		ModelID: id,
		Kind:    model.Kind(),
		Parent:  NoParent,
		Local:   b.scene.NodeTransform(model),
	})
	b.byName[name] = i
	b.byModel[id] = i
	return true
}

func (b *builder) resolveParents() error {
	for i := range b.bones {
		bone := &b.bones[i]

		var parents []int64
		toSceneRoot := false
		seen := make(map[int64]bool)
		for _, c := range b.scene.Graph.Targets(bone.ModelID) {
			if c.Kind != fbx.ConnObjectObject || seen[c.Target] {
				continue
			}
			seen[c.Target] = true
			if c.Target == 0 {
				toSceneRoot = true
				continue
			}
			n, err := b.scene.Graph.RecordWithID(c.Target)
			if err != nil {
				return fmt.Errorf("parent of bone %q: %w", bone.Name, err)
			}
			if n.Name() == "Model" {
				parents = append(parents, c.Target)
			}
		}

		switch {
		case len(parents) > 1:
			b.report(bone, AmbiguousParent, fmt.Errorf("%w: bone %q has %d parent models %v",
				fbx.ErrAmbiguousParent, bone.Name, len(parents), parents))
		case len(parents) == 1:
			if p, ok := b.byModel[parents[0]]; ok {
				bone.Parent = p
			}
		case bone.Kind != KindRoot && !toSceneRoot && !b.entries[bone.ModelID]:
			b.report(bone, MissingParent, fmt.Errorf("%w: bone %q is not connected to any model",
				fbx.ErrMissingParent, bone.Name))
		}
	}
	return nil
}

func (b *builder) report(bone *Bone, kind DiagnosticKind, err error) {
	b.diags = append(b.diags, Diagnostic{Kind: kind, Bone: bone.Name, ModelID: bone.ModelID, Err: err})
	b.log.Warn("bone attached as root",
		zap.String("bone", bone.Name),
		zap.Int64("object_id", bone.ModelID),
		zap.String("reason", kind.String()),
		zap.Error(err))
}

// finish orders bones parents-first and computes engine-space matrices.
func (b *builder) finish() *Rig {
	children := make([][]int, len(b.bones))
	var roots []int
	for i, bone := range b.bones {
		if bone.Parent == NoParent {
			roots = append(roots, i)
		} else {
			children[bone.Parent] = append(children[bone.Parent], i)
		}
	}

	order := make([]int, 0, len(b.bones))
	placed := make([]bool, len(b.bones))
	var walk func(i int)
	walk = func(i int) {
		placed[i] = true
		order = append(order, i)
		for _, c := range children[i] {
			if !placed[c] {
				walk(c)
			}
		}
	}
	for _, i := range roots {
		walk(i)
	}
	// bones on a parent cycle are unreachable from any root
	for i := range b.bones {
		if !placed[i] {
			bone := &b.bones[i]
			bone.Parent = NoParent
			b.report(bone, MissingParent, fmt.Errorf("%w: bone %q is part of a parent cycle",
				fbx.ErrMissingParent, bone.Name))
			walk(i)
		}
	}

	remap := make([]int, len(b.bones))
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
	}

	basis := b.scene.Basis()
	r := &Rig{
		Bones:       make([]Bone, len(order)),
		Diagnostics: b.diags,
		byName:      make(map[string]int, len(order)),
		byModel:     make(map[int64]int, len(order)),
	}
	for newIdx, oldIdx := range order {
		bone := b.bones[oldIdx]
		bone.Index = newIdx
		if bone.Parent != NoParent {
			bone.Parent = remap[bone.Parent]
		}

		model, _ := b.scene.Graph.RecordWithIDOrNone(bone.ModelID)
		if bone.Parent == NoParent {
			// roots keep the transforms of non-skeleton ancestors
			bone.LocalMatrix = basis.Transform(b.scene.WorldMatrix(model))
			bone.WorldMatrix = bone.LocalMatrix
		} else {
			bone.LocalMatrix = basis.Transform(bone.Local.Matrix())
			bone.WorldMatrix = r.Bones[bone.Parent].WorldMatrix.Mul(bone.LocalMatrix)
		}
		bone.Position, bone.Rotation, bone.Scale = bone.LocalMatrix.Decompose()

		if m, ok := b.binds[bone.ModelID]; ok {
			bone.BindMatrix = basis.Transform(m)
			bone.HasBind = true
		}

		r.Bones[newIdx] = bone
		r.byName[bone.Name] = newIdx
		r.byModel[bone.ModelID] = newIdx
	}
	return r
}
