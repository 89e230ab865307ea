// Package anim builds animation clips from the animation stacks of a
// prepared scene and samples them into per-frame bone poses.
package anim

import (
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/math"
	"github.com/Faultbox/midgard-fbx/pkg/rig"
)

// DefaultFrameRate is used when neither the caller nor the container
// names a frame rate.
const DefaultFrameRate = 30

// maxFrames bounds the sampled length of one clip.
const maxFrames = 1 << 20

// ErrClipRange is returned for a clip whose time range cannot be sampled.
var ErrClipRange = errors.New("invalid clip range")

// Channel is the transform channel a track animates.
type Channel int

const (
	Translation Channel = iota
	Rotation
	Scaling
)

func (c Channel) String() string {
	switch c {
	case Translation:
		return "translation"
	case Rotation:
		return "rotation"
	case Scaling:
		return "scaling"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

var channelProperties = map[string]Channel{
	"Lcl Translation": Translation,
	"Lcl Rotation":    Rotation,
	"Lcl Scaling":     Scaling,
}

var axisProperties = map[string]int{"d|X": 0, "d|Y": 1, "d|Z": 2}

// Track binds up to three axis curves to one channel of one model.
type Track struct {
	Target  string
	ModelID int64
	Channel Channel
	// Bone is the rig bone index, or rig.NoParent when the target did not
	// match a bone. Such tracks are kept but not sampled.
	Bone   int
	Curves [3]*Curve
}

// Pose is a bone's local transform at one frame, in engine space.
type Pose struct {
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}

// Move holds the sampled poses of one bone.
type Move struct {
	Bone   int
	Name   string
	Frames []Pose
}

// PoseAt blends the sampled poses around a fractional frame. Frames
// outside the clip clamp to the first or last pose.
func (m Move) PoseAt(frame float64) Pose {
	n := len(m.Frames)
	switch {
	case n == 0:
		return Pose{Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
	case frame <= 0:
		return m.Frames[0]
	case frame >= float64(n-1):
		return m.Frames[n-1]
	}
	i := int(frame)
	t := float32(frame - float64(i))
	a, b := m.Frames[i], m.Frames[i+1]
	return Pose{
		Position: a.Position.Lerp(b.Position, t),
		Rotation: a.Rotation.Slerp(b.Rotation, t),
		Scale:    a.Scale.Lerp(b.Scale, t),
	}
}

// Clip is one animation stack.
type Clip struct {
	ID        int64
	Name      string
	FrameRate float64
	// Start and Stop are in container ticks.
	Start, Stop int64
	Frames      int

	Tracks []Track
	Moves  []Move
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	return (float64(c.Stop) - float64(c.Start)) / float64(fbx.TicksPerSecond)
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger *zap.Logger
	fps    float64
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFrameRate overrides the container's frame rate. Zero keeps it.
func WithFrameRate(fps float64) Option {
	return func(o *options) { o.fps = fps }
}

// Build reads every AnimationStack of scene as a clip. Targets are matched
// to bones of r by model name; r may be nil, in which case clips carry
// tracks but no moves. A clip with a dangling curve reference or broken
// keys is left out and its error joined into the returned error.
func Build(scene *fbx.Scene, r *rig.Rig, opts ...Option) ([]*Clip, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	fps := o.fps
	if fps <= 0 {
		fps = scene.Settings.FrameRate()
	}
	if fps <= 0 {
		fps = DefaultFrameRate
	}

	var clips []*Clip
	var errs []error
	for _, stack := range scene.Objects("AnimationStack") {
		c, err := buildClip(scene, r, stack, fps, o.logger)
		if err != nil {
			errs = append(errs, fmt.Errorf("clip %q: %w", stack.ObjectName(), err))
			o.logger.Warn("clip skipped", zap.String("clip", stack.ObjectName()), zap.Error(err))
			continue
		}
		o.logger.Debug("clip built",
			zap.String("clip", c.Name),
			zap.Float64("fps", c.FrameRate),
			zap.Int("frames", c.Frames),
			zap.Int("tracks", len(c.Tracks)),
			zap.Int("moves", len(c.Moves)))
		clips = append(clips, c)
	}
	return clips, errors.Join(errs...)
}

func buildClip(scene *fbx.Scene, r *rig.Rig, stack fbx.Node, fps float64, log *zap.Logger) (*Clip, error) {
	c := &Clip{ID: stack.ID(), Name: stack.ObjectName(), FrameRate: fps}

	layers, err := scene.Graph.ResolveSources(stack.ID(), "AnimationLayer")
	if err != nil {
		return nil, err
	}
	if len(layers) > 1 {
		log.Debug("extra animation layers ignored",
			zap.String("clip", c.Name), zap.Int("layers", len(layers)))
	}
	if len(layers) > 0 {
		nodes, err := scene.Graph.ResolveSources(layers[0].ID(), "AnimationCurveNode")
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			t, ok, err := readTrack(scene, node)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			t.Bone = rig.NoParent
			if r != nil {
				if i, found := r.BoneNamed(t.Target); found {
					t.Bone = i
				} else {
					log.Warn("animation target has no rig bone",
						zap.String("clip", c.Name),
						zap.String("bone", t.Target),
						zap.Int64("object_id", t.ModelID),
						zap.Stringer("channel", t.Channel),
						zap.String("reason", "no bone with this name"))
				}
			}
			c.Tracks = append(c.Tracks, t)
		}
	}

	c.Start = scene.PropertyInt(stack, "LocalStart", 0)
	c.Stop = scene.PropertyInt(stack, "LocalStop", 0)
	if c.Stop <= c.Start {
		c.Start, c.Stop = keyRange(c.Tracks)
	}
	if c.Stop-c.Start < 0 {
		return nil, fmt.Errorf("%w: ticks %d..%d overflow", ErrClipRange, c.Start, c.Stop)
	}
	n := gomath.Round(c.Duration()*fps) + 1
	if !(n >= 1 && n <= maxFrames) {
		return nil, fmt.Errorf("%w: ticks %d..%d give %v frames at %v fps", ErrClipRange, c.Start, c.Stop, n, fps)
	}
	c.Frames = int(n)

	if r != nil {
		c.Moves = sample(scene, r, c)
	}
	return c, nil
}

// readTrack resolves a curve node's target channel and axis curves. ok is
// false for nodes that animate something other than a model transform.
func readTrack(scene *fbx.Scene, node fbx.Node) (Track, bool, error) {
	var t Track
	found := false
	for _, conn := range scene.Graph.Targets(node.ID()) {
		if conn.Kind != fbx.ConnObjectProperty {
			continue
		}
		ch, ok := channelProperties[conn.Property]
		if !ok {
			continue
		}
		model, err := scene.Graph.RecordWithID(conn.Target)
		if err != nil {
			var re *fbx.ReferenceError
			if errors.As(err, &re) {
				re.Context = fmt.Sprintf("%s target of curve node %d", conn.Property, node.ID())
			}
			return t, false, err
		}
		if model.Name() != "Model" || found {
			continue
		}
		t.Target, t.ModelID, t.Channel = model.ObjectName(), model.ID(), ch
		found = true
	}
	if !found {
		return t, false, nil
	}

	for _, conn := range scene.Graph.Sources(node.ID()) {
		axis, ok := axisProperties[conn.Property]
		if conn.Kind != fbx.ConnObjectProperty || !ok {
			continue
		}
		curve, err := scene.Graph.RecordWithID(conn.Source)
		if err != nil {
			var re *fbx.ReferenceError
			if errors.As(err, &re) {
				re.Context = fmt.Sprintf("%s curve of %q", conn.Property, t.Target)
			}
			return t, false, err
		}
		if curve.Name() != "AnimationCurve" {
			continue
		}
		def := float32(scene.PropertyFloat(node, conn.Property, 0))
		if t.Curves[axis], err = readCurve(curve, def); err != nil {
			return t, false, err
		}
	}
	return t, true, nil
}

func keyRange(tracks []Track) (int64, int64) {
	start, stop := int64(gomath.MaxInt64), int64(gomath.MinInt64)
	for _, t := range tracks {
		for _, c := range t.Curves {
			if c == nil || len(c.KeyTimes) == 0 {
				continue
			}
			start = min(start, c.KeyTimes[0])
			stop = max(stop, c.KeyTimes[len(c.KeyTimes)-1])
		}
	}
	if start > stop {
		return 0, 0
	}
	return start, stop
}

// sample evaluates every bone-bound track at each frame and composes the
// animated local transforms. Channels without a curve keep the bone's
// rest values.
func sample(scene *fbx.Scene, r *rig.Rig, c *Clip) []Move {
	byBone := make(map[int][]Track)
	var order []int
	for _, t := range c.Tracks {
		if t.Bone == rig.NoParent {
			continue
		}
		if _, seen := byBone[t.Bone]; !seen {
			order = append(order, t.Bone)
		}
		byBone[t.Bone] = append(byBone[t.Bone], t)
	}

	basis := scene.Basis()
	moves := make([]Move, 0, len(order))
	for _, bi := range order {
		bone := r.Bones[bi]

		// roots keep the transform of non-skeleton ancestors
		prefix := math.Identity()
		if bone.Parent == rig.NoParent {
			if model, ok := scene.Graph.RecordWithIDOrNone(bone.ModelID); ok {
				if p, ok := scene.ParentModel(model); ok {
					prefix = scene.WorldMatrix(p)
				}
			}
		}

		type cursor struct {
			ch   Channel
			axis int
			e    *Evaluator
		}
		var cursors []cursor
		for _, t := range byBone[bi] {
			for axis, curve := range t.Curves {
				if curve != nil {
					cursors = append(cursors, cursor{t.Channel, axis, curve.Evaluator()})
				}
			}
		}

		m := Move{Bone: bi, Name: bone.Name, Frames: make([]Pose, c.Frames)}
		for f := range c.Frames {
			at := FrameTime(c.Start, f, c.FrameRate)
			nt := bone.Local
			for _, cur := range cursors {
				v := cur.e.At(at)
				switch cur.ch {
				case Translation:
					setAxis(&nt.Translation, cur.axis, v)
				case Rotation:
					setAxis(&nt.Rotation, cur.axis, v)
				case Scaling:
					setAxis(&nt.Scaling, cur.axis, v)
				}
			}
			local := basis.Transform(prefix.Mul(nt.Matrix()))
			p := &m.Frames[f]
			p.Position, p.Rotation, p.Scale = local.Decompose()
		}
		moves = append(moves, m)
	}
	return moves
}

func setAxis(v *math.Vec3, axis int, value float32) {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	case 2:
		v.Z = value
	}
}
