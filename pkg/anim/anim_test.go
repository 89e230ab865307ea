package anim

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/fbx/fbxtest"
	"github.com/Faultbox/midgard-fbx/pkg/math"
	"github.com/Faultbox/midgard-fbx/pkg/rig"
)

// frame is one frame at 30 fps in container ticks.
const frame = fbx.TicksPerSecond / 30

func TestEvaluatorBoundaries(t *testing.T) {
	c := &Curve{KeyTimes: []int64{10, 20, 40}, KeyValues: []float32{1, 3, 7}, Default: -1}

	tests := []struct {
		name string
		at   int64
		want float32
	}{
		{"before first key", 5, -1},
		{"at first key", 10, 1},
		{"between keys", 15, 2},
		{"at middle key", 20, 3},
		{"second span", 30, 5},
		{"at last key", 40, 7},
		{"after last key", 100, 7},
	}

	e := c.Evaluator()
	for _, tt := range tests {
		if got := e.At(tt.at); got != tt.want {
			t.Errorf("%s: At(%d) = %v, want %v", tt.name, tt.at, got, tt.want)
		}
	}

	// an earlier time rewinds the cursor
	if got := e.At(15); got != 2 {
		t.Errorf("At(15) after rewind = %v, want 2", got)
	}
}

func TestEvaluatorExtremeKeys(t *testing.T) {
	const far = int64(1) << 62
	c := &Curve{KeyTimes: []int64{-far, far + far/2}, KeyValues: []float32{0, 10}}

	got := c.Evaluator().At(far / 4)
	if got < 4.9 || got > 5.1 {
		t.Errorf("At(%d) = %v, want 5", far/4, got)
	}
}

func TestEvaluatorEmptyCurve(t *testing.T) {
	e := (&Curve{Default: 4}).Evaluator()
	for _, at := range []int64{-10, 0, 10} {
		if got := e.At(at); got != 4 {
			t.Errorf("At(%d) = %v, want default 4", at, got)
		}
	}
}

func TestSamples(t *testing.T) {
	c := &Curve{KeyTimes: []int64{0, 4 * frame}, KeyValues: []float32{0, 8}}

	var got []float32
	for f, v := range c.Samples(30, 0, 6) {
		if f != len(got) {
			t.Fatalf("frame %d out of order", f)
		}
		got = append(got, v)
	}
	want := []float32{0, 2, 4, 6, 8, 8}
	if len(got) != len(want) {
		t.Fatalf("samples = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	// the sequence restarts and stops early on request
	n := 0
	for range c.Samples(30, 0, 6) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early stop yielded %d samples", n)
	}
}

func curve(id int64, def float64, times []int64, values []float32) *fbxtest.Record {
	return fbxtest.Object("AnimationCurve", id, "", "AnimCurve", "",
		fbxtest.R("Default", fbx.NewFloat64(def)),
		fbxtest.R("KeyTime", fbx.NewInt64Array(times)),
		fbxtest.R("KeyValueFloat", fbx.NewFloat32Array(values)),
	)
}

func walkScene(t *testing.T, values []float32, extra ...*fbxtest.Record) *fbx.Scene {
	t.Helper()
	objects := []*fbxtest.Record{
		fbxtest.Model(1, "Hips", rig.KindRoot),
		fbxtest.Model(2, "Lamp", "Null"),
		fbxtest.Object("AnimationStack", 100, "Walk", "AnimStack", "",
			fbxtest.Props70(fbxtest.PTime("LocalStart", 0), fbxtest.PTime("LocalStop", 10*frame))),
		fbxtest.Object("AnimationLayer", 101, "Base", "AnimLayer", ""),
		fbxtest.Object("AnimationCurveNode", 102, "T", "AnimCurveNode", ""),
		curve(103, 0, []int64{0, 10 * frame}, values),
		fbxtest.Object("AnimationCurveNode", 104, "R", "AnimCurveNode", ""),
		curve(105, 0, []int64{0}, []float32{45}),
	}
	conns := []*fbxtest.Record{
		fbxtest.C(1, 0), fbxtest.C(2, 0),
		fbxtest.C(101, 100), fbxtest.C(102, 101), fbxtest.C(104, 101),
		fbxtest.CP(102, 1, "Lcl Translation"),
		fbxtest.CP(103, 102, "d|X"),
		fbxtest.CP(104, 2, "Lcl Rotation"),
		fbxtest.CP(105, 104, "d|Z"),
	}
	return fbxtest.Scene(t, nil, objects, append(conns, extra...))
}

func TestBuild(t *testing.T) {
	s := walkScene(t, []float32{0, 100})
	r, err := rig.Build(s)
	if err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	clips, err := Build(s, r, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(clips))
	}
	c := clips[0]
	if c.Name != "Walk" || c.FrameRate != DefaultFrameRate || c.Frames != 11 {
		t.Errorf("clip = %q at %v fps with %d frames", c.Name, c.FrameRate, c.Frames)
	}
	if len(c.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(c.Tracks))
	}

	lamp := c.Tracks[1]
	if lamp.Target != "Lamp" || lamp.Bone != rig.NoParent || lamp.Channel != Rotation || lamp.Curves[2] == nil {
		t.Errorf("lamp track = %+v", lamp)
	}
	entries := logs.FilterMessage("animation target has no rig bone").All()
	if len(entries) != 1 || entries[0].ContextMap()["bone"] != "Lamp" {
		t.Errorf("unmatched target logs = %v", entries)
	}

	if len(c.Moves) != 1 || c.Moves[0].Name != "Hips" {
		t.Fatalf("moves = %+v, want Hips only", c.Moves)
	}
	frames := c.Moves[0].Frames
	if len(frames) != 11 {
		t.Fatalf("frames = %d, want 11", len(frames))
	}
	tests := []struct {
		frame int
		x     float32
	}{
		{0, 0},
		{5, 0.5},
		{10, 1},
	}
	for _, tt := range tests {
		want := math.Vec3{X: tt.x}
		if got := frames[tt.frame].Position; !got.ApproxEqual(want, 1e-5) {
			t.Errorf("frame %d position = %v, want %v", tt.frame, got, want)
		}
	}

	move := c.Moves[0]
	blends := []struct {
		frame float64
		x     float32
	}{
		{-3, 0},
		{4.5, 0.45},
		{25, 1},
	}
	for _, tt := range blends {
		p := move.PoseAt(tt.frame)
		if !p.Position.ApproxEqual(math.Vec3{X: tt.x}, 1e-5) || !p.Scale.ApproxEqual(math.Vec3{X: 1, Y: 1, Z: 1}, 1e-5) {
			t.Errorf("PoseAt(%v) = %+v, want x %v", tt.frame, p, tt.x)
		}
		if d := p.Rotation.Dot(math.QuatIdentity()); d < 0.9999 && d > -0.9999 {
			t.Errorf("PoseAt(%v) rotation = %v, want identity", tt.frame, p.Rotation)
		}
	}
}

func TestBuildFrameRate(t *testing.T) {
	s := walkScene(t, []float32{0, 100})
	clips, err := Build(s, nil, WithFrameRate(60))
	if err != nil {
		t.Fatal(err)
	}
	c := clips[0]
	if c.Frames != 21 || c.Moves != nil {
		t.Errorf("frames = %d, moves = %d", c.Frames, len(c.Moves))
	}
	if d := c.Duration(); d < 0.333 || d > 0.334 {
		t.Errorf("Duration() = %v, want 1/3 s", d)
	}
}

func TestBuildKeyRangeFallback(t *testing.T) {
	s := fbxtest.Scene(t, nil,
		[]*fbxtest.Record{
			fbxtest.Model(1, "Hips", rig.KindRoot),
			fbxtest.Object("AnimationStack", 100, "Idle", "AnimStack", ""),
			fbxtest.Object("AnimationLayer", 101, "Base", "AnimLayer", ""),
			fbxtest.Object("AnimationCurveNode", 102, "S", "AnimCurveNode", ""),
			curve(103, 1, []int64{2 * frame, 6 * frame}, []float32{1, 2}),
		},
		[]*fbxtest.Record{
			fbxtest.C(1, 0), fbxtest.C(101, 100), fbxtest.C(102, 101),
			fbxtest.CP(102, 1, "Lcl Scaling"), fbxtest.CP(103, 102, "d|Y"),
		},
	)

	clips, err := Build(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := clips[0]
	if c.Start != 2*frame || c.Stop != 6*frame || c.Frames != 5 {
		t.Errorf("range = %d..%d, %d frames", c.Start, c.Stop, c.Frames)
	}
}

func TestBuildBrokenClips(t *testing.T) {
	tests := []struct {
		name   string
		values []float32
		extra  []*fbxtest.Record
		want   error
	}{
		{"key count mismatch", []float32{0}, nil, ErrCurveKeys},
		{"dangling curve", []float32{0, 1}, []*fbxtest.Record{fbxtest.CP(999, 102, "d|Y")}, fbx.ErrUnresolvedReference},
		{"dangling layer", []float32{0, 1}, []*fbxtest.Record{fbxtest.C(998, 100)}, fbx.ErrUnresolvedReference},
		{"dangling curve node", []float32{0, 1}, []*fbxtest.Record{fbxtest.C(997, 101)}, fbx.ErrUnresolvedReference},
		{"dangling target", []float32{0, 1}, []*fbxtest.Record{fbxtest.CP(102, 996, "Lcl Scaling")}, fbx.ErrUnresolvedReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := walkScene(t, tt.values, tt.extra...)
			clips, err := Build(s, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
			if len(clips) != 0 {
				t.Errorf("clips = %d, want the broken clip left out", len(clips))
			}
		})
	}
}

func TestBuildClipRange(t *testing.T) {
	const far = int64(1) << 62

	tests := []struct {
		name        string
		start, stop int64
		keys        []int64
	}{
		{"span overflows", -far, far + far/2, []int64{0, frame}},
		{"too many frames", 0, far, []int64{0, frame}},
		{"key range overflows", 0, 0, []int64{-far, far + far/2}},
	}

	for _, tt := range tests {
		for _, withRig := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s rig=%v", tt.name, withRig), func(t *testing.T) {
				s := fbxtest.Scene(t, nil,
					[]*fbxtest.Record{
						fbxtest.Model(1, "Hips", rig.KindRoot),
						fbxtest.Object("AnimationStack", 100, "Long", "AnimStack", "",
							fbxtest.Props70(fbxtest.PTime("LocalStart", tt.start), fbxtest.PTime("LocalStop", tt.stop))),
						fbxtest.Object("AnimationLayer", 101, "Base", "AnimLayer", ""),
						fbxtest.Object("AnimationCurveNode", 102, "T", "AnimCurveNode", ""),
						curve(103, 0, tt.keys, []float32{0, 1}),
					},
					[]*fbxtest.Record{
						fbxtest.C(1, 0), fbxtest.C(101, 100), fbxtest.C(102, 101),
						fbxtest.CP(102, 1, "Lcl Translation"), fbxtest.CP(103, 102, "d|X"),
					},
				)
				var r *rig.Rig
				if withRig {
					var err error
					if r, err = rig.Build(s); err != nil {
						t.Fatal(err)
					}
				}

				clips, err := Build(s, r)
				if !errors.Is(err, ErrClipRange) {
					t.Errorf("Build() error = %v, want %v", err, ErrClipRange)
				}
				if len(clips) != 0 {
					t.Errorf("clips = %d, want the clip left out", len(clips))
				}
			})
		}
	}
}
