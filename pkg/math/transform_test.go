package math

import (
	"testing"
)

func TestEulerMatrixOrder(t *testing.T) {
	// 90 degrees about X then 90 about Y: (0,1,0) -> (0,0,1) -> (1,0,0)
	got := EulerMatrix(Vec3{90, 90, 0}, EulerXYZ).TransformDirection(Vec3{0, 1, 0})
	if !got.ApproxEqual(Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("XYZ: got %v, want (1, 0, 0)", got)
	}

	// Same angles applied Y first: (0,1,0) is unchanged by Y, then X sends it to (0,0,1)
	got = EulerMatrix(Vec3{90, 90, 0}, EulerYXZ).TransformDirection(Vec3{0, 1, 0})
	if !got.ApproxEqual(Vec3{0, 0, 1}, 1e-5) {
		t.Errorf("YXZ: got %v, want (0, 0, 1)", got)
	}
}

func TestRotationOrderString(t *testing.T) {
	tests := []struct {
		order RotationOrder
		want  string
	}{
		{EulerXYZ, "XYZ"},
		{EulerZYX, "ZYX"},
		{SphericXYZ, "SphericXYZ"},
		{RotationOrder(42), "Unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.order.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeTransformDefaultIsIdentity(t *testing.T) {
	if got := DefaultNodeTransform().Matrix(); !got.ApproxEqual(Identity(), 1e-6) {
		t.Errorf("default transform = %v, want identity", got)
	}
}

func TestNodeTransformTranslationRotationScale(t *testing.T) {
	n := DefaultNodeTransform()
	n.Translation = Vec3{0, 10, 0}
	n.Rotation = Vec3{0, 0, 90}
	n.Scaling = Vec3{2, 2, 2}

	got := n.Matrix().TransformPoint(Vec3{1, 0, 0})
	// scale to (2,0,0), rotate to (0,2,0), translate to (0,12,0)
	if !got.ApproxEqual(Vec3{0, 12, 0}, 1e-5) {
		t.Errorf("got %v, want (0, 12, 0)", got)
	}
}

func TestNodeTransformPreRotation(t *testing.T) {
	n := DefaultNodeTransform()
	n.PreRotation = Vec3{0, 0, 90}

	got := n.Matrix().TransformPoint(Vec3{1, 0, 0})
	if !got.ApproxEqual(Vec3{0, 1, 0}, 1e-5) {
		t.Errorf("got %v, want (0, 1, 0)", got)
	}

	// post-rotation is inverted, so matching pre and post cancel out
	n.PostRotation = Vec3{0, 0, 90}
	if got := n.Matrix(); !got.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("pre and post rotation should cancel, got %v", got)
	}
}

func TestNodeTransformRotationPivot(t *testing.T) {
	n := DefaultNodeTransform()
	n.Rotation = Vec3{0, 0, 180}
	n.RotationPivot = Vec3{1, 0, 0}

	// rotating about (1,0,0) leaves the pivot fixed
	got := n.Matrix().TransformPoint(Vec3{1, 0, 0})
	if !got.ApproxEqual(Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("pivot moved to %v", got)
	}
}

func TestGeometricTransform(t *testing.T) {
	g := GeometricTransform{Translation: Vec3{1, 0, 0}, Scaling: Vec3{1, 1, 1}}
	if got := g.Matrix().TransformPoint(Vec3{}); got != (Vec3{1, 0, 0}) {
		t.Errorf("got %v, want (1, 0, 0)", got)
	}
}
