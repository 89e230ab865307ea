package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	if result != m {
		t.Errorf("M * I should equal M: got %v, want %v", result, m)
	}
}

func TestMat4From64(t *testing.T) {
	v := []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 7, 1}
	m := Mat4From64(v)
	if got := m.Translation(); got != (Vec3{5, 6, 7}) {
		t.Errorf("Translation() = %v, want (5, 6, 7)", got)
	}

	if got := Mat4From64(v[:3]); got != Identity() {
		t.Errorf("short slice should give identity, got %v", got)
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(10, 20, 30).Mul(Scale(2, 2, 2))
	if got := m.TransformDirection(Vec3{1, 0, 0}); got != (Vec3{2, 0, 0}) {
		t.Errorf("TransformDirection = %v, want (2, 0, 0)", got)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2)) // 90 degrees
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if !result.ApproxEqual(Vec3{0, 0, -1}, 0.001) {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(1, 2, 3).Mul(RotateZ(0.7)).Mul(Scale(2, 3, 4))
	if got := m.Mul(m.Inverse()); !got.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("M * M^-1 = %v, want identity", got)
	}
}

func TestInverseSingular(t *testing.T) {
	if got := Scale(0, 1, 1).Inverse(); got != Identity() {
		t.Errorf("singular inverse = %v, want identity", got)
	}
}

func TestTranspose(t *testing.T) {
	m := Translate(1, 2, 3)
	tr := m.Transpose()
	if tr[3] != 1 || tr[7] != 2 || tr[11] != 3 {
		t.Errorf("Transpose moved translation to %v", tr)
	}
	if tr.Transpose() != m {
		t.Error("double transpose should be identity operation")
	}
}

func TestDeterminant3(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		want float32
	}{
		{"identity", Identity(), 1},
		{"scale", Scale(2, 3, 4), 24},
		{"mirror", Scale(1, 1, -1), -1},
		{"translation ignored", Translate(5, 5, 5), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Determinant3(); got != tt.want {
				t.Errorf("Determinant3() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecompose(t *testing.T) {
	rot := axisAngle(Vec3{0, 1, 0}, math.Pi/3)
	m := Translate(1, 2, 3).Mul(rot.ToMat4()).Mul(Scale(2, 2, 2))

	pos, q, s := m.Decompose()
	if !pos.ApproxEqual(Vec3{1, 2, 3}, 1e-5) {
		t.Errorf("position = %v, want (1, 2, 3)", pos)
	}
	if !s.ApproxEqual(Vec3{2, 2, 2}, 1e-5) {
		t.Errorf("scale = %v, want (2, 2, 2)", s)
	}
	if d := q.Canonical().Dot(rot.Canonical()); d < 0.9999 {
		t.Errorf("rotation = %v, want %v", q, rot)
	}
}

func TestDecomposeMirror(t *testing.T) {
	_, _, s := Scale(1, 1, -1).Decompose()
	if s.X >= 0 {
		t.Errorf("mirrored matrix should decompose to a negative scale, got %v", s)
	}
}
