package math

import "fmt"

// RotationOrder is the Euler order of a node's rotation. Values match the
// container's RotationOrder enum.
type RotationOrder int32

const (
	EulerXYZ RotationOrder = iota
	EulerXZY
	EulerYZX
	EulerYXZ
	EulerZXY
	EulerZYX
	SphericXYZ // evaluated as EulerXYZ
)

func (o RotationOrder) String() string {
	switch o {
	case EulerXYZ:
		return "XYZ"
	case EulerXZY:
		return "XZY"
	case EulerYZX:
		return "YZX"
	case EulerYXZ:
		return "YXZ"
	case EulerZXY:
		return "ZXY"
	case EulerZYX:
		return "ZYX"
	case SphericXYZ:
		return "SphericXYZ"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(o))
	}
}

// EulerMatrix builds a rotation from angles in degrees. The first axis of
// the order is applied first: EulerXYZ yields Rz * Ry * Rx.
func EulerMatrix(deg Vec3, order RotationOrder) Mat4 {
	r := deg.Radians()
	x, y, z := RotateX(r.X), RotateY(r.Y), RotateZ(r.Z)
	switch order {
	case EulerXZY:
		return y.Mul(z).Mul(x)
	case EulerYZX:
		return x.Mul(z).Mul(y)
	case EulerYXZ:
		return z.Mul(x).Mul(y)
	case EulerZXY:
		return y.Mul(x).Mul(z)
	case EulerZYX:
		return x.Mul(y).Mul(z)
	default:
		return z.Mul(y).Mul(x)
	}
}

// NodeTransform holds the transform channels of a scene node. Angles are
// in degrees.
type NodeTransform struct {
	Translation Vec3
	Rotation    Vec3
	Scaling     Vec3
	Order       RotationOrder

	PreRotation    Vec3
	PostRotation   Vec3
	RotationOffset Vec3
	RotationPivot  Vec3
	ScalingOffset  Vec3
	ScalingPivot   Vec3
}

// DefaultNodeTransform returns the rest transform: unit scale, everything
// else zero.
func DefaultNodeTransform() NodeTransform {
	return NodeTransform{Scaling: Vec3{1, 1, 1}}
}

// Matrix composes the local matrix:
//
//	T * Roff * Rp * Rpre * R * Rpost^-1 * Rp^-1 * Soff * Sp * S * Sp^-1
//
// Pre- and post-rotation always use XYZ order.
func (n NodeTransform) Matrix() Mat4 {
	m := TranslateVec3(n.Translation)
	m = m.Mul(TranslateVec3(n.RotationOffset))
	m = m.Mul(TranslateVec3(n.RotationPivot))
	m = m.Mul(EulerMatrix(n.PreRotation, EulerXYZ))
	m = m.Mul(EulerMatrix(n.Rotation, n.Order))
	m = m.Mul(EulerMatrix(n.PostRotation, EulerXYZ).Transpose())
	m = m.Mul(TranslateVec3(n.RotationPivot.Neg()))
	m = m.Mul(TranslateVec3(n.ScalingOffset))
	m = m.Mul(TranslateVec3(n.ScalingPivot))
	m = m.Mul(ScaleVec3(n.Scaling))
	m = m.Mul(TranslateVec3(n.ScalingPivot.Neg()))
	return m
}

// GeometricTransform is the per-mesh offset applied to vertices only and
// not inherited by children.
type GeometricTransform struct {
	Translation Vec3
	Rotation    Vec3
	Scaling     Vec3
}

// Matrix returns T * R * S with R in XYZ order.
func (g GeometricTransform) Matrix() Mat4 {
	return TranslateVec3(g.Translation).
		Mul(EulerMatrix(g.Rotation, EulerXYZ)).
		Mul(ScaleVec3(g.Scaling))
}
