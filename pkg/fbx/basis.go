package fbx

import (
	"github.com/Faultbox/midgard-fbx/pkg/math"
)

// CentimetersToMeters converts the container's native unit (1 unit = 1 cm
// at a unit scale factor of 1) to engine meters.
const CentimetersToMeters = 0.01

// engineFlip turns the container's right-handed frame into the engine's
// left-handed one by mirroring Z.
var engineFlip = math.Scale(1, 1, -1)

// Basis is the single container-to-engine transform of a scene. It is
// computed once by Prepare and never re-derived.
type Basis struct {
	m     math.Mat4
	inv   math.Mat4
	scale float32
}

// NewBasis builds the basis from global settings: the axis permutation
// with signs, scaled uniformly by UnitScaleFactor * CentimetersToMeters,
// followed by the fixed engine flip.
func NewBasis(gs GlobalSettings) Basis {
	var axes math.Mat4
	axes[15] = 1
	axes[gs.CoordAxis*4+0] = float32(gs.CoordAxisSign)
	axes[gs.UpAxis*4+1] = float32(gs.UpAxisSign)
	axes[gs.FrontAxis*4+2] = float32(gs.FrontAxisSign)

	scale := float32(gs.UnitScaleFactor * CentimetersToMeters)
	m := engineFlip.Mul(math.Scale(scale, scale, scale)).Mul(axes)
	return Basis{m: m, inv: m.Inverse(), scale: scale}
}

// Matrix returns the basis matrix.
func (b Basis) Matrix() math.Mat4 { return b.m }

// Scale returns the uniform unit conversion factor.
func (b Basis) Scale() float32 { return b.scale }

// FlipsWinding reports whether the basis mirrors geometry, in which case
// triangle winding must be reversed.
func (b Basis) FlipsWinding() bool { return b.m.Determinant3() < 0 }

// Point converts a container-space position.
func (b Basis) Point(p math.Vec3) math.Vec3 { return b.m.TransformPoint(p) }

// Vector converts a container-space offset; unit scaling applies.
func (b Basis) Vector(v math.Vec3) math.Vec3 { return b.m.TransformDirection(v) }

// Normal converts a container-space direction and renormalizes it.
func (b Basis) Normal(n math.Vec3) math.Vec3 { return b.m.TransformDirection(n).Normalize() }

// Transform converts a container-space transform matrix so that it acts
// on engine-space points: B * m * B^-1.
func (b Basis) Transform(m math.Mat4) math.Mat4 {
	return b.m.Mul(m).Mul(b.inv)
}
