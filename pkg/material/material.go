// Package material maps legacy shading-model properties onto engine
// material parameters and resolves the texture files they reference.
package material

import (
	"errors"
	gomath "math"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/math"
)

// Shading models understood by Build. Anything else is treated as Phong.
const (
	ShadingLambert = "lambert"
	ShadingPhong   = "phong"
)

// DefaultShininess is the Phong exponent assumed when none is stored.
const DefaultShininess = 20

// Material holds engine parameters derived from one Material object.
type Material struct {
	ID           int64
	Name         string
	ShadingModel string

	Color     math.Vec3
	Roughness float32
	Emissive  math.Vec3
	Solidity  float32
	Specular  math.Vec3

	Textures []Texture
}

// Texture returns the texture bound to a channel, e.g. "DiffuseColor".
func (m *Material) Texture(channel string) (Texture, bool) {
	for _, t := range m.Textures {
		if t.Channel == channel {
			return t, true
		}
	}
	return Texture{}, false
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	searchPaths []string
	probe       bool
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSearchPaths adds directories searched by file name when a texture
// cannot be found where the container says it is.
func WithSearchPaths(dirs ...string) Option {
	return func(o *options) { o.searchPaths = append(o.searchPaths, dirs...) }
}

// WithProbe enables reading the header of every resolved texture file to
// report its dimensions and format.
func WithProbe(probe bool) Option {
	return func(o *options) { o.probe = probe }
}

// Build converts every Material object of scene, in file order. A texture
// connection naming a missing object drops that texture and is reported in
// the joined error; the material itself is still returned.
func Build(scene *fbx.Scene, opts ...Option) ([]*Material, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var out []*Material
	var errs []error
	for _, node := range scene.Objects("Material") {
		m := convert(scene, node)
		var err error
		m.Textures, err = textures(scene, node, &o)
		if err != nil {
			errs = append(errs, err)
		}
		o.logger.Debug("material built",
			zap.String("material", m.Name),
			zap.String("shading", m.ShadingModel),
			zap.Int("textures", len(m.Textures)))
		out = append(out, m)
	}
	return out, errors.Join(errs...)
}

func convert(scene *fbx.Scene, node fbx.Node) *Material {
	m := &Material{ID: node.ID(), Name: node.ObjectName()}

	m.ShadingModel = node.Child("ShadingModel").PropString(0)
	if m.ShadingModel == "" {
		m.ShadingModel = scene.PropertyString(node, "ShadingModel", ShadingPhong)
	}

	white := math.Vec3{X: 1, Y: 1, Z: 1}
	var black math.Vec3

	diffuse := scene.PropertyVec3(node, "DiffuseColor", scene.PropertyVec3(node, "Diffuse", white))
	m.Color = clampVec(diffuse.Scale(float32(scene.PropertyFloat(node, "DiffuseFactor", 1))))

	emissive := scene.PropertyVec3(node, "EmissiveColor", scene.PropertyVec3(node, "Emissive", black))
	m.Emissive = emissive.Scale(float32(scene.PropertyFloat(node, "EmissiveFactor", 1)))

	if isLambert(m.ShadingModel) {
		m.Roughness = 1
	} else {
		n := scene.PropertyFloat(node, "ShininessExponent", scene.PropertyFloat(node, "Shininess", DefaultShininess))
		m.Roughness = Roughness(n)
		spec := scene.PropertyVec3(node, "SpecularColor", scene.PropertyVec3(node, "Specular", black))
		m.Specular = clampVec(spec.Scale(float32(scene.PropertyFloat(node, "SpecularFactor", 1))))
	}

	if _, ok := scene.Property(node, "Opacity"); ok {
		m.Solidity = clamp(float32(scene.PropertyFloat(node, "Opacity", 1)))
	} else {
		m.Solidity = clamp(1 - float32(scene.PropertyFloat(node, "TransparencyFactor", 0)))
	}
	return m
}

func isLambert(model string) bool {
	return strings.EqualFold(model, ShadingLambert)
}

// Roughness maps a Phong specular exponent to perceptual roughness.
func Roughness(exponent float64) float32 {
	if exponent < 0 {
		exponent = 0
	}
	return clamp(float32(gomath.Sqrt(2 / (exponent + 2))))
}

func clamp(v float32) float32 {
	return min(max(v, 0), 1)
}

func clampVec(v math.Vec3) math.Vec3 {
	return math.Vec3{X: clamp(v.X), Y: clamp(v.Y), Z: clamp(v.Z)}
}
