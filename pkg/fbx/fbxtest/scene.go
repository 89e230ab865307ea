package fbxtest

import (
	"testing"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

// Object builds an object record: id, "name\x00\x01class", subclass.
func Object(record string, id int64, name, class, subclass string, children ...*Record) *Record {
	return R(record,
		fbx.NewInt64(id),
		fbx.NewString(name+"\x00\x01"+class),
		fbx.NewString(subclass),
	).With(children...)
}

// Model builds a Model object of the given kind ("LimbNode", "Root", "Mesh", "Null").
func Model(id int64, name, kind string, props ...*Record) *Record {
	m := Object("Model", id, name, "Model", kind)
	if len(props) > 0 {
		m.With(Props70(props...))
	}
	return m
}

// Props70 wraps P records into a Properties70 record.
func Props70(ps ...*Record) *Record {
	return R("Properties70").With(ps...)
}

// P builds a property record with the given values.
func P(name, typ string, values ...fbx.Property) *Record {
	props := []fbx.Property{
		fbx.NewString(name), fbx.NewString(typ), fbx.NewString(""), fbx.NewString(""),
	}
	return R("P", append(props, values...)...)
}

// PVec3 builds a three-component double property, e.g. "Lcl Translation".
func PVec3(name string, x, y, z float64) *Record {
	return P(name, "Vector3D", fbx.NewFloat64(x), fbx.NewFloat64(y), fbx.NewFloat64(z))
}

// PColor builds an RGB color property.
func PColor(name string, r, g, b float64) *Record {
	return P(name, "Color", fbx.NewFloat64(r), fbx.NewFloat64(g), fbx.NewFloat64(b))
}

// PDouble builds a scalar double property.
func PDouble(name string, v float64) *Record {
	return P(name, "double", fbx.NewFloat64(v))
}

// PInt builds a scalar int property.
func PInt(name string, v int32) *Record {
	return P(name, "int", fbx.NewInt32(v))
}

// PTime builds a time property in container ticks.
func PTime(name string, ticks int64) *Record {
	return P(name, "KTime", fbx.NewInt64(ticks))
}

// PString builds a string property.
func PString(name, v string) *Record {
	return P(name, "KString", fbx.NewString(v))
}

// C builds an object-object connection, child to parent.
func C(src, dst int64) *Record {
	return R("C", fbx.NewString("OO"), fbx.NewInt64(src), fbx.NewInt64(dst))
}

// CP builds an object-property connection.
func CP(src, dst int64, property string) *Record {
	return R("C", fbx.NewString("OP"), fbx.NewInt64(src), fbx.NewInt64(dst), fbx.NewString(property))
}

// GlobalSettings builds the top-level settings record.
func GlobalSettings(ps ...*Record) *Record {
	return R("GlobalSettings").With(Props70(ps...))
}

// Document assembles the usual top-level layout.
func Document(settings *Record, objects []*Record, conns []*Record) []*Record {
	var out []*Record
	if settings != nil {
		out = append(out, settings)
	}
	return append(out,
		R("Objects").With(objects...),
		R("Connections").With(conns...),
	)
}

// Scene is a shorthand for MustScene over Document.
func Scene(tb testing.TB, settings *Record, objects []*Record, conns []*Record) *fbx.Scene {
	tb.Helper()
	return MustScene(tb, Document(settings, objects, conns)...)
}
