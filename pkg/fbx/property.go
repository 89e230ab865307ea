package fbx

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// PropertyType is the one-byte type tag that precedes every property payload.
type PropertyType byte

const (
	TypeBool         PropertyType = 'C'
	TypeInt16        PropertyType = 'Y'
	TypeInt32        PropertyType = 'I'
	TypeInt64        PropertyType = 'L'
	TypeFloat32      PropertyType = 'F'
	TypeFloat64      PropertyType = 'D'
	TypeBoolArray    PropertyType = 'b'
	TypeInt32Array   PropertyType = 'i'
	TypeInt64Array   PropertyType = 'l'
	TypeFloat32Array PropertyType = 'f'
	TypeFloat64Array PropertyType = 'd'
	TypeString       PropertyType = 'S'
	TypeRaw          PropertyType = 'R'
)

// String returns a human-readable type name.
func (t PropertyType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeBoolArray:
		return "[]bool"
	case TypeInt32Array:
		return "[]int32"
	case TypeInt64Array:
		return "[]int64"
	case TypeFloat32Array:
		return "[]float32"
	case TypeFloat64Array:
		return "[]float64"
	case TypeString:
		return "string"
	case TypeRaw:
		return "raw"
	default:
		return fmt.Sprintf("Unknown(%q)", byte(t))
	}
}

// IsArray reports whether the type is one of the five array variants.
func (t PropertyType) IsArray() bool {
	switch t {
	case TypeBoolArray, TypeInt32Array, TypeInt64Array, TypeFloat32Array, TypeFloat64Array:
		return true
	}
	return false
}

// elementSize is the encoded size of one array element.
func (t PropertyType) elementSize() int {
	switch t {
	case TypeBoolArray:
		return 1
	case TypeInt32Array, TypeFloat32Array:
		return 4
	case TypeInt64Array, TypeFloat64Array:
		return 8
	}
	return 0
}

// Property is a closed union over the thirteen property variants. Only the
// field matching typ is populated.
type Property struct {
	typ PropertyType

	i   int64   // bool, int16, int32, int64
	f   float64 // float32, float64
	str string
	raw []byte

	bools []bool
	i32   []int32
	i64   []int64
	f32   []float32
	f64   []float64
}

func NewBool(v bool) Property {
	p := Property{typ: TypeBool}
	if v {
		p.i = 1
	}
	return p
}

func NewInt16(v int16) Property     { return Property{typ: TypeInt16, i: int64(v)} }
func NewInt32(v int32) Property     { return Property{typ: TypeInt32, i: int64(v)} }
func NewInt64(v int64) Property     { return Property{typ: TypeInt64, i: v} }
func NewFloat32(v float32) Property { return Property{typ: TypeFloat32, f: float64(v)} }
func NewFloat64(v float64) Property { return Property{typ: TypeFloat64, f: v} }
func NewString(v string) Property   { return Property{typ: TypeString, str: v} }
func NewRaw(v []byte) Property      { return Property{typ: TypeRaw, raw: v} }

func NewBoolArray(v []bool) Property       { return Property{typ: TypeBoolArray, bools: v} }
func NewInt32Array(v []int32) Property     { return Property{typ: TypeInt32Array, i32: v} }
func NewInt64Array(v []int64) Property     { return Property{typ: TypeInt64Array, i64: v} }
func NewFloat32Array(v []float32) Property { return Property{typ: TypeFloat32Array, f32: v} }
func NewFloat64Array(v []float64) Property { return Property{typ: TypeFloat64Array, f64: v} }

// Type returns the variant tag.
func (p Property) Type() PropertyType { return p.typ }

// ValueCount is 1 for scalars, strings and raw blobs, and the decoded
// element count for arrays.
func (p Property) ValueCount() int {
	switch p.typ {
	case TypeBoolArray:
		return len(p.bools)
	case TypeInt32Array:
		return len(p.i32)
	case TypeInt64Array:
		return len(p.i64)
	case TypeFloat32Array:
		return len(p.f32)
	case TypeFloat64Array:
		return len(p.f64)
	case 0:
		return 0
	}
	return 1
}

func (p Property) mismatch(want string) error {
	return &PropertyTypeError{Want: want, Got: p.typ}
}

// AsBool returns a bool property, or an integer property holding 0 or 1.
func (p Property) AsBool() (bool, error) {
	switch p.typ {
	case TypeBool:
		return p.i != 0, nil
	case TypeInt16, TypeInt32, TypeInt64:
		if p.i == 0 || p.i == 1 {
			return p.i == 1, nil
		}
	}
	return false, p.mismatch("bool")
}

// AsInt64 returns any integer property, a bool as 0/1, or a float that
// holds an exact integer.
func (p Property) AsInt64() (int64, error) {
	return Cast[int64](p)
}

// AsFloat64 returns any numeric property whose value a float64 can hold exactly.
func (p Property) AsFloat64() (float64, error) {
	return Cast[float64](p)
}

// AsString returns the payload of a string property.
func (p Property) AsString() (string, error) {
	if p.typ != TypeString {
		return "", p.mismatch("string")
	}
	return p.str, nil
}

// AsBytes returns the payload of a raw or string property.
func (p Property) AsBytes() ([]byte, error) {
	switch p.typ {
	case TypeRaw:
		return p.raw, nil
	case TypeString:
		return []byte(p.str), nil
	}
	return nil, p.mismatch("raw")
}

// AsBools returns a bool array.
func (p Property) AsBools() ([]bool, error) {
	if p.typ != TypeBoolArray {
		return nil, p.mismatch("[]bool")
	}
	return p.bools, nil
}

// AsInt32s returns an int32 array without copying, or a converted copy of
// an int64 array whose elements all fit.
func (p Property) AsInt32s() ([]int32, error) {
	if p.typ == TypeInt32Array {
		return p.i32, nil
	}
	return CastSlice[int32](p)
}

// AsInt64s returns an int64 array without copying, or a widened copy of an int32 array.
func (p Property) AsInt64s() ([]int64, error) {
	if p.typ == TypeInt64Array {
		return p.i64, nil
	}
	return CastSlice[int64](p)
}

// AsFloat32s returns a float32 array without copying. Other arrays are
// converted only when every element survives the round trip.
func (p Property) AsFloat32s() ([]float32, error) {
	if p.typ == TypeFloat32Array {
		return p.f32, nil
	}
	return CastSlice[float32](p)
}

// AsFloat64s returns a float64 array without copying, or a widened copy of
// any other numeric array.
func (p Property) AsFloat64s() ([]float64, error) {
	if p.typ == TypeFloat64Array {
		return p.f64, nil
	}
	return CastSlice[float64](p)
}

// Number is any type a numeric property can be cast to.
type Number interface {
	constraints.Integer | constraints.Float
}

// Cast converts a scalar numeric property to T. The conversion fails with
// ErrPropertyType unless converting back yields the original value.
func Cast[T Number](p Property) (T, error) {
	switch p.typ {
	case TypeBool, TypeInt16, TypeInt32, TypeInt64:
		if v, ok := castInt[T](p.i); ok {
			return v, nil
		}
	case TypeFloat32, TypeFloat64:
		if v, ok := castFloat[T](p.f); ok {
			return v, nil
		}
	}
	var zero T
	return zero, p.mismatch(fmt.Sprintf("%T", zero))
}

// CastSlice converts every element of a numeric array property to T with
// the same round-trip rule as Cast. The result is always a fresh slice.
func CastSlice[T Number](p Property) ([]T, error) {
	var zero T
	fail := func() ([]T, error) { return nil, p.mismatch(fmt.Sprintf("[]%T", zero)) }

	out := make([]T, 0, p.ValueCount())
	switch p.typ {
	case TypeBoolArray:
		for _, b := range p.bools {
			if b {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	case TypeInt32Array:
		for _, e := range p.i32 {
			v, ok := castInt[T](int64(e))
			if !ok {
				return fail()
			}
			out = append(out, v)
		}
	case TypeInt64Array:
		for _, e := range p.i64 {
			v, ok := castInt[T](e)
			if !ok {
				return fail()
			}
			out = append(out, v)
		}
	case TypeFloat32Array:
		for _, e := range p.f32 {
			v, ok := castFloat[T](float64(e))
			if !ok {
				return fail()
			}
			out = append(out, v)
		}
	case TypeFloat64Array:
		for _, e := range p.f64 {
			v, ok := castFloat[T](e)
			if !ok {
				return fail()
			}
			out = append(out, v)
		}
	default:
		return fail()
	}
	return out, nil
}

func castInt[T Number](i int64) (T, bool) {
	var zero T
	v := T(i)
	if i < 0 && zero-1 > zero {
		return zero, false // negative into unsigned
	}
	return v, int64(v) == i
}

func castFloat[T Number](f float64) (T, bool) {
	v := T(f)
	if math.IsNaN(f) {
		// NaN only survives into a float target
		return v, math.IsNaN(float64(v))
	}
	return v, float64(v) == f
}

// String formats the property for diagnostics. Arrays print their type and
// element count only.
func (p Property) String() string {
	switch p.typ {
	case TypeBool:
		return strconv.FormatBool(p.i != 0)
	case TypeInt16, TypeInt32, TypeInt64:
		return strconv.FormatInt(p.i, 10)
	case TypeFloat32:
		return strconv.FormatFloat(p.f, 'g', -1, 32)
	case TypeFloat64:
		return strconv.FormatFloat(p.f, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(p.str)
	case TypeRaw:
		return fmt.Sprintf("raw(%d bytes)", len(p.raw))
	}
	if p.typ.IsArray() {
		return fmt.Sprintf("%s(%d)", p.typ, p.ValueCount())
	}
	return p.typ.String()
}
