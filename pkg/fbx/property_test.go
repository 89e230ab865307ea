package fbx_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

func TestPropertyAccessors(t *testing.T) {
	if v, err := fbx.NewString("abc").AsString(); err != nil || v != "abc" {
		t.Errorf("AsString() = %q, %v", v, err)
	}
	if v, err := fbx.NewInt16(-7).AsInt64(); err != nil || v != -7 {
		t.Errorf("Int16 AsInt64() = %d, %v", v, err)
	}
	if v, err := fbx.NewFloat32(0.5).AsFloat64(); err != nil || v != 0.5 {
		t.Errorf("Float32 AsFloat64() = %v, %v", v, err)
	}
	if v, err := fbx.NewInt32(1).AsBool(); err != nil || !v {
		t.Errorf("Int32(1) AsBool() = %v, %v", v, err)
	}
	if v, err := fbx.NewRaw([]byte{1, 2}).AsBytes(); err != nil || len(v) != 2 {
		t.Errorf("AsBytes() = %v, %v", v, err)
	}

	var zero fbx.Property
	if zero.ValueCount() != 0 {
		t.Errorf("zero ValueCount() = %d", zero.ValueCount())
	}
	if _, err := zero.AsFloat64(); !errors.Is(err, fbx.ErrPropertyType) {
		t.Errorf("zero AsFloat64() error = %v", err)
	}
}

func TestPropertyTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		call func() error
	}{
		{"string as int", func() error { _, err := fbx.NewString("1").AsInt64(); return err }},
		{"int as string", func() error { _, err := fbx.NewInt32(1).AsString(); return err }},
		{"array as scalar", func() error { _, err := fbx.NewInt32Array([]int32{1}).AsInt64(); return err }},
		{"scalar as array", func() error { _, err := fbx.NewInt32(1).AsInt32s(); return err }},
		{"bool from 2", func() error { _, err := fbx.NewInt32(2).AsBool(); return err }},
		{"fractional to int", func() error { _, err := fbx.Cast[int32](fbx.NewFloat64(1.5)); return err }},
		{"overflow int16", func() error { _, err := fbx.Cast[int16](fbx.NewInt32(40000)); return err }},
		{"negative to unsigned", func() error { _, err := fbx.Cast[uint32](fbx.NewInt32(-1)); return err }},
		{"lossy float32", func() error { _, err := fbx.Cast[float32](fbx.NewFloat64(0.1)); return err }},
		{"lossy array", func() error { _, err := fbx.NewInt64Array([]int64{1 << 40}).AsInt32s(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, fbx.ErrPropertyType) {
				t.Fatalf("error = %v, want ErrPropertyType", err)
			}
			var pe *fbx.PropertyTypeError
			if !errors.As(err, &pe) {
				t.Errorf("error %T is not a *PropertyTypeError", err)
			}
		})
	}
}

func TestCastExact(t *testing.T) {
	if v, err := fbx.Cast[int32](fbx.NewFloat64(3)); err != nil || v != 3 {
		t.Errorf("Cast[int32](3.0) = %d, %v", v, err)
	}
	if v, err := fbx.Cast[float32](fbx.NewFloat64(0.25)); err != nil || v != 0.25 {
		t.Errorf("Cast[float32](0.25) = %v, %v", v, err)
	}
	if v, err := fbx.Cast[uint8](fbx.NewInt64(255)); err != nil || v != 255 {
		t.Errorf("Cast[uint8](255) = %d, %v", v, err)
	}

	got, err := fbx.CastSlice[float32](fbx.NewInt32Array([]int32{1, -2, 3}))
	if err != nil {
		t.Fatalf("CastSlice() error = %v", err)
	}
	if len(got) != 3 || got[1] != -2 {
		t.Errorf("CastSlice() = %v", got)
	}

	wide, err := fbx.NewFloat32Array([]float32{0.1, 2}).AsFloat64s()
	if err != nil {
		t.Fatalf("AsFloat64s() error = %v", err)
	}
	if math.Abs(wide[0]-0.1) > 1e-7 || wide[1] != 2 {
		t.Errorf("AsFloat64s() = %v", wide)
	}
}

func TestCastNonFinite(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(-1)

	tests := []struct {
		name    string
		p       fbx.Property
		toFloat bool
		isNaN   bool
	}{
		{"float32 NaN", fbx.NewFloat32(float32(nan)), true, true},
		{"float64 NaN", fbx.NewFloat64(nan), true, true},
		{"float64 -Inf", fbx.NewFloat64(inf), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v64, err := tt.p.AsFloat64()
			if err != nil {
				t.Fatalf("AsFloat64() error = %v", err)
			}
			v32, err := fbx.Cast[float32](tt.p)
			if err != nil {
				t.Fatalf("Cast[float32]() error = %v", err)
			}
			if tt.isNaN && (!math.IsNaN(v64) || !math.IsNaN(float64(v32))) {
				t.Errorf("values = %v, %v; want NaN", v64, v32)
			}
			if !tt.isNaN && (!math.IsInf(v64, -1) || !math.IsInf(float64(v32), -1)) {
				t.Errorf("values = %v, %v; want -Inf", v64, v32)
			}

			if _, err := tt.p.AsInt64(); !errors.Is(err, fbx.ErrPropertyType) {
				t.Errorf("AsInt64() error = %v, want ErrPropertyType", err)
			}
		})
	}

	vals, err := fbx.NewFloat32Array([]float32{1, float32(nan)}).AsFloat64s()
	if err != nil || len(vals) != 2 || !math.IsNaN(vals[1]) {
		t.Errorf("AsFloat64s() with NaN = %v, %v", vals, err)
	}
}

func TestPropertyTypeString(t *testing.T) {
	tests := []struct {
		typ     fbx.PropertyType
		isArray bool
	}{
		{fbx.TypeBool, false},
		{fbx.TypeInt64, false},
		{fbx.TypeString, false},
		{fbx.TypeFloat64Array, true},
		{fbx.TypeBoolArray, true},
	}
	for _, tt := range tests {
		if tt.typ.IsArray() != tt.isArray {
			t.Errorf("%s.IsArray() = %v, want %v", tt.typ, !tt.isArray, tt.isArray)
		}
		if tt.typ.String() == "" {
			t.Errorf("%c has empty String()", byte(tt.typ))
		}
	}
}
