// Package fbxtest encodes binary containers for tests. It writes only what
// the decoder reads; footers and checksums are omitted.
package fbxtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

// DefaultVersion is used when a Writer leaves Version unset.
const DefaultVersion = 7400

// Record is a node to encode.
type Record struct {
	Name     string
	Props    []fbx.Property
	Children []*Record
}

// R builds a record.
func R(name string, props ...fbx.Property) *Record {
	return &Record{Name: name, Props: props}
}

// With appends children and returns r.
func (r *Record) With(children ...*Record) *Record {
	r.Children = append(r.Children, children...)
	return r
}

// Writer encodes records into a container.
type Writer struct {
	Version uint32
	// Compress zlib-encodes every array property.
	Compress bool
}

// Bytes encodes the top-level records into a complete container.
func (w Writer) Bytes(records ...*Record) ([]byte, error) {
	version := w.Version
	if version == 0 {
		version = DefaultVersion
	}
	e := &encoder{wide: version >= 7500, compress: w.Compress}

	e.buf.WriteString(fbx.Signature)
	e.buf.Write([]byte{0x1A, 0x00})
	e.u32(version)

	for _, r := range records {
		if err := e.record(r); err != nil {
			return nil, err
		}
	}
	e.sentinel()
	return e.buf.Bytes(), nil
}

// Encode encodes with the default writer.
func Encode(records ...*Record) ([]byte, error) {
	return Writer{}.Bytes(records...)
}

// MustEncode encodes with w and fails the test on error.
func MustEncode(tb testing.TB, w Writer, records ...*Record) []byte {
	tb.Helper()
	data, err := w.Bytes(records...)
	if err != nil {
		tb.Fatalf("encoding container: %v", err)
	}
	return data
}

// MustParse encodes and decodes records with the default writer.
func MustParse(tb testing.TB, records ...*Record) *fbx.Document {
	tb.Helper()
	doc, err := fbx.Parse(MustEncode(tb, Writer{}, records...))
	if err != nil {
		tb.Fatalf("decoding container: %v", err)
	}
	return doc
}

// MustScene encodes, decodes and prepares records.
func MustScene(tb testing.TB, records ...*Record) *fbx.Scene {
	tb.Helper()
	s, err := fbx.Prepare(MustParse(tb, records...), "")
	if err != nil {
		tb.Fatalf("preparing scene: %v", err)
	}
	return s
}

// WriteFile encodes records into path.
func WriteFile(path string, records ...*Record) error {
	data, err := Encode(records...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type encoder struct {
	buf      bytes.Buffer
	wide     bool
	compress bool
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) field(v uint64) {
	if e.wide {
		e.u64(v)
	} else {
		e.u32(uint32(v))
	}
}

func (e *encoder) patch(at int, v uint64) {
	b := e.buf.Bytes()
	if e.wide {
		binary.LittleEndian.PutUint64(b[at:], v)
	} else {
		binary.LittleEndian.PutUint32(b[at:], uint32(v))
	}
}

func (e *encoder) sentinel() {
	n := 13
	if e.wide {
		n = 25
	}
	e.buf.Write(make([]byte, n))
}

func (e *encoder) record(r *Record) error {
	if len(r.Name) > 255 {
		return fmt.Errorf("record name %q too long", r.Name)
	}
	start := e.buf.Len()
	e.field(0) // end offset
	e.field(uint64(len(r.Props)))
	lenAt := e.buf.Len()
	e.field(0) // property list length
	e.buf.WriteByte(byte(len(r.Name)))
	e.buf.WriteString(r.Name)

	propStart := e.buf.Len()
	for i, p := range r.Props {
		if err := e.property(p); err != nil {
			return fmt.Errorf("record %q property %d: %w", r.Name, i, err)
		}
	}
	e.patch(lenAt, uint64(e.buf.Len()-propStart))

	if len(r.Children) > 0 {
		for _, c := range r.Children {
			if err := e.record(c); err != nil {
				return err
			}
		}
		e.sentinel()
	}
	e.patch(start, uint64(e.buf.Len()))
	return nil
}

func (e *encoder) property(p fbx.Property) error {
	t := p.Type()
	e.buf.WriteByte(byte(t))

	switch t {
	case fbx.TypeBool:
		v, _ := p.AsBool()
		if v {
			e.buf.WriteByte(1)
		} else {
			e.buf.WriteByte(0)
		}
		return nil
	case fbx.TypeInt16:
		v, _ := fbx.Cast[int16](p)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		e.buf.Write(b[:])
		return nil
	case fbx.TypeInt32:
		v, _ := fbx.Cast[int32](p)
		e.u32(uint32(v))
		return nil
	case fbx.TypeInt64:
		v, _ := p.AsInt64()
		e.u64(uint64(v))
		return nil
	case fbx.TypeFloat32:
		v, _ := fbx.Cast[float32](p)
		e.u32(math.Float32bits(v))
		return nil
	case fbx.TypeFloat64:
		v, _ := p.AsFloat64()
		e.u64(math.Float64bits(v))
		return nil
	case fbx.TypeString, fbx.TypeRaw:
		v, _ := p.AsBytes()
		e.u32(uint32(len(v)))
		e.buf.Write(v)
		return nil
	}

	data, count, err := arrayBytes(p)
	if err != nil {
		return err
	}
	e.u32(uint32(count))
	if !e.compress {
		e.u32(0)
		e.u32(uint32(len(data)))
		e.buf.Write(data)
		return nil
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	e.u32(1)
	e.u32(uint32(z.Len()))
	e.buf.Write(z.Bytes())
	return nil
}

func arrayBytes(p fbx.Property) ([]byte, int, error) {
	var buf bytes.Buffer
	le := binary.LittleEndian
	switch p.Type() {
	case fbx.TypeBoolArray:
		v, _ := p.AsBools()
		for _, b := range v {
			if b {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
		return buf.Bytes(), len(v), nil
	case fbx.TypeInt32Array:
		v, _ := p.AsInt32s()
		err := binary.Write(&buf, le, v)
		return buf.Bytes(), len(v), err
	case fbx.TypeInt64Array:
		v, _ := p.AsInt64s()
		err := binary.Write(&buf, le, v)
		return buf.Bytes(), len(v), err
	case fbx.TypeFloat32Array:
		v, _ := p.AsFloat32s()
		err := binary.Write(&buf, le, v)
		return buf.Bytes(), len(v), err
	case fbx.TypeFloat64Array:
		v, _ := p.AsFloat64s()
		err := binary.Write(&buf, le, v)
		return buf.Bytes(), len(v), err
	}
	return nil, 0, fmt.Errorf("cannot encode property type %s", p.Type())
}
