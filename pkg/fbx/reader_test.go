package fbx_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/fbx/fbxtest"
)

func sampleRecords() []*fbxtest.Record {
	return []*fbxtest.Record{
		fbxtest.R("FBXHeaderExtension").With(
			fbxtest.R("FBXVersion", fbx.NewInt32(7400)),
			fbxtest.R("Creator", fbx.NewString("test")),
			fbxtest.R("Scalars", fbx.NewInt16(-12), fbx.NewBool(true), fbx.NewBool(false),
				fbx.NewFloat32(1.5), fbx.NewInt64(-1<<40), fbx.NewFloat64(-2.25)),
		),
		fbxtest.R("Objects").With(
			fbxtest.R("Geometry", fbx.NewInt64(100), fbx.NewString("Cube\x00\x01Geometry"), fbx.NewString("Mesh")).With(
				fbxtest.R("Vertices", fbx.NewFloat64Array([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0})),
				fbxtest.R("PolygonVertexIndex", fbx.NewInt32Array([]int32{0, 1, -3})),
				fbxtest.R("Flags", fbx.NewBoolArray([]bool{true, false})),
			),
			fbxtest.R("Model", fbx.NewInt64(200), fbx.NewString("Cube\x00\x01Model"), fbx.NewString("Mesh")),
		),
		fbxtest.R("Connections").With(
			fbxtest.C(100, 200),
			fbxtest.C(200, 0),
		),
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		writer fbxtest.Writer
	}{
		{"7.4 raw", fbxtest.Writer{Version: 7400}},
		{"7.4 compressed", fbxtest.Writer{Version: 7400, Compress: true}},
		{"7.5 raw", fbxtest.Writer{Version: 7500}},
		{"7.7 compressed", fbxtest.Writer{Version: 7700, Compress: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := fbxtest.MustEncode(t, tt.writer, sampleRecords()...)
			doc, err := fbx.Parse(data)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if doc.Version != tt.writer.Version {
				t.Errorf("Version = %d, want %d", doc.Version, tt.writer.Version)
			}

			top := doc.Root().Children()
			if len(top) != 3 {
				t.Fatalf("top-level records = %d, want 3", len(top))
			}

			geom := doc.Root().Child("Objects").Child("Geometry")
			if geom.ID() != 100 {
				t.Errorf("Geometry ID = %d, want 100", geom.ID())
			}
			verts, err := geom.Child("Vertices").Prop(0).AsFloat64s()
			if err != nil {
				t.Fatalf("Vertices: %v", err)
			}
			if len(verts) != 9 || verts[3] != 1 || verts[7] != 1 {
				t.Errorf("Vertices = %v", verts)
			}
			idx, err := geom.Child("PolygonVertexIndex").Prop(0).AsInt32s()
			if err != nil {
				t.Fatalf("PolygonVertexIndex: %v", err)
			}
			if len(idx) != 3 || idx[2] != -3 {
				t.Errorf("PolygonVertexIndex = %v", idx)
			}
			flags, err := geom.Child("Flags").Prop(0).AsBools()
			if err != nil || len(flags) != 2 || !flags[0] || flags[1] {
				t.Errorf("Flags = %v, %v", flags, err)
			}

			scalars := doc.Root().Child("FBXHeaderExtension").Child("Scalars").Props()
			if len(scalars) != 6 {
				t.Fatalf("Scalars props = %d, want 6", len(scalars))
			}
			types := []fbx.PropertyType{fbx.TypeInt16, fbx.TypeBool, fbx.TypeBool, fbx.TypeFloat32, fbx.TypeInt64, fbx.TypeFloat64}
			for i, want := range types {
				if got := scalars[i].Type(); got != want {
					t.Errorf("Scalars prop %d type = %s, want %s", i, got, want)
				}
			}
			if v, err := fbx.Cast[int16](scalars[0]); err != nil || v != -12 {
				t.Errorf("int16 = %v, %v; want -12", v, err)
			}
			if v, err := scalars[1].AsBool(); err != nil || !v {
				t.Errorf("bool true = %v, %v", v, err)
			}
			if v, err := scalars[2].AsBool(); err != nil || v {
				t.Errorf("bool false = %v, %v", v, err)
			}
			if v, err := fbx.Cast[float32](scalars[3]); err != nil || v != 1.5 {
				t.Errorf("float32 = %v, %v; want 1.5", v, err)
			}
			if v, err := scalars[4].AsInt64(); err != nil || v != -1<<40 {
				t.Errorf("int64 = %v, %v; want %d", v, err, int64(-1<<40))
			}
			if v, err := scalars[5].AsFloat64(); err != nil || v != -2.25 {
				t.Errorf("float64 = %v, %v; want -2.25", v, err)
			}

			// only direct children of Objects carry IDs
			if id := doc.Root().Child("FBXHeaderExtension").Child("FBXVersion").ID(); id != 0 {
				t.Errorf("nested record ID = %d, want 0", id)
			}
			if got := doc.Root().Child("Objects").Child("Model").ObjectName(); got != "Cube" {
				t.Errorf("ObjectName() = %q, want Cube", got)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.fbx")
	if err := fbxtest.WriteFile(path, sampleRecords()...); err != nil {
		t.Fatal(err)
	}
	doc, err := fbx.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if doc.VersionString() != "7.4" {
		t.Errorf("VersionString() = %q, want 7.4", doc.VersionString())
	}

	if _, err := fbx.DecodeFile(filepath.Join(t.TempDir(), "missing.fbx")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	valid := fbxtest.MustEncode(t, fbxtest.Writer{}, sampleRecords()...)

	badSig := bytes.Clone(valid)
	copy(badSig, "Kaydara FBX Ascii   ")

	oldVersion := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(oldVersion[23:], 6100)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, fbx.ErrInvalidSignature},
		{"short", []byte("Kaydara"), fbx.ErrInvalidSignature},
		{"bad signature", badSig, fbx.ErrInvalidSignature},
		{"old version", oldVersion, fbx.ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fbx.Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// rawRecord hand-encodes one narrow record with a single property blob.
func rawRecord(endOffset, numProps, propLen uint32, name string, props []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, endOffset)
	binary.Write(&b, binary.LittleEndian, numProps)
	binary.Write(&b, binary.LittleEndian, propLen)
	b.WriteByte(byte(len(name)))
	b.WriteString(name)
	b.Write(props)
	return b.Bytes()
}

func header() []byte {
	var b bytes.Buffer
	b.WriteString(fbx.Signature)
	b.Write([]byte{0x1A, 0x00})
	binary.Write(&b, binary.LittleEndian, uint32(7400))
	return b.Bytes()
}

func TestDecodeMalformed(t *testing.T) {
	h := header()
	base := uint32(len(h))
	recHeader := uint32(13 + 1) // three u32 fields, name length, name "A"

	tests := []struct {
		name string
		body []byte
		want error
	}{
		{
			name: "end offset before body",
			body: rawRecord(base+2, 0, 0, "A", nil),
			want: fbx.ErrMalformedContainer,
		},
		{
			name: "end offset past properties",
			body: rawRecord(base+recHeader+5+3, 1, 5, "A", []byte{'I', 1, 0, 0, 0}),
			want: fbx.ErrMalformedContainer,
		},
		{
			name: "unknown type tag",
			body: rawRecord(base+recHeader+2, 1, 2, "A", []byte{'Q', 0}),
			want: fbx.ErrMalformedContainer,
		},
		{
			name: "property list length mismatch",
			body: rawRecord(base+recHeader+6, 1, 6, "A", []byte{'I', 1, 0, 0, 0, 0}),
			want: fbx.ErrMalformedContainer,
		},
		{
			name: "truncated",
			body: rawRecord(base+recHeader+5, 1, 5, "A", []byte{'I', 1}),
			want: fbx.ErrMalformedContainer,
		},
		{
			name: "unknown array encoding",
			body: rawRecord(base+recHeader+17, 1, 17, "A",
				[]byte{'i', 1, 0, 0, 0, 2, 0, 0, 0, 4, 0, 0, 0, 7, 0, 0, 0}),
			want: fbx.ErrUnsupportedEncoding,
		},
		{
			name: "raw array length mismatch",
			body: rawRecord(base+recHeader+17, 1, 17, "A",
				[]byte{'i', 2, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 7, 0, 0, 0}),
			want: fbx.ErrMalformedContainer,
		},
		{
			name: "corrupt compressed array",
			body: rawRecord(base+recHeader+17, 1, 17, "A",
				[]byte{'i', 1, 0, 0, 0, 1, 0, 0, 0, 4, 0, 0, 0, 0xde, 0xad, 0xbe, 0xef}),
			want: fbx.ErrMalformedContainer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(bytes.Clone(h), tt.body...)
			_, err := fbx.Parse(data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, fbx.ErrMalformedContainer) {
				t.Errorf("error %v does not classify as malformed", err)
			}
			var oe *fbx.OffsetError
			if !errors.As(err, &oe) {
				t.Errorf("error %v carries no offset", err)
			} else if oe.Offset < int64(base) {
				t.Errorf("offset %d precedes first record at %d", oe.Offset, base)
			}
		})
	}
}

func TestDecodeOversizedArrayCount(t *testing.T) {
	h := header()
	base := uint32(len(h))
	recHeader := uint32(13 + 1)

	// 1<<24 int32 elements claim 64 MiB against a four byte block
	tests := []struct {
		name     string
		encoding byte
	}{
		{"raw", 0},
		{"compressed", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := []byte{'i', 0, 0, 0, 1, tt.encoding, 0, 0, 0, 4, 0, 0, 0, 0x78, 0x9c, 0x03, 0x00}
			data := append(bytes.Clone(h), rawRecord(base+recHeader+17, 1, 17, "A", props)...)

			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := fbx.Parse(data)
			runtime.ReadMemStats(&after)

			if !errors.Is(err, fbx.ErrMalformedContainer) {
				t.Fatalf("Parse() error = %v, want ErrMalformedContainer", err)
			}
			if grown := after.TotalAlloc - before.TotalAlloc; grown > 8<<20 {
				t.Errorf("Parse() allocated %d bytes for a rejected array", grown)
			}
		})
	}
}

func TestDecodeUnterminatedChildList(t *testing.T) {
	h := header()
	base := uint32(len(h))
	child := rawRecord(base+14+14, 0, 0, "B", nil)
	// parent ends right after the child without a sentinel
	parent := rawRecord(base+14+uint32(len(child)), 0, 0, "A", child)

	_, err := fbx.Parse(append(h, parent...))
	if !errors.Is(err, fbx.ErrMalformedContainer) {
		t.Errorf("Parse() error = %v, want ErrMalformedContainer", err)
	}
}

func TestDecodeEmptyArrays(t *testing.T) {
	for _, compress := range []bool{false, true} {
		data := fbxtest.MustEncode(t, fbxtest.Writer{Compress: compress},
			fbxtest.R("A", fbx.NewFloat32Array(nil), fbx.NewInt64Array([]int64{})))
		doc, err := fbx.Parse(data)
		if err != nil {
			t.Fatalf("compress=%v: Parse() error = %v", compress, err)
		}
		a := doc.Root().Child("A")
		if n := a.Prop(0).ValueCount(); n != 0 {
			t.Errorf("compress=%v: float array count = %d", compress, n)
		}
		if a.Prop(1).Type() != fbx.TypeInt64Array {
			t.Errorf("compress=%v: type = %s", compress, a.Prop(1).Type())
		}
	}
}
