// Package fbx decodes the binary FBX container into a record tree and
// indexes its objects and connections.
package fbx

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zlib"
)

// Signature is the fixed magic at the start of every binary container.
const Signature = "Kaydara FBX Binary  \x00"

const (
	headerSize = len(Signature) + 2 + 4

	minVersion = 7000
	maxVersion = 7700

	// Versions from 7.5 on widen the record header fields to 64 bits.
	wideVersion = 7500

	// Upper bound for one decoded array, guards against corrupt counts.
	maxArrayBytes = 1 << 30

	// Upper bound of the deflate expansion ratio.
	maxInflateRatio = 1032
)

// Document is one decoded container.
type Document struct {
	Version uint32
	Tree    *Tree
}

// Root returns the synthetic root whose children are the top-level records.
func (d *Document) Root() Node { return d.Tree.Root() }

// VersionString returns the version as "Major.Minor", e.g. "7.3" for 7300.
func (d *Document) VersionString() string {
	return fmt.Sprintf("%d.%d", d.Version/1000, d.Version%1000/100)
}

// Parse decodes a container held in memory.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeFile decodes a container from disk.
func DecodeFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening FBX file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a whole container from r. Any structural violation aborts
// the load with an error that unwraps to ErrMalformedContainer.
func Decode(r io.Reader) (*Document, error) {
	d := &decoder{r: bufio.NewReaderSize(r, 64*1024), tree: newTree()}

	version, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	d.wide = version >= wideVersion

	for {
		end, err := d.peekEndOffset()
		if errors.Is(err, io.EOF) {
			// some exporters omit the root-level sentinel
			break
		}
		if err != nil {
			return nil, err
		}
		if end == 0 {
			if err := d.skip(d.sentinelSize()); err != nil {
				return nil, err
			}
			break
		}
		h, err := d.readRecord("", 0)
		if err != nil {
			return nil, err
		}
		d.tree.records[0].Children = append(d.tree.records[0].Children, h)
	}

	return &Document{Version: version, Tree: d.tree}, nil
}

type decoder struct {
	r    *bufio.Reader
	pos  int64
	wide bool
	tree *Tree
	buf  [8]byte
}

func (d *decoder) readHeader() (uint32, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return 0, ErrInvalidSignature
	}
	d.pos = int64(headerSize)
	if string(hdr[:len(Signature)]) != Signature {
		return 0, ErrInvalidSignature
	}
	version := binary.LittleEndian.Uint32(hdr[len(Signature)+2:])
	if version < minVersion || version > maxVersion {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return version, nil
}

func (d *decoder) sentinelSize() int {
	if d.wide {
		return 25
	}
	return 13
}

func (d *decoder) read(n int) ([]byte, error) {
	b := d.buf[:n]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, malformedAt(d.pos, "unexpected end of data reading %d bytes", n)
	}
	d.pos += int64(n)
	return b, nil
}

func (d *decoder) skip(n int) error {
	m, err := d.r.Discard(n)
	d.pos += int64(m)
	if err != nil {
		return malformedAt(d.pos, "unexpected end of data skipping %d bytes", n)
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// headerField reads one of the three leading record fields, whose width
// depends on the container version.
func (d *decoder) headerField() (uint64, error) {
	if d.wide {
		return d.u64()
	}
	v, err := d.u32()
	return uint64(v), err
}

// peekEndOffset looks at the next end-offset field without consuming it.
// io.EOF is returned unwrapped when the stream ends cleanly.
func (d *decoder) peekEndOffset() (uint64, error) {
	n := 4
	if d.wide {
		n = 8
	}
	b, err := d.r.Peek(n)
	if err != nil {
		if len(b) == 0 && errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, malformedAt(d.pos, "unexpected end of data in record list")
	}
	if d.wide {
		return binary.LittleEndian.Uint64(b), nil
	}
	return uint64(binary.LittleEndian.Uint32(b)), nil
}

func (d *decoder) readRecord(parent string, depth int) (Handle, error) {
	start := d.pos

	endOffset, err := d.headerField()
	if err != nil {
		return NoHandle, err
	}
	numProps, err := d.headerField()
	if err != nil {
		return NoHandle, err
	}
	propListLen, err := d.headerField()
	if err != nil {
		return NoHandle, err
	}
	nameLen, err := d.u8()
	if err != nil {
		return NoHandle, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(d.r, name); err != nil {
		return NoHandle, malformedAt(d.pos, "unexpected end of data in record name")
	}
	d.pos += int64(nameLen)

	end := int64(endOffset)
	if endOffset > math.MaxInt64 || end < d.pos {
		return NoHandle, malformedAt(start, "record %q: end offset %d before record body", name, endOffset)
	}
	// every property needs at least its type byte
	if numProps > propListLen || propListLen > uint64(end-d.pos) {
		return NoHandle, malformedAt(start, "record %q: %d properties in %d bytes", name, numProps, propListLen)
	}

	rec := Record{Name: string(name), Offset: start}
	propStart := d.pos
	if numProps > 0 {
		rec.Props = make([]Property, 0, numProps)
	}
	for i := uint64(0); i < numProps; i++ {
		p, err := d.readProperty(end)
		if err != nil {
			return NoHandle, fmt.Errorf("record %q property %d: %w", rec.Name, i, err)
		}
		rec.Props = append(rec.Props, p)
	}
	if got := d.pos - propStart; got != int64(propListLen) {
		return NoHandle, malformedAt(d.pos, "record %q: property list is %d bytes, header says %d", rec.Name, got, propListLen)
	}
	if d.pos > end {
		return NoHandle, malformedAt(d.pos, "record %q: properties overrun end offset %d", rec.Name, end)
	}

	if depth == 1 && parent == "Objects" && len(rec.Props) > 0 && rec.Props[0].typ == TypeInt64 {
		rec.ID = rec.Props[0].i
	}

	h := d.tree.add(rec)

	if d.pos < end {
		for {
			if d.pos >= end {
				return NoHandle, malformedAt(d.pos, "record %q: child list not terminated before end offset %d", rec.Name, end)
			}
			next, err := d.peekEndOffset()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return NoHandle, malformedAt(d.pos, "record %q: unexpected end of data in child list", rec.Name)
				}
				return NoHandle, err
			}
			if next == 0 {
				if err := d.skip(d.sentinelSize()); err != nil {
					return NoHandle, err
				}
				break
			}
			child, err := d.readRecord(rec.Name, depth+1)
			if err != nil {
				return NoHandle, err
			}
			d.tree.records[h].Children = append(d.tree.records[h].Children, child)
		}
	}

	if d.pos != end {
		return NoHandle, malformedAt(d.pos, "record %q: ends at %d, header says %d", rec.Name, d.pos, end)
	}
	return h, nil
}

func (d *decoder) readProperty(recordEnd int64) (Property, error) {
	tagPos := d.pos
	tag, err := d.u8()
	if err != nil {
		return Property{}, err
	}
	t := PropertyType(tag)

	switch t {
	case TypeBool:
		v, err := d.u8()
		if err != nil {
			return Property{}, err
		}
		return NewBool(v != 0), nil
	case TypeInt16:
		b, err := d.read(2)
		if err != nil {
			return Property{}, err
		}
		return NewInt16(int16(binary.LittleEndian.Uint16(b))), nil
	case TypeInt32:
		v, err := d.u32()
		if err != nil {
			return Property{}, err
		}
		return NewInt32(int32(v)), nil
	case TypeInt64:
		v, err := d.u64()
		if err != nil {
			return Property{}, err
		}
		return NewInt64(int64(v)), nil
	case TypeFloat32:
		v, err := d.u32()
		if err != nil {
			return Property{}, err
		}
		return NewFloat32(math.Float32frombits(v)), nil
	case TypeFloat64:
		v, err := d.u64()
		if err != nil {
			return Property{}, err
		}
		return NewFloat64(math.Float64frombits(v)), nil
	case TypeString, TypeRaw:
		n, err := d.u32()
		if err != nil {
			return Property{}, err
		}
		if int64(n) > recordEnd-d.pos {
			return Property{}, malformedAt(d.pos, "%s of %d bytes overruns record", t, n)
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(d.r, data); err != nil {
			return Property{}, malformedAt(d.pos, "unexpected end of data in %s", t)
		}
		d.pos += int64(n)
		if t == TypeString {
			return NewString(string(data)), nil
		}
		return NewRaw(data), nil
	}

	if !t.IsArray() {
		return Property{}, malformedAt(tagPos, "unknown property type tag 0x%02x", tag)
	}
	return d.readArray(t, recordEnd)
}

func (d *decoder) readArray(t PropertyType, recordEnd int64) (Property, error) {
	count, err := d.u32()
	if err != nil {
		return Property{}, err
	}
	encoding, err := d.u32()
	if err != nil {
		return Property{}, err
	}
	encPos := d.pos - 4
	byteLen, err := d.u32()
	if err != nil {
		return Property{}, err
	}
	if int64(byteLen) > recordEnd-d.pos {
		return Property{}, malformedAt(d.pos, "%s block of %d bytes overruns record", t, byteLen)
	}

	size := int64(count) * int64(t.elementSize())
	if size > maxArrayBytes {
		return Property{}, malformedAt(d.pos, "%s of %d elements is too large", t, count)
	}
	var data []byte
	switch encoding {
	case 0:
		if int64(byteLen) != size {
			return Property{}, malformedAt(d.pos, "raw %s: %d elements in %d bytes", t, count, byteLen)
		}
		data = make([]byte, size)
		if _, err := io.ReadFull(d.r, data); err != nil {
			return Property{}, malformedAt(d.pos, "unexpected end of data in %s", t)
		}
		d.pos += size
	case 1:
		if size > int64(byteLen)*maxInflateRatio {
			return Property{}, malformedAt(d.pos, "compressed %s: %d bytes cannot inflate to %d elements", t, byteLen, count)
		}
		data = make([]byte, size)
		if err := d.inflate(data, int64(byteLen), t); err != nil {
			return Property{}, err
		}
	default:
		return Property{}, &OffsetError{Offset: encPos, Err: fmt.Errorf("%w: %d", ErrUnsupportedEncoding, encoding)}
	}

	return decodeElements(t, int(count), data), nil
}

// inflate decompresses a zlib block of exactly n stream bytes into dst.
// The block must yield exactly len(dst) bytes and must be fully consumed.
func (d *decoder) inflate(dst []byte, n int64, t PropertyType) error {
	start := d.pos
	block := &io.LimitedReader{R: d.r, N: n}

	zr, err := zlib.NewReader(block)
	if err != nil {
		return malformedAt(start, "compressed %s: %v", t, err)
	}
	if _, err := io.ReadFull(zr, dst); err != nil {
		zr.Close()
		return malformedAt(start, "compressed %s: decoded fewer than %d bytes: %v", t, len(dst), err)
	}
	var extra [1]byte
	if m, err := zr.Read(extra[:]); m != 0 || !errors.Is(err, io.EOF) {
		zr.Close()
		if m != 0 {
			return malformedAt(start, "compressed %s: more data than %d bytes", t, len(dst))
		}
		return malformedAt(start, "compressed %s: %v", t, err)
	}
	if err := zr.Close(); err != nil {
		return malformedAt(start, "compressed %s: %v", t, err)
	}

	leftover, _ := io.Copy(io.Discard, block)
	if block.N != 0 {
		return malformedAt(start, "compressed %s: unexpected end of data", t)
	}
	if leftover != 0 {
		return malformedAt(start, "compressed %s: %d trailing bytes in block", t, leftover)
	}
	d.pos = start + n
	return nil
}

func decodeElements(t PropertyType, count int, data []byte) Property {
	le := binary.LittleEndian
	switch t {
	case TypeBoolArray:
		v := make([]bool, count)
		for i := range v {
			v[i] = data[i] != 0
		}
		return NewBoolArray(v)
	case TypeInt32Array:
		v := make([]int32, count)
		for i := range v {
			v[i] = int32(le.Uint32(data[i*4:]))
		}
		return NewInt32Array(v)
	case TypeInt64Array:
		v := make([]int64, count)
		for i := range v {
			v[i] = int64(le.Uint64(data[i*8:]))
		}
		return NewInt64Array(v)
	case TypeFloat32Array:
		v := make([]float32, count)
		for i := range v {
			v[i] = math.Float32frombits(le.Uint32(data[i*4:]))
		}
		return NewFloat32Array(v)
	default:
		v := make([]float64, count)
		for i := range v {
			v[i] = math.Float64frombits(le.Uint64(data[i*8:]))
		}
		return NewFloat64Array(v)
	}
}
