package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

// ErrLayerIndex is returned when a layer element refers past its data.
var ErrLayerIndex = errors.New("layer element index out of range")

// Mapping says which geometry element a layer value belongs to.
type Mapping int

const (
	ByPolygonVertex Mapping = iota
	ByVertex
	ByPolygon
	AllSame
)

func parseMapping(element, s string) (Mapping, error) {
	switch s {
	case "ByPolygonVertex":
		return ByPolygonVertex, nil
	case "ByVertex", "ByVertice":
		return ByVertex, nil
	case "ByPolygon":
		return ByPolygon, nil
	case "AllSame":
		return AllSame, nil
	}
	return 0, &fbx.MappingError{Element: element, Field: "MappingInformationType", Value: s}
}

// layer resolves per-corner lookups into one layer element's value array.
type layer struct {
	name    string
	mapping Mapping
	// index is nil for direct reference.
	index []int32
	count int
}

// readLayer reads the mapping and reference fields of a layer element.
// dataCount is the number of values in its data array.
func readLayer(elem fbx.Node, indexName string, dataCount int) (*layer, error) {
	name := elem.Name()
	m, err := parseMapping(name, elem.Child("MappingInformationType").PropString(0))
	if err != nil {
		return nil, err
	}
	l := &layer{name: name, mapping: m, count: dataCount}

	switch ref := elem.Child("ReferenceInformationType").PropString(0); ref {
	case "Direct":
	case "IndexToDirect", "Index":
		idx, err := elem.Child(indexName).Prop(0).AsInt32s()
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, indexName, err)
		}
		l.index = idx
	default:
		return nil, &fbx.MappingError{Element: name, Field: "ReferenceInformationType", Value: ref}
	}
	return l, nil
}

// lookup returns the data index for one polygon corner.
func (l *layer) lookup(corner, vertex, polygon int) (int, error) {
	var i int
	switch l.mapping {
	case ByPolygonVertex:
		i = corner
	case ByVertex:
		i = vertex
	case ByPolygon:
		i = polygon
	case AllSame:
		i = 0
	}
	if l.index != nil {
		if i < 0 || i >= len(l.index) {
			return 0, fmt.Errorf("%w: %s index %d of %d", ErrLayerIndex, l.name, i, len(l.index))
		}
		i = int(l.index[i])
	}
	if i < 0 || i >= l.count {
		return 0, fmt.Errorf("%w: %s value %d of %d", ErrLayerIndex, l.name, i, l.count)
	}
	return i, nil
}
