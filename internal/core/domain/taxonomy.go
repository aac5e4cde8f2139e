package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dimension is one of the four independent preference axes.
type Dimension string

const (
	DimensionStyle             Dimension = "style"
	DimensionColorPalette      Dimension = "colorPalette"
	DimensionMaterialFocus     Dimension = "materialFocus"
	DimensionSpatialPhilosophy Dimension = "spatialPhilosophy"
)

// ValuesPerDimension is the fixed number of tag values in every dimension.
const ValuesPerDimension = 6

//go:embed taxonomy.yaml
var taxonomyYAML []byte

type taxonomyFile struct {
	Dimensions []struct {
		Name   string   `yaml:"name"`
		Values []string `yaml:"values"`
	} `yaml:"dimensions"`
	RoomTypes []string `yaml:"roomTypes"`
}

type taxonomyIndex struct {
	dimensions []Dimension
	values     map[Dimension][]string
	valueSet   map[Dimension]map[string]struct{}
	roomTypes  []string
	roomSet    map[string]struct{}
}

var taxonomy = mustLoadTaxonomy()

func mustLoadTaxonomy() *taxonomyIndex {
	var file taxonomyFile
	if err := yaml.Unmarshal(taxonomyYAML, &file); err != nil {
		panic(fmt.Sprintf("parse embedded taxonomy: %v", err))
	}

	idx := &taxonomyIndex{
		values:   make(map[Dimension][]string, len(file.Dimensions)),
		valueSet: make(map[Dimension]map[string]struct{}, len(file.Dimensions)),
		roomSet:  make(map[string]struct{}, len(file.RoomTypes)),
	}
	for _, d := range file.Dimensions {
		dim := Dimension(d.Name)
		if len(d.Values) != ValuesPerDimension {
			panic(fmt.Sprintf("taxonomy dimension %q has %d values, want %d", d.Name, len(d.Values), ValuesPerDimension))
		}
		idx.dimensions = append(idx.dimensions, dim)
		idx.values[dim] = d.Values
		set := make(map[string]struct{}, len(d.Values))
		for _, v := range d.Values {
			set[v] = struct{}{}
		}
		idx.valueSet[dim] = set
	}
	idx.roomTypes = file.RoomTypes
	for _, r := range file.RoomTypes {
		idx.roomSet[r] = struct{}{}
	}
	return idx
}

// Dimensions returns the scored dimensions in their canonical order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(taxonomy.dimensions))
	copy(out, taxonomy.dimensions)
	return out
}

// DimensionValues returns the legal tag values for a dimension, nil if the
// dimension is unknown.
func DimensionValues(dim Dimension) []string {
	values, ok := taxonomy.values[dim]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// IsValidTagValue reports whether value is legal for the given dimension.
func IsValidTagValue(dim Dimension, value string) bool {
	set, ok := taxonomy.valueSet[dim]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// RoomTypes returns the closed room-type classifier values. Room type is not
// part of the scored taxonomy.
func RoomTypes() []string {
	out := make([]string, len(taxonomy.roomTypes))
	copy(out, taxonomy.roomTypes)
	return out
}

// IsValidRoomType reports whether roomType is a known classifier value.
func IsValidRoomType(roomType string) bool {
	_, ok := taxonomy.roomSet[roomType]
	return ok
}
