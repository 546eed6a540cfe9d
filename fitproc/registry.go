package fitproc

import (
	"encoding/binary"
	"fmt"
)

type devKey struct {
	index uint8
	field uint8
}

// DeveloperField is the definition of one developer field, built from a
// field_description message.
type DeveloperField struct {
	Name           string
	Units          string
	BaseRaw        uint8
	NativeFieldNum int
}

// DeveloperRegistry maps (developer_index, field_number) pairs to field
// definitions. One registry belongs to exactly one file's processing pass.
type DeveloperRegistry struct {
	defs    map[devKey]DeveloperField
	indices map[uint8]struct{}
}

func NewDeveloperRegistry() *DeveloperRegistry {
	return &DeveloperRegistry{
		defs:    make(map[devKey]DeveloperField),
		indices: make(map[uint8]struct{}),
	}
}

// AddDataID registers the developer index announced by a developer_data_id
// message.
func (r *DeveloperRegistry) AddDataID(msg Message) {
	if v, ok := msg.Field(3); ok {
		if idx, ok := asFloat(v); ok && idx >= 0 {
			r.indices[uint8(idx)] = struct{}{}
		}
	}
}

// AddFieldDescription registers a field_description message. Entries missing
// an index, number or name are ignored.
func (r *DeveloperRegistry) AddFieldDescription(msg Message) {
	idxVal, okIdx := msg.Field(0)
	numVal, okNum := msg.Field(1)
	nameVal, okName := msg.Field(3)
	if !okIdx || !okNum || !okName {
		return
	}
	idx, ok1 := asFloat(idxVal)
	num, ok2 := asFloat(numVal)
	name, ok3 := nameVal.(string)
	if !ok1 || !ok2 || !ok3 || name == "" {
		return
	}

	def := DeveloperField{Name: name}
	if v, ok := msg.Field(2); ok {
		if base, ok := asFloat(v); ok {
			def.BaseRaw = uint8(base)
		}
	}
	if v, ok := msg.Field(8); ok {
		if units, ok := v.(string); ok {
			def.Units = units
		}
	}
	if v, ok := msg.Field(7); ok {
		if native, ok := asFloat(v); ok {
			def.NativeFieldNum = int(native)
		}
	}
	r.defs[devKey{index: uint8(idx), field: uint8(num)}] = def
}

// Len reports how many developer field definitions the registry holds.
func (r *DeveloperRegistry) Len() int { return len(r.defs) }

// ResolveName returns a normalized field name for the pair, falling back to
// a generic dev_field name when no description was seen.
func (r *DeveloperRegistry) ResolveName(index, field uint8) string {
	if def, ok := r.defs[devKey{index: index, field: field}]; ok && def.Name != "" {
		return normalizeFieldName(def.Name)
	}
	return fmt.Sprintf("dev_field_%d_%d", index, field)
}

// Units returns the declared units for the pair, if any.
func (r *DeveloperRegistry) Units(index, field uint8) string {
	return r.defs[devKey{index: index, field: field}].Units
}

// DecodeValue resolves a developer field's name and decodes its raw bytes
// using the base type from its field_description. Developer payloads are
// little-endian in practice; fields with no usable value return ok=false.
func (r *DeveloperRegistry) DecodeValue(dv DeveloperFieldValue) (string, any, bool) {
	name := r.ResolveName(dv.DeveloperIndex, dv.FieldNumber)
	if len(dv.Raw) == 0 {
		return name, nil, false
	}

	def, known := r.defs[devKey{index: dv.DeveloperIndex, field: dv.FieldNumber}]
	if !known {
		// No description: expose single bytes, drop multi-byte blobs we
		// cannot interpret.
		if len(dv.Raw) == 1 {
			return name, float64(dv.Raw[0]), dv.Raw[0] != 0xFF
		}
		return name, nil, false
	}

	base := canonicalBaseType(def.BaseRaw)
	if base == baseString {
		s := nullTerminated(dv.Raw)
		return name, s, s != ""
	}

	size, ok := baseSizes[base]
	if !ok || size <= 0 || len(dv.Raw)%size != 0 {
		if len(dv.Raw) == 1 {
			return name, float64(dv.Raw[0]), dv.Raw[0] != 0xFF
		}
		return name, nil, false
	}

	v, invalid := decodeScalar(dv.Raw[:size], base, binary.LittleEndian)
	if invalid {
		return name, nil, false
	}
	if f, ok := asFloat(v); ok {
		return name, f, true
	}
	return name, v, true
}
