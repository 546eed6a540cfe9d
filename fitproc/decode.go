// Package fitproc decodes FIT activity files into categorized session,
// record and lap documents ready for indexing and analytics.
package fitproc

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/tormoder/fit/dyncrc16"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14
)

// Global message numbers this package cares about.
const (
	msgFileID           uint16 = 0
	msgSession          uint16 = 18
	msgLap              uint16 = 19
	msgRecord           uint16 = 20
	msgDeviceInfo       uint16 = 23
	msgFieldDescription uint16 = 206
	msgDeveloperDataID  uint16 = 207
)

type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

var baseSizes = map[baseType]int{
	baseEnum:    1,
	baseSint8:   1,
	baseUint8:   1,
	baseSint16:  2,
	baseUint16:  2,
	baseSint32:  4,
	baseUint32:  4,
	baseString:  1,
	baseFloat32: 4,
	baseFloat64: 8,
	baseUint8z:  1,
	baseUint16z: 2,
	baseUint32z: 4,
	baseByte:    1,
	baseSint64:  8,
	baseUint64:  8,
	baseUint64z: 8,
}

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// FieldValue is one decoded native field of a data message.
type FieldValue struct {
	FieldNumber uint8
	Value       any
	Invalid     bool
}

// DeveloperFieldValue carries the raw bytes of a developer field; decoding
// needs the matching field_description, handled by DeveloperRegistry.
type DeveloperFieldValue struct {
	FieldNumber    uint8
	DeveloperIndex uint8
	Raw            []byte
}

// Message is a decoded FIT data message.
type Message struct {
	Global          uint16
	Fields          []FieldValue
	DeveloperFields []DeveloperFieldValue
}

// Field returns the value of the given native field and whether it is
// present and valid.
func (m Message) Field(num uint8) (any, bool) {
	for _, f := range m.Fields {
		if f.FieldNumber == num {
			if f.Invalid {
				return nil, false
			}
			return f.Value, true
		}
	}
	return nil, false
}

type fieldDef struct {
	fieldNumber uint8
	size        uint8
	baseRaw     uint8
	base        baseType
}

type devFieldDef struct {
	fieldNumber    uint8
	size           uint8
	developerIndex uint8
}

type definition struct {
	global    uint16
	arch      binary.ByteOrder
	fields    []fieldDef
	devFields []devFieldDef
}

type decoder struct {
	data          []byte
	definitions   map[uint8]definition
	lastTimestamp uint32
	lastOffset    int32
	messages      []Message
}

// DecodeFile reads a FIT file and returns its data messages in file order.
func DecodeFile(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeMessages(data)
}

// DecodeMessages parses raw FIT bytes into data messages. The file CRC is
// verified; a mismatch fails the whole file since the payload cannot be
// trusted.
func DecodeMessages(data []byte) ([]Message, error) {
	if len(data) < headerSizeNoCRC+2 {
		return nil, fmt.Errorf("fit file too short: %d bytes", len(data))
	}

	headerSize := data[0]
	if headerSize != headerSizeNoCRC && headerSize != headerSizeCRC {
		return nil, fmt.Errorf("invalid fit header size: %d", headerSize)
	}
	if len(data) < int(headerSize) {
		return nil, fmt.Errorf("truncated fit header: need %d bytes", headerSize)
	}
	if dt := string(data[8:12]); dt != ".FIT" {
		return nil, fmt.Errorf("invalid fit data type in header: %q", dt)
	}
	dataSize := binary.LittleEndian.Uint32(data[4:8])

	required := int(headerSize) + int(dataSize) + 2
	if len(data) < required {
		return nil, fmt.Errorf("fit file truncated: have %d bytes, need at least %d", len(data), required)
	}

	stored := binary.LittleEndian.Uint16(data[int(headerSize)+int(dataSize):])
	computed := dyncrc16.Checksum(data[:int(headerSize)+int(dataSize)])
	if stored != computed {
		return nil, fmt.Errorf("fit file CRC mismatch: stored 0x%04X, computed 0x%04X", stored, computed)
	}

	d := &decoder{
		data:        data[headerSize : int(headerSize)+int(dataSize)],
		definitions: make(map[uint8]definition),
	}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.messages, nil
}

func (d *decoder) run() error {
	pos := 0
	for pos < len(d.data) {
		headerByte := d.data[pos]
		pos++

		switch {
		case headerByte&compressedHeaderMask == compressedHeaderMask:
			local := (headerByte & compressedLocalMesgNumMask) >> 5
			def, ok := d.definitions[local]
			if !ok {
				return fmt.Errorf("data message local=%d has no definition", local)
			}
			next, err := d.parseData(pos, headerByte, def, true)
			if err != nil {
				return err
			}
			pos = next
		case headerByte&mesgDefinitionMask == mesgDefinitionMask:
			local := headerByte & localMesgNumMask
			def, next, err := d.parseDefinition(pos, headerByte)
			if err != nil {
				return err
			}
			d.definitions[local] = def
			pos = next
		default:
			local := headerByte & localMesgNumMask
			def, ok := d.definitions[local]
			if !ok {
				return fmt.Errorf("data message local=%d has no definition", local)
			}
			next, err := d.parseData(pos, headerByte, def, false)
			if err != nil {
				return err
			}
			pos = next
		}
	}
	return nil
}

func (d *decoder) read(pos, n int) ([]byte, int, error) {
	if pos+n > len(d.data) {
		return nil, 0, fmt.Errorf("fit record truncated at byte %d", pos)
	}
	return d.data[pos : pos+n], pos + n, nil
}

func (d *decoder) parseDefinition(pos int, headerByte uint8) (definition, int, error) {
	var err error
	var raw []byte

	if _, pos, err = d.read(pos, 1); err != nil { // reserved
		return definition{}, 0, err
	}
	if raw, pos, err = d.read(pos, 1); err != nil {
		return definition{}, 0, err
	}

	var arch binary.ByteOrder
	switch raw[0] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return definition{}, 0, fmt.Errorf("invalid architecture byte %d", raw[0])
	}

	if raw, pos, err = d.read(pos, 2); err != nil {
		return definition{}, 0, err
	}
	global := arch.Uint16(raw)

	if raw, pos, err = d.read(pos, 1); err != nil {
		return definition{}, 0, err
	}
	numFields := int(raw[0])

	def := definition{global: global, arch: arch, fields: make([]fieldDef, 0, numFields)}
	for i := 0; i < numFields; i++ {
		if raw, pos, err = d.read(pos, 3); err != nil {
			return definition{}, 0, err
		}
		def.fields = append(def.fields, fieldDef{
			fieldNumber: raw[0],
			size:        raw[1],
			baseRaw:     raw[2],
			base:        canonicalBaseType(raw[2]),
		})
	}

	if headerByte&devDataMask == devDataMask {
		if raw, pos, err = d.read(pos, 1); err != nil {
			return definition{}, 0, err
		}
		devCount := int(raw[0])
		def.devFields = make([]devFieldDef, 0, devCount)
		for i := 0; i < devCount; i++ {
			if raw, pos, err = d.read(pos, 3); err != nil {
				return definition{}, 0, err
			}
			def.devFields = append(def.devFields, devFieldDef{
				fieldNumber:    raw[0],
				size:           raw[1],
				developerIndex: raw[2],
			})
		}
	}

	return def, pos, nil
}

func (d *decoder) parseData(pos int, headerByte uint8, def definition, compressed bool) (int, error) {
	msg := Message{Global: def.global, Fields: make([]FieldValue, 0, len(def.fields))}

	if compressed && d.lastTimestamp != 0 {
		offset := int32(headerByte & compressedTimeMask)
		d.lastTimestamp += uint32((offset - d.lastOffset) & int32(compressedTimeMask))
		d.lastOffset = offset
		msg.Fields = append(msg.Fields, FieldValue{FieldNumber: 253, Value: d.lastTimestamp})
	}

	var raw []byte
	var err error
	for _, fd := range def.fields {
		if raw, pos, err = d.read(pos, int(fd.size)); err != nil {
			return 0, err
		}
		fv := decodeFieldValue(raw, fd, def.arch)
		if fd.fieldNumber == 253 && !fv.Invalid {
			if ts, ok := fv.Value.(uint32); ok {
				d.lastTimestamp = ts
				d.lastOffset = int32(ts & compressedTimeMask)
			}
		}
		msg.Fields = append(msg.Fields, fv)
	}

	for _, dd := range def.devFields {
		if raw, pos, err = d.read(pos, int(dd.size)); err != nil {
			return 0, err
		}
		buf := make([]byte, len(raw))
		copy(buf, raw)
		msg.DeveloperFields = append(msg.DeveloperFields, DeveloperFieldValue{
			FieldNumber:    dd.fieldNumber,
			DeveloperIndex: dd.developerIndex,
			Raw:            buf,
		})
	}

	d.messages = append(d.messages, msg)
	return pos, nil
}

func decodeFieldValue(raw []byte, def fieldDef, arch binary.ByteOrder) FieldValue {
	fv := FieldValue{FieldNumber: def.fieldNumber}

	if def.base == baseString {
		s := nullTerminated(raw)
		fv.Value = s
		fv.Invalid = s == ""
		return fv
	}
	if def.base == baseByte {
		fv.Value = append([]byte(nil), raw...)
		fv.Invalid = allBytes(raw, 0xFF)
		return fv
	}

	size, ok := baseSizes[def.base]
	if !ok || size <= 0 || len(raw)%size != 0 {
		fv.Value = append([]byte(nil), raw...)
		fv.Invalid = true
		return fv
	}

	count := len(raw) / size
	if count == 1 {
		fv.Value, fv.Invalid = decodeScalar(raw, def.base, arch)
		return fv
	}

	values := make([]any, 0, count)
	invalid := 0
	for i := 0; i < count; i++ {
		v, bad := decodeScalar(raw[i*size:(i+1)*size], def.base, arch)
		values = append(values, v)
		if bad {
			invalid++
		}
	}
	fv.Value = values
	fv.Invalid = invalid == count
	return fv
}

func decodeScalar(raw []byte, bt baseType, arch binary.ByteOrder) (any, bool) {
	switch bt {
	case baseEnum:
		v := raw[0]
		return v, v == 0xFF
	case baseSint8:
		v := int8(raw[0])
		return v, v == int8(0x7F)
	case baseUint8:
		v := raw[0]
		return v, v == 0xFF
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return v, v == int16(0x7FFF)
	case baseUint16:
		v := arch.Uint16(raw)
		return v, v == 0xFFFF
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return v, v == int32(0x7FFFFFFF)
	case baseUint32:
		v := arch.Uint32(raw)
		return v, v == 0xFFFFFFFF
	case baseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits == 0xFFFFFFFF
	case baseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits == 0xFFFFFFFFFFFFFFFF
	case baseUint8z:
		v := raw[0]
		return v, v == 0x00
	case baseUint16z:
		v := arch.Uint16(raw)
		return v, v == 0x0000
	case baseUint32z:
		v := arch.Uint32(raw)
		return v, v == 0x00000000
	case baseSint64:
		v := int64(arch.Uint64(raw))
		return v, v == int64(0x7FFFFFFFFFFFFFFF)
	case baseUint64:
		v := arch.Uint64(raw)
		return v, v == 0xFFFFFFFFFFFFFFFF
	case baseUint64z:
		v := arch.Uint64(raw)
		return v, v == 0x0000000000000000
	default:
		return append([]byte(nil), raw...), false
	}
}

func canonicalBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}

func nullTerminated(raw []byte) string {
	for i := range raw {
		if raw[i] == 0x00 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func allBytes(raw []byte, value byte) bool {
	if len(raw) == 0 {
		return false
	}
	for _, b := range raw {
		if b != value {
			return false
		}
	}
	return true
}
