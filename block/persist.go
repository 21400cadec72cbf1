package block

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chazu/logicproc/vm"
)

// ---------------------------------------------------------------------------
// Persisted layout (big endian)
//
//   u32 source length, source bytes
//   u16 link count, i32 addresses
//   u32 variable count, then per variable:
//       u32 name length, name bytes, u8 tag,
//       tag 0: f64 value
//       tag 1: u32 payload length, object codec payload
//   u32 memory length, f64 cells
// ---------------------------------------------------------------------------

// envelopeOverhead bounds the object codec's framing around a text value.
const envelopeOverhead = 64

// Value tags.
const (
	tagNum uint8 = 0
	tagObj uint8 = 1
)

// Persistence errors.
var (
	ErrCorruptData   = errors.New("corrupt entity data")
	ErrUnexpectedEOF = errors.New("unexpected end of entity data")
)

// MarshalBinary encodes the source, links, non-constant variables and
// memory bank.
func (e *Entity) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes the entity state to w.
func (e *Entity) Write(w io.Writer) error {
	var out []byte

	out = appendString(out, e.code)

	out = binary.BigEndian.AppendUint16(out, uint16(len(e.links)))
	for _, pos := range e.links {
		out = binary.BigEndian.AppendUint32(out, uint32(pos))
	}

	vars := e.executor.Vars().All()
	count := 0
	for _, v := range vars {
		if !v.Constant {
			count++
		}
	}
	out = binary.BigEndian.AppendUint32(out, uint32(count))
	for _, v := range vars {
		if v.Constant {
			continue
		}
		out = appendString(out, v.Name)
		if v.Value.IsNum() {
			out = append(out, tagNum)
			out = binary.BigEndian.AppendUint64(out, math.Float64bits(v.Value.Float()))
			continue
		}
		payload, err := e.codec.EncodeObject(v.Value.Object())
		if err != nil {
			return fmt.Errorf("encode variable %s: %w", v.Name, err)
		}
		out = append(out, tagObj)
		out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
		out = append(out, payload...)
	}

	mem := e.executor.Memory()
	out = binary.BigEndian.AppendUint32(out, uint32(len(mem)))
	for _, cell := range mem {
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(cell))
	}

	_, err := w.Write(out)
	return err
}

func appendString(out []byte, s string) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(s)))
	return append(out, s...)
}

// UnmarshalBinary restores state written by MarshalBinary.
func (e *Entity) UnmarshalBinary(data []byte) error {
	return e.decode(data)
}

// Read restores state written by Write. On error the entity is left
// unchanged.
func (e *Entity) Read(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read entity data: %w", err)
	}
	return e.decode(data)
}

func (e *Entity) decode(data []byte) error {
	rd := &reader{data: data}

	code, err := rd.readString(e.limits.MaxSourceBytes)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	nlinks, err := rd.readUint16()
	if err != nil {
		return fmt.Errorf("read link count: %w", err)
	}
	if int(nlinks) > e.limits.MaxLinks {
		return fmt.Errorf("%w: %d links, limit is %d", ErrCorruptData, nlinks, e.limits.MaxLinks)
	}
	links := make([]int32, 0, nlinks)
	for i := 0; i < int(nlinks); i++ {
		pos, err := rd.readUint32()
		if err != nil {
			return fmt.Errorf("read link %d: %w", i, err)
		}
		if !containsLink(links, int32(pos)) {
			links = append(links, int32(pos))
		}
	}

	nvars, err := rd.readUint32()
	if err != nil {
		return fmt.Errorf("read variable count: %w", err)
	}
	if int64(nvars) > int64(e.limits.MaxVariables) {
		return fmt.Errorf("%w: %d variables, limit is %d", ErrCorruptData, nvars, e.limits.MaxVariables)
	}
	bindings := make([]vm.Binding, 0, nvars)
	for i := 0; i < int(nvars); i++ {
		b, err := e.readBinding(rd)
		if err != nil {
			return fmt.Errorf("read variable %d: %w", i, err)
		}
		bindings = append(bindings, b)
	}

	ncells, err := rd.readUint32()
	if err != nil {
		return fmt.Errorf("read memory length: %w", err)
	}
	if int64(ncells) > int64(e.limits.MaxMemory) {
		return fmt.Errorf("%w: %d memory cells, limit is %d", ErrCorruptData, ncells, e.limits.MaxMemory)
	}
	cells := make([]float64, ncells)
	for i := range cells {
		bits, err := rd.readUint64()
		if err != nil {
			return fmt.Errorf("read memory cell %d: %w", i, err)
		}
		cells[i] = math.Float64frombits(bits)
	}

	if rd.offset != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptData, len(data)-rd.offset)
	}

	e.code = code
	e.links = links
	e.recompile(bindings)
	e.executor.RestoreMemory(cells)
	e.loaded = false
	return nil
}

func (e *Entity) readBinding(rd *reader) (vm.Binding, error) {
	name, err := rd.readString(e.limits.MaxSourceBytes)
	if err != nil {
		return vm.Binding{}, err
	}
	tag, err := rd.readUint8()
	if err != nil {
		return vm.Binding{}, err
	}
	switch tag {
	case tagNum:
		bits, err := rd.readUint64()
		if err != nil {
			return vm.Binding{}, err
		}
		return vm.Binding{Name: name, Value: vm.Num(math.Float64frombits(bits))}, nil
	case tagObj:
		payload, err := rd.readBytes(e.limits.MaxSourceBytes + envelopeOverhead)
		if err != nil {
			return vm.Binding{}, err
		}
		obj, err := e.codec.DecodeObject(payload)
		if err != nil {
			return vm.Binding{}, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
		return vm.Binding{Name: name, Value: vm.Obj(obj)}, nil
	}
	return vm.Binding{}, fmt.Errorf("%w: unknown value tag %d", ErrCorruptData, tag)
}

func containsLink(links []int32, pos int32) bool {
	for _, l := range links {
		if l == pos {
			return true
		}
	}
	return false
}

// reader walks a persisted entity with bounds checks.
type reader struct {
	data   []byte
	offset int
}

func (r *reader) readUint8() (uint8, error) {
	if r.offset+1 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

func (r *reader) readUint16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

func (r *reader) readUint32() (uint32, error) {
	if r.offset+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

func (r *reader) readUint64() (uint64, error) {
	if r.offset+8 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

// readBytes reads a u32 length-prefixed byte string of at most limit
// bytes.
func (r *reader) readBytes(limit int) ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(limit) {
		return nil, fmt.Errorf("%w: length %d exceeds %d", ErrCorruptData, n, limit)
	}
	if r.offset+int(n) > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.offset : r.offset+int(n)]
	r.offset += int(n)
	return b, nil
}

func (r *reader) readString(limit int) (string, error) {
	b, err := r.readBytes(limit)
	return string(b), err
}
