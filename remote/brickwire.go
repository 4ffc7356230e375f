package remote

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/tuvok/brick"
)

// ElementTypeF32 adds a float wire type to the original protocol's
// N_UINT8/N_UINT16/N_UINT32 triplet. elementTypeForKind carries each signed
// kind at the width of its unsigned counterpart and narrows KindF64 to
// ElementTypeF32, since the protocol predates this store's full Kind set;
// ElementType only discriminates byte width on the wire; decodeBrickPayload
// interprets bytes as that width's unsigned integers or, for
// ElementTypeF32, IEEE-754 floats.
const ElementTypeF32 ElementType = 3

// ElementTypeForKind maps a brick.Kind to the wire ElementType a BRICK or
// ROTATION request should carry for it. Exported so a Provider built over
// a Client (which only knows the dataset's Kind from OpenResponse, not
// any specific brick's Variant) can pick the right request field.
func ElementTypeForKind(k brick.Kind) (ElementType, error) {
	return elementTypeForKind(k)
}

func elementTypeForKind(k brick.Kind) (ElementType, error) {
	switch k {
	case brick.KindU8, brick.KindI8:
		return ElementTypeU8, nil
	case brick.KindU16, brick.KindI16:
		return ElementTypeU16, nil
	case brick.KindU32, brick.KindI32:
		return ElementTypeU32, nil
	case brick.KindF32, brick.KindF64:
		return ElementTypeF32, nil
	default:
		return 0, fmt.Errorf("remote: no wire element type for brick kind %v", k)
	}
}

// encodeBrickPayload packs v as big-endian elements, matching the
// protocol's stated big-endian convention for multibyte integers.
// brick.KindF64 narrows to float32, the protocol's only floating wire
// type; double precision voxel data is not representable on this wire.
func encodeBrickPayload(v brick.Variant) ([]byte, error) {
	switch v.Kind() {
	case brick.KindU8:
		data, _ := v.U8()
		return data, nil
	case brick.KindI8:
		data, _ := v.I8()
		out := make([]byte, len(data))
		for i, x := range data {
			out[i] = byte(x)
		}
		return out, nil
	case brick.KindU16:
		data, _ := v.U16()
		out := make([]byte, len(data)*2)
		for i, x := range data {
			binary.BigEndian.PutUint16(out[i*2:], x)
		}
		return out, nil
	case brick.KindI16:
		data, _ := v.I16()
		out := make([]byte, len(data)*2)
		for i, x := range data {
			binary.BigEndian.PutUint16(out[i*2:], uint16(x))
		}
		return out, nil
	case brick.KindU32:
		data, _ := v.U32()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.BigEndian.PutUint32(out[i*4:], x)
		}
		return out, nil
	case brick.KindI32:
		data, _ := v.I32()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.BigEndian.PutUint32(out[i*4:], uint32(x))
		}
		return out, nil
	case brick.KindF32:
		data, _ := v.F32()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.BigEndian.PutUint32(out[i*4:], math.Float32bits(x))
		}
		return out, nil
	case brick.KindF64:
		data, _ := v.F64()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.BigEndian.PutUint32(out[i*4:], math.Float32bits(float32(x)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("remote: cannot encode brick of kind %v", v.Kind())
	}
}

// decodeBrickPayload is the inverse of encodeBrickPayload given the wire
// ElementType a BRICK/ROTATION request or response carried. Integer wire
// types always decode to unsigned kinds, since the wire format carries no
// sign bit; ElementTypeF32 decodes to KindF32.
// DecodeBrickPayload is the exported form of decodeBrickPayload, for a
// Provider built over a Client to turn a BrickFrame's raw wire bytes back
// into a brick.Variant.
func DecodeBrickPayload(typ ElementType, data []byte) (brick.Variant, error) {
	return decodeBrickPayload(typ, data)
}

func decodeBrickPayload(typ ElementType, data []byte) (brick.Variant, error) {
	switch typ {
	case ElementTypeU8:
		out := make([]uint8, len(data))
		copy(out, data)
		return brick.NewU8(out), nil
	case ElementTypeU16:
		if len(data)%2 != 0 {
			return brick.Variant{}, fmt.Errorf("remote: u16 brick payload length %d not a multiple of 2", len(data))
		}
		out := make([]uint16, len(data)/2)
		for i := range out {
			out[i] = binary.BigEndian.Uint16(data[i*2:])
		}
		return brick.NewU16(out), nil
	case ElementTypeU32:
		if len(data)%4 != 0 {
			return brick.Variant{}, fmt.Errorf("remote: u32 brick payload length %d not a multiple of 4", len(data))
		}
		out := make([]uint32, len(data)/4)
		for i := range out {
			out[i] = binary.BigEndian.Uint32(data[i*4:])
		}
		return brick.NewU32(out), nil
	case ElementTypeF32:
		if len(data)%4 != 0 {
			return brick.Variant{}, fmt.Errorf("remote: f32 brick payload length %d not a multiple of 4", len(data))
		}
		out := make([]float32, len(data)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(data[i*4:]))
		}
		return brick.NewF32(out), nil
	default:
		return brick.Variant{}, fmt.Errorf("remote: unknown wire element type %d", typ)
	}
}
