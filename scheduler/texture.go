package scheduler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/gpucore"
)

// textureFormatForKind picks the gpucore.TextureFormat matching a brick's
// element kind, one texel per voxel, single channel.
func textureFormatForKind(k brick.Kind) gpucore.TextureFormat {
	switch k {
	case brick.KindU8, brick.KindI8:
		return gpucore.TextureFormatR8Unorm
	case brick.KindU16, brick.KindI16:
		return gpucore.TextureFormatR16Uint
	case brick.KindU32, brick.KindI32:
		return gpucore.TextureFormatR32Uint
	case brick.KindF32, brick.KindF64:
		return gpucore.TextureFormatR32Float
	default:
		return gpucore.TextureFormatR8Unorm
	}
}

// serializeVariant flattens a brick's typed payload into the little-endian
// byte layout its texture format expects for upload. f64 is narrowed to
// f32 since no 64-bit float texture format exists on any GPU backend in
// the retrieval pack.
func serializeVariant(v brick.Variant) ([]byte, error) {
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
			binary.LittleEndian.PutUint16(out[i*2:], x)
		}
		return out, nil
	case brick.KindI16:
		data, _ := v.I16()
		out := make([]byte, len(data)*2)
		for i, x := range data {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(x))
		}
		return out, nil
	case brick.KindU32:
		data, _ := v.U32()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.LittleEndian.PutUint32(out[i*4:], x)
		}
		return out, nil
	case brick.KindI32:
		data, _ := v.I32()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(x))
		}
		return out, nil
	case brick.KindF32:
		data, _ := v.F32()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
		}
		return out, nil
	case brick.KindF64:
		data, _ := v.F64()
		out := make([]byte, len(data)*4)
		for i, x := range data {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(x)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("scheduler: unknown brick element kind %v", v.Kind())
	}
}
