package brick

// Kind identifies the element type of a Variant. A dataset is uniform: all
// bricks in a Store share one Kind, stored once on the Store rather than
// per-brick, so accessors never need per-element virtual dispatch.
type Kind uint8

const (
	KindU8 Kind = iota
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindF32
	KindF64
)

// BitWidth returns the number of bits occupied by one element of this kind.
func (k Kind) BitWidth() uint64 {
	switch k {
	case KindU8, KindI8:
		return 8
	case KindU16, KindI16:
		return 16
	case KindU32, KindI32, KindF32:
		return 32
	case KindF64:
		return 64
	default:
		return 0
	}
}

// Signed reports whether the kind is a signed integer or floating type.
func (k Kind) Signed() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindF32, KindF64:
		return true
	default:
		return false
	}
}

// Float reports whether the kind is a floating-point type.
func (k Kind) Float() bool {
	return k == KindF32 || k == KindF64
}

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindI8:
		return "i8"
	case KindU16:
		return "u16"
	case KindI16:
		return "i16"
	case KindU32:
		return "u32"
	case KindI32:
		return "i32"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Variant holds one brick's voxel payload as a tagged union over the eight
// supported numeric element types. Exactly one of the typed slices is
// non-nil, selected by Kind. Variant values are treated as immutable while
// resident in a Store; UpdateData replaces the slice wholesale rather than
// mutating it in place, so a reader holding a prior Variant snapshot never
// observes a half-written payload.
type Variant struct {
	kind Kind
	u8   []uint8
	i8   []int8
	u16  []uint16
	i16  []int16
	u32  []uint32
	i32  []int32
	f32  []float32
	f64  []float64
}

// Kind returns the variant's element type.
func (v Variant) Kind() Kind { return v.kind }

// Len returns the number of elements stored.
func (v Variant) Len() int {
	switch v.kind {
	case KindU8:
		return len(v.u8)
	case KindI8:
		return len(v.i8)
	case KindU16:
		return len(v.u16)
	case KindI16:
		return len(v.i16)
	case KindU32:
		return len(v.u32)
	case KindI32:
		return len(v.i32)
	case KindF32:
		return len(v.f32)
	case KindF64:
		return len(v.f64)
	default:
		return 0
	}
}

// ByteSize returns the total size in bytes of the underlying payload.
func (v Variant) ByteSize() uint64 {
	return uint64(v.Len()) * (v.kind.BitWidth() / 8)
}

func NewU8(data []uint8) Variant   { return Variant{kind: KindU8, u8: data} }
func NewI8(data []int8) Variant    { return Variant{kind: KindI8, i8: data} }
func NewU16(data []uint16) Variant { return Variant{kind: KindU16, u16: data} }
func NewI16(data []int16) Variant  { return Variant{kind: KindI16, i16: data} }
func NewU32(data []uint32) Variant { return Variant{kind: KindU32, u32: data} }
func NewI32(data []int32) Variant  { return Variant{kind: KindI32, i32: data} }
func NewF32(data []float32) Variant { return Variant{kind: KindF32, f32: data} }
func NewF64(data []float64) Variant { return Variant{kind: KindF64, f64: data} }

// U8 returns the underlying slice and whether kind matched.
func (v Variant) U8() ([]uint8, bool) { return v.u8, v.kind == KindU8 }

// I8 returns the underlying slice and whether kind matched.
func (v Variant) I8() ([]int8, bool) { return v.i8, v.kind == KindI8 }

// U16 returns the underlying slice and whether kind matched.
func (v Variant) U16() ([]uint16, bool) { return v.u16, v.kind == KindU16 }

// I16 returns the underlying slice and whether kind matched.
func (v Variant) I16() ([]int16, bool) { return v.i16, v.kind == KindI16 }

// U32 returns the underlying slice and whether kind matched.
func (v Variant) U32() ([]uint32, bool) { return v.u32, v.kind == KindU32 }

// I32 returns the underlying slice and whether kind matched.
func (v Variant) I32() ([]int32, bool) { return v.i32, v.kind == KindI32 }

// F32 returns the underlying slice and whether kind matched.
func (v Variant) F32() ([]float32, bool) { return v.f32, v.kind == KindF32 }

// F64 returns the underlying slice and whether kind matched.
func (v Variant) F64() ([]float64, bool) { return v.f64, v.kind == KindF64 }

// ValueRange scans the payload and returns (min, max) as float64, used by
// Dataset to compute the global scalar range when one isn't supplied.
func (v Variant) ValueRange() (lo, hi float64) {
	if v.Len() == 0 {
		return 0, 0
	}
	switch v.kind {
	case KindU8:
		return scanRange(v.u8, func(x uint8) float64 { return float64(x) })
	case KindI8:
		return scanRange(v.i8, func(x int8) float64 { return float64(x) })
	case KindU16:
		return scanRange(v.u16, func(x uint16) float64 { return float64(x) })
	case KindI16:
		return scanRange(v.i16, func(x int16) float64 { return float64(x) })
	case KindU32:
		return scanRange(v.u32, func(x uint32) float64 { return float64(x) })
	case KindI32:
		return scanRange(v.i32, func(x int32) float64 { return float64(x) })
	case KindF32:
		return scanRange(v.f32, func(x float32) float64 { return float64(x) })
	case KindF64:
		return scanRange(v.f64, func(x float64) float64 { return x })
	default:
		return 0, 0
	}
}

func scanRange[T any](data []T, toF64 func(T) float64) (lo, hi float64) {
	lo, hi = toF64(data[0]), toF64(data[0])
	for _, x := range data[1:] {
		f := toF64(x)
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	return lo, hi
}
