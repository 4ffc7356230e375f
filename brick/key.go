// Package brick implements the typed columnar brick store (C1): bricks keyed
// by (timestep, lod, linear index), held as tagged-variant arrays that may be
// shared with an external producer.
package brick

import "fmt"

// Key identifies a single brick within a dataset. The linear index is a
// row-major index into the per-LOD brick grid (nx, ny, nz). Key is
// comparable and usable directly as a map key: equality is structural.
type Key struct {
	Timestep uint32
	LOD      uint32
	Linear   uint64
}

// NewKey constructs a Key from its three wire/storage fields.
func NewKey(timestep, lod uint32, linear uint64) Key {
	return Key{Timestep: timestep, LOD: lod, Linear: linear}
}

// String renders the key for log lines and diagnostics.
func (k Key) String() string {
	return fmt.Sprintf("brick(t=%d,lod=%d,idx=%d)", k.Timestep, k.LOD, k.Linear)
}

// Less gives Key a total order (timestep, then lod, then linear index),
// for stable iteration. It matches the byte order of Encode.
func (k Key) Less(other Key) bool {
	if k.Timestep != other.Timestep {
		return k.Timestep < other.Timestep
	}
	if k.LOD != other.LOD {
		return k.LOD < other.LOD
	}
	return k.Linear < other.Linear
}

// Encode produces the fixed 16-byte big-endian encoding used by DiskStore
// keys. The remote protocol does not use it: its brick frames carry the
// LOD and linear index as separate u32 fields.
func (k Key) Encode() [16]byte {
	var b [16]byte
	putU32(b[0:4], k.Timestep)
	putU32(b[4:8], k.LOD)
	putU64(b[8:16], k.Linear)
	return b
}

// DecodeKey is the inverse of Key.Encode.
func DecodeKey(b [16]byte) Key {
	return Key{
		Timestep: getU32(b[0:4]),
		LOD:      getU32(b[4:8]),
		Linear:   getU64(b[8:16]),
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> uint(56-8*i))
	}
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
