package brick

import (
	"encoding/binary"
	"fmt"
	"math"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/s2"
)

// DiskStore is a badger-backed Store for datasets too large to keep
// entirely resident in host memory. It satisfies the same Store interface
// as MemStore so dataset.Dataset and the frame scheduler need not branch on
// which implementation backs a given brick. Payloads are s2-compressed
// before being written to badger's value log.
//
// DiskStore does not support AddBrickShared: a disk-backed store cannot
// co-own externally allocated memory, so external-producer integrations
// must use MemStore.
type DiskStore struct {
	db      *badger.DB
	kind    Kind
	hasKind bool
}

// OpenDiskStore opens (creating if necessary) a badger database at dir to
// back a Store.
func OpenDiskStore(dir string) (*DiskStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("brick: open disk store: %w", err)
	}
	ds := &DiskStore{db: db}
	ds.loadKind()
	return ds, nil
}

// Close releases the underlying badger database.
func (d *DiskStore) Close() error {
	return d.db.Close()
}

func metaKey(k Key) []byte {
	enc := k.Encode()
	return append([]byte("m:"), enc[:]...)
}

func dataKey(k Key) []byte {
	enc := k.Encode()
	return append([]byte("d:"), enc[:]...)
}

var kindKey = []byte("__kind__")

func (d *DiskStore) loadKind() {
	_ = d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kindKey)
		if err != nil {
			return nil // not set yet
		}
		return item.Value(func(val []byte) error {
			if len(val) == 1 {
				d.kind = Kind(val[0])
				d.hasKind = true
			}
			return nil
		})
	})
}

func encodeMetadata(md Metadata) []byte {
	buf := make([]byte, 0, 3*4*2+3*4*2+4*4)
	put32 := func(v float32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
		buf = append(buf, b[:]...)
	}
	putU32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	for _, v := range md.Center {
		put32(v)
	}
	for _, v := range md.Extents {
		put32(v)
	}
	for _, v := range md.NVoxels {
		putU32(v)
	}
	for _, v := range md.GridPos {
		putU32(v)
	}
	for _, v := range md.TexMin {
		put32(v)
	}
	for _, v := range md.TexMax {
		put32(v)
	}
	return buf
}

func decodeMetadata(b []byte) Metadata {
	var md Metadata
	off := 0
	get32 := func() float32 {
		v := math.Float32frombits(binary.BigEndian.Uint32(b[off:]))
		off += 4
		return v
	}
	getU32 := func() uint32 {
		v := binary.BigEndian.Uint32(b[off:])
		off += 4
		return v
	}
	for i := range md.Center {
		md.Center[i] = get32()
	}
	for i := range md.Extents {
		md.Extents[i] = get32()
	}
	for i := range md.NVoxels {
		md.NVoxels[i] = getU32()
	}
	for i := range md.GridPos {
		md.GridPos[i] = getU32()
	}
	for i := range md.TexMin {
		md.TexMin[i] = get32()
	}
	for i := range md.TexMax {
		md.TexMax[i] = get32()
	}
	return md
}

// encodeVariant serializes a Variant to a kind byte followed by raw
// big-endian element bytes, then s2-compresses the whole thing.
func encodeVariant(v Variant) []byte {
	raw := make([]byte, 1, 1+int(v.ByteSize()))
	raw[0] = byte(v.Kind())

	appendBytes := func(n int, width int, write func(i int, b []byte)) {
		start := len(raw)
		raw = append(raw, make([]byte, n*width)...)
		for i := 0; i < n; i++ {
			write(i, raw[start+i*width:start+(i+1)*width])
		}
	}
	switch v.Kind() {
	case KindU8:
		data, _ := v.U8()
		raw = append(raw, data...)
	case KindI8:
		data, _ := v.I8()
		appendBytes(len(data), 1, func(i int, b []byte) { b[0] = byte(data[i]) })
	case KindU16:
		data, _ := v.U16()
		appendBytes(len(data), 2, func(i int, b []byte) { binary.BigEndian.PutUint16(b, data[i]) })
	case KindI16:
		data, _ := v.I16()
		appendBytes(len(data), 2, func(i int, b []byte) { binary.BigEndian.PutUint16(b, uint16(data[i])) })
	case KindU32:
		data, _ := v.U32()
		appendBytes(len(data), 4, func(i int, b []byte) { binary.BigEndian.PutUint32(b, data[i]) })
	case KindI32:
		data, _ := v.I32()
		appendBytes(len(data), 4, func(i int, b []byte) { binary.BigEndian.PutUint32(b, uint32(data[i])) })
	case KindF32:
		data, _ := v.F32()
		appendBytes(len(data), 4, func(i int, b []byte) { binary.BigEndian.PutUint32(b, math.Float32bits(data[i])) })
	case KindF64:
		data, _ := v.F64()
		appendBytes(len(data), 8, func(i int, b []byte) { binary.BigEndian.PutUint64(b, math.Float64bits(data[i])) })
	}
	return s2.Encode(nil, raw)
}

func decodeVariant(compressed []byte) (Variant, error) {
	raw, err := s2.Decode(nil, compressed)
	if err != nil {
		return Variant{}, fmt.Errorf("brick: decode payload: %w", err)
	}
	if len(raw) < 1 {
		return Variant{}, fmt.Errorf("brick: truncated payload")
	}
	kind := Kind(raw[0])
	body := raw[1:]
	switch kind {
	case KindU8:
		return NewU8(append([]byte(nil), body...)), nil
	case KindI8:
		out := make([]int8, len(body))
		for i, b := range body {
			out[i] = int8(b)
		}
		return NewI8(out), nil
	case KindU16:
		out := make([]uint16, len(body)/2)
		for i := range out {
			out[i] = binary.BigEndian.Uint16(body[i*2:])
		}
		return NewU16(out), nil
	case KindI16:
		out := make([]int16, len(body)/2)
		for i := range out {
			out[i] = int16(binary.BigEndian.Uint16(body[i*2:]))
		}
		return NewI16(out), nil
	case KindU32:
		out := make([]uint32, len(body)/4)
		for i := range out {
			out[i] = binary.BigEndian.Uint32(body[i*4:])
		}
		return NewU32(out), nil
	case KindI32:
		out := make([]int32, len(body)/4)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(body[i*4:]))
		}
		return NewI32(out), nil
	case KindF32:
		out := make([]float32, len(body)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
		}
		return NewF32(out), nil
	case KindF64:
		out := make([]float64, len(body)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(body[i*8:]))
		}
		return NewF64(out), nil
	default:
		return Variant{}, fmt.Errorf("brick: unknown kind byte %d", kind)
	}
}

func (d *DiskStore) AddBrick(key Key, md Metadata, payload Variant) error {
	if d.hasKind && payload.Kind() != d.kind {
		return ErrKindMismatch
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(key), encodeMetadata(md)); err != nil {
			return err
		}
		if err := txn.Set(dataKey(key), encodeVariant(payload)); err != nil {
			return err
		}
		if !d.hasKind {
			if err := txn.Set(kindKey, []byte{byte(payload.Kind())}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !d.hasKind {
		d.kind = payload.Kind()
		d.hasKind = true
	}
	return nil
}

func (d *DiskStore) UpdateData(key Key, payload Variant) error {
	existing, err := d.Brick(key)
	if err != nil {
		return err
	}
	if payload.Len() != existing.Len() {
		return ErrShapeChanged
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dataKey(key), encodeVariant(payload))
	})
}

func (d *DiskStore) Metadata(key Key) (Metadata, error) {
	var md Metadata
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			md = decodeMetadata(val)
			return nil
		})
	})
	return md, err
}

func (d *DiskStore) Brick(key Key) (Variant, error) {
	var v Variant
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeVariant(val)
			if err != nil {
				return err
			}
			v = decoded
			return nil
		})
	})
	return v, err
}

func (d *DiskStore) RemoveBrick(key Key) {
	_ = d.db.Update(func(txn *badger.Txn) error {
		_ = txn.Delete(metaKey(key))
		_ = txn.Delete(dataKey(key))
		return nil
	})
}

func (d *DiskStore) Clear() {
	_ = d.db.DropAll()
	d.hasKind = false
}

func (d *DiskStore) Count() int {
	n := 0
	_ = d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("m:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n
}

func (d *DiskStore) Kind() (Kind, bool) {
	return d.kind, d.hasKind
}

func (d *DiskStore) Keys() []Key {
	var keys []Key
	_ = d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("m:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := it.Item().KeyCopy(nil)
			var enc [16]byte
			copy(enc[:], raw[len(prefix):])
			keys = append(keys, DecodeKey(enc))
		}
		return nil
	})
	return keys
}

var _ Store = (*DiskStore)(nil)
var _ Store = (*MemStore)(nil)
