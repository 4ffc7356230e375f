package brick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMetadata() Metadata {
	return Metadata{
		Center:  [3]float32{0.5, 0.5, 0.5},
		Extents: [3]float32{0.5, 0.5, 0.5},
		NVoxels: [3]uint32{4, 4, 4},
		GridPos: [3]uint32{0, 0, 0},
		TexMin:  [3]float32{0, 0, 0},
		TexMax:  [3]float32{1, 1, 1},
	}
}

// storeUnderTest runs the same property checks against every Store
// implementation so MemStore and DiskStore stay behaviorally identical.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()
	key := NewKey(0, 0, 1)
	md := sampleMetadata()
	payload := NewU16([]uint16{1, 2, 3, 4, 5, 6, 7, 8})

	require.NoError(t, s.AddBrick(key, md, payload))
	assert.Equal(t, 1, s.Count())

	gotMD, err := s.Metadata(key)
	require.NoError(t, err)
	assert.Equal(t, md, gotMD)

	got, err := GetBrick[uint16](s, key)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 7, 8}, got)

	_, err = GetBrick[uint8](s, key)
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = s.Brick(NewKey(9, 9, 9))
	assert.ErrorIs(t, err, ErrNotFound)

	kind, ok := s.Kind()
	assert.True(t, ok)
	assert.Equal(t, KindU16, kind)

	require.NoError(t, s.UpdateData(key, NewU16([]uint16{8, 7, 6, 5, 4, 3, 2, 1})))
	got, err = GetBrick[uint16](s, key)
	require.NoError(t, err)
	assert.Equal(t, []uint16{8, 7, 6, 5, 4, 3, 2, 1}, got)

	err = s.UpdateData(key, NewU16([]uint16{1, 2, 3}))
	assert.ErrorIs(t, err, ErrShapeChanged)

	s.RemoveBrick(key)
	assert.Equal(t, 0, s.Count())
	_, err = s.Brick(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreRoundTrip(t *testing.T) {
	storeUnderTest(t, NewMemStore())
}

func TestMemStoreKindMismatch(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.AddBrick(NewKey(0, 0, 0), sampleMetadata(), NewU8([]uint8{1})))
	err := s.AddBrick(NewKey(0, 0, 1), sampleMetadata(), NewF32([]float32{1}))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestMemStoreAddBrickSharedReleasesOnRemove(t *testing.T) {
	s := NewMemStore()
	key := NewKey(0, 0, 0)
	released := 0
	require.NoError(t, s.AddBrickShared(key, sampleMetadata(), NewU8([]uint8{1, 2}), func() {
		released++
	}))
	s.RemoveBrick(key)
	assert.Equal(t, 1, released)
}

func TestMemStoreClearReleasesAllShared(t *testing.T) {
	s := NewMemStore()
	released := 0
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, s.AddBrickShared(NewKey(0, 0, i), sampleMetadata(), NewU8([]uint8{1}), func() {
			released++
		}))
	}
	s.Clear()
	assert.Equal(t, 3, released)
	assert.Equal(t, 0, s.Count())
}

func TestDiskStoreRoundTrip(t *testing.T) {
	ds, err := OpenDiskStore(t.TempDir())
	require.NoError(t, err)
	defer ds.Close()

	storeUnderTest(t, ds)
}

func TestDiskStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	key := NewKey(2, 1, 7)
	md := sampleMetadata()
	payload := NewF32([]float32{1.5, 2.5, 3.5})

	ds, err := OpenDiskStore(dir)
	require.NoError(t, err)
	require.NoError(t, ds.AddBrick(key, md, payload))
	require.NoError(t, ds.Close())

	ds2, err := OpenDiskStore(dir)
	require.NoError(t, err)
	defer ds2.Close()

	got, err := GetBrick[float32](ds2, key)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 2.5, 3.5}, got)

	kind, ok := ds2.Kind()
	assert.True(t, ok)
	assert.Equal(t, KindF32, kind)
}

func TestDiskStoreKeys(t *testing.T) {
	ds, err := OpenDiskStore(t.TempDir())
	require.NoError(t, err)
	defer ds.Close()

	k1, k2 := NewKey(0, 0, 0), NewKey(0, 1, 0)
	require.NoError(t, ds.AddBrick(k1, sampleMetadata(), NewU8([]uint8{1})))
	require.NoError(t, ds.AddBrick(k2, sampleMetadata(), NewU8([]uint8{2})))

	keys := ds.Keys()
	assert.ElementsMatch(t, []Key{k1, k2}, keys)
}
