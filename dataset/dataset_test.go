package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/brick"
)

func TestDatasetOpenTwoLODNineBricks(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := New(Config{
		Store: store,
		LODs: []LOD{
			{Layout: [3]uint32{2, 2, 2}},
			{Layout: [3]uint32{1, 1, 1}},
		},
		DomainSize:     [3]uint32{16, 16, 16},
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.LODCount())
	layout0, err := ds.BrickLayout(0)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{2, 2, 2}, layout0)
	layout1, err := ds.BrickLayout(1)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{1, 1, 1}, layout1)

	n := 0
	for _, lod := range []LOD{{Layout: layout0}, {Layout: layout1}} {
		n += int(lod.BrickCount())
	}
	assert.Equal(t, 9, n)

	_, err = ds.BrickLayout(2)
	assert.ErrorIs(t, err, ErrLODOutOfRange)
}

func TestDatasetRejectsMultiComponent(t *testing.T) {
	_, err := New(Config{
		Store:          brick.NewMemStore(),
		ComponentCount: 3,
	})
	assert.ErrorIs(t, err, ErrUnsupportedComponents)
}

func TestDatasetGetBrickRoundTrip(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := New(Config{Store: store, ComponentCount: 1})
	require.NoError(t, err)

	key := brick.NewKey(0, 0, 0)
	require.NoError(t, ds.AddBrick(key, brick.Metadata{NVoxels: [3]uint32{2, 2, 2}}, brick.NewU8([]uint8{1, 2, 3, 4, 5, 6, 7, 8})))

	got, err := GetBrick[uint8](ds, key)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8}, got)
}

func TestDatasetRangeComputedAndOverridable(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := New(Config{Store: store, ComponentCount: 1})
	require.NoError(t, err)

	require.NoError(t, ds.AddBrick(brick.NewKey(0, 0, 0), brick.Metadata{NVoxels: [3]uint32{2, 1, 1}}, brick.NewU8([]uint8{10, 250})))
	lo, hi := ds.Range()
	assert.Equal(t, 10.0, lo)
	assert.Equal(t, 250.0, hi)

	ds.SetRange(0, 255)
	lo, hi = ds.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 255.0, hi)
}

func TestDatasetHistogramInvalidatedByWrite(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := New(Config{Store: store, ComponentCount: 1})
	require.NoError(t, err)
	ds.SetRange(0, 255)

	require.NoError(t, ds.AddBrick(brick.NewKey(0, 0, 0), brick.Metadata{NVoxels: [3]uint32{4}}, brick.NewU8([]uint8{0, 0, 255, 255})))
	h1 := ds.Histogram()
	assert.Equal(t, uint64(2), h1[0])
	assert.Equal(t, uint64(2), h1[histogramBins-1])

	require.NoError(t, ds.AddBrick(brick.NewKey(0, 0, 1), brick.Metadata{NVoxels: [3]uint32{1}}, brick.NewU8([]uint8{0})))
	h2 := ds.Histogram()
	assert.Equal(t, uint64(3), h2[0])
}

func TestDatasetSetHistogramSurvivesUntilNextWrite(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := New(Config{Store: store, ComponentCount: 1})
	require.NoError(t, err)

	explicit := make([]uint64, histogramBins)
	explicit[5] = 42
	ds.SetHistogram(explicit)
	assert.Equal(t, explicit, ds.Histogram())

	require.NoError(t, ds.AddBrick(brick.NewKey(0, 0, 0), brick.Metadata{NVoxels: [3]uint32{1}}, brick.NewU8([]uint8{1})))
	assert.NotEqual(t, explicit, ds.Histogram())
}

func TestEffectiveBrickSizePerFace(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := New(Config{
		Store:          store,
		LODs:           []LOD{{Layout: [3]uint32{2, 2, 2}}},
		ComponentCount: 1,
	})
	require.NoError(t, err)

	corner := brick.NewKey(0, 0, 0)
	require.NoError(t, ds.AddBrick(corner, brick.Metadata{NVoxels: [3]uint32{10, 10, 10}, GridPos: [3]uint32{0, 0, 0}}, brick.NewU8(make([]uint8, 1000))))

	eff, err := ds.EffectiveBrickSize(corner)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{9, 9, 9}, eff)

	lo, hi, err := ds.OverlapSize(corner)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{0, 0, 0}, lo)
	assert.Equal(t, [3]uint32{1, 1, 1}, hi)

	interior := brick.NewKey(0, 0, 1)
	require.NoError(t, ds.AddBrick(interior, brick.Metadata{NVoxels: [3]uint32{10, 10, 10}, GridPos: [3]uint32{1, 0, 0}}, brick.NewU8(make([]uint8, 1000))))
	eff2, err := ds.EffectiveBrickSize(interior)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{9, 9, 9}, eff2)

	lo2, hi2, err := ds.OverlapSize(interior)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{1, 0, 0}, lo2)
	assert.Equal(t, [3]uint32{0, 1, 1}, hi2)
}
