package facade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
)

func TestFileBackedProviderRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := dataset.Config{
		LODs:           []dataset.LOD{{Layout: [3]uint32{1, 1, 1}}},
		DomainSize:     [3]uint32{4, 4, 4},
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	}
	require.NoError(t, WriteManifest(dir, cfg))

	store, err := brick.OpenDiskStore(dir)
	require.NoError(t, err)
	key := brick.NewKey(0, 0, 0)
	md := brick.Metadata{NVoxels: [3]uint32{4, 4, 4}, TexMin: [3]float32{0, 0, 0}, TexMax: [3]float32{1, 1, 1}}
	require.NoError(t, store.AddBrick(key, md, brick.NewU8(make([]uint8, 64))))
	require.NoError(t, store.Close())

	provider, err := OpenFileBacked(dir)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, 1, provider.LODCount())
	assert.Equal(t, [3]uint32{4, 4, 4}, provider.DomainSize())
	assert.Equal(t, [3]float32{1, 1, 1}, provider.Scale())

	gotMD, err := provider.BrickMetadata(key)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{4, 4, 4}, gotMD.NVoxels)
}
