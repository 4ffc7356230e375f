package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
	"github.com/gogpu/tuvok/facade"
)

func writeTestDataset(t *testing.T, dir string) {
	t.Helper()
	cfg := dataset.Config{
		LODs:           []dataset.LOD{{Layout: [3]uint32{1, 1, 1}}},
		DomainSize:     [3]uint32{2, 2, 2},
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	}
	require.NoError(t, facade.WriteManifest(dir, cfg))
	store, err := brick.OpenDiskStore(dir)
	require.NoError(t, err)
	md := brick.Metadata{NVoxels: [3]uint32{2, 2, 2}, TexMin: [3]float32{0, 0, 0}, TexMax: [3]float32{1, 1, 1}}
	require.NoError(t, store.AddBrick(brick.NewKey(0, 0, 0), md, brick.NewU8(make([]uint8, 8))))
	require.NoError(t, store.Close())
}

func TestDirOpenerListFiles(t *testing.T) {
	root := t.TempDir()
	writeTestDataset(t, filepath.Join(root, "volA"))
	writeTestDataset(t, filepath.Join(root, "volB"))

	opener := newDirOpener(root)
	names, err := opener.ListFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"volA", "volB"}, names)
}

func TestDirOpenerOpenCachesDataset(t *testing.T) {
	root := t.TempDir()
	writeTestDataset(t, filepath.Join(root, "volA"))

	opener := newDirOpener(root)
	defer opener.closeAll()

	ds1, err := opener.Open("volA")
	require.NoError(t, err)
	ds2, err := opener.Open("volA")
	require.NoError(t, err)
	assert.Same(t, ds1, ds2)
}

func TestDirOpenerOpenUnknownPath(t *testing.T) {
	root := t.TempDir()
	opener := newDirOpener(root)
	_, err := opener.Open("missing")
	assert.Error(t, err)
}
