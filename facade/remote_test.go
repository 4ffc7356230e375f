package facade

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
	"github.com/gogpu/tuvok/remote"
)

type fakeOpener struct{ ds *dataset.Dataset }

func (f *fakeOpener) Open(path string) (*dataset.Dataset, error) {
	if path != "vol.dat" {
		return nil, errors.New("unknown dataset")
	}
	return f.ds, nil
}

func (f *fakeOpener) ListFiles() ([]string, error) { return []string{"vol.dat"}, nil }

func newTestRemoteDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	store := brick.NewMemStore()
	key := brick.NewKey(0, 0, 0)
	md := brick.Metadata{
		Center:  [3]float32{0, 0, 0},
		Extents: [3]float32{1, 1, 1},
		NVoxels: [3]uint32{2, 2, 2},
		TexMin:  [3]float32{0, 0, 0},
		TexMax:  [3]float32{1, 1, 1},
	}
	require.NoError(t, store.AddBrick(key, md, brick.NewU8([]uint8{10, 20, 30, 40, 50, 60, 70, 80})))
	ds, err := dataset.New(dataset.Config{
		Store:          store,
		LODs:           []dataset.LOD{{Layout: [3]uint32{1, 1, 1}}},
		DomainSize:     [3]uint32{2, 2, 2},
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	})
	require.NoError(t, err)
	ds.SetRange(0, 255)
	return ds
}

// TestRemoteProviderMatchesInProcess opens the same dataset through both
// Provider implementations and checks they answer identically, the
// property a scheduler relying only on the Provider interface depends on.
func TestRemoteProviderMatchesInProcess(t *testing.T) {
	ds := newTestRemoteDataset(t)
	local := NewInProcessProvider(ds)

	srv := remote.NewServer(&fakeOpener{ds: ds}, remote.LocalBroadcaster{}, remote.ProjectionDefaults{})
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	go func() { _ = srv.Serve(serverConn) }()

	client := remote.NewClient(clientConn, 2*time.Second)
	remoteProvider, err := NewRemoteProvider(client, "vol.dat")
	require.NoError(t, err)

	assert.Equal(t, local.LODCount(), remoteProvider.LODCount())
	assert.Equal(t, local.DomainSize(), remoteProvider.DomainSize())
	assert.Equal(t, local.Scale(), remoteProvider.Scale())
	lo1, hi1 := local.Range()
	lo2, hi2 := remoteProvider.Range()
	assert.Equal(t, lo1, lo2)
	assert.Equal(t, hi1, hi2)

	key := brick.NewKey(0, 0, 0)
	localMD, err := local.BrickMetadata(key)
	require.NoError(t, err)
	remoteMD, err := remoteProvider.BrickMetadata(key)
	require.NoError(t, err)
	assert.Equal(t, localMD.Center, remoteMD.Center)
	assert.Equal(t, localMD.Extents, remoteMD.Extents)
	assert.Equal(t, localMD.NVoxels, remoteMD.NVoxels)

	localPayload, err := local.BrickPayload(key)
	require.NoError(t, err)
	remotePayload, err := remoteProvider.BrickPayload(key)
	require.NoError(t, err)
	localU8, _ := localPayload.U8()
	remoteU8, _ := remotePayload.U8()
	assert.Equal(t, localU8, remoteU8)
}
