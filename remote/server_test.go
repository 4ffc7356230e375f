package remote

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
)

// fakeOpener serves one fixed in-memory dataset under a single name, for
// tests that only exercise the protocol handlers, not real file I/O (the
// on-disk dataset format is out of scope here).
type fakeOpener struct {
	ds *dataset.Dataset
}

func (f *fakeOpener) Open(path string) (*dataset.Dataset, error) {
	if path != "vol.dat" {
		return nil, errors.New("unknown dataset")
	}
	return f.ds, nil
}

func (f *fakeOpener) ListFiles() ([]string, error) {
	return []string{"vol.dat"}, nil
}

func singleBrickTestDataset(t *testing.T) *dataset.Dataset {
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
	require.NoError(t, store.AddBrick(key, md, brick.NewU8([]uint8{1, 2, 3, 4, 5, 6, 7, 8})))
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

func TestServerBrickBeforeOpen_Scenario6(t *testing.T) {
	srv := NewServer(&fakeOpener{ds: singleBrickTestDataset(t)}, LocalBroadcaster{}, ProjectionDefaults{})
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(serverConn) }()

	require.NoError(t, clientConn.SetDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, WriteRequest(clientConn, BrickRequest{Type: ElementTypeU8, LOD: 0, Index: 0}))

	// NoDataset is logged, never written to the wire; the connection stays
	// open for the next command per spec.md's scenario 6, so prove that by
	// sending SHUTDOWN next and seeing Serve return cleanly instead of
	// having already torn the connection down.
	require.NoError(t, WriteRequest(clientConn, ShutdownRequest{}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after SHUTDOWN")
	}
}

func TestServerOpenAndBrick(t *testing.T) {
	srv := NewServer(&fakeOpener{ds: singleBrickTestDataset(t)}, LocalBroadcaster{}, ProjectionDefaults{})
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go func() { _ = srv.Serve(serverConn) }()
	require.NoError(t, clientConn.SetDeadline(time.Now().Add(2*time.Second)))

	require.NoError(t, WriteRequest(clientConn, OpenRequest{Path: "vol.dat"}))
	open, err := ReadOpenResponse(clientConn)
	require.NoError(t, err)
	assert.Equal(t, 1, len(open.BrickLayout))
	assert.Equal(t, [3]uint32{1, 1, 1}, open.BrickLayout[0])
	require.Len(t, open.Bricks, 1)

	require.NoError(t, WriteRequest(clientConn, BrickRequest{Type: ElementTypeU8, LOD: 0, Index: 0}))
	frames, err := ReadBrickStream(clientConn)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, frames[0].Payload)

	require.NoError(t, WriteRequest(clientConn, ShutdownRequest{}))
}
