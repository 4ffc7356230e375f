package remote

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	cases := []request{
		OpenRequest{Path: "volumes/foo.uvf"},
		CloseRequest{Path: "volumes/foo.uvf"},
		ListFilesRequest{},
		BatchSizeRequest{Size: 64},
		RotationRequest{Matrix: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, Type: ElementTypeU16},
		BrickRequest{Type: ElementTypeU8, LOD: 2, Index: 17},
		ShutdownRequest{},
	}
	for _, req := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteRequest(&buf, req))
		got, err := ReadRequest(&buf)
		require.NoError(t, err)
		assert.Equal(t, req, got)
	}
}

func TestRequestRoundTripStringLengthBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, 255, 256, 65535} {
		path := strings.Repeat("a", n)
		var buf bytes.Buffer
		require.NoError(t, WriteRequest(&buf, OpenRequest{Path: path}))
		got, err := ReadRequest(&buf)
		require.NoError(t, err)
		assert.Equal(t, OpenRequest{Path: path}, got)
	}
}

func TestOpenResponseRoundTrip_Scenario1(t *testing.T) {
	// Two-LOD dataset, brick layouts (2,2,2) and (1,1,1), nine bricks total.
	resp := OpenResponse{
		BrickLayout: [][3]uint32{{2, 2, 2}, {1, 1, 1}},
		DomainSize:  [3]uint32{16, 16, 16},
		Scale:       [3]float32{1, 1, 1},
		RangeLo:     0,
		RangeHi:     255,
	}
	for lod, layout := range resp.BrickLayout {
		total := uint64(layout[0]) * uint64(layout[1]) * uint64(layout[2])
		for idx := uint64(0); idx < total; idx++ {
			resp.Bricks = append(resp.Bricks, BrickDescriptor{
				LOD:     uint32(lod),
				Index:   uint32(idx),
				NVoxels: [3]uint32{8, 8, 8},
			})
		}
	}
	require.Len(t, resp.Bricks, 9)

	var buf bytes.Buffer
	require.NoError(t, writeOpenResponse(&buf, resp))
	got, err := ReadOpenResponse(&buf)
	require.NoError(t, err)

	assert.Equal(t, 2, len(got.BrickLayout))
	assert.Equal(t, [3]uint32{2, 2, 2}, got.BrickLayout[0])
	assert.Equal(t, [3]uint32{1, 1, 1}, got.BrickLayout[1])
	assert.Len(t, got.Bricks, 9)
}

func TestListFilesResponseRoundTrip(t *testing.T) {
	resp := ListFilesResponse{Names: []string{"a.uvf", "", strings.Repeat("x", 300)}}
	var buf bytes.Buffer
	require.NoError(t, writeListFilesResponse(&buf, resp))
	got, err := ReadListFilesResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestBrickStreamRoundTrip_Scenario5(t *testing.T) {
	// Two visible 4x4x4 bricks at N_UINT16: each payload is 4*4*4*2 = 128 bytes.
	frames := []BrickFrame{
		{LOD: 0, Index: 3, NVoxels: [3]uint32{4, 4, 4}, Payload: make([]byte, 128)},
		{LOD: 0, Index: 7, NVoxels: [3]uint32{4, 4, 4}, Payload: make([]byte, 128)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBrickStream(&buf, frames))
	got, err := ReadBrickStream(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.Len(t, f.Payload, 128)
	}
}

func TestBrickPayloadRoundTrip(t *testing.T) {
	for _, typ := range []ElementType{ElementTypeU8, ElementTypeU16, ElementTypeU32, ElementTypeF32} {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		v, err := decodeBrickPayload(typ, data)
		require.NoError(t, err)
		encoded, err := encodeBrickPayload(v)
		require.NoError(t, err)
		assert.Equal(t, data, encoded)
	}
}
