package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/backend"
	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
	"github.com/gogpu/tuvok/facade"
	"github.com/gogpu/tuvok/geometry"
)

// singleBrickDataset builds a one-LOD, one-brick dataset centered at the
// world origin with the given value range, small enough that the default
// test Frame's frustum and LOD math always keep it in view at LOD 0.
func singleBrickDataset(t *testing.T, lo, hi uint8) *dataset.Dataset {
	t.Helper()
	store := brick.NewMemStore()
	ds, err := dataset.New(dataset.Config{
		Store:          store,
		LODs:           []dataset.LOD{{Layout: [3]uint32{1, 1, 1}}},
		DomainSize:     [3]uint32{8, 8, 8},
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	})
	require.NoError(t, err)

	data := make([]uint8, 8)
	data[0] = lo
	data[1] = hi
	for i := 2; i < len(data); i++ {
		data[i] = lo
	}
	md := brick.Metadata{
		Center:  [3]float32{0, 0, 0},
		Extents: [3]float32{1, 1, 1},
		NVoxels: [3]uint32{2, 2, 2},
		TexMin:  [3]float32{0, 0, 0},
		TexMax:  [3]float32{1, 1, 1},
	}
	require.NoError(t, ds.AddBrick(brick.NewKey(0, 0, 0), md, brick.NewU8(data)))
	return ds
}

// testFrame returns a Frame looking down -Z at the origin from distance 5,
// wide enough to keep a unit-extent brick in frustum at every LOD the tests
// use, with the transfer function accepting the full uint8 range unless a
// test narrows it.
func testFrame(mode RenderMode) Frame {
	return Frame{
		Index:              1,
		Mode:               mode,
		View:               geometry.TranslationMat4(geometry.V3(0, 0, -5)),
		FOVY:               1.0,
		Aspect:             1.0,
		Near:               0.1,
		Far:                100,
		ScreenHeightPixels: 720,
		SampleRate:         1,
		TFSupportLo:        0,
		TFSupportHi:        255,
	}
}

func newTestScheduler(t *testing.T, ds *dataset.Dataset, cacheBudget uint64) (*Scheduler, *backend.StubContext) {
	t.Helper()
	ctx := backend.NewStubContext(cacheBudget)
	provider := facade.NewInProcessProvider(ds)
	s := New(ctx, provider, cacheBudget, nil)
	return s, ctx
}

func TestRenderFrameRejectsInvalidMode(t *testing.T) {
	ds := singleBrickDataset(t, 0, 255)
	s, _ := newTestScheduler(t, ds, 0)

	err := s.RenderFrame(context.Background(), testFrame(RMInvalid))
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestRenderFrameDrawsVisibleBrick(t *testing.T) {
	ds := singleBrickDataset(t, 0, 255)
	s, ctx := newTestScheduler(t, ds, 0)

	err := s.RenderFrame(context.Background(), testFrame(RM1DTrans))
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.DrawCount())
	assert.True(t, s.Cache().IsResident(brick.NewKey(0, 0, 0)))
}

// TestTransferFunctionSupportCulling exercises the boundary scenario where
// the transfer function's non-zero support (0.2, 0.8) falls entirely
// outside a brick's value range (0.85, 0.9): the brick must be culled
// before acquisition, so it draws nothing and never touches the cache.
func TestTransferFunctionSupportCulling(t *testing.T) {
	ds := singleBrickDataset(t, 217, 230) // ~0.85-0.9 of the uint8 range
	s, ctx := newTestScheduler(t, ds, 0)

	f := testFrame(RM1DTrans)
	f.TFSupportLo, f.TFSupportHi = 51, 204 // ~0.2-0.8 of the uint8 range

	err := s.RenderFrame(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 0, ctx.DrawCount())
	assert.False(t, s.Cache().IsResident(brick.NewKey(0, 0, 0)))
}

// TestFrustumCullingDropsBrickBehindCamera places the brick's center well
// behind the camera's near plane (i.e. outside the frustum at the
// opposite side of the view direction) so it never survives cullBricks.
func TestFrustumCullingDropsBrickBehindCamera(t *testing.T) {
	ds := singleBrickDataset(t, 0, 255)
	s, ctx := newTestScheduler(t, ds, 0)

	f := testFrame(RM1DTrans)
	// Looking from origin toward -Z puts a brick centered at the origin
	// behind the camera once the view is translated the other way.
	f.View = geometry.TranslationMat4(geometry.V3(0, 0, 5))

	err := s.RenderFrame(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 0, ctx.DrawCount())
}

// TestRenderFrameCoarsensOnOutOfBudget exercises the coarsen-and-restart
// path: a cache budget too small for the brick at LOD 0 is large enough
// to fit at the coarser LOD, since the coarser level's single 1x1x1
// layout is what the scheduler retries after ErrOutOfBudget.
func TestRenderFrameCoarsensOnOutOfBudget(t *testing.T) {
	store := brick.NewMemStore()
	ds, err := dataset.New(dataset.Config{
		Store:          store,
		LODs:           []dataset.LOD{{Layout: [3]uint32{2, 2, 2}}, {Layout: [3]uint32{1, 1, 1}}},
		DomainSize:     [3]uint32{8, 8, 8},
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	})
	require.NoError(t, err)

	fineData := make([]uint8, 8*8*8)
	coarseData := make([]uint8, 2*2*2)
	fineMD := brick.Metadata{
		Center: [3]float32{0, 0, 0}, Extents: [3]float32{1, 1, 1},
		NVoxels: [3]uint32{8, 8, 8}, TexMin: [3]float32{0, 0, 0}, TexMax: [3]float32{1, 1, 1},
	}
	coarseMD := brick.Metadata{
		Center: [3]float32{0, 0, 0}, Extents: [3]float32{1, 1, 1},
		NVoxels: [3]uint32{2, 2, 2}, TexMin: [3]float32{0, 0, 0}, TexMax: [3]float32{1, 1, 1},
	}
	require.NoError(t, ds.AddBrick(brick.NewKey(0, 0, 0), fineMD, brick.NewU8(fineData)))
	require.NoError(t, ds.AddBrick(brick.NewKey(0, 1, 0), coarseMD, brick.NewU8(coarseData)))

	// Big enough for the coarse brick's texture, too small for the fine
	// one, forcing RenderFrame to coarsen from LOD 0 to LOD 1.
	const budget = 16
	s, ctx := newTestScheduler(t, ds, budget)

	// The default test frame's footprint estimate never satisfies the
	// voxels-per-pixel threshold at either LOD, so chooseLOD falls back to
	// LOD 0 and the scheduler has to discover the budget failure via
	// cache.ErrOutOfBudget rather than via chooseLOD itself.
	f := testFrame(RM1DTrans)

	err = s.RenderFrame(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.DrawCount())
	assert.True(t, s.Cache().IsResident(brick.NewKey(0, 1, 0)))
	assert.False(t, s.Cache().IsResident(brick.NewKey(0, 0, 0)))
}

func TestRenderFrameErrorsWhenCoarsestLODStillOverBudget(t *testing.T) {
	ds := singleBrickDataset(t, 0, 255)
	s, _ := newTestScheduler(t, ds, 1) // one byte: even the only LOD can't fit

	err := s.RenderFrame(context.Background(), testFrame(RM1DTrans))
	assert.Error(t, err)
}

// TestRenderFrameHonorsCancellation exercises
// ErrFrameDeadlineExceeded: a context cancelled before RenderFrame starts
// drawing must abort without panicking and surface a wrapped deadline
// error rather than a bare context.Canceled.
func TestRenderFrameHonorsCancellation(t *testing.T) {
	ds := singleBrickDataset(t, 0, 255)
	s, ctx := newTestScheduler(t, ds, 0)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RenderFrame(cancelled, testFrame(RM1DTrans))
	assert.ErrorIs(t, err, ErrFrameDeadlineExceeded)
	assert.Equal(t, 0, ctx.DrawCount())
}

func TestBlendStateForModeMatchesSpec(t *testing.T) {
	b1 := blendStateForMode(RM1DTrans)
	assert.True(t, b1.blendEnabled)
	assert.False(t, b1.depthTest)
	assert.Equal(t, blendEquationAdd, b1.equation)

	iso := blendStateForMode(RMIsosurface)
	assert.False(t, iso.blendEnabled)
	assert.True(t, iso.depthTest)

	mip := blendStateForMode(RMMIPHighQuality)
	assert.True(t, mip.blendEnabled)
	assert.False(t, mip.depthTest)
	assert.Equal(t, blendEquationMax, mip.equation)
}

func TestVariantCacheReusesCompiledModule(t *testing.T) {
	ctx := backend.NewStubContext(0)
	vc := newVariantCache()

	key := variantKey{mode: RM1DTrans, lighting: false, components: 1}
	id1, err := vc.get(ctx, key)
	require.NoError(t, err)
	id2, err := vc.get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	litKey := variantKey{mode: RM1DTrans, lighting: true, components: 1}
	id3, err := vc.get(ctx, litKey)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3, "lighting variants must compile distinct shader modules")
}
