// Package scheduler implements the frame scheduler (C5): the per-frame
// algorithm that turns (dataset, view, mode, transfer function) into brick
// draws, coordinating LOD choice, frustum/support culling, back-to-front
// ordering, GPU residency via cache.BrickCache, shader variant dispatch,
// and mode-specific composition.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/chewxy/math32"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/tuvok"
	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/cache"
	"github.com/gogpu/tuvok/facade"
	"github.com/gogpu/tuvok/geometry"
	"github.com/gogpu/tuvok/gpucore"
)

// ErrInvalidMode is returned by RenderFrame when Frame.Mode is RMInvalid.
var ErrInvalidMode = errors.New("scheduler: RM_INVALID is not a valid render mode")

// ErrFrameDeadlineExceeded is returned when goctx is cancelled before every
// surviving brick could be drawn. Bricks left unacquired are simply
// retried next frame; the caller decides whether a dropped frame matters.
var ErrFrameDeadlineExceeded = errors.New("scheduler: frame deadline exceeded")

// Frame bundles the per-frame inputs the scheduler needs: the view and
// projection parameters, the active render mode and its options, the
// transfer function's non-zero support range for brick culling, and the
// frame index used for cache pinning and telemetry.
type Frame struct {
	Index uint64
	Mode  RenderMode

	// View is the world-to-view (camera) transform.
	View geometry.Mat4

	// FOVY, Aspect, Near, Far describe the projection used both for
	// frustum culling and the screen-space LOD footprint estimate.
	FOVY, Aspect, Near, Far float32

	// ScreenHeightPixels is the render target's vertical resolution.
	ScreenHeightPixels float32

	// SampleRate is samples per voxel along the slice stack's dominant
	// axis; higher values produce more, thinner slices.
	SampleRate float32

	Lighting bool
	Clip     *geometry.Plane

	// TFSupportLo/TFSupportHi bound the transfer function's non-zero
	// alpha support in dataset value units; bricks whose value range
	// falls entirely outside are culled before acquisition.
	TFSupportLo, TFSupportHi float64
}

// Scheduler turns Frame values into brick draws against a GPU context, per
// the single-render-thread, cooperatively-cancelled concurrency model.
type Scheduler struct {
	ctx      gpucore.Context
	cache    *cache.BrickCache
	provider facade.Provider
	variants *variantCache
	metrics  *metrics
	gen      geometry.Generator
}

// New builds a Scheduler drawing from provider through ctx, with a brick
// cache budgeted to cacheBudgetBytes. reg may be nil to skip metrics
// registration.
func New(ctx gpucore.Context, provider facade.Provider, cacheBudgetBytes uint64, reg prometheus.Registerer) *Scheduler {
	return &Scheduler{
		ctx:      ctx,
		cache:    cache.NewBrickCache(ctx, cacheBudgetBytes),
		provider: provider,
		variants: newVariantCache(),
		metrics:  newMetrics(reg),
	}
}

// Cache exposes the underlying brick cache for callers that need residency
// introspection (tuvokctl's status command, tests).
func (s *Scheduler) Cache() *cache.BrickCache { return s.cache }

// VisibleBricks computes the set of bricks RenderFrame would draw for f
// without acquiring GPU residency or submitting geometry: the same LOD
// choice, frustum cull, and transfer-function support cull. The remote
// brick server uses this to decide which bricks a ROTATION request needs
// to stream back, matching the original renderer's RotateParams::perform,
// which calls the renderer's rotate-and-cull step and then reads back
// GLGridLeaper::GetNeededBricks() rather than performing its own culling.
func VisibleBricks(provider facade.Provider, f Frame) ([]brick.Key, error) {
	s := &Scheduler{provider: provider}
	lod, err := s.chooseLOD(f)
	if err != nil {
		return nil, err
	}
	visible, err := s.cullBricks(f, lod)
	if err != nil {
		return nil, err
	}
	keys := make([]brick.Key, len(visible))
	for i, vb := range visible {
		keys[i] = vb.key
	}
	return keys, nil
}

// visibleBrick is one brick surviving frustum and transfer-function culling,
// carrying what renderAtLOD needs without re-deriving it per sort
// comparison or per draw.
type visibleBrick struct {
	key      brick.Key
	md       brick.Metadata
	distance float32
}

// RenderFrame draws one frame. On cache.ErrOutOfBudget it coarsens the LOD
// by one level and restarts the whole enumerate/cull/sort/draw sequence;
// if even the coarsest LOD cannot fit the cache budget, it returns an
// error instead of looping forever.
func (s *Scheduler) RenderFrame(goctx context.Context, f Frame) error {
	if f.Mode == RMInvalid {
		return ErrInvalidMode
	}

	start := time.Now()

	lod, err := s.chooseLOD(f)
	if err != nil {
		return err
	}

	var drawn int
	for {
		// BeginFrame unpins every resident brick before each attempt,
		// including ones acquired by an aborted attempt at a finer LOD:
		// "abort the frame, coarsen LOD by one, restart" discards that
		// attempt's partial pins along with its partial draw.
		s.cache.BeginFrame(f.Index)

		n, rerr := s.renderAtLOD(goctx, f, lod)
		if errors.Is(rerr, cache.ErrOutOfBudget) {
			if lod+1 >= uint32(s.provider.LODCount()) {
				return fmt.Errorf("scheduler: out of budget at coarsest LOD %d: %w", lod, rerr)
			}
			tuvok.Logger().Warn("coarsening LOD under cache budget pressure",
				"frame", f.Index, "from_lod", lod, "to_lod", lod+1)
			lod++
			continue
		}
		if rerr != nil {
			if errors.Is(rerr, ErrFrameDeadlineExceeded) {
				tuvok.Logger().Warn("frame deadline exceeded", "frame", f.Index, "bricks_drawn", n)
			}
			return rerr
		}
		drawn = n
		break
	}

	s.metrics.bricksDrawn.Observe(float64(drawn))
	s.metrics.residentBytes.Set(float64(s.cache.ResidentBytes()))
	s.metrics.frameDuration.Observe(time.Since(start).Seconds())
	return nil
}

// chooseLOD implements step 1: the coarsest level whose effective voxel
// footprint is <= 1.5 voxels/pixel at the distance from the camera to the
// domain center (assumed at the world origin, consistent with how brick
// world positions are expressed directly in world space with no separate
// domain-center query on Provider). World units per voxel at LOD l is
// taken as Scale*2^l, the dyadic per-level halving standard to bricked
// mip chains; no per-LOD voxel size is available from Provider directly.
func (s *Scheduler) chooseLOD(f Frame) (uint32, error) {
	const maxFootprintVoxelsPerPixel = 1.5

	lodCount := s.provider.LODCount()
	if lodCount <= 0 {
		return 0, fmt.Errorf("scheduler: provider reports zero LODs")
	}

	scale := s.provider.Scale()
	maxScale := scale[0]
	if scale[1] > maxScale {
		maxScale = scale[1]
	}
	if scale[2] > maxScale {
		maxScale = scale[2]
	}

	camPos := f.View.RigidInverse().TransformPoint(geometry.V3(0, 0, 0))
	distance := camPos.Length()

	if f.ScreenHeightPixels <= 0 || f.FOVY <= 0 {
		return 0, fmt.Errorf("scheduler: frame missing projection parameters")
	}
	pixelWorldSize := 2 * distance * math32.Tan(f.FOVY/2) / f.ScreenHeightPixels
	if pixelWorldSize <= 0 {
		return 0, nil
	}

	for lod := lodCount - 1; lod >= 0; lod-- {
		voxelWorldSize := maxScale * float32(uint32(1)<<uint(lod))
		if voxelWorldSize/pixelWorldSize <= maxFootprintVoxelsPerPixel {
			return uint32(lod), nil
		}
	}
	return 0, nil
}

// renderAtLOD implements steps 2-5 of the per-frame algorithm at a fixed
// LOD. It returns the number of bricks actually drawn, or
// cache.ErrOutOfBudget if RenderFrame should coarsen and retry.
func (s *Scheduler) renderAtLOD(goctx context.Context, f Frame, lod uint32) (int, error) {
	visible, err := s.cullBricks(f, lod)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].distance > visible[j].distance // back-to-front
	})

	blend := blendStateForMode(f.Mode)
	fb, err := s.ctx.AllocFramebuffer(gpucore.FramebufferDesc{
		Label: "scheduler-compose",
		Depth: blend.depthTest,
	})
	if err != nil {
		return 0, err
	}
	if err := s.ctx.BindFramebuffer(fb); err != nil {
		return 0, err
	}

	drawn := 0
	for _, vb := range visible {
		if err := goctx.Err(); err != nil {
			return drawn, fmt.Errorf("%w: %v", ErrFrameDeadlineExceeded, err)
		}

		n, err := s.drawBrick(f, vb)
		if err != nil {
			if errors.Is(err, cache.ErrOutOfBudget) {
				return drawn, err
			}
			return drawn, err
		}
		if n {
			drawn++
		}
	}
	return drawn, nil
}

// cullBricks implements step 2: enumerate bricks at lod whose world-space
// bounding box intersects the view frustum and whose value range
// intersects the transfer function's non-zero support.
func (s *Scheduler) cullBricks(f Frame, lod uint32) ([]visibleBrick, error) {
	layout, err := s.provider.BrickLayout(lod)
	if err != nil {
		return nil, err
	}
	total := uint64(layout[0]) * uint64(layout[1]) * uint64(layout[2])

	camPos := f.View.RigidInverse().TransformPoint(geometry.V3(0, 0, 0))

	visible := make([]visibleBrick, 0, total)
	for linear := uint64(0); linear < total; linear++ {
		key := brick.NewKey(0, lod, linear)

		md, err := s.provider.BrickMetadata(key)
		if err != nil {
			if errors.Is(err, brick.ErrNotFound) {
				continue
			}
			return nil, err
		}

		radius := maxComponent(md.Extents)
		center := geometry.V3(md.Center[0], md.Center[1], md.Center[2])
		if !s.inFrustum(f, center, radius) {
			continue
		}

		payload, err := s.provider.BrickPayload(key)
		if err != nil {
			if errors.Is(err, brick.ErrNotFound) {
				continue
			}
			return nil, err
		}
		lo, hi := payload.ValueRange()
		if hi < f.TFSupportLo || lo > f.TFSupportHi {
			continue
		}

		distance := center.Sub(camPos).Length()
		visible = append(visible, visibleBrick{key: key, md: md, distance: distance})
	}
	return visible, nil
}

// inFrustum tests a bounding sphere against the view frustum in view
// space: the camera looks down -Z, so a point's depth is -p.Z.
func (s *Scheduler) inFrustum(f Frame, center geometry.Vec3, radius float32) bool {
	p := f.View.TransformPoint(center)
	depth := -p.Z
	if depth+radius < f.Near || depth-radius > f.Far {
		return false
	}
	tanHalfY := math32.Tan(f.FOVY / 2)
	tanHalfX := tanHalfY * f.Aspect
	allowedY := tanHalfY*depth + radius
	allowedX := tanHalfX*depth + radius
	if math32.Abs(p.Y) > allowedY || math32.Abs(p.X) > allowedX {
		return false
	}
	return true
}

// drawBrick implements step 4 for one brick: acquire its GPU texture,
// bind it, set per-brick uniforms, pick the shader variant, and submit
// slice geometry. Returns false (with a nil error) for a brick the
// dataset has since removed, which is not a budget failure.
func (s *Scheduler) drawBrick(f Frame, vb visibleBrick) (bool, error) {
	payload, err := s.provider.BrickPayload(vb.key)
	if err != nil {
		if errors.Is(err, brick.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	data, err := serializeVariant(payload)
	if err != nil {
		return false, err
	}

	kind, _ := s.provider.ElementKind()
	desc := gpucore.Texture3DDesc{
		Label:  vb.key.String(),
		Width:  vb.md.NVoxels[0],
		Height: vb.md.NVoxels[1],
		Depth:  vb.md.NVoxels[2],
		Format: textureFormatForKind(kind),
		Usage:  gpucore.TextureUsageTextureBinding | gpucore.TextureUsageCopyDst,
	}

	hit := s.cache.IsResident(vb.key)
	tex, err := s.cache.Acquire(vb.key, desc, data)
	if err != nil {
		if errors.Is(err, cache.ErrOutOfBudget) {
			s.metrics.outOfBudget.Inc()
		}
		return false, err
	}
	if hit {
		s.metrics.cacheHits.Inc()
	} else {
		s.metrics.cacheMisses.Inc()
	}
	s.ctx.BindTexture(0, tex)

	// Components is always 1: multi-component voxels are unsupported (see
	// dataset.Dataset.ComponentCount), so the variant key carries a
	// constant here rather than querying Provider for it.
	shaderKey := variantKey{mode: f.Mode, lighting: f.Lighting, components: 1}
	shader, err := s.variants.get(s.ctx, shaderKey)
	if err != nil {
		return false, err
	}
	if err := s.ctx.BindShader(shader); err != nil {
		return false, err
	}

	effective, err := s.provider.EffectiveBrickSize(vb.key)
	if err != nil {
		return false, err
	}
	domain := s.provider.DomainSize()
	layout, err := s.provider.BrickLayout(vb.key.LOD)
	if err != nil {
		return false, err
	}
	stepScale := brickStepScale(f.SampleRate, domain, layout)

	voxelStepsize := 1 / maxUint32(effective)
	if err := s.ctx.SetUniform("voxel_stepsize", gpucore.UniformValue{Kind: gpucore.UniformFloat, Float: voxelStepsize}); err != nil {
		return false, err
	}
	if err := s.ctx.SetUniform("step_scale", gpucore.UniformValue{Kind: gpucore.UniformFloat, Float: stepScale}); err != nil {
		return false, err
	}

	world := geometry.FromRows(
		[4]float32{vb.md.Extents[0], 0, 0, vb.md.Center[0]},
		[4]float32{0, vb.md.Extents[1], 0, vb.md.Center[1]},
		[4]float32{0, 0, vb.md.Extents[2], vb.md.Center[2]},
		[4]float32{0, 0, 0, 1},
	)
	if err := s.ctx.SetUniform("world", gpucore.UniformValue{Kind: gpucore.UniformMat4, Mat4: world.Array()}); err != nil {
		return false, err
	}
	if err := s.ctx.SetUniform("view", gpucore.UniformValue{Kind: gpucore.UniformMat4, Mat4: f.View.Array()}); err != nil {
		return false, err
	}

	input := geometry.BrickInput{
		Extents: geometry.V3(vb.md.Extents[0], vb.md.Extents[1], vb.md.Extents[2]),
		NVoxels: vb.md.NVoxels,
		TexMin:  geometry.V3(vb.md.TexMin[0], vb.md.TexMin[1], vb.md.TexMin[2]),
		TexMax:  geometry.V3(vb.md.TexMax[0], vb.md.TexMax[1], vb.md.TexMax[2]),
	}
	slices := s.gen.Slices(input, f.SampleRate, world, f.View, f.Clip)
	if err := s.ctx.Draw(slices); err != nil {
		return false, err
	}

	return true, nil
}

// brickStepScale implements the per-brick uniform formula from step 4:
// sqrt(2)/sample_rate * max(domain/domain_at_lod), where domain_at_lod is
// approximated by the LOD's brick layout resolution (bricks per axis),
// the finest granularity Provider reports per LOD.
func brickStepScale(sampleRate float32, domain [3]uint32, layoutAtLOD [3]uint32) float32 {
	ratio := func(full, atLOD uint32) float32 {
		if atLOD == 0 {
			return 1
		}
		return float32(full) / float32(atLOD)
	}
	r := ratio(domain[0], layoutAtLOD[0])
	if v := ratio(domain[1], layoutAtLOD[1]); v > r {
		r = v
	}
	if v := ratio(domain[2], layoutAtLOD[2]); v > r {
		r = v
	}
	return math32.Sqrt(2) / sampleRate * r
}

func maxComponent(v [3]float32) float32 {
	m := v[0]
	if v[1] > m {
		m = v[1]
	}
	if v[2] > m {
		m = v[2]
	}
	return m
}

func maxUint32(v [3]uint32) float32 {
	m := v[0]
	if v[1] > m {
		m = v[1]
	}
	if v[2] > m {
		m = v[2]
	}
	return float32(m)
}
