// Package dataset implements the bricked dataset (C2): brick metadata,
// typed brick access, per-LOD brick layouts, and the value-range/gradient/
// histogram statistics the renderer and transfer function consume.
package dataset

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/tuvok/brick"
)

// LOD describes one level of detail's brick-layout grid.
type LOD struct {
	// Layout is the number of bricks along each axis at this LOD.
	Layout [3]uint32
}

// BrickCount returns the number of bricks covered by this LOD's layout.
func (l LOD) BrickCount() uint64 {
	return uint64(l.Layout[0]) * uint64(l.Layout[1]) * uint64(l.Layout[2])
}

// Dataset wraps a brick.Store with the per-LOD brick layout, domain
// geometry, and derived statistics (value range, gradient magnitude,
// histogram) that the scheduler and transfer function need. A Dataset
// never references the GPU brick cache; ownership flows the other way
// (see facade.Provider), avoiding the cyclic reference the design notes
// call out.
type Dataset struct {
	mu sync.RWMutex

	store brick.Store
	lods  []LOD

	domainSize [3]uint32
	scale      [3]float32

	rangeLo, rangeHi float64
	rangeSet         bool

	maxGradientMagnitude float32

	histogram    []uint64
	histogramSet bool
	histogramSF  singleflight.Group

	componentCount int
}

// Config bundles the construction-time parameters for New.
type Config struct {
	Store          brick.Store
	LODs           []LOD
	DomainSize     [3]uint32
	Scale          [3]float32
	ComponentCount int
}

// New builds a Dataset from a brick store already populated with bricks
// matching the given per-LOD layouts. ComponentCount other than 1 fails
// with ErrUnsupportedComponents.
func New(cfg Config) (*Dataset, error) {
	if cfg.ComponentCount != 1 {
		return nil, ErrUnsupportedComponents
	}
	lods := make([]LOD, len(cfg.LODs))
	copy(lods, cfg.LODs)
	d := &Dataset{
		store:          cfg.Store,
		lods:           lods,
		domainSize:     cfg.DomainSize,
		scale:          cfg.Scale,
		componentCount: cfg.ComponentCount,
	}
	return d, nil
}

// BrickCount returns the total number of resident bricks across all LODs.
func (d *Dataset) BrickCount() int {
	return d.store.Count()
}

// LODCount returns the number of levels of detail.
func (d *Dataset) LODCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lods)
}

// BrickLayout returns the brick-grid dimensions for lod.
func (d *Dataset) BrickLayout(lod uint32) ([3]uint32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(lod) >= len(d.lods) {
		return [3]uint32{}, ErrLODOutOfRange
	}
	return d.lods[lod].Layout, nil
}

// BrickMetadata returns the metadata for key.
func (d *Dataset) BrickMetadata(key brick.Key) (brick.Metadata, error) {
	return d.store.Metadata(key)
}

// GetBrick returns a typed copy of the voxel payload for key.
func GetBrick[T any](d *Dataset, key brick.Key) ([]T, error) {
	return brick.GetBrick[T](d.store, key)
}

// BrickPayload returns the raw tagged-variant payload for key, for callers
// (the facade, the GPU cache) that need the element kind to pick a texture
// format rather than a type parameter fixed at compile time.
func (d *Dataset) BrickPayload(key brick.Key) (brick.Variant, error) {
	return d.store.Brick(key)
}

// DomainSize returns the dataset's extent in voxels.
func (d *Dataset) DomainSize() [3]uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.domainSize
}

// Scale returns the per-axis world-space voxel scale.
func (d *Dataset) Scale() [3]float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scale
}

// Range returns the dataset's global scalar value range, computing it from
// the resident bricks on first use if none was explicitly set.
func (d *Dataset) Range() (lo, hi float64) {
	d.mu.RLock()
	if d.rangeSet {
		defer d.mu.RUnlock()
		return d.rangeLo, d.rangeHi
	}
	d.mu.RUnlock()

	lo, hi = d.computeRange()

	d.mu.Lock()
	if !d.rangeSet {
		d.rangeLo, d.rangeHi = lo, hi
		d.rangeSet = true
	}
	lo, hi = d.rangeLo, d.rangeHi
	d.mu.Unlock()
	return lo, hi
}

func (d *Dataset) computeRange() (float64, float64) {
	keys := d.store.Keys()
	if len(keys) == 0 {
		return 0, 0
	}
	first, err := d.store.Brick(keys[0])
	if err != nil {
		return 0, 0
	}
	lo, hi := first.ValueRange()
	for _, k := range keys[1:] {
		v, err := d.store.Brick(k)
		if err != nil {
			continue
		}
		l, h := v.ValueRange()
		if l < lo {
			lo = l
		}
		if h > hi {
			hi = h
		}
	}
	return lo, hi
}

// SetRange overrides the value range that would otherwise be computed from
// the resident bricks, and invalidates the cached histogram.
func (d *Dataset) SetRange(lo, hi float64) {
	d.mu.Lock()
	d.rangeLo, d.rangeHi = lo, hi
	d.rangeSet = true
	d.histogramSet = false
	d.histogram = nil
	d.mu.Unlock()
}

// MaxGradientMagnitude returns the cached maximum gradient magnitude across
// the dataset, used to normalize gradient-based shading.
func (d *Dataset) MaxGradientMagnitude() float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxGradientMagnitude
}

// SetMaxGradientMagnitude sets the cached maximum gradient magnitude.
func (d *Dataset) SetMaxGradientMagnitude(v float32) {
	d.mu.Lock()
	d.maxGradientMagnitude = v
	d.mu.Unlock()
}

// BitWidth, IsSigned and IsFloat report properties of the dataset's
// element type, derived from the brick store's Kind.
func (d *Dataset) BitWidth() uint64 {
	k, _ := d.store.Kind()
	return k.BitWidth()
}

func (d *Dataset) IsSigned() bool {
	k, _ := d.store.Kind()
	return k.Signed()
}

func (d *Dataset) IsFloat() bool {
	k, _ := d.store.Kind()
	return k.Float()
}

// ElementKind returns the dataset's uniform element type, and false if the
// store holds no bricks yet to derive it from.
func (d *Dataset) ElementKind() (brick.Kind, bool) {
	return d.store.Kind()
}

// ComponentCount is hard-coded to 1: multi-component voxels are an
// explicitly unsupported future extension (see package doc and
// ErrUnsupportedComponents).
func (d *Dataset) ComponentCount() int {
	return d.componentCount
}

// AddBrick inserts a brick and invalidates the cached histogram.
func (d *Dataset) AddBrick(key brick.Key, md brick.Metadata, payload brick.Variant) error {
	if err := d.store.AddBrick(key, md, payload); err != nil {
		return err
	}
	d.invalidate()
	return nil
}

// UpdateData replaces a brick's payload in place and invalidates the
// cached histogram.
func (d *Dataset) UpdateData(key brick.Key, payload brick.Variant) error {
	if err := d.store.UpdateData(key, payload); err != nil {
		return err
	}
	d.invalidate()
	return nil
}

// RemoveBrick deletes a brick and invalidates the cached histogram.
func (d *Dataset) RemoveBrick(key brick.Key) {
	d.store.RemoveBrick(key)
	d.invalidate()
}

// Clear removes every brick and invalidates the cached histogram and value
// range.
func (d *Dataset) Clear() {
	d.store.Clear()
	d.mu.Lock()
	d.rangeSet = false
	d.mu.Unlock()
	d.invalidate()
}

func (d *Dataset) invalidate() {
	d.mu.Lock()
	d.histogramSet = false
	d.histogram = nil
	d.mu.Unlock()
}
