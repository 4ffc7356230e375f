package facade

import (
	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
)

// InProcessProvider wraps a dataset.Dataset held entirely in this process's
// memory (backed by a brick.MemStore or brick.DiskStore), the simplest of
// the three Provider implementations.
type InProcessProvider struct {
	ds *dataset.Dataset
}

// NewInProcessProvider wraps an already-populated Dataset.
func NewInProcessProvider(ds *dataset.Dataset) *InProcessProvider {
	return &InProcessProvider{ds: ds}
}

func (p *InProcessProvider) BrickCount() int { return p.ds.BrickCount() }
func (p *InProcessProvider) LODCount() int   { return p.ds.LODCount() }

func (p *InProcessProvider) BrickLayout(lod uint32) ([3]uint32, error) {
	return p.ds.BrickLayout(lod)
}

func (p *InProcessProvider) BrickMetadata(key brick.Key) (brick.Metadata, error) {
	return p.ds.BrickMetadata(key)
}

func (p *InProcessProvider) BrickPayload(key brick.Key) (brick.Variant, error) {
	return p.ds.BrickPayload(key)
}

func (p *InProcessProvider) EffectiveBrickSize(key brick.Key) ([3]uint32, error) {
	return p.ds.EffectiveBrickSize(key)
}

func (p *InProcessProvider) DomainSize() [3]uint32 { return p.ds.DomainSize() }
func (p *InProcessProvider) Scale() [3]float32     { return p.ds.Scale() }
func (p *InProcessProvider) Range() (float64, float64) { return p.ds.Range() }

func (p *InProcessProvider) MaxGradientMagnitude() float32 {
	return p.ds.MaxGradientMagnitude()
}

func (p *InProcessProvider) ElementKind() (brick.Kind, bool) {
	return p.ds.ElementKind()
}

// Dataset returns the wrapped Dataset for callers (e.g. tuvokctl) that need
// write access (AddBrick, SetRange, …) alongside the read-only Provider view.
func (p *InProcessProvider) Dataset() *dataset.Dataset { return p.ds }

var _ Provider = (*InProcessProvider)(nil)
