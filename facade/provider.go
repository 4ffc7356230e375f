// Package facade unifies the in-process brick store (C1/C2) and the
// remote brick server (C6) behind a single Provider contract so the
// scheduler (C5) never branches on which implementation backs a dataset.
package facade

import "github.com/gogpu/tuvok/brick"

// Provider is the dataset contract spec.md §4.1 requires the scheduler to
// consume. It is satisfied by an in-process Dataset, a file-backed reader,
// or a thin client that forwards to the remote brick server.
type Provider interface {
	// BrickCount returns the total number of bricks across all LODs.
	BrickCount() int

	// LODCount returns the number of levels of detail.
	LODCount() int

	// BrickLayout returns the brick-grid dimensions for lod.
	BrickLayout(lod uint32) ([3]uint32, error)

	// BrickMetadata returns the metadata for key, or ErrNotFound.
	BrickMetadata(key brick.Key) (brick.Metadata, error)

	// BrickPayload returns the raw typed voxel payload for key, or
	// ErrNotFound. The scheduler picks a gpucore.TextureFormat from the
	// variant's Kind rather than requiring a compile-time type parameter,
	// since the element type is only known once a dataset is open.
	BrickPayload(key brick.Key) (brick.Variant, error)

	// EffectiveBrickSize returns n_voxels minus the per-face overlap.
	EffectiveBrickSize(key brick.Key) ([3]uint32, error)

	// DomainSize returns the dataset's extent in voxels.
	DomainSize() [3]uint32

	// Scale returns the per-axis world-space voxel scale.
	Scale() [3]float32

	// Range returns the dataset's global scalar value range.
	Range() (lo, hi float64)

	// MaxGradientMagnitude returns the cached maximum gradient magnitude.
	MaxGradientMagnitude() float32

	// ElementKind returns the dataset's uniform element type, and false if
	// no brick has been added yet to derive it from.
	ElementKind() (brick.Kind, bool)
}
