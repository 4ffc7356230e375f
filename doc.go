// Package tuvok provides a view-aligned slice-based volume renderer for
// bricked, multi-resolution scientific datasets.
//
// # Overview
//
// tuvok loads or streams voxel data organized into bricks across levels
// of detail, slices each resident brick into view-aligned polygons, and
// composites them with a GPU backend using 1-D/2-D transfer functions,
// isosurfacing, or maximum intensity projection. It is a Go-native
// reimagining of the ImageVis3D/Tuvok rendering core.
//
// # Packages
//
//   - brick: typed voxel payload storage (in-memory and disk-backed)
//   - dataset: brick layout, LOD geometry, histogram, range tracking
//   - geometry: view-aligned slice generation and clipping
//   - gpucore: backend-agnostic GPU resource model
//   - backend: pluggable gpucore.Context implementations (wgpu, stub)
//   - cache: GPU-resident brick texture cache with LRU eviction
//   - scheduler: per-frame LOD selection, culling, and composition
//   - remote: wire protocol and server for remote rendering
//   - facade: the dataset Provider contract tying the above together
//
// # Quick Start
//
//	import "github.com/gogpu/tuvok/facade"
//
//	provider, err := facade.OpenFileBacked("volume")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer provider.Close()
package tuvok

// Version information.
const (
	// Version is the current version of the module.
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version.
	VersionMajor = 0

	// VersionMinor is the minor version.
	VersionMinor = 1

	// VersionPatch is the patch version.
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier.
	VersionPrerelease = "alpha.1"
)
