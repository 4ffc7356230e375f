package dataset

import "errors"

// Sentinel errors for dataset-level operations.
var (
	// ErrUnsupportedComponents is returned by New when Config.ComponentCount
	// is anything other than 1. Multi-component data is an explicitly
	// unsupported future extension.
	ErrUnsupportedComponents = errors.New("dataset: only single-component datasets are supported")

	// ErrLODOutOfRange is returned by BrickLayout when the requested LOD
	// index exceeds LODCount.
	ErrLODOutOfRange = errors.New("dataset: lod index out of range")
)
