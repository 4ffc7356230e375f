package brick

// Metadata describes a brick's placement and extent in world/texture space.
// NVoxels includes the one-voxel overlap on internal faces; Dataset-level
// code (see package dataset) is responsible for reporting the overlap
// correctly per face, not Metadata itself.
type Metadata struct {
	// Center is the brick's center in world space.
	Center [3]float32
	// Extents are world-space half-extents.
	Extents [3]float32
	// NVoxels is the voxel count per axis, including overlap.
	NVoxels [3]uint32
	// GridPos is the brick's position in the per-LOD brick layout grid.
	GridPos [3]uint32
	// TexMin/TexMax clamp the sampled region inside the uploaded texture,
	// excluding overlap on domain-boundary faces.
	TexMin [3]float32
	TexMax [3]float32
}

// VoxelCount returns the product of NVoxels, i.e. the number of scalar
// samples a typed GetBrick call for this key must return.
func (m Metadata) VoxelCount() uint64 {
	return uint64(m.NVoxels[0]) * uint64(m.NVoxels[1]) * uint64(m.NVoxels[2])
}
