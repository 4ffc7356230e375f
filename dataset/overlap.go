package dataset

import "github.com/gogpu/tuvok/brick"

// EffectiveBrickSize returns NVoxels minus the per-face overlap, computed
// independently per axis from the brick's grid position against that LOD's
// layout bounds: overlap is 0 on a domain-facing side and 1 on a side that
// borders another brick. This intentionally does not replicate the
// upstream renderer's bug of treating every face as internal (uniform
// overlap=1 regardless of position); see OverlapSize for the per-face
// breakdown.
func (d *Dataset) EffectiveBrickSize(key brick.Key) ([3]uint32, error) {
	md, err := d.store.Metadata(key)
	if err != nil {
		return [3]uint32{}, err
	}
	layout, err := d.BrickLayout(key.LOD)
	if err != nil {
		return [3]uint32{}, err
	}

	lo, hi := overlapPerAxis(md.GridPos, layout)
	var eff [3]uint32
	for axis := 0; axis < 3; axis++ {
		reduction := lo[axis] + hi[axis]
		if reduction > md.NVoxels[axis] {
			reduction = md.NVoxels[axis]
		}
		eff[axis] = md.NVoxels[axis] - reduction
	}
	return eff, nil
}

// OverlapSize returns, per axis, the (low-face, high-face) overlap in
// voxels: 1 where the brick borders a neighbor, 0 where it borders the
// domain boundary.
func (d *Dataset) OverlapSize(key brick.Key) (lo, hi [3]uint32, err error) {
	md, err := d.store.Metadata(key)
	if err != nil {
		return [3]uint32{}, [3]uint32{}, err
	}
	layout, err := d.BrickLayout(key.LOD)
	if err != nil {
		return [3]uint32{}, [3]uint32{}, err
	}
	lo, hi = overlapPerAxis(md.GridPos, layout)
	return lo, hi, nil
}

func overlapPerAxis(gridPos, layout [3]uint32) (lo, hi [3]uint32) {
	for axis := 0; axis < 3; axis++ {
		if gridPos[axis] > 0 {
			lo[axis] = 1
		}
		if layout[axis] > 0 && gridPos[axis] < layout[axis]-1 {
			hi[axis] = 1
		}
	}
	return lo, hi
}
