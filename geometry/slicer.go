package geometry

import "github.com/chewxy/math32"

// Axis identifies a bin in the per-axis slice-triangle grouping described
// in the component design: the slicer only ever populates the bin for the
// currently dominant view axis, but Order always lists all three so the
// renderer can address "the other two" bins and find them empty.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Vertex is one point of a slice quad: a world-space position and the
// matching 3D texture coordinate.
type Vertex struct {
	Pos Vec3
	Tex Vec3
}

// Triangle is three vertices in emission order.
type Triangle [3]Vertex

// BrickInput bundles the per-brick geometry the slicer needs: world-space
// half-extents, voxel counts (used only for the max(n_voxels) term of the
// spacing formula), and the texture-space clamp box excluding overlap.
type BrickInput struct {
	Extents Vec3
	NVoxels [3]uint32
	TexMin  Vec3
	TexMax  Vec3
}

func (b BrickInput) maxNVoxels() float32 {
	max := b.NVoxels[0]
	if b.NVoxels[1] > max {
		max = b.NVoxels[1]
	}
	if b.NVoxels[2] > max {
		max = b.NVoxels[2]
	}
	return float32(max)
}

// SliceSet is the result of Generator.Slices: the axis order (dominant
// axis last) and the back-to-front triangle list for that dominant axis.
// The two non-dominant bins are implicitly empty.
type SliceSet struct {
	Order     [3]Axis
	Triangles []Triangle
}

// Generator produces view-aligned slice geometry for a single brick.
type Generator struct{}

// Slices computes the slice stack for one brick. world transforms the
// brick's local [-1,1]^3 cube into world space; view is the camera's
// world-to-view matrix. clip, if non-nil, is applied in world space;
// emitted triangles never cross its positive half-space.
func (Generator) Slices(b BrickInput, sampleRate float32, world, view Mat4, clip *Plane) SliceSet {
	dominant := dominantAxisObjectSpace(world, view)
	order := axisOrder(dominant)

	spacing := math32.Sqrt(2) / (sampleRate * b.maxNVoxels())
	if spacing <= 0 {
		spacing = 1
	}
	count := int(math32.Ceil(1 / spacing))
	if count < 1 {
		count = 1
	}

	other1, other2 := otherAxes(dominant)
	tris := make([]Triangle, 0, count*2)

	// Back-to-front: start farthest from the viewer in object space along
	// the dominant axis and step toward the viewer.
	sign := frontSign(dominant, world, view)
	for i := 0; i < count; i++ {
		u := -1 + (float32(i)+0.5)*spacing*2
		u *= sign

		quadVerts := sliceQuadVertices(b, dominant, other1, other2, u)
		worldVerts := make([]Vertex, len(quadVerts))
		for j, v := range quadVerts {
			worldVerts[j] = Vertex{Pos: world.TransformPoint(v.Pos), Tex: v.Tex}
		}

		clipped := clipAgainstUnitCubeAndPlane(worldVerts, world, clip)
		tris = append(tris, triangulateFan(clipped)...)
	}

	return SliceSet{Order: order, Triangles: tris}
}

// sliceQuadVertices builds the four corners of a slice plane perpendicular
// to dominant at local coordinate u, spanning the full [-1,1] extent of
// the other two axes.
func sliceQuadVertices(b BrickInput, dominant, other1, other2 int, u float32) []Vertex {
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	out := make([]Vertex, 4)
	for i, c := range corners {
		var local [3]float32
		local[dominant] = u
		local[other1] = c[0]
		local[other2] = c[1]

		pos := Vec3{local[0], local[1], local[2]}
		pos = Vec3{pos.X * b.Extents.X, pos.Y * b.Extents.Y, pos.Z * b.Extents.Z}

		tex := texCoordFromLocal(b, local)
		out[i] = Vertex{Pos: pos, Tex: tex}
	}
	return out
}

func texCoordFromLocal(b BrickInput, local [3]float32) Vec3 {
	lerp := func(lo, hi, t float32) float32 { return lo + (hi-lo)*(t+1)/2 }
	return Vec3{
		X: lerp(b.TexMin.X, b.TexMax.X, local[0]),
		Y: lerp(b.TexMin.Y, b.TexMax.Y, local[1]),
		Z: lerp(b.TexMin.Z, b.TexMax.Z, local[2]),
	}
}

func clipAgainstUnitCubeAndPlane(verts []Vertex, world Mat4, clip *Plane) []Vertex {
	faces := unitCubeFacesWorld(world)
	for _, f := range faces {
		verts = clipPolygon(verts, f)
		if len(verts) == 0 {
			return nil
		}
	}
	if clip != nil {
		verts = clipPolygon(verts, *clip)
	}
	return verts
}

// unitCubeFacesWorld returns the six faces of the brick's local [-1,1]^3
// cube as world-space clip planes.
func unitCubeFacesWorld(world Mat4) []Plane {
	localFaces := []Plane{
		{Normal: V3(1, 0, 0), Offset: 1},
		{Normal: V3(-1, 0, 0), Offset: 1},
		{Normal: V3(0, 1, 0), Offset: 1},
		{Normal: V3(0, -1, 0), Offset: 1},
		{Normal: V3(0, 0, 1), Offset: 1},
		{Normal: V3(0, 0, -1), Offset: 1},
	}
	out := make([]Plane, len(localFaces))
	for i, f := range localFaces {
		n := world.TransformDirection(f.Normal).Normalize()
		// A point p on the face satisfies n_local·p_local = offset; in
		// world space the plane passes through world.TransformPoint of any
		// point on the local face, so recompute the offset from the
		// transformed origin-anchored point on that face.
		anchor := world.TransformPoint(f.Normal.Scale(f.Offset))
		out[i] = Plane{Normal: n, Offset: n.Dot(anchor)}
	}
	return out
}

func triangulateFan(verts []Vertex) []Triangle {
	if len(verts) < 3 {
		return nil
	}
	tris := make([]Triangle, 0, len(verts)-2)
	for i := 1; i < len(verts)-1; i++ {
		tris = append(tris, Triangle{verts[0], verts[i], verts[i+1]})
	}
	return tris
}

func dominantAxisObjectSpace(world, view Mat4) int {
	viewForwardWorld := view.RigidInverse().TransformDirection(V3(0, 0, -1))
	objectSpace := world.RigidInverse().TransformDirection(viewForwardWorld)
	return objectSpace.dominantAxis()
}

// frontSign picks the traversal direction along the dominant axis so the
// first emitted slice is the one farthest from the viewer.
func frontSign(dominant int, world, view Mat4) float32 {
	viewForwardWorld := view.RigidInverse().TransformDirection(V3(0, 0, -1))
	objectSpace := world.RigidInverse().TransformDirection(viewForwardWorld)
	if objectSpace.Component(dominant) >= 0 {
		return 1
	}
	return -1
}

func otherAxes(dominant int) (int, int) {
	switch dominant {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

func axisOrder(dominant int) [3]Axis {
	all := [3]Axis{AxisX, AxisY, AxisZ}
	order := [3]Axis{}
	idx := 0
	for _, a := range all {
		if int(a) != dominant {
			order[idx] = a
			idx++
		}
	}
	order[2] = Axis(dominant)
	return order
}
