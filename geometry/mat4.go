package geometry

// Mat4 is a row-major 4x4 transformation matrix, the 3D analogue of the
// teacher's 2x3 affine Matrix type.
type Mat4 struct {
	m [4][4]float32
}

// FromRows builds a Mat4 from four row vectors given in (x, y, z, w) order.
func FromRows(r0, r1, r2, r3 [4]float32) Mat4 {
	return Mat4{m: [4][4]float32{r0, r1, r2, r3}}
}

// Array returns the matrix in row-major order, flattened to 16 floats, the
// layout gpucore.UniformValue.Mat4 and the wire protocol's matrix field
// both expect.
func (m Mat4) Array() [16]float32 {
	var out [16]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m.m[r][c]
		}
	}
	return out
}

// IdentityMat4 returns the identity transformation.
func IdentityMat4() Mat4 {
	var m Mat4
	m.m[0][0], m.m[1][1], m.m[2][2], m.m[3][3] = 1, 1, 1, 1
	return m
}

// TranslationMat4 returns a translation matrix.
func TranslationMat4(t Vec3) Mat4 {
	m := IdentityMat4()
	m.m[0][3], m.m[1][3], m.m[2][3] = t.X, t.Y, t.Z
	return m
}

// Mul returns m * other (other applied first).
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.m[r][k] * other.m[k][c]
			}
			out.m[r][c] = sum
		}
	}
	return out
}

// TransformPoint applies the full affine transform, including translation.
func (m Mat4) TransformPoint(v Vec3) Vec3 {
	return Vec3{
		X: m.m[0][0]*v.X + m.m[0][1]*v.Y + m.m[0][2]*v.Z + m.m[0][3],
		Y: m.m[1][0]*v.X + m.m[1][1]*v.Y + m.m[1][2]*v.Z + m.m[1][3],
		Z: m.m[2][0]*v.X + m.m[2][1]*v.Y + m.m[2][2]*v.Z + m.m[2][3],
	}
}

// TransformDirection applies only the rotation/scale block, ignoring
// translation.
func (m Mat4) TransformDirection(v Vec3) Vec3 {
	return Vec3{
		X: m.m[0][0]*v.X + m.m[0][1]*v.Y + m.m[0][2]*v.Z,
		Y: m.m[1][0]*v.X + m.m[1][1]*v.Y + m.m[1][2]*v.Z,
		Z: m.m[2][0]*v.X + m.m[2][1]*v.Y + m.m[2][2]*v.Z,
	}
}

// transpose3x3 returns the matrix with its upper 3x3 rotation block
// transposed, translation and bottom row left untouched.
func (m Mat4) transpose3x3() Mat4 {
	out := m
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.m[r][c] = m.m[c][r]
		}
	}
	return out
}

// RigidInverse inverts an affine matrix whose upper-left 3x3 block is
// orthonormal (pure rotation, no scale/shear) -- true for the world and
// view matrices this package receives. The inverse of such a matrix is the
// transpose of the rotation block combined with the negated, rotated
// translation; this is far cheaper than a general 4x4 inverse and is the
// standard shortcut for camera/object transforms.
func (m Mat4) RigidInverse() Mat4 {
	inv := m.transpose3x3()
	t := Vec3{m.m[0][3], m.m[1][3], m.m[2][3]}
	negRotated := inv.TransformDirection(t).Neg()
	inv.m[0][3], inv.m[1][3], inv.m[2][3] = negRotated.X, negRotated.Y, negRotated.Z
	return inv
}
