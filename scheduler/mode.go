package scheduler

// RenderMode selects which shader variant and composition path a frame
// uses. RM_INVALID in the render path is a contract violation: RenderFrame
// returns an error rather than silently picking a default.
//
// RMMIPHighQuality supplements the three primary modes with the original
// renderer's rotating-slab maximum-intensity-projection mode (see
// GLSBVR2D::RenderHQMIPInLoop in the reference implementation), which
// composites with a MAX blend equation rather than the under-to-over
// alpha blend the other modes use.
type RenderMode int

const (
	RMInvalid RenderMode = iota
	RM1DTrans
	RM2DTrans
	RMIsosurface
	RMMIPHighQuality
)

func (m RenderMode) String() string {
	switch m {
	case RM1DTrans:
		return "1d-trans"
	case RM2DTrans:
		return "2d-trans"
	case RMIsosurface:
		return "isosurface"
	case RMMIPHighQuality:
		return "mip-hq"
	default:
		return "invalid"
	}
}
