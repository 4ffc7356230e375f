package scheduler

// blendState describes the fixed-function compositing state a render mode
// needs before its brick draws, matching the per-mode GL state the original
// slice-based renderer set up (GLSBVR2D.cpp): 1-D/2-D transfer function
// rendering composites under-to-over with blending enabled and depth
// testing off; isosurface rendering is a single opaque draw with depth
// testing on and blending off.
// blendEquation discriminates the two blend equations the renderer's modes
// use; under-to-over alpha blending for the transfer-function modes, MAX
// for the high-quality MIP mode.
type blendEquation int

const (
	blendEquationAdd blendEquation = iota
	blendEquationMax
)

type blendState struct {
	blendEnabled bool
	// srcIsOneMinusDstAlpha selects glBlendFunc(GL_ONE_MINUS_DST_ALPHA,
	// GL_ONE); false selects glBlendFunc(GL_ONE, GL_ONE), the additive
	// pair the MIP mode pairs with its MAX equation.
	srcIsOneMinusDstAlpha bool
	equation              blendEquation
	depthTest             bool
}

// blendStateForMode returns the compositing state for mode. RMInvalid has
// no defined state; callers must reject it before reaching here.
func blendStateForMode(mode RenderMode) blendState {
	switch mode {
	case RM1DTrans, RM2DTrans:
		return blendState{blendEnabled: true, srcIsOneMinusDstAlpha: true, equation: blendEquationAdd, depthTest: false}
	case RMIsosurface:
		return blendState{blendEnabled: false, depthTest: true}
	case RMMIPHighQuality:
		return blendState{blendEnabled: true, srcIsOneMinusDstAlpha: false, equation: blendEquationMax, depthTest: false}
	default:
		return blendState{}
	}
}
