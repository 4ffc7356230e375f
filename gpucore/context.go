package gpucore

import (
	"fmt"

	"github.com/gogpu/tuvok/geometry"
)

// ErrShaderCompileFailure reports a non-recoverable shader compilation
// failure: the caller should surface this to the operator rather than
// retry, since recompiling the same source will fail again.
type ErrShaderCompileFailure struct {
	Shader string
	Log    string
}

func (e *ErrShaderCompileFailure) Error() string {
	return fmt.Sprintf("gpucore: shader %q failed to compile: %s", e.Shader, e.Log)
}

// ErrGPUResourceExhausted is returned when a Context cannot satisfy an
// allocation because the backend has run out of device memory or hit an
// implementation limit. Callers (notably the brick cache) recover by
// evicting resident textures or retrying at a coarser LOD; it is never
// returned for a malformed request.
type ErrGPUResourceExhausted struct {
	Resource string
	Requested uint64
}

func (e *ErrGPUResourceExhausted) Error() string {
	return fmt.Sprintf("gpucore: %s exhausted (requested %d bytes)", e.Resource, e.Requested)
}

// Context is the seam between the domain packages and a concrete GPU
// backend. A backend's Context tracks the mapping from the opaque IDs
// returned here to its own native handles; callers never see those
// handles directly.
//
// Context is not safe for concurrent use; the scheduler calls it only
// from the single render thread.
type Context interface {
	// AllocTexture3D allocates a 3-D texture sized per desc and returns
	// its opaque ID. Returns ErrGPUResourceExhausted if device memory or
	// an implementation limit is exceeded.
	AllocTexture3D(desc Texture3DDesc) (TextureID, error)

	// UploadSubregion writes data into the box [offset, offset+size) of
	// an already-allocated 3-D texture. data is tightly packed in the
	// texture's native element type, row-major with Z the slowest axis.
	UploadSubregion(id TextureID, offset, size [3]uint32, data []byte) error

	// FreeTexture releases a texture previously returned by
	// AllocTexture3D. Freeing an unknown or already-freed ID is a no-op.
	FreeTexture(id TextureID)

	// BindTexture binds texture id to the numbered sampler slot for the
	// next Draw call.
	BindTexture(slot uint32, id TextureID)

	// AllocFramebuffer allocates an offscreen render target (the
	// compositing buffer or an isosurface hit/normal buffer).
	AllocFramebuffer(desc FramebufferDesc) (FramebufferID, error)

	// BindFramebuffer makes fb the active draw target. Passing the zero
	// FramebufferID binds the default (on-screen or caller-owned) target.
	BindFramebuffer(fb FramebufferID) error

	// CompileShader compiles source under label and returns its module
	// ID. Returns *ErrShaderCompileFailure on a compile error; callers
	// must not retry the same source.
	CompileShader(label, source string) (ShaderModuleID, error)

	// BindShader makes id the active shader program for the next Draw
	// call.
	BindShader(id ShaderModuleID) error

	// SetUniform sets a named uniform for the active shader, to be
	// consumed by the next Draw call.
	SetUniform(name string, value UniformValue) error

	// Draw rasterizes a slice-based volume renderer's triangle set
	// against the currently bound framebuffer, textures, and uniforms.
	Draw(slices geometry.SliceSet) error
}
