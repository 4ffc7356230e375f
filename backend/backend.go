package backend

import (
	"errors"

	"github.com/gogpu/tuvok/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// RenderBackend is the interface for GPU backends the scheduler can run
// against. It abstracts device acquisition, letting the library support
// a real wgpu device or an in-memory stub without branching elsewhere.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type RenderBackend interface {
	// Name returns the backend identifier (e.g., "wgpu", "stub").
	Name() string

	// Init acquires the GPU device (or stub state) backing this backend.
	// This must be called before Context().
	Init() error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()

	// Context returns the gpucore.Context this backend exposes for
	// texture/shader/framebuffer operations and slice drawing.
	// Returns nil before Init succeeds.
	Context() gpucore.Context
}
