// Package backend provides a pluggable GPU backend abstraction for the
// volume rendering pipeline.
//
// The backend package lets the scheduler run against a real GPU or an
// in-memory stub without depending on which is in use; both implement
// gpucore.Context.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The stub backend is automatically registered on import:
//
//	import _ "github.com/gogpu/tuvok/backend"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get("stub")
//
// # Usage
//
//	b := backend.Default()
//	if err := b.Init(); err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	ctx := b.Context()
//	tex, err := ctx.AllocTexture3D(gpucore.Texture3DDesc{
//		Width: 32, Height: 32, Depth: 32,
//		Format: gpucore.TextureFormatR8Unorm,
//	})
//
// # Available Backends
//
//   - "wgpu": GPU-accelerated via github.com/gogpu/gogpu's gpu.Backend
//   - "stub": in-memory fake, always available, used in tests and by
//     tuvokctl when no GPU is present
package backend
