// Package gpucore provides the shared GPU resource model for the volume
// rendering pipeline.
//
// This package defines the [Context] interface, which abstracts over
// different GPU backend implementations so the scheduler and brick cache
// can allocate 3-D brick textures, compile slice shaders, and draw
// without depending on a specific GPU API:
//   - the "wgpu" backend, over gogpu/gogpu's gpu.Backend
//   - an in-memory stub, for tests that never touch a GPU
//
// # Architecture
//
// A Context is the single seam between the domain packages (brick,
// dataset, cache, scheduler) and a concrete GPU backend:
//
//	           +------------------+
//	           |  cache/scheduler |
//	           +--------+---------+
//	                    |
//	           +--------v---------+
//	           |  gpucore.Context |
//	           +--------+---------+
//	                    |
//	     +--------------+--------------+
//	     |                             |
//	+----v-----+                 +-----v----+
//	| wgpu ctx |                 | stub ctx |
//	+----------+                 +----------+
//
// # Resource Management
//
// GPU resources are tracked via opaque IDs ([TextureID], [ShaderModuleID],
// [FramebufferID], etc.) rather than raw backend handles, so a TextureID
// can sit in the brick cache across frames without that package importing
// any backend-specific type. Each Context implementation is responsible
// for mapping IDs to real resources and for freeing them on FreeTexture.
//
// # Volume-specific resources
//
// On top of the 2-D buffer/bind-group descriptors shared with compute
// work, this package adds [Texture3DDesc] (a resident brick's GPU
// texture), [FramebufferDesc] (the compositing and isosurface hit
// buffers) and [UniformValue] (the per-draw shader uniforms the
// scheduler sets between brick draws: step scale, isovalue, view/world
// matrices, transfer function sampler parameters).
package gpucore
