package backend

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gogpu/gpu"
	"github.com/gogpu/gogpu/gpu/types"

	"github.com/gogpu/tuvok/geometry"
	"github.com/gogpu/tuvok/gpucore"
)

func init() {
	Register(BackendWGPU, func() RenderBackend { return NewWGPUBackend() })
}

// WGPUBackend is a GPU-accelerated RenderBackend using gogpu/gogpu's
// gpu.Backend, which in turn wraps either wgpu-native (Rust) or
// gogpu/wgpu (pure Go) depending on which is linked in.
type WGPUBackend struct {
	mu       sync.RWMutex
	gpu      gpu.Backend
	instance types.Instance
	adapter  types.Adapter
	device   types.Device
	queue    types.Queue

	ctx         *WGPUContext
	initialized bool
}

// NewWGPUBackend creates a WGPUBackend. It must be initialized with
// Init() before Context() returns a usable value.
func NewWGPUBackend() *WGPUBackend {
	return &WGPUBackend{}
}

// Name returns "wgpu".
func (b *WGPUBackend) Name() string { return BackendWGPU }

// Init acquires a gpu.Backend, instance, adapter, device, and queue,
// following the same sequence as the teacher's gogpu.Backend.Init.
func (b *WGPUBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	backend := gpu.GetBackend()
	if backend == nil {
		if err := gpu.InitDefaultBackend(); err != nil {
			return fmt.Errorf("backend: no GPU backend available: %w", err)
		}
		backend = gpu.GetBackend()
	}
	if backend == nil {
		return ErrBackendNotAvailable
	}
	b.gpu = backend

	log.Printf("tuvok/backend: using GPU backend %s", backend.Name())

	instance, err := backend.CreateInstance()
	if err != nil {
		return fmt.Errorf("backend: instance creation failed: %w", err)
	}
	b.instance = instance

	adapter, err := backend.RequestAdapter(instance, &types.AdapterOptions{
		PowerPreference: types.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("backend: adapter request failed: %w", err)
	}
	b.adapter = adapter

	device, err := backend.RequestDevice(adapter, &types.DeviceOptions{
		Label: "tuvok-device",
	})
	if err != nil {
		return fmt.Errorf("backend: device creation failed: %w", err)
	}
	b.device = device
	b.queue = backend.GetQueue(device)

	b.ctx = newWGPUContext(backend, device, b.queue)
	b.initialized = true
	return nil
}

// Close releases the backend's GPU resources.
func (b *WGPUBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}
	b.device = 0
	b.adapter = 0
	b.instance = 0
	b.queue = 0
	b.gpu = nil
	b.ctx = nil
	b.initialized = false
}

// Context returns the backend's gpucore.Context, or nil before Init.
func (b *WGPUBackend) Context() gpucore.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// textureMetadata records what a WGPUContext needs to reconstruct an
// image copy region for UploadSubregion.
type textureMetadata struct {
	desc gpucore.Texture3DDesc
}

// WGPUContext implements gpucore.Context over gogpu/gogpu's gpu.Backend.
//
// gpu.Backend exposes concrete texture and buffer operations but, as of
// this snapshot, no shader-compilation or draw-call surface (its own
// compute pass encoder is a documented no-op). CompileShader, SetUniform,
// and Draw therefore track state in memory, the same way the teacher's
// own gogpu.Backend.RenderScene falls back to a CPU path while its GPU
// tessellation stages remain TODO.
type WGPUContext struct {
	mu      sync.RWMutex
	backend gpu.Backend
	device  types.Device
	queue   types.Queue

	nextID atomic.Uint64

	textures    map[gpucore.TextureID]types.Texture
	textureMeta map[gpucore.TextureID]textureMetadata
	shaders     map[gpucore.ShaderModuleID]string

	bound       map[uint32]gpucore.TextureID
	boundFB     gpucore.FramebufferID
	boundShader gpucore.ShaderModuleID

	uniforms map[string]gpucore.UniformValue
	draws    int
}

func newWGPUContext(backend gpu.Backend, device types.Device, queue types.Queue) *WGPUContext {
	return &WGPUContext{
		backend:     backend,
		device:      device,
		queue:       queue,
		textures:    make(map[gpucore.TextureID]types.Texture),
		textureMeta: make(map[gpucore.TextureID]textureMetadata),
		shaders:     make(map[gpucore.ShaderModuleID]string),
		bound:       make(map[uint32]gpucore.TextureID),
		uniforms:    make(map[string]gpucore.UniformValue),
	}
}

func (c *WGPUContext) newID() uint64 {
	return c.nextID.Add(1)
}

// AllocTexture3D creates a 3-D texture via gpu.Backend.CreateTexture,
// following the same descriptor shape as the teacher's CreateTexture
// but with Dimension set to 3D and Depth taken from desc.
func (c *WGPUContext) AllocTexture3D(desc gpucore.Texture3DDesc) (gpucore.TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 || desc.Depth == 0 {
		return gpucore.InvalidID, fmt.Errorf("backend: texture3d dimensions must be positive")
	}

	td := &types.TextureDescriptor{
		Label: desc.Label,
		Size: types.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Depth,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension3D,
		Format:        convertTextureFormat(desc.Format),
		Usage:         convertTextureUsage(desc.Usage),
	}

	texture, err := c.backend.CreateTexture(c.device, td)
	if err != nil {
		return gpucore.InvalidID, &gpucore.ErrGPUResourceExhausted{
			Resource:  "texture3d:" + desc.Label,
			Requested: uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Depth) * texelSize(desc.Format),
		}
	}

	id := gpucore.TextureID(c.newID())

	c.mu.Lock()
	c.textures[id] = texture
	c.textureMeta[id] = textureMetadata{desc: desc}
	c.mu.Unlock()

	return id, nil
}

// UploadSubregion writes a sub-box of voxels into an allocated texture,
// adapting the teacher's WriteTexture (which only ever addresses the
// whole 2-D image) to an arbitrary 3-D offset and size via Origin3D.
func (c *WGPUContext) UploadSubregion(id gpucore.TextureID, offset, size [3]uint32, data []byte) error {
	c.mu.RLock()
	texture, ok := c.textures[id]
	meta, hasMeta := c.textureMeta[id]
	c.mu.RUnlock()

	if !ok || !hasMeta {
		return fmt.Errorf("backend: unknown texture %d", id)
	}

	bpp := texelSize(meta.desc.Format)
	bytesPerRow := uint32(uint64(size[0]) * bpp)

	dst := &types.ImageCopyTexture{
		Texture:  texture,
		MipLevel: 0,
		Origin:   types.Origin3D{X: offset[0], Y: offset[1], Z: offset[2]},
		Aspect:   types.TextureAspectAll,
	}
	layout := &types.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  bytesPerRow,
		RowsPerImage: size[1],
	}
	extent := &types.Extent3D{
		Width:              size[0],
		Height:             size[1],
		DepthOrArrayLayers: size[2],
	}

	c.backend.WriteTexture(c.queue, dst, data, layout, extent)
	return nil
}

// FreeTexture releases a texture via gpu.Backend.ReleaseTexture.
func (c *WGPUContext) FreeTexture(id gpucore.TextureID) {
	c.mu.Lock()
	texture, ok := c.textures[id]
	if ok {
		delete(c.textures, id)
		delete(c.textureMeta, id)
	}
	c.mu.Unlock()

	if ok {
		c.backend.ReleaseTexture(texture)
	}
}

// BindTexture records the sampler-slot binding for the next Draw call.
func (c *WGPUContext) BindTexture(slot uint32, id gpucore.TextureID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound[slot] = id
}

// AllocFramebuffer allocates a render-attachment texture, since
// gpu.Backend has no separate framebuffer object: a framebuffer here is
// just a 2-D texture (Depth=1) created with RenderAttachment usage.
func (c *WGPUContext) AllocFramebuffer(desc gpucore.FramebufferDesc) (gpucore.FramebufferID, error) {
	td := &types.TextureDescriptor{
		Label: desc.Label,
		Size: types.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        convertTextureFormat(desc.ColorFormat),
		Usage:         types.TextureUsageRenderAttachment | types.TextureUsageTextureBinding,
	}

	texture, err := c.backend.CreateTexture(c.device, td)
	if err != nil {
		return gpucore.InvalidID, &gpucore.ErrGPUResourceExhausted{
			Resource:  "framebuffer:" + desc.Label,
			Requested: uint64(desc.Width) * uint64(desc.Height) * texelSize(desc.ColorFormat),
		}
	}

	id := gpucore.FramebufferID(c.newID())
	c.mu.Lock()
	c.textures[gpucore.TextureID(id)] = texture
	c.textureMeta[gpucore.TextureID(id)] = textureMetadata{desc: gpucore.Texture3DDesc{
		Label: desc.Label, Width: desc.Width, Height: desc.Height, Depth: 1, Format: desc.ColorFormat,
	}}
	c.mu.Unlock()

	return id, nil
}

// BindFramebuffer records the active draw target.
func (c *WGPUContext) BindFramebuffer(fb gpucore.FramebufferID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fb != 0 {
		if _, ok := c.textures[gpucore.TextureID(fb)]; !ok {
			return fmt.Errorf("backend: unknown framebuffer %d", fb)
		}
	}
	c.boundFB = fb
	return nil
}

// CompileShader tracks source in memory. gpu.Backend exposes no WGSL
// compilation entry point in this snapshot (only SPIR-V via the
// unimplemented CreateShaderModule), so shader bodies are held here. The
// only check made is that the source is not empty; no syntax is validated.
func (c *WGPUContext) CompileShader(label, source string) (gpucore.ShaderModuleID, error) {
	if strings.TrimSpace(source) == "" {
		return gpucore.InvalidID, &gpucore.ErrShaderCompileFailure{Shader: label, Log: "empty shader source"}
	}

	id := gpucore.ShaderModuleID(c.newID())
	c.mu.Lock()
	c.shaders[id] = source
	c.mu.Unlock()
	return id, nil
}

// BindShader validates id is known and records it as the active shader.
func (c *WGPUContext) BindShader(id gpucore.ShaderModuleID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.shaders[id]; !ok {
		return fmt.Errorf("backend: unknown shader module %d", id)
	}
	c.boundShader = id
	return nil
}

// SetUniform records a uniform value for the next Draw call.
func (c *WGPUContext) SetUniform(name string, value gpucore.UniformValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uniforms[name] = value
	return nil
}

// Draw has no GPU-side rasterization path yet (gpu.Backend does not
// expose render passes), so it only records the call count; it submits
// nothing to the GPU queue.
func (c *WGPUContext) Draw(slices geometry.SliceSet) error {
	c.mu.Lock()
	c.draws++
	c.mu.Unlock()
	return nil
}

func convertTextureFormat(f gpucore.TextureFormat) types.TextureFormat {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return types.TextureFormatRGBA8Unorm
	case gpucore.TextureFormatBGRA8Unorm:
		return types.TextureFormatBGRA8Unorm
	default:
		return types.TextureFormatRGBA8Unorm
	}
}

func convertTextureUsage(u gpucore.TextureUsage) types.TextureUsage {
	var out types.TextureUsage
	if u&gpucore.TextureUsageCopySrc != 0 {
		out |= types.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageCopyDst != 0 {
		out |= types.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageTextureBinding != 0 {
		out |= types.TextureUsageTextureBinding
	}
	if u&gpucore.TextureUsageStorageBinding != 0 {
		out |= types.TextureUsageStorageBinding
	}
	if u&gpucore.TextureUsageRenderAttachment != 0 {
		out |= types.TextureUsageRenderAttachment
	}
	if out == 0 {
		out = types.TextureUsageCopyDst | types.TextureUsageTextureBinding
	}
	return out
}

var _ gpucore.Context = (*WGPUContext)(nil)
