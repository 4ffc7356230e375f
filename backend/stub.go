package backend

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/tuvok/geometry"
	"github.com/gogpu/tuvok/gpucore"
)

func init() {
	Register(BackendStub, func() RenderBackend { return NewStubBackend(0) })
}

// StubBackend is an in-memory RenderBackend that never touches a GPU. It
// is always registered and always available, so the scheduler and cache
// tests never need a real device.
type StubBackend struct {
	mu          sync.Mutex
	budget      uint64
	ctx         *StubContext
	initialized bool
}

// NewStubBackend creates a stub backend whose StubContext enforces
// byteBudget as a texture-memory budget (0 means unlimited).
func NewStubBackend(byteBudget uint64) *StubBackend {
	return &StubBackend{budget: byteBudget}
}

// Name returns "stub".
func (b *StubBackend) Name() string { return BackendStub }

// Init creates the backing StubContext.
func (b *StubBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	b.ctx = NewStubContext(b.budget)
	b.initialized = true
	return nil
}

// Close discards the backing StubContext.
func (b *StubBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = nil
	b.initialized = false
}

// Context returns the StubContext, or nil before Init.
func (b *StubBackend) Context() gpucore.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil
	}
	return b.ctx
}

// stubTexture holds a fake texture's descriptor and backing bytes, sized
// to match what a real upload would occupy.
type stubTexture struct {
	desc gpucore.Texture3DDesc
	data []byte
}

// StubContext is a gpucore.Context backed entirely by Go maps. It tracks
// texture bytes against an optional budget so tests can exercise
// ErrGPUResourceExhausted without a GPU.
type StubContext struct {
	mu     sync.Mutex
	nextID uint64
	budget uint64
	used   uint64

	textures     map[gpucore.TextureID]stubTexture
	framebuffers map[gpucore.FramebufferID]gpucore.FramebufferDesc
	shaders      map[gpucore.ShaderModuleID]string

	bound       map[uint32]gpucore.TextureID
	boundFB     gpucore.FramebufferID
	boundShader gpucore.ShaderModuleID

	uniforms map[string]gpucore.UniformValue
	draws    int
}

// NewStubContext creates a StubContext. byteBudget of 0 means unlimited.
func NewStubContext(byteBudget uint64) *StubContext {
	return &StubContext{
		budget:       byteBudget,
		textures:     make(map[gpucore.TextureID]stubTexture),
		framebuffers: make(map[gpucore.FramebufferID]gpucore.FramebufferDesc),
		shaders:      make(map[gpucore.ShaderModuleID]string),
		bound:        make(map[uint32]gpucore.TextureID),
		uniforms:     make(map[string]gpucore.UniformValue),
	}
}

func (c *StubContext) newID() uint64 {
	c.nextID++
	return c.nextID
}

// texelSize mirrors the teacher's getBytesPerPixel table, extended to
// the 3-D element formats bricks actually use.
func texelSize(f gpucore.TextureFormat) uint64 {
	switch f {
	case gpucore.TextureFormatR8Unorm:
		return 1
	case gpucore.TextureFormatR16Uint:
		return 2
	case gpucore.TextureFormatR32Float, gpucore.TextureFormatR32Uint:
		return 4
	case gpucore.TextureFormatRG32Float:
		return 8
	case gpucore.TextureFormatRGBA8Unorm, gpucore.TextureFormatRGBA8UnormSRGB,
		gpucore.TextureFormatBGRA8Unorm, gpucore.TextureFormatBGRA8UnormSRGB:
		return 4
	case gpucore.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// AllocTexture3D allocates a fake 3-D texture, failing with
// ErrGPUResourceExhausted once the configured budget would be exceeded.
func (c *StubContext) AllocTexture3D(desc gpucore.Texture3DDesc) (gpucore.TextureID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Depth) * texelSize(desc.Format)
	if c.budget > 0 && c.used+size > c.budget {
		return gpucore.InvalidID, &gpucore.ErrGPUResourceExhausted{
			Resource:  "texture3d:" + desc.Label,
			Requested: size,
		}
	}

	id := gpucore.TextureID(c.newID())
	c.textures[id] = stubTexture{desc: desc, data: make([]byte, size)}
	c.used += size
	return id, nil
}

// UploadSubregion copies data into the tracked texture's backing buffer.
func (c *StubContext) UploadSubregion(id gpucore.TextureID, offset, size [3]uint32, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tex, ok := c.textures[id]
	if !ok {
		return fmt.Errorf("backend: unknown texture %d", id)
	}

	rowBytes := uint64(size[0]) * texelSize(tex.desc.Format)
	srcOff := 0
	for z := uint32(0); z < size[2]; z++ {
		for y := uint32(0); y < size[1]; y++ {
			dstOff := voxelByteOffset(tex.desc, offset[0], offset[1]+y, offset[2]+z, texelSize(tex.desc.Format))
			if dstOff+rowBytes > uint64(len(tex.data)) || uint64(srcOff)+rowBytes > uint64(len(data)) {
				return fmt.Errorf("backend: upload subregion out of bounds for texture %d", id)
			}
			copy(tex.data[dstOff:dstOff+rowBytes], data[srcOff:uint64(srcOff)+rowBytes])
			srcOff += int(rowBytes)
		}
	}
	return nil
}

func voxelByteOffset(desc gpucore.Texture3DDesc, x, y, z uint32, texel uint64) uint64 {
	return (uint64(z)*uint64(desc.Height)*uint64(desc.Width) + uint64(y)*uint64(desc.Width) + uint64(x)) * texel
}

// FreeTexture releases a tracked texture and its budget accounting.
func (c *StubContext) FreeTexture(id gpucore.TextureID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tex, ok := c.textures[id]
	if !ok {
		return
	}
	c.used -= uint64(len(tex.data))
	delete(c.textures, id)
}

// BindTexture records the binding; there is nothing to bind to.
func (c *StubContext) BindTexture(slot uint32, id gpucore.TextureID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound[slot] = id
}

// AllocFramebuffer records a fake framebuffer.
func (c *StubContext) AllocFramebuffer(desc gpucore.FramebufferDesc) (gpucore.FramebufferID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := gpucore.FramebufferID(c.newID())
	c.framebuffers[id] = desc
	return id, nil
}

// BindFramebuffer validates fb is known (or the zero ID) and records it.
func (c *StubContext) BindFramebuffer(fb gpucore.FramebufferID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fb != 0 {
		if _, ok := c.framebuffers[fb]; !ok {
			return fmt.Errorf("backend: unknown framebuffer %d", fb)
		}
	}
	c.boundFB = fb
	return nil
}

// CompileShader "compiles" source by checking it is non-empty.
func (c *StubContext) CompileShader(label, source string) (gpucore.ShaderModuleID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(source) == "" {
		return gpucore.InvalidID, &gpucore.ErrShaderCompileFailure{Shader: label, Log: "empty shader source"}
	}
	id := gpucore.ShaderModuleID(c.newID())
	c.shaders[id] = source
	return id, nil
}

// BindShader validates id is known and records it as the active shader.
func (c *StubContext) BindShader(id gpucore.ShaderModuleID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.shaders[id]; !ok {
		return fmt.Errorf("backend: unknown shader module %d", id)
	}
	c.boundShader = id
	return nil
}

// SetUniform records the uniform value under name.
func (c *StubContext) SetUniform(name string, value gpucore.UniformValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uniforms[name] = value
	return nil
}

// Draw records that a draw happened; it does not rasterize anything.
func (c *StubContext) Draw(slices geometry.SliceSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draws++
	return nil
}

// DrawCount returns how many Draw calls have been recorded.
func (c *StubContext) DrawCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draws
}

// ResidentBytes returns texture bytes currently accounted against budget.
func (c *StubContext) ResidentBytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Uniform returns the last value set for name, for test assertions.
func (c *StubContext) Uniform(name string) (gpucore.UniformValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.uniforms[name]
	return v, ok
}

var _ gpucore.Context = (*StubContext)(nil)
