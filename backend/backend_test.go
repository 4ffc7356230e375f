package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tuvok/geometry"
	"github.com/gogpu/tuvok/gpucore"
)

func TestStubBackendName(t *testing.T) {
	b := NewStubBackend(0)
	assert.Equal(t, "stub", b.Name())
}

func TestStubBackendInit(t *testing.T) {
	b := NewStubBackend(0)
	require.NoError(t, b.Init())
	defer b.Close()
	require.NotNil(t, b.Context())
}

func TestStubBackendContextNilBeforeInit(t *testing.T) {
	b := NewStubBackend(0)
	assert.Nil(t, b.Context())
}

func TestStubContextTextureRoundTrip(t *testing.T) {
	ctx := NewStubContext(0)

	id, err := ctx.AllocTexture3D(gpucore.Texture3DDesc{
		Label: "brick", Width: 4, Height: 4, Depth: 4,
		Format: gpucore.TextureFormatR8Unorm,
	})
	require.NoError(t, err)
	require.NotEqual(t, gpucore.TextureID(gpucore.InvalidID), id)

	data := make([]byte, 4*4*4)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, ctx.UploadSubregion(id, [3]uint32{0, 0, 0}, [3]uint32{4, 4, 4}, data))

	assert.EqualValues(t, 64, ctx.ResidentBytes())

	ctx.FreeTexture(id)
	assert.EqualValues(t, 0, ctx.ResidentBytes())
}

func TestStubContextBudgetExhausted(t *testing.T) {
	ctx := NewStubContext(96)

	_, err := ctx.AllocTexture3D(gpucore.Texture3DDesc{
		Width: 4, Height: 4, Depth: 4, Format: gpucore.TextureFormatR8Unorm,
	})
	require.NoError(t, err)

	_, err = ctx.AllocTexture3D(gpucore.Texture3DDesc{
		Width: 4, Height: 4, Depth: 4, Format: gpucore.TextureFormatR8Unorm,
	})
	require.Error(t, err)
	var exhausted *gpucore.ErrGPUResourceExhausted
	require.ErrorAs(t, err, &exhausted)
}

func TestStubContextCompileShaderEmpty(t *testing.T) {
	ctx := NewStubContext(0)
	_, err := ctx.CompileShader("blank", "")
	require.Error(t, err)
	var compileErr *gpucore.ErrShaderCompileFailure
	require.ErrorAs(t, err, &compileErr)
}

func TestStubContextCompileShaderAndUniform(t *testing.T) {
	ctx := NewStubContext(0)
	_, err := ctx.CompileShader("slice", "fn main() {}")
	require.NoError(t, err)

	require.NoError(t, ctx.SetUniform("isovalue", gpucore.UniformValue{Kind: gpucore.UniformFloat, Float: 0.5}))
	v, ok := ctx.Uniform("isovalue")
	require.True(t, ok)
	assert.Equal(t, float32(0.5), v.Float)
}

func TestStubContextFramebufferUnknown(t *testing.T) {
	ctx := NewStubContext(0)
	err := ctx.BindFramebuffer(gpucore.FramebufferID(999))
	require.Error(t, err)
}

func TestStubContextDrawCount(t *testing.T) {
	ctx := NewStubContext(0)
	require.NoError(t, ctx.Draw(geometry.SliceSet{}))
	require.NoError(t, ctx.Draw(geometry.SliceSet{}))
	assert.Equal(t, 2, ctx.DrawCount())
}

func TestRegistryStubAutoRegistered(t *testing.T) {
	assert.True(t, IsRegistered(BackendStub))
}

func TestRegistryGetStub(t *testing.T) {
	b := Get(BackendStub)
	require.NotNil(t, b)
	assert.Equal(t, "stub", b.Name())
}

func TestRegistryGetUnregistered(t *testing.T) {
	assert.Nil(t, Get("nonexistent"))
}

func TestRegistryAvailableIncludesStub(t *testing.T) {
	assert.Contains(t, Available(), BackendStub)
}

func TestRegistryDefaultReturnsBackend(t *testing.T) {
	// wgpu registers unconditionally too, but its Init requires a real
	// GPU backend; Default just needs the factory to return non-nil,
	// which both do, so assert a backend is reachable at all.
	b := Default()
	require.NotNil(t, b)
}

func TestRegistryMustDefaultDoesNotPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	require.NotNil(t, MustDefault())
}

func TestRegistryInitDefaultStub(t *testing.T) {
	b := Get(BackendStub)
	require.NoError(t, b.Init())
	defer b.Close()
	require.NotNil(t, b.Context())
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-backend", func() RenderBackend { return NewStubBackend(0) })
	require.True(t, IsRegistered("test-backend"))

	Unregister("test-backend")
	assert.False(t, IsRegistered("test-backend"))
}

func TestRegistryIsRegistered(t *testing.T) {
	assert.True(t, IsRegistered(BackendStub))
	assert.False(t, IsRegistered("nonexistent"))
}

func BenchmarkStubAllocTexture3D(b *testing.B) {
	ctx := NewStubContext(0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id, _ := ctx.AllocTexture3D(gpucore.Texture3DDesc{
			Width: 32, Height: 32, Depth: 32, Format: gpucore.TextureFormatR8Unorm,
		})
		ctx.FreeTexture(id)
	}
}
