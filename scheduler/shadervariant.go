package scheduler

import (
	"fmt"
	"sync"

	"github.com/gogpu/tuvok"
	"github.com/gogpu/tuvok/gpucore"
)

// variantKey selects a compiled shader among the combinations the renderer
// can hit: render mode, whether Phong shading from the gradient is enabled,
// and the dataset's component count (always 1 today, carried for when
// multi-component elements are supported).
type variantKey struct {
	mode       RenderMode
	lighting   bool
	components int
}

// variantCache compiles and caches one shader module per variantKey,
// mirroring the teacher's descriptor-hash pipeline cache (see
// backend/native's PipelineCacheCore) but keyed directly on a comparable
// struct rather than an FNV hash, since the key space here is small and
// fixed rather than open-ended pipeline descriptors.
type variantCache struct {
	mu      sync.RWMutex
	modules map[variantKey]gpucore.ShaderModuleID
}

func newVariantCache() *variantCache {
	return &variantCache{modules: make(map[variantKey]gpucore.ShaderModuleID)}
}

// get returns the compiled shader for key, compiling and caching it on
// first use.
func (c *variantCache) get(ctx gpucore.Context, key variantKey) (gpucore.ShaderModuleID, error) {
	c.mu.RLock()
	if id, ok := c.modules[key]; ok {
		c.mu.RUnlock()
		return id, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.modules[key]; ok {
		return id, nil
	}

	label := fmt.Sprintf("volume-%s-lit=%t-c=%d", key.mode, key.lighting, key.components)
	tuvok.Logger().Debug("compiling shader variant", "label", label)
	id, err := ctx.CompileShader(label, variantSource(key))
	if err != nil {
		return gpucore.InvalidID, err
	}
	c.modules[key] = id
	return id, nil
}

// variantSource generates the WGSL fragment body for key. The vertex stage
// and sampler/uniform bindings are shared across every variant; only the
// accumulation step in the fragment body changes with mode and lighting,
// matching the #ifdef-selected code paths the original per-mode GLSL
// fragment shaders used.
func variantSource(key variantKey) string {
	common := `
struct Uniforms {
  world: mat4x4<f32>,
  view: mat4x4<f32>,
  step_scale: f32,
  isovalue: f32,
};
@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var volume: texture_3d<f32>;
@group(0) @binding(2) var volume_sampler: sampler;
@group(0) @binding(3) var transfer_fn: texture_2d<f32>;

struct VSOut {
  @builtin(position) clip_pos: vec4<f32>,
  @location(0) tex_coord: vec3<f32>,
};

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) tex: vec3<f32>) -> VSOut {
  var out: VSOut;
  out.clip_pos = u.view * u.world * vec4<f32>(pos, 1.0);
  out.tex_coord = tex;
  return out;
}
`
	switch key.mode {
	case RM1DTrans:
		return common + fragment1DTrans(key.lighting)
	case RM2DTrans:
		return common + fragment2DTrans(key.lighting)
	case RMIsosurface:
		return common + fragmentIsosurface(key.lighting)
	case RMMIPHighQuality:
		return common + fragmentMIP()
	default:
		return common
	}
}

func fragmentMIP() string {
	return `
@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
  let density = textureSample(volume, volume_sampler, in.tex_coord).r;
  return vec4<f32>(density, density, density, density);
}
`
}

const gradientHelper = `
fn sampleGradient(tex_coord: vec3<f32>) -> vec3<f32> {
  let e = vec3<f32>(1.0, 1.0, 1.0) / vec3<f32>(textureDimensions(volume));
  let dx = textureSample(volume, volume_sampler, tex_coord + vec3<f32>(e.x, 0.0, 0.0)).r
         - textureSample(volume, volume_sampler, tex_coord - vec3<f32>(e.x, 0.0, 0.0)).r;
  let dy = textureSample(volume, volume_sampler, tex_coord + vec3<f32>(0.0, e.y, 0.0)).r
         - textureSample(volume, volume_sampler, tex_coord - vec3<f32>(0.0, e.y, 0.0)).r;
  let dz = textureSample(volume, volume_sampler, tex_coord + vec3<f32>(0.0, 0.0, e.z)).r
         - textureSample(volume, volume_sampler, tex_coord - vec3<f32>(0.0, 0.0, e.z)).r;
  return vec3<f32>(dx, dy, dz);
}
`

// lambertTerm shades color.rgb by the gradient-derived surface normal
// against a fixed headlight, the cheapest lighting model the fixed-function
// slice renderer this is grounded on supported.
const lambertTerm = `
  let normal = normalize(-sampleGradient(in.tex_coord));
  let light_dir = normalize(vec3<f32>(0.4, 0.6, 0.7));
  let diffuse = max(dot(normal, light_dir), 0.0);
  color = vec4<f32>(color.rgb * (0.3 + 0.7 * diffuse), color.a);
`

func fragment1DTrans(lighting bool) string {
	shade := ""
	if lighting {
		shade = lambertTerm
	}
	return gradientHelper + `
@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
  let density = textureSample(volume, volume_sampler, in.tex_coord).r;
  var color = textureSample(transfer_fn, volume_sampler, vec2<f32>(density, 0.5));
` + shade + `
  color.a = color.a * u.step_scale;
  return color;
}
`
}

func fragment2DTrans(lighting bool) string {
	shade := ""
	if lighting {
		shade = lambertTerm
	}
	return gradientHelper + `
@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
  let density = textureSample(volume, volume_sampler, in.tex_coord).r;
  let gradient_mag = length(sampleGradient(in.tex_coord)) * 0.5;
  var color = textureSample(transfer_fn, volume_sampler, vec2<f32>(density, gradient_mag));
` + shade + `
  color.a = color.a * u.step_scale;
  return color;
}
`
}

func fragmentIsosurface(lighting bool) string {
	shade := ""
	if lighting {
		shade = lambertTerm
	}
	return gradientHelper + `
@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
  let density = textureSample(volume, volume_sampler, in.tex_coord).r;
  if (density < u.isovalue) {
    discard;
  }
  var color = vec4<f32>(1.0, 1.0, 1.0, 1.0);
` + shade + `
  return color;
}
`
}
