package facade

import (
	"fmt"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/remote"
)

// RemoteProvider satisfies Provider by forwarding brick reads to a remote
// brick server over remote.Client, the C6 counterpart to InProcessProvider.
// The OPEN response is cached in full at construction time: every method
// except BrickPayload answers from that cache, and BrickPayload alone
// round-trips (via BRICK) since voxel payloads are too large to prefetch
// for every brick up front.
type RemoteProvider struct {
	client *remote.Client
	path   string

	open    remote.OpenResponse
	byKey   map[brick.Key]remote.BrickDescriptor
	elemTyp remote.ElementType
}

// NewRemoteProvider opens path on client and caches its brick layout and
// per-brick metadata for the lifetime of the returned Provider. Call Close
// (via the wrapped Client) when done; RemoteProvider itself holds no
// connection-level state beyond what it read at open time.
func NewRemoteProvider(client *remote.Client, path string) (*RemoteProvider, error) {
	resp, err := client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("facade: opening %q on remote server: %w", path, err)
	}
	elemTyp, err := remote.ElementTypeForKind(brick.Kind(resp.ElementKind))
	if err != nil {
		return nil, err
	}
	byKey := make(map[brick.Key]remote.BrickDescriptor, len(resp.Bricks))
	for _, b := range resp.Bricks {
		byKey[brick.NewKey(0, b.LOD, uint64(b.Index))] = b
	}
	return &RemoteProvider{client: client, path: path, open: resp, byKey: byKey, elemTyp: elemTyp}, nil
}

func (p *RemoteProvider) BrickCount() int { return len(p.open.Bricks) }
func (p *RemoteProvider) LODCount() int   { return len(p.open.BrickLayout) }

func (p *RemoteProvider) BrickLayout(lod uint32) ([3]uint32, error) {
	if int(lod) >= len(p.open.BrickLayout) {
		return [3]uint32{}, fmt.Errorf("facade: lod %d out of range (have %d)", lod, len(p.open.BrickLayout))
	}
	return p.open.BrickLayout[lod], nil
}

func (p *RemoteProvider) BrickMetadata(key brick.Key) (brick.Metadata, error) {
	b, ok := p.byKey[key]
	if !ok {
		return brick.Metadata{}, brick.ErrNotFound
	}
	return brick.Metadata{
		Center:  b.Center,
		Extents: b.Extents,
		NVoxels: b.NVoxels,
		GridPos: gridPosFromLinear(p.open.BrickLayout[b.LOD], uint64(b.Index)),
		TexMin:  b.TexMin,
		TexMax:  b.TexMax,
	}, nil
}

// gridPosFromLinear inverts brick.Key.Linear's row-major linearization
// into the per-LOD brick grid (see brick/key.go), since the wire protocol sends
// bricks by (lod, linear index) rather than by (x, y, z) grid position.
func gridPosFromLinear(layout [3]uint32, linear uint64) [3]uint32 {
	nx, ny := uint64(layout[0]), uint64(layout[1])
	x := linear % nx
	y := (linear / nx) % ny
	z := linear / (nx * ny)
	return [3]uint32{uint32(x), uint32(y), uint32(z)}
}

func (p *RemoteProvider) BrickPayload(key brick.Key) (brick.Variant, error) {
	b, ok := p.byKey[key]
	if !ok {
		return brick.Variant{}, brick.ErrNotFound
	}
	frame, err := p.client.Brick(p.elemTyp, b.LOD, b.Index)
	if err != nil {
		return brick.Variant{}, err
	}
	return remote.DecodeBrickPayload(p.elemTyp, frame.Payload)
}

func (p *RemoteProvider) EffectiveBrickSize(key brick.Key) ([3]uint32, error) {
	b, ok := p.byKey[key]
	if !ok {
		return [3]uint32{}, brick.ErrNotFound
	}
	return b.EffectiveSize, nil
}

func (p *RemoteProvider) DomainSize() [3]uint32   { return p.open.DomainSize }
func (p *RemoteProvider) Scale() [3]float32       { return p.open.Scale }
func (p *RemoteProvider) Range() (float64, float64) {
	return p.open.RangeLo, p.open.RangeHi
}
func (p *RemoteProvider) MaxGradientMagnitude() float32 { return p.open.MaxGradientMagnitude }

func (p *RemoteProvider) ElementKind() (brick.Kind, bool) {
	if len(p.open.Bricks) == 0 {
		return 0, false
	}
	return brick.Kind(p.open.ElementKind), true
}

var _ Provider = (*RemoteProvider)(nil)
