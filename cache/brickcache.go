// Package cache manages GPU-resident brick textures under a byte budget.
//
// BrickCache maps brick keys to gpucore.TextureID, uploading on first
// request and evicting by a (frame, intra-frame) tuple when the byte
// budget is exceeded, with FIFO tie-break among equally-stale entries.
package cache

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/tuvok"
	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/gpucore"
)

// ErrOutOfBudget is returned by Acquire when the requested brick cannot
// be made resident without evicting a pinned (current-frame) entry.
// Callers recover by retrying at a coarser LOD.
var ErrOutOfBudget = fmt.Errorf("cache: out of GPU texture budget")

// entry is one resident brick. Per-frame touch order is tracked by
// touchList, not stored here: since frame and intra-frame counters are
// both monotonically increasing and every Acquire moves the key to the
// front of the list, list order already equals (frame, intra) order.
type entry struct {
	tex    gpucore.TextureID
	bytes  uint64
	pinned bool
}

// BrickCache keeps a budget-limited set of bricks resident as GPU
// textures. It is not safe for concurrent use from multiple goroutines
// beyond the acquire/release calls documented per-method; the scheduler
// drives it from the single render thread.
type BrickCache struct {
	mu sync.Mutex

	ctx      gpucore.Context
	capacity uint64
	used     uint64

	resident map[brick.Key]*entry
	order    *touchList[brick.Key]

	frame        uint64
	intraInFrame uint64
}

// NewBrickCache creates a cache that uploads textures through ctx and
// never lets resident texture bytes exceed capacityBytes. A capacityBytes
// of 0 means no limit.
func NewBrickCache(ctx gpucore.Context, capacityBytes uint64) *BrickCache {
	tuvok.Logger().Info("gpu brick cache created", "capacity", humanize.Bytes(capacityBytes))
	return &BrickCache{
		ctx:      ctx,
		capacity: capacityBytes,
		resident: make(map[brick.Key]*entry),
		order:    newTouchList[brick.Key](),
	}
}

// BeginFrame advances the frame counter and resets the per-frame pin set.
// Must be called once before any Acquire calls for a new frame.
func (c *BrickCache) BeginFrame(frame uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame
	c.intraInFrame = 0
	for _, e := range c.resident {
		e.pinned = false
	}
}

// Acquire returns the resident texture for key, uploading it from desc
// and data if not already resident. Bricks requested within the same
// frame are pinned and never evicted to satisfy a later Acquire in that
// same frame; ErrOutOfBudget is returned instead, and the caller should
// retry with a coarser LOD's key/desc/data.
func (c *BrickCache) Acquire(key brick.Key, desc gpucore.Texture3DDesc, data []byte) (gpucore.TextureID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.resident[key]; ok {
		e.pinned = true
		c.intraInFrame++
		c.order.MoveToFront(key)
		return e.tex, nil
	}

	size := textureBytes(desc)
	if err := c.makeRoom(size); err != nil {
		return gpucore.InvalidID, err
	}

	tex, err := c.ctx.AllocTexture3D(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := c.ctx.UploadSubregion(tex, [3]uint32{0, 0, 0}, [3]uint32{desc.Width, desc.Height, desc.Depth}, data); err != nil {
		c.ctx.FreeTexture(tex)
		return gpucore.InvalidID, err
	}

	c.resident[key] = &entry{
		tex:    tex,
		bytes:  size,
		pinned: true,
	}
	c.intraInFrame++
	c.used += size
	c.order.PushFront(key)

	return tex, nil
}

// makeRoom evicts unpinned residents, oldest (Frame, Intra) first, until
// there is room for an additional needed bytes. Returns ErrOutOfBudget if
// even evicting every unpinned entry would not make room.
func (c *BrickCache) makeRoom(needed uint64) error {
	if c.capacity == 0 || c.used+needed <= c.capacity {
		return nil
	}

	for c.used+needed > c.capacity {
		victimKey, ok := c.oldestUnpinned()
		if !ok {
			return ErrOutOfBudget
		}
		c.evict(victimKey)
	}
	return nil
}

// oldestUnpinned returns the least-recently-touched key among residents
// that are not pinned to the current frame. List order tracks (frame,
// intra) order directly since every Acquire pushes/moves its key to the
// front with monotonically increasing counters.
func (c *BrickCache) oldestUnpinned() (brick.Key, bool) {
	return c.order.OldestUnpinned(func(k brick.Key) bool {
		return c.resident[k].pinned
	})
}

func (c *BrickCache) evict(key brick.Key) {
	e, ok := c.resident[key]
	if !ok {
		return
	}
	c.ctx.FreeTexture(e.tex)
	c.used -= e.bytes
	delete(c.resident, key)
	c.order.Remove(key)
	tuvok.Logger().Debug("evicted brick texture", "key", key, "freed", humanize.Bytes(e.bytes), "resident", humanize.Bytes(c.used))
}

// Release unpins key at once, so a later Acquire in the same frame may
// evict it; Release itself does not evict. Used when a brick fell out of the working set
// mid-frame (e.g. TF-support culled after acquisition).
func (c *BrickCache) Release(key brick.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.resident[key]; ok {
		e.pinned = false
	}
}

// ReleaseAll frees every resident texture and resets the cache to empty.
func (c *BrickCache) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.resident {
		c.ctx.FreeTexture(e.tex)
	}
	c.resident = make(map[brick.Key]*entry)
	c.order.Clear()
	c.used = 0
}

// SetCapacity changes the byte budget; it does not evict retroactively,
// so ResidentBytes may briefly exceed the new capacity until the next
// Acquire triggers eviction.
func (c *BrickCache) SetCapacity(bytes uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = bytes
}

// ResidentBytes returns the sum of resident texture sizes.
func (c *BrickCache) ResidentBytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// ResidentCount returns how many bricks are currently resident.
func (c *BrickCache) ResidentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resident)
}

// IsResident reports whether key currently has a GPU texture.
func (c *BrickCache) IsResident(key brick.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.resident[key]
	return ok
}

func textureBytes(desc gpucore.Texture3DDesc) uint64 {
	return uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Depth) * texelSize(desc.Format)
}

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
