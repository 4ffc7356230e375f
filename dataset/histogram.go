package dataset

import "github.com/gogpu/tuvok/brick"

const histogramBins = 1024

// Histogram returns the 1024-bin histogram of voxel values across every
// resident brick, computing and caching it on first use. Concurrent callers
// during the first computation collapse onto a single scan via singleflight
// rather than each recomputing independently. The cache is invalidated by
// any write operation (AddBrick, UpdateData, RemoveBrick, Clear, SetRange)
// unless an explicit histogram was supplied afterward via SetHistogram.
func (d *Dataset) Histogram() []uint64 {
	d.mu.RLock()
	if d.histogramSet {
		h := d.histogram
		d.mu.RUnlock()
		return h
	}
	d.mu.RUnlock()

	v, _, _ := d.histogramSF.Do("histogram", func() (any, error) {
		d.mu.RLock()
		if d.histogramSet {
			h := d.histogram
			d.mu.RUnlock()
			return h, nil
		}
		d.mu.RUnlock()

		h := d.computeHistogram()

		d.mu.Lock()
		if !d.histogramSet {
			d.histogram = h
			d.histogramSet = true
		}
		out := d.histogram
		d.mu.Unlock()
		return out, nil
	})
	return v.([]uint64)
}

// SetHistogram installs an explicit histogram, overriding any lazily
// computed one. It remains in effect until the next write operation.
func (d *Dataset) SetHistogram(bins []uint64) {
	h := make([]uint64, len(bins))
	copy(h, bins)
	d.mu.Lock()
	d.histogram = h
	d.histogramSet = true
	d.mu.Unlock()
}

func (d *Dataset) computeHistogram() []uint64 {
	lo, hi := d.Range()
	hist := make([]uint64, histogramBins)
	if hi <= lo {
		return hist
	}
	scale := float64(histogramBins) / (hi - lo)

	for _, k := range d.store.Keys() {
		v, err := d.store.Brick(k)
		if err != nil {
			continue
		}
		binBrick(v, lo, scale, hist)
	}
	return hist
}

func bin(x, lo, scale float64, hist []uint64) {
	idx := int((x - lo) * scale)
	if idx < 0 {
		idx = 0
	}
	if idx >= histogramBins {
		idx = histogramBins - 1
	}
	hist[idx]++
}

func binBrick(v brick.Variant, lo, scale float64, hist []uint64) {
	if data, ok := v.U8(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.I8(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.U16(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.I16(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.U32(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.I32(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.F32(); ok {
		for _, x := range data {
			bin(float64(x), lo, scale, hist)
		}
		return
	}
	if data, ok := v.F64(); ok {
		for _, x := range data {
			bin(x, lo, scale, hist)
		}
		return
	}
}
