package facade

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
)

// manifestFile is the sidecar TOML file a FileBackedProvider reads
// alongside a brick.DiskStore directory. The on-disk UVF format itself is
// out of scope (see spec.md §1); this manifest only records the
// dataset-level fields brick.Store never persists (LOD layout, domain
// geometry, component count) so a DiskStore directory can be reopened
// without replaying every AddBrick call that built it.
const manifestFile = "manifest.toml"

// manifestLOD and manifest use slices rather than fixed-size arrays for
// every geometry field: BurntSushi/toml marshals/unmarshals TOML arrays
// into Go slices, not fixed-size arrays, so the conversion to/from
// [3]uint32/[3]float32 happens explicitly at the WriteManifest/
// OpenFileBacked boundary instead.
type manifestLOD struct {
	Layout []uint32 `toml:"layout"`
}

type manifest struct {
	DomainSize     []uint32 `toml:"domain_size"`
	Scale          []float32 `toml:"scale"`
	ComponentCount int         `toml:"component_count"`
	LODs           []manifestLOD `toml:"lod"`
}

// WriteManifest persists cfg's dataset-level fields (everything but Store)
// to dir/manifest.toml, for ingest tooling (cmd/tuvokctl) to call once
// after populating a brick.DiskStore at dir.
func WriteManifest(dir string, cfg dataset.Config) error {
	m := manifest{
		DomainSize:     cfg.DomainSize[:],
		Scale:          cfg.Scale[:],
		ComponentCount: cfg.ComponentCount,
	}
	for _, lod := range cfg.LODs {
		layout := lod.Layout
		m.LODs = append(m.LODs, manifestLOD{Layout: layout[:]})
	}
	f, err := os.Create(filepath.Join(dir, manifestFile))
	if err != nil {
		return fmt.Errorf("facade: creating manifest: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(m)
}

// FileBackedProvider wraps a dataset.Dataset backed by an on-disk
// brick.DiskStore, the "thin" file-backed Provider spec.md §4.6 calls for:
// thin because the actual dataset file format (UVF and its converters) is
// explicitly out of scope, so this only ever opens a directory this
// module itself wrote via WriteManifest + brick.DiskStore.AddBrick.
type FileBackedProvider struct {
	*InProcessProvider
	store *brick.DiskStore
}

// OpenFileBacked opens the brick.DiskStore and manifest at dir and wraps
// the resulting Dataset as a Provider.
func OpenFileBacked(dir string) (*FileBackedProvider, error) {
	ds, store, err := OpenDataset(dir)
	if err != nil {
		return nil, err
	}
	return &FileBackedProvider{InProcessProvider: NewInProcessProvider(ds), store: store}, nil
}

// OpenDataset reads the manifest.toml and brick.DiskStore at dir and
// builds the dataset.Dataset they describe, without wrapping it in a
// Provider. cmd/tuvokd's DatasetOpener uses this directly: remote.Server
// needs a *dataset.Dataset, not a facade.Provider, for the dataset it
// hands to facade.NewInProcessProvider per connection.
func OpenDataset(dir string) (*dataset.Dataset, *brick.DiskStore, error) {
	var m manifest
	if _, err := toml.DecodeFile(filepath.Join(dir, manifestFile), &m); err != nil {
		return nil, nil, fmt.Errorf("facade: reading manifest: %w", err)
	}
	store, err := brick.OpenDiskStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("facade: opening disk store at %s: %w", dir, err)
	}
	lods := make([]dataset.LOD, len(m.LODs))
	for i, l := range m.LODs {
		lods[i] = dataset.LOD{Layout: toArray3U32(l.Layout)}
	}
	ds, err := dataset.New(dataset.Config{
		Store:          store,
		LODs:           lods,
		DomainSize:     toArray3U32(m.DomainSize),
		Scale:          toArray3F32(m.Scale),
		ComponentCount: m.ComponentCount,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return ds, store, nil
}

// Close releases the underlying badger database.
func (p *FileBackedProvider) Close() error {
	return p.store.Close()
}

func toArray3U32(s []uint32) [3]uint32 {
	var a [3]uint32
	copy(a[:], s)
	return a
}

func toArray3F32(s []float32) [3]float32 {
	var a [3]float32
	copy(a[:], s)
	return a
}

var _ Provider = (*FileBackedProvider)(nil)
