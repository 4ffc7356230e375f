// Command tuvokd is the remote brick-server daemon: it listens for
// connections speaking the wire protocol in package remote and answers
// OPEN/CLOSE/LISTFILES/BATCHSIZE/ROTATION/BRICK/SHUTDOWN requests against
// a directory of file-backed datasets.
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gogpu/tuvok"
	"github.com/gogpu/tuvok/config"
	"github.com/gogpu/tuvok/dataset"
	"github.com/gogpu/tuvok/facade"
	"github.com/gogpu/tuvok/remote"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "tuvokd",
	Short: "Remote brick-server daemon for the wire protocol in package remote",
	RunE:  runDaemon,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file (see config.Default for the values it can override)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory of file-backed datasets; each subdirectory is one dataset.New'd via facade.OpenDataset")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.ApplyLogger(cfg)

	opener := newDirOpener(dataDir)
	defer opener.closeAll()

	projection := remote.ProjectionDefaults{
		FOVY: 45, Aspect: 1, Near: 0.01, Far: 100,
		ScreenHeightPixels: 1080,
		SampleRate:         1,
		TFSupportLo:        0,
		TFSupportHi:        1,
	}

	ranks := newBroadcasterGroup(cfg.Server.WorkerRanks)
	for _, b := range ranks[1:] {
		worker := remote.NewServer(opener, b, projection)
		go func() {
			if err := worker.RunWorker(); err != nil {
				tuvok.Logger().Warn("worker rank exited", "error", err)
			}
		}()
	}
	srv := remote.NewServer(opener, ranks[0], projection)

	listener, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("tuvokd: listening on %s: %w", cfg.Server.ListenAddress, err)
	}
	defer listener.Close()
	tuvok.Logger().Info("tuvokd listening", "address", cfg.Server.ListenAddress, "data_dir", dataDir, "worker_ranks", cfg.Server.WorkerRanks)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("tuvokd: accept: %w", err)
		}
		go func() {
			if err := srv.Serve(conn); err != nil {
				tuvok.Logger().Warn("connection closed with error", "error", err)
			}
		}()
	}
}

// newBroadcasterGroup builds a single-ranked []remote.Broadcaster{LocalBroadcaster{}}
// when workerRanks <= 1 (the spec.md §9-sanctioned default), or a
// remote.WorkerGroupBroadcaster group otherwise, with ranks 1..n-1 run as
// RunWorker goroutines in this same process. A real multi-process
// deployment would instead run one tuvokd per rank, joined by an
// out-of-process Broadcaster, which package remote leaves to the caller
// (see broadcast.go).
func newBroadcasterGroup(workerRanks int) []remote.Broadcaster {
	if workerRanks <= 1 {
		return []remote.Broadcaster{remote.LocalBroadcaster{}}
	}
	group := remote.NewWorkerGroup(workerRanks)
	out := make([]remote.Broadcaster, len(group))
	for i, b := range group {
		out[i] = b
	}
	return out
}

// dirOpener is the DatasetOpener tuvokd runs with: dataDir's immediate
// subdirectories are the datasets it can open, each written by tuvokctl's
// ingest command as a manifest.toml plus brick.DiskStore. Opens are
// cached since badger's DiskStore holds an exclusive file lock; a second
// Open of an already-open path reuses the cached dataset rather than
// failing to reacquire that lock.
type dirOpener struct {
	root string

	mu     sync.Mutex
	open   map[string]*dataset.Dataset
	stores map[string]io.Closer
}

func newDirOpener(root string) *dirOpener {
	return &dirOpener{root: root, open: make(map[string]*dataset.Dataset), stores: make(map[string]io.Closer)}
}

func (d *dirOpener) Open(path string) (*dataset.Dataset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ds, ok := d.open[path]; ok {
		return ds, nil
	}
	ds, store, err := facade.OpenDataset(filepath.Join(d.root, path))
	if err != nil {
		return nil, err
	}
	d.open[path] = ds
	d.stores[path] = store
	return ds, nil
}

func (d *dirOpener) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("tuvokd: listing %s: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *dirOpener) closeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, store := range d.stores {
		if err := store.Close(); err != nil {
			tuvok.Logger().Warn("closing dataset store", "path", path, "error", err)
		}
	}
}
