// Command tuvokctl is a CLI client for the wire protocol in package
// remote: it exercises a running tuvokd (open, list-files, batch-size,
// rotate, brick, shutdown), can ingest a raw brick file into a
// file-backed dataset directory tuvokd can later open, and can drive a
// single scheduler frame over such a directory through a registered
// backend.RenderBackend without a display.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gogpu/tuvok/backend"
	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
	"github.com/gogpu/tuvok/facade"
	"github.com/gogpu/tuvok/geometry"
	"github.com/gogpu/tuvok/remote"
	"github.com/gogpu/tuvok/scheduler"
)

var (
	serverAddr string
	dialTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "tuvokctl",
	Short: "CLI client for the remote brick wire protocol",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:8080", "tuvokd address")
	rootCmd.PersistentFlags().DurationVar(&dialTimeout, "timeout", 10*time.Second, "per-request deadline")

	rootCmd.AddCommand(listFilesCmd, openCmd, batchSizeCmd, brickCmd, shutdownCmd, ingestCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial() (*remote.Client, error) {
	return remote.Dial(serverAddr, dialTimeout)
}

var listFilesCmd = &cobra.Command{
	Use:   "list-files",
	Short: "List the datasets tuvokd can open",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()
		resp, err := client.ListFiles()
		if err != nil {
			return err
		}
		for _, name := range resp.Names {
			fmt.Println(name)
		}
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a dataset and print its brick layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()
		resp, err := client.Open(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("lods=%d bricks=%d domain=%v scale=%v range=[%g,%g]\n",
			len(resp.BrickLayout), len(resp.Bricks), resp.DomainSize, resp.Scale, resp.RangeLo, resp.RangeHi)
		for lod, layout := range resp.BrickLayout {
			fmt.Printf("  lod %d layout=%v\n", lod, layout)
		}
		return nil
	},
}

var batchSizeArg uint32

var batchSizeCmd = &cobra.Command{
	Use:   "batch-size",
	Short: "Set the BRICK frames ROTATION streams back per request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()
		return client.SetBatchSize(batchSizeArg)
	},
}

func init() {
	batchSizeCmd.Flags().Uint32Var(&batchSizeArg, "size", 64, "frames per ROTATION response")
}

var (
	brickLOD   uint32
	brickIndex uint32
	brickType  string
)

var brickCmd = &cobra.Command{
	Use:   "brick <path>",
	Short: "Fetch a single brick's payload and print its byte length",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()
		if _, err := client.Open(args[0]); err != nil {
			return err
		}
		typ, err := parseElementType(brickType)
		if err != nil {
			return err
		}
		frame, err := client.Brick(typ, brickLOD, brickIndex)
		if err != nil {
			return err
		}
		fmt.Printf("lod=%d index=%d n_voxels=%v bytes=%d\n", frame.LOD, frame.Index, frame.NVoxels, len(frame.Payload))
		return nil
	},
}

func init() {
	brickCmd.Flags().Uint32Var(&brickLOD, "lod", 0, "level of detail")
	brickCmd.Flags().Uint32Var(&brickIndex, "index", 0, "linear brick index within the lod's layout")
	brickCmd.Flags().StringVar(&brickType, "type", "u8", "element type: u8, u16, u32, or f32")
}

func parseElementType(s string) (remote.ElementType, error) {
	switch s {
	case "u8":
		return remote.ElementTypeU8, nil
	case "u16":
		return remote.ElementTypeU16, nil
	case "u32":
		return remote.ElementTypeU32, nil
	case "f32":
		return remote.ElementTypeF32, nil
	default:
		return 0, fmt.Errorf("tuvokctl: unrecognized element type %q", s)
	}
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Send SHUTDOWN, ending the connection's session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dial()
		if err != nil {
			return err
		}
		defer client.Close()
		return client.Shutdown()
	},
}

var (
	ingestDomain [3]uint32
	ingestKind   string
)

// ingestCmd builds a single-LOD, single-brick file-backed dataset
// directory from a raw little-endian binary file: the simplest possible
// producer for facade.FileBackedProvider, standing in for the UVF
// converters this module's scope excludes (spec.md §1).
var ingestCmd = &cobra.Command{
	Use:   "ingest <raw-file> <out-dir>",
	Short: "Build a file-backed dataset directory from a raw voxel file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(args[0], args[1])
	},
}

func init() {
	ingestCmd.Flags().Uint32Var(&ingestDomain[0], "nx", 0, "domain size along x, in voxels")
	ingestCmd.Flags().Uint32Var(&ingestDomain[1], "ny", 0, "domain size along y, in voxels")
	ingestCmd.Flags().Uint32Var(&ingestDomain[2], "nz", 0, "domain size along z, in voxels")
	ingestCmd.Flags().StringVar(&ingestKind, "type", "u8", "element type: u8, u16, u32, or f32")
	ingestCmd.MarkFlagRequired("nx")
	ingestCmd.MarkFlagRequired("ny")
	ingestCmd.MarkFlagRequired("nz")
}

func runIngest(rawPath, outDir string) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("tuvokctl: reading %s: %w", rawPath, err)
	}
	variant, err := decodeRaw(ingestKind, raw)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("tuvokctl: creating %s: %w", outDir, err)
	}
	cfg := dataset.Config{
		LODs:           []dataset.LOD{{Layout: [3]uint32{1, 1, 1}}},
		DomainSize:     ingestDomain,
		Scale:          [3]float32{1, 1, 1},
		ComponentCount: 1,
	}
	if err := facade.WriteManifest(outDir, cfg); err != nil {
		return err
	}
	store, err := brick.OpenDiskStore(outDir)
	if err != nil {
		return err
	}
	defer store.Close()

	md := brick.Metadata{
		Center:  [3]float32{0, 0, 0},
		Extents: [3]float32{float32(ingestDomain[0]), float32(ingestDomain[1]), float32(ingestDomain[2])},
		NVoxels: ingestDomain,
		TexMin:  [3]float32{0, 0, 0},
		TexMax:  [3]float32{1, 1, 1},
	}
	key := brick.NewKey(0, 0, 0)
	if err := store.AddBrick(key, md, variant); err != nil {
		return err
	}
	fmt.Printf("wrote %s: domain=%v type=%s\n", outDir, ingestDomain, ingestKind)
	return nil
}

var (
	renderCacheBudget uint64
	renderBackendName string
	renderDeadline    time.Duration
)

// renderCmd drives one scheduler.RenderFrame over a file-backed dataset
// directory, without a display or a real GPU: backend.BackendStub stands
// in for a device the way it does in the scheduler's own tests, so this
// command exercises the cache/gpucore/scheduler stack end to end when no
// GPU is available, the role spec.md §6's "backend" registry design note
// calls out for tuvokctl.
var renderCmd = &cobra.Command{
	Use:   "render <dataset-dir>",
	Short: "Render one frame of a file-backed dataset through the stub GPU backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := facade.OpenFileBacked(args[0])
		if err != nil {
			return err
		}
		defer provider.Close()

		rb := backend.Get(renderBackendName)
		if rb == nil {
			return fmt.Errorf("tuvokctl: backend %q is not registered", renderBackendName)
		}
		if err := rb.Init(); err != nil {
			return fmt.Errorf("tuvokctl: initializing %s backend: %w", renderBackendName, err)
		}
		defer rb.Close()

		reg := prometheus.NewRegistry()
		sched := scheduler.New(rb.Context(), provider, renderCacheBudget, reg)

		ctx, cancel := context.WithTimeout(context.Background(), renderDeadline)
		defer cancel()

		frame := scheduler.Frame{
			Mode:               scheduler.RM1DTrans,
			View:               geometry.IdentityMat4(),
			FOVY:               45,
			Aspect:             1,
			Near:               0.01,
			Far:                100,
			ScreenHeightPixels: 1080,
			SampleRate:         1,
			TFSupportLo:        0,
			TFSupportHi:        1,
		}
		start := time.Now()
		if err := sched.RenderFrame(ctx, frame); err != nil {
			return err
		}
		fmt.Printf("rendered in %s, resident=%d bricks (%d bytes)\n",
			time.Since(start), sched.Cache().ResidentCount(), sched.Cache().ResidentBytes())
		return nil
	},
}

func init() {
	renderCmd.Flags().Uint64Var(&renderCacheBudget, "cache-budget", 256<<20, "GPU texture cache byte budget")
	renderCmd.Flags().StringVar(&renderBackendName, "backend", backend.BackendStub, "registered GPU backend to render through")
	renderCmd.Flags().DurationVar(&renderDeadline, "deadline", 5*time.Second, "per-frame render deadline")
}

func decodeRaw(kind string, raw []byte) (brick.Variant, error) {
	switch kind {
	case "u8":
		return brick.NewU8(raw), nil
	case "u16":
		vals := make([]uint16, len(raw)/2)
		for i := range vals {
			vals[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		return brick.NewU16(vals), nil
	case "u32":
		vals := make([]uint32, len(raw)/4)
		for i := range vals {
			vals[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return brick.NewU32(vals), nil
	case "f32":
		vals := make([]float32, len(raw)/4)
		for i := range vals {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			vals[i] = math.Float32frombits(bits)
		}
		return brick.NewF32(vals), nil
	default:
		return brick.Variant{}, fmt.Errorf("tuvokctl: unrecognized element type %q", kind)
	}
}
