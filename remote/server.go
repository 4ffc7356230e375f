package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/tuvok"
	"github.com/gogpu/tuvok/brick"
	"github.com/gogpu/tuvok/dataset"
	"github.com/gogpu/tuvok/facade"
	"github.com/gogpu/tuvok/geometry"
	"github.com/gogpu/tuvok/scheduler"
)

// ErrNoDataset is returned (and logged, never written to the wire) when a
// BRICK or ROTATION request arrives on a connection with no dataset open.
// The connection resynchronizes at the next command boundary: no bytes
// beyond the malformed request's own fields are consumed.
var ErrNoDataset = errors.New("remote: no dataset open on this connection")

// ErrProtocolError covers a request the wire decoder could parse but that
// violates the state machine (e.g. OPEN with no path) or that a handler
// cannot service (e.g. OPEN of a path the DatasetOpener cannot open).
var ErrProtocolError = errors.New("remote: protocol error")

// DatasetOpener opens a named dataset by path and enumerates the datasets
// available to open. The on-disk format behind path is out of scope here
// (see spec.md §1's "on-disk UVF file format" exclusion); Server only ever
// calls through this interface.
type DatasetOpener interface {
	Open(path string) (*dataset.Dataset, error)
	ListFiles() ([]string, error)
}

// ProjectionDefaults fills in the projection parameters a ROTATION
// request's view matrix alone doesn't carry (the wire protocol only sends
// the matrix; see spec.md §4.4's ROTATION row). A real deployment
// configures these once, out of band, the way the original renderer's
// window/context setup (out of scope here) established its own projection.
type ProjectionDefaults struct {
	FOVY, Aspect, Near, Far, ScreenHeightPixels float32
	SampleRate                                  float32
	TFSupportLo, TFSupportHi                    float64
}

// Server answers remote brick protocol connections. Rank() on its
// Broadcaster determines whether Serve (socket-terminating) or RunWorker
// (broadcast-receiving) is the correct entry point for this process.
type Server struct {
	opener      DatasetOpener
	broadcaster Broadcaster
	projection  ProjectionDefaults

	mu        sync.Mutex
	batchSize uint32
}

// NewServer builds a Server. broadcaster.Rank() == 0 servers should call
// Serve per accepted connection; every other rank should call RunWorker
// once, in its own goroutine, for the lifetime of the process.
func NewServer(opener DatasetOpener, broadcaster Broadcaster, projection ProjectionDefaults) *Server {
	return &Server{opener: opener, broadcaster: broadcaster, projection: projection, batchSize: 64}
}

// connState is the per-connection state machine spec.md §4.4 names:
// Listening -> Open(path) -> {Rendering, Querying} -> Open(path') | Closed
// | Shutdown. Rendering and Querying are not distinguished here since
// every Open-gated command (ROTATION, BRICK) is checked identically; the
// distinction in the spec is about which commands are valid, not about
// divergent handler behavior.
type connState int

const (
	connListening connState = iota
	connOpen
	connShutdown
)

// session holds one connection's mutable state: which dataset (if any) is
// open, and the facade.Provider view the scheduler's culling logic reads
// through for ROTATION requests.
type session struct {
	id       string
	state    connState
	path     string
	provider facade.Provider
}

// Serve runs the socket-terminating side of the protocol for one
// connection until the client disconnects or sends SHUTDOWN. Valid only
// when s.broadcaster.Rank() == 0.
func (s *Server) Serve(conn net.Conn) error {
	if s.broadcaster.Rank() != 0 {
		return fmt.Errorf("remote: Serve called on non-zero rank %d", s.broadcaster.Rank())
	}
	defer conn.Close()

	sess := &session{id: uuid.NewString()}
	tuvok.Logger().Info("remote connection accepted", "session", sess.id, "remote_addr", conn.RemoteAddr())

	for {
		req, err := ReadRequest(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("remote: reading request: %w", err)
		}

		if err := s.broadcaster.Broadcast(req); err != nil {
			tuvok.Logger().Warn("broadcast to worker ranks failed", "session", sess.id, "error", err)
		}

		done, err := s.dispatch(conn, sess, req)
		if err != nil {
			tuvok.Logger().Warn("remote request failed", "session", sess.id, "error", err)
		}
		if done {
			return nil
		}
	}
}

// RunWorker runs the broadcast-receiving side of the protocol forever:
// every request rank 0 parses off the socket is replayed here via
// Broadcaster.Recv and performed locally, with no socket to write a
// response to. Valid only when s.broadcaster.Rank() != 0.
func (s *Server) RunWorker() error {
	if s.broadcaster.Rank() == 0 {
		return fmt.Errorf("remote: RunWorker called on rank 0")
	}
	sess := &session{id: fmt.Sprintf("worker-%d", s.broadcaster.Rank())}
	for {
		req, err := s.broadcaster.Recv()
		if err != nil {
			return err
		}
		if _, err := s.dispatch(io.Discard, sess, req); err != nil {
			tuvok.Logger().Warn("worker rank request failed", "session", sess.id, "error", err)
		}
	}
}

// dispatch performs req against sess and, on rank 0, writes its response
// to w. It returns done=true when the connection should close (SHUTDOWN).
func (s *Server) dispatch(w io.Writer, sess *session, req any) (done bool, err error) {
	switch r := req.(type) {
	case OpenRequest:
		return false, s.handleOpen(w, sess, r)
	case CloseRequest:
		return false, s.handleClose(sess, r)
	case ListFilesRequest:
		return false, s.handleListFiles(w)
	case BatchSizeRequest:
		s.mu.Lock()
		s.batchSize = r.Size
		s.mu.Unlock()
		return false, nil
	case RotationRequest:
		return false, s.handleRotation(w, sess, r)
	case BrickRequest:
		return false, s.handleBrick(w, sess, r)
	case ShutdownRequest:
		sess.state = connShutdown
		return true, nil
	default:
		return false, fmt.Errorf("%w: unrecognized request type %T", ErrProtocolError, req)
	}
}

func (s *Server) handleOpen(w io.Writer, sess *session, req OpenRequest) error {
	if sess.state == connOpen {
		sess.provider = nil
		sess.state = connListening
	}

	ds, err := s.opener.Open(req.Path)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %w", ErrProtocolError, req.Path, err)
	}
	sess.path = req.Path
	sess.provider = facade.NewInProcessProvider(ds)
	sess.state = connOpen

	rangeLo, rangeHi := ds.Range()
	elementKind, _ := ds.ElementKind()
	resp := OpenResponse{
		BrickLayout:          make([][3]uint32, ds.LODCount()),
		DomainSize:           ds.DomainSize(),
		Scale:                ds.Scale(),
		RangeLo:              rangeLo,
		RangeHi:              rangeHi,
		MaxGradientMagnitude: ds.MaxGradientMagnitude(),
		ElementKind:          uint8(elementKind),
	}
	for lod := range resp.BrickLayout {
		layout, err := ds.BrickLayout(uint32(lod))
		if err != nil {
			return err
		}
		resp.BrickLayout[lod] = layout
	}
	for lod := range resp.BrickLayout {
		layout := resp.BrickLayout[lod]
		total := uint64(layout[0]) * uint64(layout[1]) * uint64(layout[2])
		for linear := uint64(0); linear < total; linear++ {
			key := brick.NewKey(0, uint32(lod), linear)
			md, err := ds.BrickMetadata(key)
			if errors.Is(err, brick.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			effSize, err := ds.EffectiveBrickSize(key)
			if err != nil {
				return err
			}
			resp.Bricks = append(resp.Bricks, BrickDescriptor{
				LOD:           uint32(lod),
				Index:         uint32(linear),
				Center:        md.Center,
				Extents:       md.Extents,
				NVoxels:       md.NVoxels,
				EffectiveSize: effSize,
				TexMin:        md.TexMin,
				TexMax:        md.TexMax,
			})
		}
	}

	return writeOpenResponse(w, resp)
}

func (s *Server) handleClose(sess *session, req CloseRequest) error {
	if sess.state != connOpen || sess.path != req.Path {
		return nil // CLOSE has no response either way; mismatched path is a no-op
	}
	sess.provider = nil
	sess.state = connListening
	return nil
}

func (s *Server) handleListFiles(w io.Writer) error {
	names, err := s.opener.ListFiles()
	if err != nil {
		return err
	}
	return writeListFilesResponse(w, ListFilesResponse{Names: names})
}

func (s *Server) handleRotation(w io.Writer, sess *session, req RotationRequest) error {
	if sess.state != connOpen {
		return ErrNoDataset
	}

	f := scheduler.Frame{
		View:               matFromArray(req.Matrix),
		FOVY:               s.projection.FOVY,
		Aspect:             s.projection.Aspect,
		Near:               s.projection.Near,
		Far:                s.projection.Far,
		ScreenHeightPixels: s.projection.ScreenHeightPixels,
		SampleRate:         s.projection.SampleRate,
		TFSupportLo:        s.projection.TFSupportLo,
		TFSupportHi:        s.projection.TFSupportHi,
		Mode:               scheduler.RM1DTrans, // culling is mode-independent; any non-invalid mode works
	}
	keys, err := scheduler.VisibleBricks(sess.provider, f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	batch := s.batchSize
	s.mu.Unlock()

	frames := make([]BrickFrame, 0, len(keys))
	for _, key := range keys {
		frame, err := s.brickFrame(sess, req.Type, key)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
		if batch > 0 && uint32(len(frames)) >= batch {
			break
		}
	}
	return WriteBrickStream(w, frames)
}

func (s *Server) handleBrick(w io.Writer, sess *session, req BrickRequest) error {
	if sess.state != connOpen {
		return ErrNoDataset
	}
	frame, err := s.brickFrame(sess, req.Type, brick.NewKey(0, req.LOD, uint64(req.Index)))
	if err != nil {
		return err
	}
	return WriteBrickResponse(w, frame)
}

func (s *Server) brickFrame(sess *session, typ ElementType, key brick.Key) (BrickFrame, error) {
	md, err := sess.provider.BrickMetadata(key)
	if err != nil {
		return BrickFrame{}, err
	}
	payload, err := sess.provider.BrickPayload(key)
	if err != nil {
		return BrickFrame{}, err
	}
	data, err := encodeBrickPayload(payload)
	if err != nil {
		return BrickFrame{}, err
	}
	_ = typ // the response's actual element type always matches the brick's own kind
	return BrickFrame{LOD: key.LOD, Index: uint32(key.Linear), NVoxels: md.NVoxels, Payload: data}, nil
}

// matFromArray rebuilds a row-major Mat4 from the flat 16-float wire form
// RotationRequest carries, the inverse of geometry.Mat4.Array.
func matFromArray(a [16]float32) geometry.Mat4 {
	return geometry.FromRows(
		[4]float32{a[0], a[1], a[2], a[3]},
		[4]float32{a[4], a[5], a[6], a[7]},
		[4]float32{a[8], a[9], a[10], a[11]},
		[4]float32{a[12], a[13], a[14], a[15]},
	)
}
