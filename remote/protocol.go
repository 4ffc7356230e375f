// Package remote implements the remote brick server (C6): the wire
// protocol a worker-group process speaks to serve bricks to a C2 dataset
// facade running in a different process, plus the server and client sides
// of that protocol.
package remote

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

func float32Bits(f float32) uint32    { return math.Float32bits(f) }
func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }

// Command identifies a request on the wire. Values are assigned in the
// order spec.md's command table lists them; the original implementation's
// NetDSCommandCode enum ships without its header in this retrieval pack,
// so these are a fresh assignment rather than a byte-for-byte port.
type Command uint8

const (
	CmdOpen Command = iota
	CmdClose
	CmdListFiles
	CmdBatchSize
	CmdRotation
	CmdBrick
	CmdShutdown
)

func (c Command) String() string {
	switch c {
	case CmdOpen:
		return "OPEN"
	case CmdClose:
		return "CLOSE"
	case CmdListFiles:
		return "LIST_FILES"
	case CmdBatchSize:
		return "BATCHSIZE"
	case CmdRotation:
		return "ROTATION"
	case CmdBrick:
		return "BRICK"
	case CmdShutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("command(%d)", uint8(c))
	}
}

// ElementType identifies the wire element type of a typed brick stream,
// named N_UINT8/N_UINT16/N_UINT32 in the original protocol.
type ElementType uint8

const (
	ElementTypeU8 ElementType = iota
	ElementTypeU16
	ElementTypeU32
)

// --- primitive big-endian readers/writers -------------------------------

func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("remote: string too long for u16-prefixed field (%d bytes)", len(s))
	}
	if err := writeU16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readF32Vec(r io.Reader) ([]float32, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		bits, err := readU32(r)
		if err != nil {
			return nil, err
		}
		out[i] = float32FromBits(bits)
	}
	return out, nil
}

func writeF32Vec(w io.Writer, v []float32) error {
	if err := writeU32(w, uint32(len(v))); err != nil {
		return err
	}
	for _, f := range v {
		if err := writeU32(w, float32Bits(f)); err != nil {
			return err
		}
	}
	return nil
}

func readU32Vec(r io.Reader, n uint32) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		v, err := readU32(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func writeU32Vec(w io.Writer, v []uint32) error {
	for _, x := range v {
		if err := writeU32(w, x); err != nil {
			return err
		}
	}
	return nil
}

// --- requests -------------------------------------------------------------

// OpenRequest opens a dataset by path, closing any dataset already open on
// the connection first (see the per-connection state machine in server.go).
type OpenRequest struct {
	Path string
}

func (req OpenRequest) Command() Command { return CmdOpen }

func (req OpenRequest) writeTo(w io.Writer) error {
	return writeString(w, req.Path)
}

func readOpenRequest(r io.Reader) (OpenRequest, error) {
	path, err := readString(r)
	if err != nil {
		return OpenRequest{}, err
	}
	return OpenRequest{Path: path}, nil
}

// CloseRequest closes a previously opened dataset.
type CloseRequest struct {
	Path string
}

func (req CloseRequest) Command() Command { return CmdClose }

func (req CloseRequest) writeTo(w io.Writer) error {
	return writeString(w, req.Path)
}

func readCloseRequest(r io.Reader) (CloseRequest, error) {
	path, err := readString(r)
	if err != nil {
		return CloseRequest{}, err
	}
	return CloseRequest{Path: path}, nil
}

// ListFilesRequest enumerates datasets the server can open. It carries no
// fields, matching the original's SimpleParams commands.
type ListFilesRequest struct{}

func (req ListFilesRequest) Command() Command { return CmdListFiles }
func (req ListFilesRequest) writeTo(io.Writer) error { return nil }

// BatchSizeRequest sets the server's streaming batch size for subsequent
// ROTATION responses.
type BatchSizeRequest struct {
	Size uint32
}

func (req BatchSizeRequest) Command() Command { return CmdBatchSize }

func (req BatchSizeRequest) writeTo(w io.Writer) error {
	return writeU32(w, req.Size)
}

func readBatchSizeRequest(r io.Reader) (BatchSizeRequest, error) {
	size, err := readU32(r)
	if err != nil {
		return BatchSizeRequest{}, err
	}
	return BatchSizeRequest{Size: size}, nil
}

// RotationRequest pushes a new 4x4 view matrix (row-major, 16 floats),
// triggering a render and a stream of the bricks that render needs.
type RotationRequest struct {
	Matrix [16]float32
	Type   ElementType
}

func (req RotationRequest) Command() Command { return CmdRotation }

func (req RotationRequest) writeTo(w io.Writer) error {
	if err := writeF32Vec(w, req.Matrix[:]); err != nil {
		return err
	}
	return writeU8(w, uint8(req.Type))
}

func readRotationRequest(r io.Reader) (RotationRequest, error) {
	vec, err := readF32Vec(r)
	if err != nil {
		return RotationRequest{}, err
	}
	if len(vec) != 16 {
		return RotationRequest{}, fmt.Errorf("remote: ROTATION matrix must have 16 elements, got %d", len(vec))
	}
	typ, err := readU8(r)
	if err != nil {
		return RotationRequest{}, err
	}
	var req RotationRequest
	copy(req.Matrix[:], vec)
	req.Type = ElementType(typ)
	return req, nil
}

// BrickRequest asks for a single brick's payload.
type BrickRequest struct {
	Type  ElementType
	LOD   uint32
	Index uint32
}

func (req BrickRequest) Command() Command { return CmdBrick }

func (req BrickRequest) writeTo(w io.Writer) error {
	if err := writeU8(w, uint8(req.Type)); err != nil {
		return err
	}
	if err := writeU32(w, req.LOD); err != nil {
		return err
	}
	return writeU32(w, req.Index)
}

func readBrickRequest(r io.Reader) (BrickRequest, error) {
	typ, err := readU8(r)
	if err != nil {
		return BrickRequest{}, err
	}
	lod, err := readU32(r)
	if err != nil {
		return BrickRequest{}, err
	}
	idx, err := readU32(r)
	if err != nil {
		return BrickRequest{}, err
	}
	return BrickRequest{Type: ElementType(typ), LOD: lod, Index: idx}, nil
}

// ShutdownRequest asks the server to end the connection: Server.Serve
// returns and closes it. The server process keeps running and keeps
// accepting other connections.
type ShutdownRequest struct{}

func (req ShutdownRequest) Command() Command         { return CmdShutdown }
func (req ShutdownRequest) writeTo(io.Writer) error { return nil }

// ReadRequest reads one command byte and its command-specific fields,
// dispatching to the matching request type. The returned value is one of
// OpenRequest, CloseRequest, ListFilesRequest, BatchSizeRequest,
// RotationRequest, BrickRequest, or ShutdownRequest.
func ReadRequest(r io.Reader) (any, error) {
	cmdByte, err := readU8(r)
	if err != nil {
		return nil, err
	}
	switch Command(cmdByte) {
	case CmdOpen:
		return readOpenRequest(r)
	case CmdClose:
		return readCloseRequest(r)
	case CmdListFiles:
		return ListFilesRequest{}, nil
	case CmdBatchSize:
		return readBatchSizeRequest(r)
	case CmdRotation:
		return readRotationRequest(r)
	case CmdBrick:
		return readBrickRequest(r)
	case CmdShutdown:
		return ShutdownRequest{}, nil
	default:
		return nil, fmt.Errorf("remote: unknown command byte %d", cmdByte)
	}
}

// request is satisfied by every *Request type, giving WriteRequest a single
// entry point regardless of which command a client is sending.
type request interface {
	Command() Command
	writeTo(io.Writer) error
}

// WriteRequest writes req's command byte followed by its fields.
func WriteRequest(w io.Writer, req request) error {
	if err := writeU8(w, uint8(req.Command())); err != nil {
		return err
	}
	return req.writeTo(w)
}

var (
	_ request = OpenRequest{}
	_ request = CloseRequest{}
	_ request = ListFilesRequest{}
	_ request = BatchSizeRequest{}
	_ request = RotationRequest{}
	_ request = BrickRequest{}
	_ request = ShutdownRequest{}
)

// --- OPEN response ---------------------------------------------------------

// BrickDescriptor is one entry of an OpenResponse's per-brick metadata,
// flattened onto the wire as parallel arrays (lods[], idxs[], centers[],
// extents[], n_voxels[]) per spec.md §4.4, matching the original's
// column-oriented send loop in ParameterWrapper::perform.
type BrickDescriptor struct {
	LOD     uint32
	Index   uint32
	Center  [3]float32
	Extents [3]float32
	NVoxels [3]uint32

	// EffectiveSize is n_voxels minus per-face overlap, a supplement to
	// spec.md §4.4's literal OPEN row: facade.Provider needs it and the
	// server already has Dataset.EffectiveBrickSize to compute it, so it
	// rides along rather than forcing a RemoteProvider to re-derive
	// overlap geometry from NVoxels and GridPos alone.
	EffectiveSize [3]uint32

	// TexMin/TexMax clamp the sampled region inside the uploaded texture,
	// excluding overlap on domain-boundary faces; the scheduler's slicer
	// needs these per brick.Metadata, so they ride along too.
	TexMin [3]float32
	TexMax [3]float32
}

// OpenResponse is rank 0's reply to OPEN: the dataset's LOD count, the
// brick-grid layout per LOD, and every brick's metadata. DomainSize,
// Scale, RangeLo/RangeHi, MaxGradientMagnitude and ElementKind extend the
// wire form spec.md §4.4 specifies: the facade.Provider contract (C6's
// consumer) needs these dataset-level quantities too, and the original
// protocol never had to carry them because its client and server shared
// process memory for everything the socket didn't cover.
type OpenResponse struct {
	BrickLayout          [][3]uint32
	Bricks               []BrickDescriptor
	DomainSize           [3]uint32
	Scale                [3]float32
	RangeLo, RangeHi     float64
	MaxGradientMagnitude float32
	ElementKind          uint8
}

func writeOpenResponse(w io.Writer, resp OpenResponse) error {
	if err := writeU32(w, uint32(len(resp.BrickLayout))); err != nil {
		return err
	}
	flatLayout := make([]uint32, 0, len(resp.BrickLayout)*3)
	for _, l := range resp.BrickLayout {
		flatLayout = append(flatLayout, l[0], l[1], l[2])
	}
	if err := writeU32Vec(w, flatLayout); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(resp.Bricks))); err != nil {
		return err
	}
	lods := make([]uint32, len(resp.Bricks))
	idxs := make([]uint32, len(resp.Bricks))
	centers := make([]float32, 0, len(resp.Bricks)*3)
	extents := make([]float32, 0, len(resp.Bricks)*3)
	nVoxels := make([]uint32, 0, len(resp.Bricks)*3)
	effSizes := make([]uint32, 0, len(resp.Bricks)*3)
	texMins := make([]float32, 0, len(resp.Bricks)*3)
	texMaxs := make([]float32, 0, len(resp.Bricks)*3)
	for i, b := range resp.Bricks {
		lods[i] = b.LOD
		idxs[i] = b.Index
		centers = append(centers, b.Center[0], b.Center[1], b.Center[2])
		extents = append(extents, b.Extents[0], b.Extents[1], b.Extents[2])
		nVoxels = append(nVoxels, b.NVoxels[0], b.NVoxels[1], b.NVoxels[2])
		effSizes = append(effSizes, b.EffectiveSize[0], b.EffectiveSize[1], b.EffectiveSize[2])
		texMins = append(texMins, b.TexMin[0], b.TexMin[1], b.TexMin[2])
		texMaxs = append(texMaxs, b.TexMax[0], b.TexMax[1], b.TexMax[2])
	}
	writeFlat := func(v []float32) error {
		for _, f := range v {
			if err := writeU32(w, float32Bits(f)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeU32Vec(w, lods); err != nil {
		return err
	}
	if err := writeU32Vec(w, idxs); err != nil {
		return err
	}
	if err := writeFlat(centers); err != nil {
		return err
	}
	if err := writeFlat(extents); err != nil {
		return err
	}
	if err := writeU32Vec(w, nVoxels); err != nil {
		return err
	}
	if err := writeU32Vec(w, effSizes); err != nil {
		return err
	}
	if err := writeFlat(texMins); err != nil {
		return err
	}
	if err := writeFlat(texMaxs); err != nil {
		return err
	}

	if err := writeU32Vec(w, resp.DomainSize[:]); err != nil {
		return err
	}
	for _, v := range resp.Scale {
		if err := writeU32(w, float32Bits(v)); err != nil {
			return err
		}
	}
	if err := writeU32(w, float32Bits(float32(resp.RangeLo))); err != nil {
		return err
	}
	if err := writeU32(w, float32Bits(float32(resp.RangeHi))); err != nil {
		return err
	}
	if err := writeU32(w, float32Bits(resp.MaxGradientMagnitude)); err != nil {
		return err
	}
	return writeU8(w, resp.ElementKind)
}

// ReadOpenResponse parses the wire form writeOpenResponse produces.
func ReadOpenResponse(r io.Reader) (OpenResponse, error) {
	lodCount, err := readU32(r)
	if err != nil {
		return OpenResponse{}, err
	}
	flatLayout, err := readU32Vec(r, lodCount*3)
	if err != nil {
		return OpenResponse{}, err
	}
	layout := make([][3]uint32, lodCount)
	for i := range layout {
		layout[i] = [3]uint32{flatLayout[i*3], flatLayout[i*3+1], flatLayout[i*3+2]}
	}

	brickCount, err := readU32(r)
	if err != nil {
		return OpenResponse{}, err
	}
	lods, err := readU32Vec(r, brickCount)
	if err != nil {
		return OpenResponse{}, err
	}
	idxs, err := readU32Vec(r, brickCount)
	if err != nil {
		return OpenResponse{}, err
	}
	centers, err := readF32VecN(r, brickCount*3)
	if err != nil {
		return OpenResponse{}, err
	}
	extents, err := readF32VecN(r, brickCount*3)
	if err != nil {
		return OpenResponse{}, err
	}
	nVoxels, err := readU32Vec(r, brickCount*3)
	if err != nil {
		return OpenResponse{}, err
	}
	effSizes, err := readU32Vec(r, brickCount*3)
	if err != nil {
		return OpenResponse{}, err
	}
	texMins, err := readF32VecN(r, brickCount*3)
	if err != nil {
		return OpenResponse{}, err
	}
	texMaxs, err := readF32VecN(r, brickCount*3)
	if err != nil {
		return OpenResponse{}, err
	}

	bricks := make([]BrickDescriptor, brickCount)
	for i := range bricks {
		bricks[i] = BrickDescriptor{
			LOD:           lods[i],
			Index:         idxs[i],
			Center:        [3]float32{centers[i*3], centers[i*3+1], centers[i*3+2]},
			Extents:       [3]float32{extents[i*3], extents[i*3+1], extents[i*3+2]},
			NVoxels:       [3]uint32{nVoxels[i*3], nVoxels[i*3+1], nVoxels[i*3+2]},
			EffectiveSize: [3]uint32{effSizes[i*3], effSizes[i*3+1], effSizes[i*3+2]},
			TexMin:        [3]float32{texMins[i*3], texMins[i*3+1], texMins[i*3+2]},
			TexMax:        [3]float32{texMaxs[i*3], texMaxs[i*3+1], texMaxs[i*3+2]},
		}
	}
	domainSize, err := readU32Vec(r, 3)
	if err != nil {
		return OpenResponse{}, err
	}
	var scale [3]float32
	for i := range scale {
		bits, err := readU32(r)
		if err != nil {
			return OpenResponse{}, err
		}
		scale[i] = float32FromBits(bits)
	}
	rangeLoBits, err := readU32(r)
	if err != nil {
		return OpenResponse{}, err
	}
	rangeHiBits, err := readU32(r)
	if err != nil {
		return OpenResponse{}, err
	}
	gradBits, err := readU32(r)
	if err != nil {
		return OpenResponse{}, err
	}
	elementKind, err := readU8(r)
	if err != nil {
		return OpenResponse{}, err
	}

	return OpenResponse{
		BrickLayout:          layout,
		Bricks:               bricks,
		DomainSize:           [3]uint32{domainSize[0], domainSize[1], domainSize[2]},
		Scale:                scale,
		RangeLo:              float64(float32FromBits(rangeLoBits)),
		RangeHi:              float64(float32FromBits(rangeHiBits)),
		MaxGradientMagnitude: float32FromBits(gradBits),
		ElementKind:          elementKind,
	}, nil
}

// readF32VecN reads exactly n floats with no length prefix, for the
// OpenResponse's flattened arrays whose length is carried by brickCount
// rather than inline (unlike the length-prefixed vectors writeF32Vec emits
// elsewhere in the protocol).
func readF32VecN(r io.Reader, n uint32) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		bits, err := readU32(r)
		if err != nil {
			return nil, err
		}
		out[i] = float32FromBits(bits)
	}
	return out, nil
}

// --- LIST_FILES response ---------------------------------------------------

// ListFilesResponse enumerates datasets the server can open.
type ListFilesResponse struct {
	Names []string
}

func writeListFilesResponse(w io.Writer, resp ListFilesResponse) error {
	if len(resp.Names) > 0xFFFF {
		return fmt.Errorf("remote: too many files for u16-prefixed LIST_FILES response (%d)", len(resp.Names))
	}
	if err := writeU16(w, uint16(len(resp.Names))); err != nil {
		return err
	}
	for _, name := range resp.Names {
		if err := writeString(w, name); err != nil {
			return err
		}
	}
	return nil
}

// ReadListFilesResponse parses the wire form writeListFilesResponse produces.
func ReadListFilesResponse(r io.Reader) (ListFilesResponse, error) {
	n, err := readU16(r)
	if err != nil {
		return ListFilesResponse{}, err
	}
	names := make([]string, n)
	for i := range names {
		s, err := readString(r)
		if err != nil {
			return ListFilesResponse{}, err
		}
		names[i] = s
	}
	return ListFilesResponse{Names: names}, nil
}

// --- typed brick stream (ROTATION / BRICK responses) -----------------------

// BrickFrame is one brick in a typed brick stream: ROTATION's response is a
// sequence of these; BRICK's response is exactly one.
type BrickFrame struct {
	LOD     uint32
	Index   uint32
	NVoxels [3]uint32
	Payload []byte
}

// WriteBrickStream writes count:u32 followed by each frame's
// lod, bidx, n_voxels[3], bytes, payload, per spec.md §4.4. The server
// must not interleave this with any other response on the connection.
func WriteBrickStream(w io.Writer, frames []BrickFrame) error {
	if err := writeU32(w, uint32(len(frames))); err != nil {
		return err
	}
	for _, f := range frames {
		if err := writeBrickFrame(w, f); err != nil {
			return err
		}
	}
	return nil
}

func writeBrickFrame(w io.Writer, f BrickFrame) error {
	if err := writeU32(w, f.LOD); err != nil {
		return err
	}
	if err := writeU32(w, f.Index); err != nil {
		return err
	}
	if err := writeU32Vec(w, f.NVoxels[:]); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(f.Payload))); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadBrickStream parses the wire form WriteBrickStream produces.
func ReadBrickStream(r io.Reader) ([]BrickFrame, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	frames := make([]BrickFrame, count)
	for i := range frames {
		f, err := readBrickFrame(r)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

func readBrickFrame(r io.Reader) (BrickFrame, error) {
	lod, err := readU32(r)
	if err != nil {
		return BrickFrame{}, err
	}
	idx, err := readU32(r)
	if err != nil {
		return BrickFrame{}, err
	}
	nVoxels, err := readU32Vec(r, 3)
	if err != nil {
		return BrickFrame{}, err
	}
	byteCount, err := readU32(r)
	if err != nil {
		return BrickFrame{}, err
	}
	payload := make([]byte, byteCount)
	if _, err := io.ReadFull(r, payload); err != nil {
		return BrickFrame{}, err
	}
	return BrickFrame{
		LOD:     lod,
		Index:   idx,
		NVoxels: [3]uint32{nVoxels[0], nVoxels[1], nVoxels[2]},
		Payload: payload,
	}, nil
}

// WriteBrickResponse writes a single brick as a one-frame brick stream, the
// BRICK command's response shape per spec.md §4.4.
func WriteBrickResponse(w io.Writer, f BrickFrame) error {
	return WriteBrickStream(w, []BrickFrame{f})
}
