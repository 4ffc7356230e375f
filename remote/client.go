package remote

import (
	"fmt"
	"net"
	"time"
)

// Client is a synchronous round-trip wrapper over a remote brick server
// connection. Every method writes one request and, except for CLOSE,
// BATCHSIZE and SHUTDOWN which the server does not acknowledge, reads back the matching
// response. Client is not safe for concurrent use from multiple goroutines:
// the protocol is a single request/response stream per connection, mirroring
// the original socket helper's one-shot-per-call usage.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to a remote brick server at addr. timeout bounds every
// subsequent request/response round trip; zero disables the deadline.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", addr, err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// NewClient wraps an already-established connection, for callers that set
// up their own net.Conn (a net.Pipe in tests, a pre-negotiated TLS
// connection, …) instead of using Dial.
func NewClient(conn net.Conn, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Close closes the underlying connection. It does not send SHUTDOWN; call
// Shutdown first if the server should tear down on disconnect.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

// Open sends OPEN and returns the dataset's brick layout and descriptors.
func (c *Client) Open(path string) (OpenResponse, error) {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return OpenResponse{}, err
	}
	if err := WriteRequest(c.conn, OpenRequest{Path: path}); err != nil {
		return OpenResponse{}, err
	}
	return ReadOpenResponse(c.conn)
}

// CloseDataset sends CLOSE for path. The server sends no acknowledgement.
func (c *Client) CloseDataset(path string) error {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return err
	}
	return WriteRequest(c.conn, CloseRequest{Path: path})
}

// ListFiles sends LIST_FILES and returns the server's known dataset names.
func (c *Client) ListFiles() (ListFilesResponse, error) {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return ListFilesResponse{}, err
	}
	if err := WriteRequest(c.conn, ListFilesRequest{}); err != nil {
		return ListFilesResponse{}, err
	}
	return ReadListFilesResponse(c.conn)
}

// SetBatchSize sends BATCHSIZE. The server sends no acknowledgement.
func (c *Client) SetBatchSize(size uint32) error {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return err
	}
	return WriteRequest(c.conn, BatchSizeRequest{Size: size})
}

// Rotate sends ROTATION with the given view matrix and returns the bricks
// the server's scheduler found visible, up to the last BATCHSIZE set.
func (c *Client) Rotate(matrix [16]float32, typ ElementType) ([]BrickFrame, error) {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return nil, err
	}
	if err := WriteRequest(c.conn, RotationRequest{Matrix: matrix, Type: typ}); err != nil {
		return nil, err
	}
	return ReadBrickStream(c.conn)
}

// Brick sends BRICK for a single (lod, index) pair and returns its payload.
func (c *Client) Brick(typ ElementType, lod, index uint32) (BrickFrame, error) {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return BrickFrame{}, err
	}
	if err := WriteRequest(c.conn, BrickRequest{Type: typ, LOD: lod, Index: index}); err != nil {
		return BrickFrame{}, err
	}
	frames, err := ReadBrickStream(c.conn)
	if err != nil {
		return BrickFrame{}, err
	}
	if len(frames) != 1 {
		return BrickFrame{}, fmt.Errorf("remote: BRICK response carried %d frames, want 1", len(frames))
	}
	return frames[0], nil
}

// Shutdown sends SHUTDOWN, asking the server to close this connection. The
// server process keeps running and keeps accepting new connections.
func (c *Client) Shutdown() error {
	if err := c.conn.SetDeadline(c.deadline()); err != nil {
		return err
	}
	return WriteRequest(c.conn, ShutdownRequest{})
}
