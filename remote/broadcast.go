package remote

import "fmt"

// Broadcaster fans a parsed request out to every worker rank, standing in
// for the original implementation's MPI_Bcast collective (see
// ParameterWrapper::mpi_sync in the reference implementation). Rank 0
// parses a request off the socket, calls Broadcast so every other rank can
// reconstruct and perform it locally, and is the only rank that ever
// writes a response back.
type Broadcaster interface {
	// Broadcast distributes req to every worker rank. Called only on rank
	// 0, after parsing a request and before performing it locally.
	Broadcast(req any) error

	// Recv blocks until rank 0 broadcasts a request, for a worker rank's
	// serve loop to pick up and perform locally. Never called on rank 0.
	Recv() (any, error)

	// Rank reports this broadcaster's position in the worker group. Rank
	// 0 terminates the client socket; every other rank only ever calls
	// Recv.
	Rank() int
}

// LocalBroadcaster is the single-rank default sanctioned by spec.md §9: a
// simpler deployment MAY omit fan-out and run the server single-ranked.
// Broadcast is a no-op since there is nothing to fan out to; Recv always
// errors, since a single-rank server never has a rank 1 to broadcast to
// it.
type LocalBroadcaster struct{}

func (LocalBroadcaster) Broadcast(any) error { return nil }

func (LocalBroadcaster) Recv() (any, error) {
	return nil, fmt.Errorf("remote: LocalBroadcaster has no worker ranks to receive a broadcast from")
}

func (LocalBroadcaster) Rank() int { return 0 }

// WorkerGroupBroadcaster fans requests out over in-process channels to a
// fixed set of worker goroutines, the closest pure-Go stand-in for the
// MPI collective available in this module's dependency set (no portable
// pure-Go MPI binding is available; see spec.md §9's design note on this
// substitution). Each rank's channel is unbuffered so Broadcast only
// returns once every rank has picked up the request, mirroring
// MPI_Bcast's synchronizing behavior.
type WorkerGroupBroadcaster struct {
	rank     int
	channels []chan any
}

// NewWorkerGroup builds a connected set of broadcasters, one per rank,
// indexed 0..ranks-1. Rank 0 is the one a Server should terminate client
// sockets on; the rest should each run Server.RunWorker in their own
// goroutine.
func NewWorkerGroup(ranks int) []*WorkerGroupBroadcaster {
	if ranks < 1 {
		ranks = 1
	}
	channels := make([]chan any, ranks)
	for i := range channels {
		channels[i] = make(chan any)
	}
	group := make([]*WorkerGroupBroadcaster, ranks)
	for i := range group {
		group[i] = &WorkerGroupBroadcaster{rank: i, channels: channels}
	}
	return group
}

// Broadcast sends req to every rank other than this one. Valid only on
// rank 0.
func (b *WorkerGroupBroadcaster) Broadcast(req any) error {
	if b.rank != 0 {
		return fmt.Errorf("remote: Broadcast called on non-zero rank %d", b.rank)
	}
	for i, ch := range b.channels {
		if i == 0 {
			continue
		}
		ch <- req
	}
	return nil
}

// Recv blocks until rank 0 broadcasts a request to this rank. Invalid on
// rank 0, which never receives its own broadcast.
func (b *WorkerGroupBroadcaster) Recv() (any, error) {
	if b.rank == 0 {
		return nil, fmt.Errorf("remote: Recv called on rank 0, which never receives its own broadcast")
	}
	return <-b.channels[b.rank], nil
}

// Rank reports this broadcaster's position in the worker group.
func (b *WorkerGroupBroadcaster) Rank() int { return b.rank }

var (
	_ Broadcaster = LocalBroadcaster{}
	_ Broadcaster = (*WorkerGroupBroadcaster)(nil)
)
