// Package source implements the Source stage: it streams parsed chain
// data from an upstream RPC and translates it into chain.ChainEvents for
// the Reduce stage(s) downstream.
package source

import (
	"context"

	"scrolls/chain"
)

// FrameKind tags the kind of upstream frame a Client yields.
type FrameKind int

const (
	FrameApply FrameKind = iota
	FrameUndo
	FrameReset
)

// Frame is one upstream notification: a block applied, a block undone
// (rolled back), or a reset to a point with no specific block attached.
type Frame struct {
	Kind  FrameKind
	Point chain.Point
	Block *chain.Block // nil for FrameReset
}

// Client is the upstream RPC this package talks to. The UtxoRPC variant
// named in spec §4.2 is the production implementation; this interface is
// the seam a test double substitutes for it.
//
// Intersect negotiates a starting point from a list of candidates (tip,
// origin, a specific point, or breadcrumbs, per chain.IntersectConfig) and
// returns the point the upstream actually resumed from. Next blocks until
// the next frame is available, the context is canceled, or the upstream
// closes (io.EOF-equivalent: implementations should return a sentinel the
// stage treats as natural completion rather than error).
type Client interface {
	Intersect(ctx context.Context, candidates []chain.Point) (chain.Point, error)
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// ErrUpstreamClosed is returned by Client.Next when the upstream has
// ended the stream without error (natural completion, not a failure).
var ErrUpstreamClosed = upstreamClosed{}

type upstreamClosed struct{}

func (upstreamClosed) Error() string { return "source: upstream closed" }
