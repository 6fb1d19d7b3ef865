package stage

import "context"

// DefaultCapacity is the bounded channel capacity used between stages,
// per §4.1: 1000 units of backpressure before a producer blocks.
const DefaultCapacity = 1000

// OutputPort is a stage's single outbound connection point for a value of
// type T. A Bootstrapper wires it to one or more consumers' InputPorts
// before the pipeline starts running (§4.2).
type OutputPort[T any] struct {
	subscribers []chan T
}

// NewOutputPort builds an empty OutputPort with no subscribers yet.
func NewOutputPort[T any]() *OutputPort[T] {
	return &OutputPort[T]{}
}

// Connect adds a new subscriber channel and returns the InputPort wrapping
// it. Every subscriber receives every value sent on this port: broadcast
// fan-out, FIFO per consumer, mirroring the tokio broadcast channel the
// original pipeline layers over mpsc (§4.1).
func (o *OutputPort[T]) Connect() *InputPort[T] {
	ch := make(chan T, DefaultCapacity)
	o.subscribers = append(o.subscribers, ch)
	return &InputPort[T]{ch: ch}
}

// Send delivers v to every connected subscriber, blocking on whichever is
// slowest to drain until it accepts v or ctx ends. A port with no
// subscribers silently drops v: stages with no wired consumer produce into
// the void, matching a Bootstrapper that chose not to connect that output.
//
// ctx is the calling stage's own lifecycle context (the one Execute
// receives), not the downstream consumer's: if the consumer stalls forever
// (e.g. it was dismissed and stopped draining), Send alone cannot know
// that, but once the pipeline-wide shutdown reaches this stage too — the
// common case, since a Supervisor dismisses every tracked stage together —
// ctx ends and Send stops waiting instead of blocking the caller past
// teardown (§4.1 "the subtle part", §8 property 6).
func (o *OutputPort[T]) Send(ctx context.Context, v T) {
	for _, ch := range o.subscribers {
		select {
		case ch <- v:
		case <-ctx.Done():
			return
		}
	}
}

// Close closes every subscriber channel, the "close-for-sending" half of
// the two-phase shutdown (§9): no further values can be sent, but anything
// already queued remains readable until drained.
func (o *OutputPort[T]) Close() {
	for _, ch := range o.subscribers {
		close(ch)
	}
}

// InputPort is a stage's single inbound connection point for a value of
// type T.
type InputPort[T any] struct {
	ch chan T
}

// NewUnconnectedInputPort builds an InputPort backed by its own channel,
// for a stage whose Bootstrapper wires it directly without an upstream
// OutputPort (e.g. a source stage fed by an external feed rather than
// another stage).
func NewUnconnectedInputPort[T any]() *InputPort[T] {
	return &InputPort[T]{ch: make(chan T, DefaultCapacity)}
}

// Recv blocks until a value is available or the port is closed and
// drained, returning ok=false in the latter case.
func (i *InputPort[T]) Recv() (T, bool) {
	v, ok := <-i.ch
	return v, ok
}

// Chan exposes the underlying channel for use in a select statement
// alongside a context's Done channel.
func (i *InputPort[T]) Chan() <-chan T {
	return i.ch
}

// send puts v straight into the port's own channel, for an InputPort with
// no upstream OutputPort (one built by NewUnconnectedInputPort).
func (i *InputPort[T]) send(v T) {
	i.ch <- v
}
