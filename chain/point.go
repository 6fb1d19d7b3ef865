// Package chain defines the wire shapes that flow between the source stage
// and the reduce stages: chain coordinates, records, and chain events.
package chain

import "fmt"

// Point identifies a position on the chain. The zero value is a specific
// point at slot 0 with a nil hash, not Origin; Origin is the variable below.
type Point struct {
	origin bool
	slot   uint64
	hash   []byte
}

// Origin is the point before the first block of the chain.
var Origin = Point{origin: true}

// NewPoint builds a specific point at the given slot and block hash.
func NewPoint(slot uint64, hash []byte) Point {
	h := make([]byte, len(hash))
	copy(h, hash)
	return Point{slot: slot, hash: h}
}

// IsOrigin reports whether p is the Origin point.
func (p Point) IsOrigin() bool {
	return p.origin
}

// Slot returns the point's slot number. It is zero for Origin.
func (p Point) Slot() uint64 {
	return p.slot
}

// Hash returns the point's block hash. It is nil for Origin.
func (p Point) Hash() []byte {
	return p.hash
}

// Equal reports whether p and other refer to the same chain position.
func (p Point) Equal(other Point) bool {
	if p.origin || other.origin {
		return p.origin == other.origin
	}
	return p.slot == other.slot && string(p.hash) == string(other.hash)
}

// Less reports whether p occurs strictly before other, ordered by slot with
// Origin sorting before every specific point.
func (p Point) Less(other Point) bool {
	if p.origin {
		return !other.origin
	}
	if other.origin {
		return false
	}
	return p.slot < other.slot
}

func (p Point) String() string {
	if p.origin {
		return "origin"
	}
	return fmt.Sprintf("%d/%x", p.slot, p.hash)
}
