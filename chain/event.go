package chain

import "encoding/json"

// EventKind tags a ChainEvent variant.
type EventKind int

const (
	EventApply EventKind = iota
	EventUndo
	EventReset
)

// ChainEvent carries one step of the chain as seen by the source stage:
// extend (Apply), roll back one block (Undo), or discard downstream state
// after a point (Reset, which carries no record).
type ChainEvent struct {
	Kind   EventKind
	Point  Point
	Record Record
}

// Apply builds an Apply event.
func Apply(p Point, r Record) ChainEvent { return ChainEvent{Kind: EventApply, Point: p, Record: r} }

// Undo builds an Undo event.
func Undo(p Point, r Record) ChainEvent { return ChainEvent{Kind: EventUndo, Point: p, Record: r} }

// Reset builds a Reset event.
func Reset(p Point) ChainEvent { return ChainEvent{Kind: EventReset, Point: p} }

// MarshalJSON renders the event the way the wire/debug format expects:
// {"event": "apply"|"undo"|"reset", "point": ..., "record": ...}.
func (e ChainEvent) MarshalJSON() ([]byte, error) {
	type wire struct {
		Event  string          `json:"event"`
		Point  json.RawMessage `json:"point"`
		Record json.RawMessage `json:"record,omitempty"`
	}
	w := wire{}
	switch e.Kind {
	case EventApply:
		w.Event = "apply"
	case EventUndo:
		w.Event = "undo"
	case EventReset:
		w.Event = "reset"
	}
	pointJSON, err := pointToJSON(e.Point)
	if err != nil {
		return nil, err
	}
	w.Point = pointJSON
	if e.Kind != EventReset {
		recJSON, err := json.Marshal(e.Record)
		if err != nil {
			return nil, err
		}
		w.Record = recJSON
	}
	return json.Marshal(w)
}

func pointToJSON(p Point) (json.RawMessage, error) {
	if p.IsOrigin() {
		return json.Marshal("origin")
	}
	return json.Marshal(struct {
		Slot uint64 `json:"slot"`
		Hash string `json:"hash"`
	}{Slot: p.Slot(), Hash: hexEncode(p.Hash())})
}
