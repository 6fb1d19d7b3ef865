package model

import "scrolls/chain"

// CRDTKind tags a CRDTCommand variant. Implemented as a tagged struct
// rather than an interface hierarchy so dispatch in storage backends and
// the JSON codec stays a single exhaustive switch, per the "polymorphism
// over stage kinds" guidance: adding a variant is a local, exhaustive
// change, not open inheritance.
type CRDTKind string

const (
	BlockStarting    CRDTKind = "BlockStarting"
	BlockFinished    CRDTKind = "BlockFinished"
	SetAdd           CRDTKind = "SetAdd"
	SetRemove        CRDTKind = "SetRemove"
	GrowOnlySetAdd   CRDTKind = "GrowOnlySetAdd"
	TwoPhaseSetAdd   CRDTKind = "TwoPhaseSetAdd"
	TwoPhaseSetRem   CRDTKind = "TwoPhaseSetRemove"
	SortedSetAdd     CRDTKind = "SortedSetAdd"
	SortedSetRemove  CRDTKind = "SortedSetRemove"
	LastWriteWins    CRDTKind = "LastWriteWins"
	AnyWriteWins     CRDTKind = "AnyWriteWins"
	PNCounter        CRDTKind = "PNCounter"
	HashCounter      CRDTKind = "HashCounter"
	HashSetValue     CRDTKind = "HashSetValue"
	HashUnsetKey     CRDTKind = "HashUnsetKey"
)

// CRDTCommand is one commutative, replay-safe state mutation, or one of the
// BlockStarting/BlockFinished framing markers that bracket a block's run of
// commands.
type CRDTCommand struct {
	Kind CRDTKind

	Point chain.Point // BlockStarting, BlockFinished

	Set    string // SetAdd, SetRemove, GrowOnlySetAdd, TwoPhaseSet{Add,Remove}, SortedSet{Add,Remove}
	Member string

	Key   string // LastWriteWins, AnyWriteWins, PNCounter, Hash*
	Value Value

	Delta     int64  // SortedSet{Add,Remove}, PNCounter, HashCounter
	Timestamp uint64 // LastWriteWins
}

func withPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// NewBlockStarting builds the command that opens a block's atomic run.
func NewBlockStarting(p chain.Point) CRDTCommand {
	return CRDTCommand{Kind: BlockStarting, Point: p}
}

// NewBlockFinished builds the command that closes a block's atomic run.
func NewBlockFinished(p chain.Point) CRDTCommand {
	return CRDTCommand{Kind: BlockFinished, Point: p}
}

// NewSetAdd builds a SetAdd command, applying prefix.key as in the original
// scrolls key-prefix convention.
func NewSetAdd(prefix, key, member string) CRDTCommand {
	return CRDTCommand{Kind: SetAdd, Set: withPrefix(prefix, key), Member: member}
}

// NewSetRemove builds a SetRemove command.
func NewSetRemove(prefix, key, member string) CRDTCommand {
	return CRDTCommand{Kind: SetRemove, Set: withPrefix(prefix, key), Member: member}
}

// NewGrowOnlySetAdd builds a G-set add command (no corresponding remove).
func NewGrowOnlySetAdd(prefix, key, member string) CRDTCommand {
	return CRDTCommand{Kind: GrowOnlySetAdd, Set: withPrefix(prefix, key), Member: member}
}

// NewTwoPhaseSetAdd builds a 2P-set add command.
func NewTwoPhaseSetAdd(prefix, key, member string) CRDTCommand {
	return CRDTCommand{Kind: TwoPhaseSetAdd, Set: withPrefix(prefix, key), Member: member}
}

// NewTwoPhaseSetRemove builds a 2P-set tombstone command; the storage
// backend records it in the companion "{set}.ts" set rather than removing
// from the primary set.
func NewTwoPhaseSetRemove(prefix, key, member string) CRDTCommand {
	return CRDTCommand{Kind: TwoPhaseSetRem, Set: withPrefix(prefix, key), Member: member}
}

// NewSortedSetAdd builds a sorted-set score increment command.
func NewSortedSetAdd(prefix, key, member string, delta int64) CRDTCommand {
	return CRDTCommand{Kind: SortedSetAdd, Set: withPrefix(prefix, key), Member: member, Delta: delta}
}

// NewSortedSetRemove builds a sorted-set score decrement command; the
// backend garbage-collects members whose running score reaches zero.
func NewSortedSetRemove(prefix, key, member string, delta int64) CRDTCommand {
	return CRDTCommand{Kind: SortedSetRemove, Set: withPrefix(prefix, key), Member: member, Delta: delta}
}

// NewLastWriteWins builds an LWW command, keyed by the highest timestamp.
func NewLastWriteWins(prefix, key string, value Value, ts uint64) CRDTCommand {
	return CRDTCommand{Kind: LastWriteWins, Key: withPrefix(prefix, key), Value: value, Timestamp: ts}
}

// NewAnyWriteWins builds an overwrite command.
func NewAnyWriteWins(prefix, key string, value Value) CRDTCommand {
	return CRDTCommand{Kind: AnyWriteWins, Key: withPrefix(prefix, key), Value: value}
}

// NewPNCounter builds a positive/negative counter increment command.
func NewPNCounter(prefix, key string, delta int64) CRDTCommand {
	return CRDTCommand{Kind: PNCounter, Key: withPrefix(prefix, key), Delta: delta}
}

// NewHashCounter builds a counter-within-a-hash increment command.
func NewHashCounter(prefix, key, member string, delta int64) CRDTCommand {
	return CRDTCommand{Kind: HashCounter, Key: withPrefix(prefix, key), Member: member, Delta: delta}
}

// NewHashSetValue builds a hash field set command.
func NewHashSetValue(prefix, key, member string, value Value) CRDTCommand {
	return CRDTCommand{Kind: HashSetValue, Key: withPrefix(prefix, key), Member: member, Value: value}
}

// NewHashUnsetKey builds a hash field delete command.
func NewHashUnsetKey(prefix, key, member string) CRDTCommand {
	return CRDTCommand{Kind: HashUnsetKey, Key: withPrefix(prefix, key), Member: member}
}

// RDBMSKind tags an RDBMSCommand variant.
type RDBMSKind string

const (
	RDBMSBlockStarting RDBMSKind = "BlockStarting"
	RDBMSExecuteSQL    RDBMSKind = "ExecuteSQL"
	RDBMSBlockFinished RDBMSKind = "BlockFinished"
)

// RDBMSCommand is a SQL-text mutation applied inside the BEGIN/COMMIT
// envelope established by the framing commands.
type RDBMSCommand struct {
	Kind RDBMSKind
	Point chain.Point // BlockStarting, BlockFinished
	SQL   string       // ExecuteSQL
}

// NewRDBMSBlockStarting builds the BEGIN marker.
func NewRDBMSBlockStarting(p chain.Point) RDBMSCommand {
	return RDBMSCommand{Kind: RDBMSBlockStarting, Point: p}
}

// NewRDBMSBlockFinished builds the COMMIT marker.
func NewRDBMSBlockFinished(p chain.Point) RDBMSCommand {
	return RDBMSCommand{Kind: RDBMSBlockFinished, Point: p}
}

// NewExecuteSQL builds a verbatim SQL execution command.
func NewExecuteSQL(sql string) RDBMSCommand {
	return RDBMSCommand{Kind: RDBMSExecuteSQL, SQL: sql}
}

// StorageEventKind tags whether a StorageEvent carries a CRDT or RDBMS
// command.
type StorageEventKind int

const (
	StorageCRDT StorageEventKind = iota
	StorageRDBMS
)

// StorageEvent is the unit the reduce stage emits and the storage stage
// consumes: either a CRDT command or an RDBMS command.
type StorageEvent struct {
	Kind  StorageEventKind
	CRDT  CRDTCommand
	RDBMS RDBMSCommand
}

// CRDTEvent wraps a CRDT command as a StorageEvent.
func CRDTEvent(c CRDTCommand) StorageEvent { return StorageEvent{Kind: StorageCRDT, CRDT: c} }

// RDBMSEvent wraps an RDBMS command as a StorageEvent.
func RDBMSEvent(c RDBMSCommand) StorageEvent { return StorageEvent{Kind: StorageRDBMS, RDBMS: c} }
