// Package reduce defines the shared Reduce-stage contract implemented by
// the native (reduce/native) and scripted (reduce/script) variants: both
// consume one chain.ChainEvent at a time and emit a contiguous, atomic
// run of model.StorageEvents bracketed by BlockStarting/BlockFinished
// (§4.3).
package reduce

import (
	"scrolls/chain"
	"scrolls/model"
)

// Reducer is one pluggable unit of reduction logic: given a parsed block,
// emit zero or more storage commands to out. Apply and Undo are expected
// to be inverses of each other at the command-sequence level (§4.3.1's
// invariant).
type Reducer interface {
	Apply(block *chain.Block, out func(model.StorageEvent)) error
	Undo(block *chain.Block, out func(model.StorageEvent)) error
}

// Framer decides whether a reduce stage instance emits the
// BlockStarting/BlockFinished framing markers around its reducers' output
// or only body commands, resolving the fan-out ambiguity from §9 via the
// configured "reduce.framing_policy" (SPEC_FULL §9): when more than one
// reduce stage is wired to the same storage stage, exactly one of them
// should frame each block to avoid nested or duplicated BEGIN/COMMIT
// envelopes downstream.
type FramingPolicy string

const (
	// FramingSingleFramer: this stage emits the framing markers (the
	// default — the first configured reduce stage in declaration order).
	FramingSingleFramer FramingPolicy = "single_framer"
	// FramingMerge: every configured reduce stage emits framing markers;
	// the storage backend is responsible for treating nested
	// BlockStarting/BlockFinished as a no-op beyond the first and last.
	FramingMerge FramingPolicy = "merge"
)

// Config is the tagged-variant reduce-stage configuration loaded from a
// "[[reducers]]" TOML table array entry (one per configured reduce stage).
type Config struct {
	Type   string `mapstructure:"type"` // "Native" | "Script"
	Frames bool   `mapstructure:"frames"`

	Native *NativeConfig `mapstructure:"native"`
	Script *ScriptConfig `mapstructure:"script"`
}

// NativeConfig configures the compiled-reducer variant: which named
// reducers to run, in declaration order.
type NativeConfig struct {
	Reducers []ReducerConfig `mapstructure:"reducers"`
}

// ReducerConfig names one native reducer and its key-prefix override.
type ReducerConfig struct {
	Name      string `mapstructure:"name"` // "BalanceByAddress" | "BalanceByStakeAddress"
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ScriptConfig configures the embedded-JS variant: the module files to
// load, each contributing an apply/undo export pair (§4.3.2).
type ScriptConfig struct {
	Modules []string `mapstructure:"modules"`
}
