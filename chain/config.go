package chain

import (
	"encoding/hex"
	"fmt"
)

// IntersectKind selects how the source stage negotiates its starting point.
type IntersectKind string

const (
	IntersectTip         IntersectKind = "Tip"
	IntersectOrigin      IntersectKind = "Origin"
	IntersectPoint       IntersectKind = "Point"
	IntersectBreadcrumbs IntersectKind = "Breadcrumbs"
)

// Breadcrumb is a (slot, hex-hash) pair as it appears in configuration.
type Breadcrumb struct {
	Slot uint64 `mapstructure:"slot" toml:"slot"`
	Hash string `mapstructure:"hash" toml:"hash"`
}

// IntersectConfig selects the point at which the source negotiates chain
// sync with the upstream RPC.
type IntersectConfig struct {
	Type        IntersectKind `mapstructure:"type" toml:"type"`
	Slot        uint64        `mapstructure:"slot" toml:"slot"`
	Hash        string        `mapstructure:"hash" toml:"hash"`
	Breadcrumbs []Breadcrumb  `mapstructure:"breadcrumbs" toml:"breadcrumbs"`
}

// Points returns the candidate intersection points in configuration order,
// or nil when the strategy defers to Tip/Origin negotiation instead.
func (c IntersectConfig) Points() ([]Point, error) {
	switch c.Type {
	case IntersectBreadcrumbs:
		out := make([]Point, 0, len(c.Breadcrumbs))
		for _, b := range c.Breadcrumbs {
			h, err := hex.DecodeString(b.Hash)
			if err != nil {
				return nil, fmt.Errorf("decode breadcrumb hash %q: %w", b.Hash, err)
			}
			out = append(out, NewPoint(b.Slot, h))
		}
		return out, nil
	case IntersectPoint:
		h, err := hex.DecodeString(c.Hash)
		if err != nil {
			return nil, fmt.Errorf("decode intersect hash %q: %w", c.Hash, err)
		}
		return []Point{NewPoint(c.Slot, h)}, nil
	default:
		return nil, nil
	}
}

// Latest returns the highest-slot point among Points. The source stage does
// not call it: it hands every point from Points to the upstream Client.
func (c IntersectConfig) Latest() (Point, bool, error) {
	pts, err := c.Points()
	if err != nil {
		return Point{}, false, err
	}
	if len(pts) == 0 {
		return Point{}, false, nil
	}
	best := pts[0]
	for _, p := range pts[1:] {
		if best.Less(p) {
			best = p
		}
	}
	return best, true, nil
}

// FinalizeConfig is an optional stopping rule for the source stage.
type FinalizeConfig struct {
	UntilHash     string `mapstructure:"until_hash" toml:"until_hash"`
	MaxBlockSlot  uint64 `mapstructure:"max_block_slot" toml:"max_block_slot"`
	hasMaxSlot    bool
}

// NewFinalizeConfig builds a FinalizeConfig, recording whether a max slot
// bound was actually supplied (zero is a valid slot bound otherwise).
func NewFinalizeConfig(untilHash string, maxBlockSlot uint64, hasMaxSlot bool) FinalizeConfig {
	return FinalizeConfig{UntilHash: untilHash, MaxBlockSlot: maxBlockSlot, hasMaxSlot: hasMaxSlot}
}

// ShouldFinalize reports whether the source stage should stop after
// emitting the event at lastPoint.
func ShouldFinalize(cfg *FinalizeConfig, lastPoint Point) bool {
	if cfg == nil {
		return false
	}
	if cfg.UntilHash != "" && !lastPoint.IsOrigin() {
		if hex.EncodeToString(lastPoint.Hash()) == cfg.UntilHash {
			return true
		}
	}
	if cfg.hasMaxSlot && !lastPoint.IsOrigin() && lastPoint.Slot() >= cfg.MaxBlockSlot {
		return true
	}
	return false
}

// HasMaxSlot reports whether MaxBlockSlot was explicitly configured.
func (c FinalizeConfig) HasMaxSlot() bool { return c.hasMaxSlot }

// ChainNetwork names well-known Cardano network genesis parameter sets.
type ChainNetwork string

const (
	ChainMainnet ChainNetwork = "mainnet"
	ChainTestnet ChainNetwork = "testnet"
	ChainPreprod ChainNetwork = "preprod"
	ChainPreview ChainNetwork = "preview"
	ChainCustom  ChainNetwork = "custom"
)
