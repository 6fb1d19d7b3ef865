package native

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// addressText decodes raw Cardano address bytes to a canonical text form,
// per §4.3.1 ("Address bytes are decoded to a canonical bech32/base58
// text form before keying"). The pack carries no bech32 implementation
// (checked across every example repo's go.mod); base58, carried
// transitively by AKJUS-bsc-erigon's go.mod, is used instead as the
// canonical codec. This is a deliberate simplification recorded in
// DESIGN.md, not a silent substitution: Cardano addresses are properly
// bech32, but nothing in the pack offers that codec to ground the choice
// on, and fabricating one would violate the no-fabricated-dependencies
// rule.
func addressText(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty address")
	}
	return base58.Encode(raw), nil
}

// Shelley address header layout (CIP-19 §"Shelley Addresses"): the header
// byte's high nibble selects the address type; types 0-3 carry a 28-byte
// payment part followed by a 28-byte stake part.
const (
	headerTypeMask  = 0xF0
	shelleyMaxType  = 0x30
	paymentPartLen  = 28
	stakePartLen    = 28
)

// stakePart extracts the stake credential from a Shelley base address. ok
// is false for enterprise, pointer, reward, or Byron addresses, which
// carry no stake part.
func stakePart(raw []byte) (stake []byte, ok bool) {
	if len(raw) < 1+paymentPartLen+stakePartLen {
		return nil, false
	}
	header := raw[0] & headerTypeMask
	if header > shelleyMaxType {
		return nil, false
	}
	start := 1 + paymentPartLen
	return raw[start : start+stakePartLen], true
}
