package native

import (
	"fmt"

	"scrolls/chain"
	"scrolls/model"
)

const defaultBalanceByAddressPrefix = "balance_by_address"

// BalanceByAddress emits a PNCounter delta per transaction input consumed
// and output produced, keyed by the payment address's canonical text
// form, grounded on reducers/rust/balance_by_address.rs.
type BalanceByAddress struct {
	keyPrefix string
}

// NewBalanceByAddress builds the reducer. An empty keyPrefix uses the
// default "balance_by_address".
func NewBalanceByAddress(keyPrefix string) *BalanceByAddress {
	if keyPrefix == "" {
		keyPrefix = defaultBalanceByAddressPrefix
	}
	return &BalanceByAddress{keyPrefix: keyPrefix}
}

// Apply increments the balance of every produced output and decrements
// the balance of every consumed input's prior output.
func (r *BalanceByAddress) Apply(block *chain.Block, out func(model.StorageEvent)) error {
	return r.walk(block, out, -1, 1)
}

// Undo swaps the signs: consumed inputs become +coin, produced outputs
// become -coin, the inverse of Apply (§4.3.1's invariant).
func (r *BalanceByAddress) Undo(block *chain.Block, out func(model.StorageEvent)) error {
	return r.walk(block, out, 1, -1)
}

func (r *BalanceByAddress) walk(block *chain.Block, out func(model.StorageEvent), inputSign, outputSign int64) error {
	for _, tx := range block.Txs {
		for _, in := range tx.Inputs {
			if in.AsOutput == nil {
				continue
			}
			if err := r.emit(in.AsOutput.Address, inputSign*in.AsOutput.Coin, out); err != nil {
				return err
			}
		}
		for _, o := range tx.Outputs {
			if err := r.emit(o.Address, outputSign*o.Coin, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *BalanceByAddress) emit(address []byte, delta int64, out func(model.StorageEvent)) error {
	text, err := addressText(address)
	if err != nil {
		return fmt.Errorf("balance_by_address: %w", err)
	}
	cmd := model.NewPNCounter(r.keyPrefix, text, delta)
	out(model.CRDTEvent(cmd))
	return nil
}
