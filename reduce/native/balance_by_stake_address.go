package native

import (
	"scrolls/chain"
	"scrolls/model"
)

const defaultBalanceByStakeAddressPrefix = "balance_by_stake_address"

// BalanceByStakeAddress is analogous to BalanceByAddress but keys by the
// stake-part of each address; outputs whose address carries no stake
// component are ignored, per §4.3.1.
type BalanceByStakeAddress struct {
	keyPrefix string
}

// NewBalanceByStakeAddress builds the reducer. An empty keyPrefix uses
// the default "balance_by_stake_address".
func NewBalanceByStakeAddress(keyPrefix string) *BalanceByStakeAddress {
	if keyPrefix == "" {
		keyPrefix = defaultBalanceByStakeAddressPrefix
	}
	return &BalanceByStakeAddress{keyPrefix: keyPrefix}
}

func (r *BalanceByStakeAddress) Apply(block *chain.Block, out func(model.StorageEvent)) error {
	return r.walk(block, out, -1, 1)
}

func (r *BalanceByStakeAddress) Undo(block *chain.Block, out func(model.StorageEvent)) error {
	return r.walk(block, out, 1, -1)
}

func (r *BalanceByStakeAddress) walk(block *chain.Block, out func(model.StorageEvent), inputSign, outputSign int64) error {
	for _, tx := range block.Txs {
		for _, in := range tx.Inputs {
			if in.AsOutput == nil {
				continue
			}
			r.emit(in.AsOutput.Address, inputSign*in.AsOutput.Coin, out)
		}
		for _, o := range tx.Outputs {
			r.emit(o.Address, outputSign*o.Coin, out)
		}
	}
	return nil
}

func (r *BalanceByStakeAddress) emit(address []byte, delta int64, out func(model.StorageEvent)) {
	stake, ok := stakePart(address)
	if !ok {
		return
	}
	text, err := addressText(stake)
	if err != nil {
		return
	}
	cmd := model.NewPNCounter(r.keyPrefix, text, delta)
	out(model.CRDTEvent(cmd))
}
