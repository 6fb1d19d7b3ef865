package native

import (
	"testing"

	"scrolls/chain"
	"scrolls/model"
)

func TestBalanceByStakeAddressIgnoresAddressesWithNoStakePart(t *testing.T) {
	r := NewBalanceByStakeAddress("")
	block := &chain.Block{
		Txs: []chain.Tx{{
			Outputs: []chain.TxOutput{
				{Address: []byte{0x60, 0x01}, Coin: 50}, // enterprise: no stake part
			},
		}},
	}
	var events []model.StorageEvent
	if err := r.Apply(block, collect(&events)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for a stakeless address, got %d", len(events))
	}
}

func TestBalanceByStakeAddressKeysByStakePart(t *testing.T) {
	r := NewBalanceByStakeAddress("")
	block := &chain.Block{
		Txs: []chain.Tx{{
			Outputs: []chain.TxOutput{
				{Address: shelleyBaseAddress(0x01, 0xEE), Coin: 25},
			},
		}},
	}
	var events []model.StorageEvent
	if err := r.Apply(block, collect(&events)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].CRDT.Delta != 25 {
		t.Fatalf("delta = %d, want 25", events[0].CRDT.Delta)
	}
	stake := make([]byte, stakePartLen)
	for i := range stake {
		stake[i] = 0xEE
	}
	stakeText, err := addressText(stake)
	if err != nil {
		t.Fatalf("addressText: %v", err)
	}
	if want := "balance_by_stake_address." + stakeText; events[0].CRDT.Key != want {
		t.Fatalf("key = %q, want %q", events[0].CRDT.Key, want)
	}
}
