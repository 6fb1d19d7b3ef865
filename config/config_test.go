package config

import (
	"testing"

	"scrolls/chain"
	"scrolls/internal/testutil"
)

const sampleTOML = `
[intersect]
type = "Point"
slot = 100
hash = "abcd"

[chain]
type = "mainnet"

[source]
type = "UtxoRPC"

[source.utxorpc]
endpoint = "http://localhost:50051"
network = "mainnet"

[[reducers]]
type = "Native"
frames = true

[reducers.native]
reducers = [{name = "BalanceByAddress", key_prefix = "bba"}]

[storage]
type = "Redis"

[storage.redis]
addr = "localhost:6379"
db = 2

[finalize]
max_block_slot = 500

[retries]
max_retries = 5
backoff_unit = "1s"
backoff_factor = 2.0
max_backoff = "30s"
dismissible = false
`

func writeSampleConfig(t *testing.T, toml string) string {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	t.Cleanup(func() { _ = sb.Cleanup() })
	if err := sb.WriteFile("daemon.toml", []byte(toml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return sb.Path("daemon.toml")
}

func TestLoadDecodesEveryTable(t *testing.T) {
	path := writeSampleConfig(t, sampleTOML)
	root, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if root.Intersect.Type != chain.IntersectPoint || root.Intersect.Slot != 100 {
		t.Fatalf("unexpected intersect: %+v", root.Intersect)
	}
	if root.Chain.Type != chain.ChainMainnet {
		t.Fatalf("unexpected chain: %+v", root.Chain)
	}
	if root.Source.Type != "UtxoRPC" || root.Source.UtxoRPC == nil || root.Source.UtxoRPC.Endpoint != "http://localhost:50051" {
		t.Fatalf("unexpected source: %+v", root.Source)
	}
	if len(root.Reducers) != 1 || root.Reducers[0].Type != "Native" || !root.Reducers[0].Frames {
		t.Fatalf("unexpected reducers: %+v", root.Reducers)
	}
	if root.Reducers[0].Native == nil || len(root.Reducers[0].Native.Reducers) != 1 ||
		root.Reducers[0].Native.Reducers[0].Name != "BalanceByAddress" {
		t.Fatalf("unexpected native reducer config: %+v", root.Reducers[0].Native)
	}
	if root.Storage.Type != "Redis" || root.Storage.Redis == nil || root.Storage.Redis.Addr != "localhost:6379" || root.Storage.Redis.DB != 2 {
		t.Fatalf("unexpected storage: %+v", root.Storage)
	}
	if root.Finalize.MaxBlockSlot != 500 {
		t.Fatalf("unexpected finalize fields: %+v", root.Finalize)
	}
	if root.Retries.MaxRetries != 5 || root.Retries.BackoffUnit.Seconds() != 1 || root.Retries.MaxBackoff.Seconds() != 30 {
		t.Fatalf("unexpected retries: %+v", root.Retries)
	}

	if root.Source.Intersect.Type != root.Intersect.Type {
		t.Fatalf("source intersect not propagated: %+v", root.Source.Intersect)
	}
}

func TestLoadPropagatesIntersectAndFinalizeIntoSource(t *testing.T) {
	path := writeSampleConfig(t, sampleTOML)
	root, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if root.Source.Intersect.Type != chain.IntersectPoint || root.Source.Intersect.Slot != 100 || root.Source.Intersect.Hash != "abcd" {
		t.Fatalf("intersect config not propagated to source: %+v", root.Source.Intersect)
	}
	if !root.Source.Finalize.HasMaxSlot() || root.Source.Finalize.MaxBlockSlot != 500 {
		t.Fatalf("finalize config not propagated to source: %+v", root.Source.Finalize)
	}
}

func TestLoadMissingExplicitPathErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path/daemon.toml"); err == nil {
		t.Fatalf("expected an error for a missing explicit config path")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeSampleConfig(t, sampleTOML)
	t.Setenv("SCROLLS_STORAGE_REDIS_ADDR", "redis.example:6380")

	root, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if root.Storage.Redis.Addr != "redis.example:6380" {
		t.Fatalf("expected env var to override file value, got %q", root.Storage.Redis.Addr)
	}
}
