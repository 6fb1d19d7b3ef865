package source

import "scrolls/chain"

// UtxoRPCConfig configures the production Client: a TCP streaming endpoint
// delivering Cardano blocks with their chain points as newline-delimited
// JSON frames, per §4.2.
type UtxoRPCConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Network  string `mapstructure:"network"`
}

// Config is the tagged-variant source configuration loaded from the
// "[source]" TOML table (§6's config contract: `type = "UtxoRPC", …`).
// Implemented as a tagged struct, not an interface hierarchy, per the
// spec's "tagged variants with a single dispatch shim" guidance: adding a
// variant is a local, exhaustive change to Bootstrapper, not new types
// implementing an open interface.
type Config struct {
	Type    string         `mapstructure:"type"`
	UtxoRPC *UtxoRPCConfig `mapstructure:"utxorpc"`

	Intersect chain.IntersectConfig `mapstructure:"-"`
	Finalize  chain.FinalizeConfig  `mapstructure:"-"`
}
