// Package config loads the daemon's TOML configuration into the typed
// trees each package's Bootstrapper expects, grounded on the teacher's
// pkg/config/config.go viper loader.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"scrolls/chain"
	"scrolls/pkg/utils"
	"scrolls/reduce"
	"scrolls/source"
	"scrolls/stage"
	"scrolls/storage/postgres"
	"scrolls/storage/redis"
)

// ChainConfig names the genesis parameter set the source stage decodes
// blocks against.
type ChainConfig struct {
	Type chain.ChainNetwork `mapstructure:"type"`
}

// StorageConfig is the tagged-variant storage configuration loaded from
// the "[storage]" TOML table.
type StorageConfig struct {
	Type     string          `mapstructure:"type"` // "Redis" | "Postgres"
	Redis    *redis.Config   `mapstructure:"redis"`
	Postgres *postgres.Config `mapstructure:"postgres"`
}

// finalizeFields mirrors chain.FinalizeConfig's TOML shape; it is decoded
// separately so Load can tell whether max_block_slot was actually set
// (chain.FinalizeConfig's hasMaxSlot flag is unexported and not a
// mapstructure target).
type finalizeFields struct {
	UntilHash    string `mapstructure:"until_hash"`
	MaxBlockSlot uint64 `mapstructure:"max_block_slot"`
}

// RetriesConfig is the "[retries]" TOML table, mirroring stage.RetryPolicy
// (§4.1's 20-attempt, 1s-doubling-to-60s-cap default, overridable here).
type RetriesConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	BackoffUnit   time.Duration `mapstructure:"backoff_unit"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
	Dismissible   bool          `mapstructure:"dismissible"`
}

// Policy converts the configured retry table into a stage.Policy, applying
// the same RetryPolicy to every lifecycle phase.
func (c RetriesConfig) Policy() stage.Policy {
	rp := stage.RetryPolicy{
		MaxRetries:    c.MaxRetries,
		BackoffUnit:   c.BackoffUnit,
		BackoffFactor: c.BackoffFactor,
		MaxBackoff:    c.MaxBackoff,
		Dismissible:   c.Dismissible,
	}
	return stage.Policy{Bootstrap: rp, Work: rp, Teardown: rp}
}

// ReduceGlobalConfig is the "[reduce]" TOML table, distinct from the
// repeatable "[[reducers]]" array: it carries settings that apply across
// every configured reduce stage rather than to one of them.
type ReduceGlobalConfig struct {
	// FramingPolicy resolves the fan-out ambiguity from spec.md §9
	// (SPEC_FULL §9): "single_framer" (default) or "merge". Empty decodes
	// to FramingSingleFramer by Resolve.
	FramingPolicy reduce.FramingPolicy `mapstructure:"framing_policy"`
}

// Resolve returns the effective framing policy, defaulting to
// single_framer when the table was omitted entirely.
func (c ReduceGlobalConfig) Resolve() reduce.FramingPolicy {
	if c.FramingPolicy == "" {
		return reduce.FramingSingleFramer
	}
	return c.FramingPolicy
}

// Root is the full daemon configuration tree, shaped exactly as spec.md
// §6's "[intersect] [chain] [source] [[reducers]] [storage] [finalize]
// [retries]" table set, plus the "[reduce]" global table SPEC_FULL §9
// adds to resolve the framing-policy Open Question.
type Root struct {
	Intersect chain.IntersectConfig `mapstructure:"intersect"`
	Chain     ChainConfig           `mapstructure:"chain"`
	Source    source.Config         `mapstructure:"source"`
	Reduce    ReduceGlobalConfig    `mapstructure:"reduce"`
	Reducers  []reduce.Config       `mapstructure:"reducers"`
	Storage   StorageConfig         `mapstructure:"storage"`
	Finalize  finalizeFields        `mapstructure:"finalize"`
	Retries   RetriesConfig         `mapstructure:"retries"`

	// MetricsAddr is the ambient top-level "metrics_addr" key (§6.4): where the
	// Prometheus /metrics endpoint listens. Not named in spec.md §6's
	// literal table set, which only enumerates the domain tables; defaults
	// to ":9090" when omitted.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads the daemon's configuration, per spec.md §6: first the
// optional /etc/scrolls/daemon.toml, then the optional ./daemon.toml
// merged on top, then an explicit --config PATH (mandatory if given,
// merged last so it has the final word), then environment variables
// prefixed SCROLLS_ with "." replaced by "_".
func Load(explicitPath string) (*Root, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("metrics_addr", ":9090")
	def := stage.DefaultRetryPolicy()
	v.SetDefault("retries.max_retries", def.MaxRetries)
	v.SetDefault("retries.backoff_unit", def.BackoffUnit)
	v.SetDefault("retries.backoff_factor", def.BackoffFactor)
	v.SetDefault("retries.max_backoff", def.MaxBackoff)
	v.SetDefault("retries.dismissible", def.Dismissible)

	if _, err := os.Stat("/etc/scrolls/daemon.toml"); err == nil {
		v.SetConfigFile("/etc/scrolls/daemon.toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, utils.Wrap(err, "read /etc/scrolls/daemon.toml")
		}
	}

	if _, err := os.Stat("daemon.toml"); err == nil {
		v.SetConfigFile("daemon.toml")
		if err := v.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, "merge ./daemon.toml")
		}
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("load config %q", explicitPath))
		}
	}

	v.SetEnvPrefix("SCROLLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var root Root
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&root, hook); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}

	root.Source.Intersect = root.Intersect
	root.Source.Finalize = chain.NewFinalizeConfig(
		root.Finalize.UntilHash,
		root.Finalize.MaxBlockSlot,
		v.IsSet("finalize.max_block_slot"),
	)

	return &root, nil
}
