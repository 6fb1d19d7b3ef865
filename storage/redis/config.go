package redis

// Config configures the Redis CRDT storage backend, loaded from the
// "[storage.redis]" TOML table when "[storage]" has type = "Redis".
type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}
