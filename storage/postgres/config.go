package postgres

// Config configures the Postgres RDBMS storage backend, loaded from the
// "[storage.postgres]" TOML table when "[storage]" has type = "Postgres".
type Config struct {
	URL string `mapstructure:"url"`
}
