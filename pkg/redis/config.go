package redis

import "time"

// Config for the optional Redis connection. An empty URL disables Redis and
// webhook deduplication falls back to the database checks alone.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	DedupTTL       time.Duration `env:"REDIS_DEDUP_TTL" envDefault:"168h"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"swarmdock:"`
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool {
	return c.ConnectionURL != ""
}
