package swarm

import "time"

type Config struct {
	URL            string        `env:"BEE_URL,required"`
	RequestTimeout time.Duration `env:"BEE_REQUEST_TIMEOUT" envDefault:"30s"`
	UsableTimeout  time.Duration `env:"BEE_USABLE_TIMEOUT" envDefault:"8m"`
	PollInterval   time.Duration `env:"BEE_USABLE_POLL_INTERVAL" envDefault:"5s"`
	Immutable      bool          `env:"BEE_IMMUTABLE_BATCHES" envDefault:"false"`
}
