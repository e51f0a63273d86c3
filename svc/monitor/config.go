package monitor

// Config holds job schedules. Each accepts a Go duration, a cron
// descriptor or a five field cron expression.
type Config struct {
	ExpirationSchedule   string `env:"EXPIRATION_MONITOR_SCHEDULE" envDefault:"30m"`
	WalletSchedule       string `env:"WALLET_MONITOR_SCHEDULE" envDefault:"10m"`
	CancellationSchedule string `env:"CANCELLATION_SWEEP_SCHEDULE" envDefault:"5m"`
	// TTLWarnDays is the remaining batch lifetime at or below which the
	// expiration monitor logs a warning.
	TTLWarnDays int `env:"BATCH_TTL_WARN_DAYS" envDefault:"3"`
}

func DefaultConfig() Config {
	return Config{
		ExpirationSchedule:   "30m",
		WalletSchedule:       "10m",
		CancellationSchedule: "5m",
		TTLWarnDays:          3,
	}
}
