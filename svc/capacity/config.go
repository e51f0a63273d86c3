package capacity

import (
	"errors"
	"time"
)

// Config holds the provisioning horizons. RenewalDays must stay below
// PurchaseDays so a renewal never outlives a fresh purchase.
type Config struct {
	PurchaseDays  int           `env:"PURCHASE_DAYS" envDefault:"45"`
	RenewalDays   int           `env:"RENEWAL_DAYS" envDefault:"31"`
	CreateTimeout time.Duration `env:"SWARM_CREATE_TIMEOUT" envDefault:"10m"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{PurchaseDays: 45, RenewalDays: 31, CreateTimeout: 10 * time.Minute}
}

// Validate is called by config.Load.
func (c *Config) Validate() error {
	if c.PurchaseDays <= 0 || c.RenewalDays <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("horizons must be positive"))
	}
	if c.RenewalDays >= c.PurchaseDays {
		return errors.Join(ErrInvalidConfig, errors.New("RENEWAL_DAYS must be less than PURCHASE_DAYS"))
	}
	if c.CreateTimeout <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("SWARM_CREATE_TIMEOUT must be positive"))
	}
	return nil
}
