package billing

import "time"

type Config struct {
	// Provider used for new subscriptions.
	Provider string `env:"PAYMENT_PROVIDER" envDefault:"stripe"`
	// ProvisionTimeout bounds one background provisioning run.
	ProvisionTimeout time.Duration `env:"PROVISION_TIMEOUT" envDefault:"15m"`
}
