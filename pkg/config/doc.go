// Package config loads typed configuration from the process environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - An optional .env file in the working directory is read once per
//     process, the first time any configuration is loaded. A missing file
//     is not an error; production reads the real environment.
//   - The environment is parsed into any struct using `env` and
//     `envDefault` field tags.
//   - Structs implementing Validator get a cross-field check after parsing.
//   - MustLoad panics on failure for settings the service cannot start
//     without.
//
// Each package that needs settings owns its Config struct (pg.Config,
// redis.Config, swarm.Config, billing.Config, ...) and the binary loads
// them side by side at startup.
//
// # Usage
//
// Declare a struct with env tags:
//
//	type Config struct {
//	    PurchaseDays int    `env:"CAPACITY_PURCHASE_DAYS" envDefault:"45"`
//	    RenewalDays  int    `env:"CAPACITY_RENEWAL_DAYS" envDefault:"31"`
//	    NodeURL      string `env:"SWARM_NODE_URL,required"`
//	}
//
//	func (c *Config) Validate() error {
//	    if c.RenewalDays > c.PurchaseDays {
//	        return errors.New("renewal horizon exceeds purchase horizon")
//	    }
//	    return nil
//	}
//
// Load it, usually next to the other configs so that every problem is
// reported at once:
//
//	import "github.com/swarmdock/backend/pkg/config"
//
//	var app AppConfig
//	var capacity Config
//	if err := errors.Join(
//	    config.Load(&app),
//	    config.Load(&capacity),
//	); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Load returns errors joined with a sentinel that can be matched with
// errors.Is:
//
//   - ErrNilPointer: a nil pointer was passed.
//   - ErrParsingConfig: env.Parse failed, for example a required variable
//     is missing or a value does not parse into the field type.
//   - ErrInvalidConfig: the struct's Validate method returned an error.
//
// # Testing
//
// Tests set variables with t.Setenv before calling Load. Parsing is not
// cached, so each call observes the current environment.
//
// # See Also
//
//   - https://github.com/joho/godotenv
//   - https://github.com/caarlos0/env
package config
