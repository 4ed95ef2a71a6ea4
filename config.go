package anzen

import (
	"fmt"

	"github.com/caarlos0/env/v9"

	"github.com/root-talis/anzen/migration"
)

// Config carries the process-level safety settings. The zero value enables
// every check with no exemptions.
type Config struct {
	// SafetyAssured suspends all checks for the whole process. Meant for
	// environments (fresh databases, CI) where no live traffic exists.
	SafetyAssured bool

	// StartAfter grandfathers historical migrations: every run whose
	// version is at or below this cutoff is exempt from all checks.
	StartAfter migration.Version

	// Checks are user-supplied predicates, invoked for every non-exempt
	// operation after the built-in rules, in registration order.
	Checks []Check

	// Messages overrides the message template of a built-in rule by its
	// key. Unknown keys are a configuration defect.
	Messages map[string]string
}

type envConfig struct {
	SafetyAssured bool   `env:"ANZEN_SAFETY_ASSURED" envDefault:"false"`
	StartAfter    uint64 `env:"ANZEN_START_AFTER" envDefault:"0"`
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) {
	var parsed envConfig
	if err := env.Parse(&parsed); err != nil {
		return Config{}, fmt.Errorf("failed to parse safety settings from environment: %w", err)
	}

	return Config{
		SafetyAssured: parsed.SafetyAssured,
		StartAfter:    migration.Version(parsed.StartAfter),
	}, nil
}

// ---

func (c Config) validate() error {
	for key, template := range c.Messages {
		if !knownRuleKey(key) {
			return fmt.Errorf("%w: message override for unknown rule \"%s\"", ErrConfiguration, key)
		}
		if template == "" {
			return fmt.Errorf("%w: empty message template for rule \"%s\"", ErrConfiguration, key)
		}
	}

	return nil
}

func (c Config) grandfathered(version migration.Version) bool {
	return c.StartAfter != 0 && version != 0 && version <= c.StartAfter
}
