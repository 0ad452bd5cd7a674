package extension

import (
	"time"

	"github.com/xraph/arcana/entitlement"
)

// Config holds the Arcana extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.arcana" or "arcana" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// SessionTTL is how long an unfinished session survives before the
	// sweeper purges it (default: 24h). Zero uses the default; a
	// negative value disables the sweeper.
	SessionTTL time.Duration `json:"session_ttl" mapstructure:"session_ttl" yaml:"session_ttl"`

	// SweepInterval is how often the sweeper scans for expired sessions
	// (default: 1h).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// QuickQuota is the number of free quick-decision readings per user
	// (default: 5).
	QuickQuota int `json:"quick_quota" mapstructure:"quick_quota" yaml:"quick_quota"`

	// TrialTier restricts the one-time free trial to a single tier slug.
	// Empty means the trial covers any non-package tier.
	TrialTier string `json:"trial_tier" mapstructure:"trial_tier" yaml:"trial_tier"`

	// StoreDriver selects the store backend to build from the grove.DB
	// supplied via WithGroveDB: "postgres", "sqlite" or "mongo".
	// Ignored when no grove.DB is provided.
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionTTL:    24 * time.Hour,
		SweepInterval: time.Hour,
		QuickQuota:    5,
	}
}

// entitlementPolicy maps config knobs onto the engine funding policy.
func entitlementPolicy(cfg Config) entitlement.Policy {
	return entitlement.Policy{
		QuickQuota: cfg.QuickQuota,
		TrialTier:  cfg.TrialTier,
	}
}
