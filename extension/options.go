package extension

import (
	"time"

	"github.com/xraph/grove"

	arcana "github.com/xraph/arcana"
	"github.com/xraph/arcana/plugin"
	"github.com/xraph/arcana/store"
)

// Option configures the Arcana Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB supplies a grove.DB to build the store from. The backend
// is selected by the store_driver config key ("postgres", "sqlite" or
// "mongo"). Ignored when WithStore was also called.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithArcanaOption passes an arcana.Option through to the underlying engine.
func WithArcanaOption(opt arcana.Option) Option {
	return func(e *Extension) {
		e.arcanaOpts = append(e.arcanaOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.arcanaOpts = append(e.arcanaOpts, arcana.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSessionTTL sets how long an unfinished session survives before
// the sweeper purges it. A negative value disables the sweeper.
func WithSessionTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.SessionTTL = d }
}

// WithSweepInterval sets how often the sweeper scans for expired sessions.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithQuickQuota sets the number of free quick-decision readings per user.
func WithQuickQuota(n int) Option {
	return func(e *Extension) { e.config.QuickQuota = n }
}

// WithTrialTier restricts the one-time free trial to a single tier slug.
func WithTrialTier(slug string) Option {
	return func(e *Extension) { e.config.TrialTier = slug }
}

// WithStoreDriver selects the store backend built from the grove.DB.
func WithStoreDriver(driver string) Option {
	return func(e *Extension) { e.config.StoreDriver = driver }
}
