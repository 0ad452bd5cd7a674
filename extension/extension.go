// Package extension provides the Forge extension adapter for Arcana.
//
// It implements the forge.Extension interface to integrate Arcana
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.arcana" or "arcana" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	arcana "github.com/xraph/arcana"
	"github.com/xraph/arcana/store"
	"github.com/xraph/arcana/store/memory"
	mongostore "github.com/xraph/arcana/store/mongo"
	"github.com/xraph/arcana/store/postgres"
	"github.com/xraph/arcana/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "arcana"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Tarot reading entitlement and session engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Arcana as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *arcana.Engine
	store      store.Store
	groveDB    *grove.DB
	arcanaOpts []arcana.Option
}

// New creates a new Arcana Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Arcana engine.
// This is nil until Register is called.
func (e *Extension) Engine() *arcana.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.buildStore(); err != nil {
		return err
	}

	// Build engine options from resolved config.
	opts := e.buildArcanaOpts()

	eng := arcana.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*arcana.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("arcana: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("arcana: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore resolves the store backend. A programmatic store wins;
// otherwise a grove.DB plus the configured driver selects a SQL or
// Mongo backend, and the memory store is the fallback.
func (e *Extension) buildStore() error {
	if e.store != nil {
		return nil
	}

	if e.groveDB != nil {
		switch e.config.StoreDriver {
		case "postgres", "pg":
			e.store = postgres.New(e.groveDB)
		case "sqlite":
			e.store = sqlite.New(e.groveDB)
		case "mongo", "mongodb":
			e.store = mongostore.New(e.groveDB)
		case "":
			return errors.New("arcana: grove database provided but store_driver is not set")
		default:
			return fmt.Errorf("arcana: unknown store_driver %q", e.config.StoreDriver)
		}
		return nil
	}

	e.store = memory.New()
	return nil
}

// buildArcanaOpts constructs arcana.Option values from the resolved config.
func (e *Extension) buildArcanaOpts() []arcana.Option {
	opts := make([]arcana.Option, 0, len(e.arcanaOpts)+3)

	if e.config.SessionTTL < 0 {
		opts = append(opts, arcana.WithSessionTTL(0))
	} else if e.config.SessionTTL > 0 {
		opts = append(opts, arcana.WithSessionTTL(e.config.SessionTTL))
	}

	if e.config.SweepInterval > 0 {
		opts = append(opts, arcana.WithSweepInterval(e.config.SweepInterval))
	}

	if e.config.QuickQuota != DefaultConfig().QuickQuota || e.config.TrialTier != "" {
		opts = append(opts, arcana.WithPolicy(entitlementPolicy(e.config)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.arcanaOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("arcana: configuration is required but not found in config files; " +
				"ensure 'extensions.arcana' or 'arcana' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("arcana: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("session_ttl", e.config.SessionTTL),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("quick_quota", e.config.QuickQuota),
		forge.F("trial_tier", e.config.TrialTier),
		forge.F("store_driver", e.config.StoreDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.arcana" first (namespaced pattern).
	if cm.IsSet("extensions.arcana") {
		if err := cm.Bind("extensions.arcana", &cfg); err == nil {
			e.Logger().Debug("arcana: loaded config from file",
				forge.F("key", "extensions.arcana"),
			)
			return cfg, true
		}
		e.Logger().Warn("arcana: failed to bind extensions.arcana config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "arcana" key.
	if cm.IsSet("arcana") {
		if err := cm.Bind("arcana", &cfg); err == nil {
			e.Logger().Debug("arcana: loaded config from file",
				forge.F("key", "arcana"),
			)
			return cfg, true
		}
		e.Logger().Warn("arcana: failed to bind arcana config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.QuickQuota == 0 {
		cfg.QuickQuota = defaults.QuickQuota
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.TrialTier == "" && programmaticConfig.TrialTier != "" {
		yamlConfig.TrialTier = programmaticConfig.TrialTier
	}
	if yamlConfig.StoreDriver == "" && programmaticConfig.StoreDriver != "" {
		yamlConfig.StoreDriver = programmaticConfig.StoreDriver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SessionTTL == 0 && programmaticConfig.SessionTTL != 0 {
		yamlConfig.SessionTTL = programmaticConfig.SessionTTL
	}
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if yamlConfig.QuickQuota == 0 && programmaticConfig.QuickQuota != 0 {
		yamlConfig.QuickQuota = programmaticConfig.QuickQuota
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
