package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/session"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onSessionOpened     []OnSessionOpened
	onSessionSuperseded []OnSessionSuperseded
	onSettled           []OnSettled
	onInvoiceRequested  []OnInvoiceRequested
	onSessionsPurged    []OnSessionsPurged
	onPackageCredited   []OnPackageCredited
	onQuotaExceeded     []OnQuotaExceeded
	onOrphanPayment     []OnOrphanPayment
	onDispatched        []OnDispatched
	onDispatchFailed    []OnDispatchFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSessionOpened); ok {
		r.onSessionOpened = append(r.onSessionOpened, v)
	}
	if v, ok := p.(OnSessionSuperseded); ok {
		r.onSessionSuperseded = append(r.onSessionSuperseded, v)
	}
	if v, ok := p.(OnSettled); ok {
		r.onSettled = append(r.onSettled, v)
	}
	if v, ok := p.(OnInvoiceRequested); ok {
		r.onInvoiceRequested = append(r.onInvoiceRequested, v)
	}
	if v, ok := p.(OnSessionsPurged); ok {
		r.onSessionsPurged = append(r.onSessionsPurged, v)
	}
	if v, ok := p.(OnPackageCredited); ok {
		r.onPackageCredited = append(r.onPackageCredited, v)
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
	}
	if v, ok := p.(OnOrphanPayment); ok {
		r.onOrphanPayment = append(r.onOrphanPayment, v)
	}
	if v, ok := p.(OnDispatched); ok {
		r.onDispatched = append(r.onDispatched, v)
	}
	if v, ok := p.(OnDispatchFailed); ok {
		r.onDispatchFailed = append(r.onDispatchFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnSessionOpened)(nil)).Elem(), "OnSessionOpened")
	checkInterface(reflect.TypeOf((*OnSessionSuperseded)(nil)).Elem(), "OnSessionSuperseded")
	checkInterface(reflect.TypeOf((*OnSettled)(nil)).Elem(), "OnSettled")
	checkInterface(reflect.TypeOf((*OnInvoiceRequested)(nil)).Elem(), "OnInvoiceRequested")
	checkInterface(reflect.TypeOf((*OnSessionsPurged)(nil)).Elem(), "OnSessionsPurged")
	checkInterface(reflect.TypeOf((*OnPackageCredited)(nil)).Elem(), "OnPackageCredited")
	checkInterface(reflect.TypeOf((*OnQuotaExceeded)(nil)).Elem(), "OnQuotaExceeded")
	checkInterface(reflect.TypeOf((*OnOrphanPayment)(nil)).Elem(), "OnOrphanPayment")
	checkInterface(reflect.TypeOf((*OnDispatched)(nil)).Elem(), "OnDispatched")
	checkInterface(reflect.TypeOf((*OnDispatchFailed)(nil)).Elem(), "OnDispatchFailed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSessionOpened emits a session opened event.
func (r *Registry) EmitSessionOpened(ctx context.Context, sess *session.Session) {
	r.mu.RLock()
	plugins := r.onSessionOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSessionOpened(ctx, sess)
		}); err != nil {
			r.logger.Warn("plugin OnSessionOpened failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSessionSuperseded emits a session superseded event.
func (r *Registry) EmitSessionSuperseded(ctx context.Context, old, replacement *session.Session) {
	r.mu.RLock()
	plugins := r.onSessionSuperseded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSessionSuperseded(ctx, old, replacement)
		}); err != nil {
			r.logger.Warn("plugin OnSessionSuperseded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettled emits a session settled event.
func (r *Registry) EmitSettled(ctx context.Context, sess *session.Session) {
	r.mu.RLock()
	plugins := r.onSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettled(ctx, sess)
		}); err != nil {
			r.logger.Warn("plugin OnSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceRequested emits an invoice requested event.
func (r *Registry) EmitInvoiceRequested(ctx context.Context, sess *session.Session) {
	r.mu.RLock()
	plugins := r.onInvoiceRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceRequested(ctx, sess)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceRequested failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSessionsPurged emits a sessions purged event.
func (r *Registry) EmitSessionsPurged(ctx context.Context, purged []*session.Session) {
	r.mu.RLock()
	plugins := r.onSessionsPurged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSessionsPurged(ctx, purged)
		}); err != nil {
			r.logger.Warn("plugin OnSessionsPurged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPackageCredited emits a package credited event.
func (r *Registry) EmitPackageCredited(ctx context.Context, ent *entitlement.Entitlement, credits int) {
	r.mu.RLock()
	plugins := r.onPackageCredited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPackageCredited(ctx, ent, credits)
		}); err != nil {
			r.logger.Warn("plugin OnPackageCredited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, userID string, used, limit int) {
	r.mu.RLock()
	plugins := r.onQuotaExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnQuotaExceeded(ctx, userID, used, limit)
		}); err != nil {
			r.logger.Warn("plugin OnQuotaExceeded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOrphanPayment emits an orphan payment event.
func (r *Registry) EmitOrphanPayment(ctx context.Context, pay *session.Payment) {
	r.mu.RLock()
	plugins := r.onOrphanPayment
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOrphanPayment(ctx, pay)
		}); err != nil {
			r.logger.Warn("plugin OnOrphanPayment failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDispatched emits a reading dispatched event.
func (r *Registry) EmitDispatched(ctx context.Context, rd *reading.Reading) {
	r.mu.RLock()
	plugins := r.onDispatched
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDispatched(ctx, rd)
		}); err != nil {
			r.logger.Warn("plugin OnDispatched failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDispatchFailed emits a dispatch failed event.
func (r *Registry) EmitDispatchFailed(ctx context.Context, sess *session.Session, cause error) {
	r.mu.RLock()
	plugins := r.onDispatchFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDispatchFailed(ctx, sess, cause)
		}); err != nil {
			r.logger.Warn("plugin OnDispatchFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the reconciliation pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
