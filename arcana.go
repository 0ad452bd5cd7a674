package arcana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/id"
	"github.com/xraph/arcana/plugin"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/session"
	"github.com/xraph/arcana/stats"
	"github.com/xraph/arcana/store"
	"github.com/xraph/arcana/tier"
	"github.com/xraph/arcana/types"
)

// Engine is the entitlement and session reconciliation engine. It joins
// the two asynchronous halves of a reading request — settlement and
// question — and dispatches the reading exactly once per completed
// session.
type Engine struct {
	store   store.Store
	catalog *tier.Catalog
	policy  entitlement.Policy
	plugins *plugin.Registry
	logger  *slog.Logger

	generator reading.Generator
	deliverer reading.Deliverer

	// Per-user serialization: all mutations to one user's session and
	// entitlement go through that user's lock. Cross-user work is
	// fully parallel.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// rng feeds the card draw; rand.Rand is not safe for concurrent
	// use, so draws take rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand

	// Background session sweeper
	sessionTTL    time.Duration
	sweepInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		catalog:       tier.Default(),
		policy:        entitlement.DefaultPolicy(),
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		generator:     reading.KeywordGenerator{},
		deliverer:     nopDeliverer{},
		locks:         make(map[string]*sync.Mutex),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		sessionTTL:    24 * time.Hour,
		sweepInterval: time.Hour,
		stopChan:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithCatalog replaces the default tier catalog.
func WithCatalog(c *tier.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithPolicy replaces the default funding policy.
func WithPolicy(p entitlement.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithGenerator sets the interpretation generator.
func WithGenerator(g reading.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithDeliverer sets the reading delivery transport.
func WithDeliverer(d reading.Deliverer) Option {
	return func(e *Engine) {
		e.deliverer = d
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSessionTTL configures the background sweeper. Sessions not
// touched for ttl are purged. Zero disables the sweeper and keeps
// abandoned sessions forever.
func WithSessionTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.sessionTTL = ttl
	}
}

// WithSweepInterval sets how often the sweeper runs.
func WithSweepInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = interval
	}
}

// WithRand sets the random source used for card draws. Intended for
// deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start session sweeper
	if e.sessionTTL > 0 {
		e.wg.Add(1)
		go e.sweepWorker(ctx)
	}

	e.logger.Info("arcana started",
		"tiers", e.catalog.Len(),
		"session_ttl", e.sessionTTL,
		"quick_quota", e.policy.QuickQuota,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Catalog returns the tier catalog.
func (e *Engine) Catalog() *tier.Catalog { return e.catalog }

// ──────────────────────────────────────────────────
// Result types
// ──────────────────────────────────────────────────

// Invoice is the payment request emitted for a selection the policy
// could not fund. The host presents it through its payment transport.
type Invoice struct {
	TierSlug    string      `json:"tier_slug"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Amount      types.Money `json:"amount"`
}

// Selection is the outcome of a SelectTier event.
type Selection struct {
	Session *session.Session   `json:"session"`
	Tier    tier.Tier          `json:"tier"`
	Method  entitlement.Method `json:"method"`

	// RequiresPayment is true when nothing free covered the tier and
	// Invoice carries the payment request.
	RequiresPayment bool     `json:"requires_payment"`
	Invoice         *Invoice `json:"invoice,omitempty"`

	// QuotaRemaining is the number of free quick decisions left after
	// this selection. Only meaningful for the quick-quota method.
	QuotaRemaining int `json:"quota_remaining,omitempty"`

	// Superseded is the previous session this selection discarded.
	Superseded *session.Session `json:"superseded,omitempty"`
}

// Outcome is the result of a ConfirmPayment or SubmitQuestion event.
type Outcome struct {
	Session *session.Session `json:"session,omitempty"`

	// Duplicate is true when the event had already been applied and
	// this delivery was a no-op.
	Duplicate bool `json:"duplicate,omitempty"`

	// Join status when the session is still waiting on its other half.
	AwaitingQuestion bool `json:"awaiting_question,omitempty"`
	AwaitingPayment  bool `json:"awaiting_payment,omitempty"`

	// Dispatched is true when both halves arrived and the reading was
	// generated and delivered. Reading is the dispatched result.
	Dispatched bool             `json:"dispatched,omitempty"`
	Reading    *reading.Reading `json:"reading,omitempty"`

	// CreditsAdded is set for package purchases.
	CreditsAdded int                      `json:"credits_added,omitempty"`
	Entitlement  *entitlement.Entitlement `json:"entitlement,omitempty"`
}

// Profile is a read-only snapshot of a user's standing.
type Profile struct {
	Entitlement    *entitlement.Entitlement `json:"entitlement"`
	Session        *session.Session         `json:"session,omitempty"`
	QuotaRemaining int                      `json:"quota_remaining"`
}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

// SelectTier opens a fresh session for the user's tier choice. Any
// previous session for the user is discarded: nothing was committed
// for an unpaid pending session, so there is nothing to refund. Free
// funding (trial, quota, balance) is committed to the ledger before
// the session is stored, so a crash between the two loses at most the
// session, never double-spends.
func (e *Engine) SelectTier(ctx context.Context, userID, tierSlug string) (*Selection, error) {
	t, ok := e.catalog.Get(tierSlug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, tierSlug)
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	old, err := e.store.GetSession(ctx, userID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if old != nil && old.Dispatching {
		return nil, ErrSessionBusy
	}

	ent, err := e.store.GetEntitlement(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerCommit, err)
	}

	decision := e.policy.Decide(ent, t)

	sess := session.New(userID, t.Slug)
	sess.IsPackage = t.IsPackage
	sess.Method = decision.Method

	if !decision.RequiresPayment {
		if _, err := e.store.CommitDelta(ctx, userID, decision.Delta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerCommit, err)
		}
		sess.Settled = true
	}

	if err := e.store.PutSession(ctx, sess); err != nil {
		return nil, err
	}

	if old != nil {
		e.plugins.EmitSessionSuperseded(ctx, old, sess)
	}
	e.plugins.EmitSessionOpened(ctx, sess)

	sel := &Selection{
		Session:         sess,
		Tier:            t,
		Method:          decision.Method,
		RequiresPayment: decision.RequiresPayment,
		QuotaRemaining:  decision.QuotaRemaining,
		Superseded:      old,
	}

	if decision.RequiresPayment {
		sel.Invoice = &Invoice{
			TierSlug:    t.Slug,
			Title:       t.Name,
			Description: t.Description,
			Amount:      t.Price,
		}
		e.plugins.EmitInvoiceRequested(ctx, sess)

		if t.QuickDecision && e.policy.QuotaRemaining(ent) == 0 {
			e.plugins.EmitQuotaExceeded(ctx, userID, ent.QuickQuotaUsed, e.policy.QuickQuota)
		}

		e.logger.Info("invoice requested",
			"user_id", userID,
			"tier", t.Slug,
			"amount", t.Price.String(),
		)
	} else {
		e.plugins.EmitSettled(ctx, sess)
		e.logger.Info("session settled on selection",
			"user_id", userID,
			"tier", t.Slug,
			"method", decision.Method,
		)
	}

	return sel, nil
}

// ConfirmPayment applies an external payment confirmation. The payment
// reference is recorded under a unique key before its effects are
// applied, so a redelivery that finds the record but not its effects
// resumes them instead of reporting a duplicate; only a reference whose
// session already settled or was replaced is a true redelivery. A
// confirmation with no session to claim it is recorded as an orphan and
// reported, never silently dropped.
func (e *Engine) ConfirmPayment(ctx context.Context, userID, paymentRef string) (*Outcome, error) {
	if paymentRef == "" {
		return nil, fmt.Errorf("%w: empty payment reference", ErrInvalidInput)
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	prior, err := e.store.GetPayment(ctx, paymentRef)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	recorded := prior != nil

	sess, err := e.store.GetSession(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			if recorded {
				return e.duplicatePayment(userID, paymentRef), nil
			}
			return nil, e.recordOrphan(ctx, userID, paymentRef)
		}
		return nil, err
	}
	if sess.Dispatching {
		return nil, ErrSessionBusy
	}
	if sess.Settled {
		if recorded {
			return e.duplicatePayment(userID, paymentRef), nil
		}
		// A fresh reference against an already-settled session is an
		// unclaimed charge: record it before reporting the conflict.
		if oErr := e.recordOrphan(ctx, userID, paymentRef); !errors.Is(oErr, ErrOrphanPayment) {
			return nil, oErr
		}
		return nil, ErrAlreadySettled
	}
	// A recorded reference claimed by an earlier session has nothing
	// left to apply against the current one.
	if recorded && prior.SessionID != sess.ID {
		return e.duplicatePayment(userID, paymentRef), nil
	}

	t, ok := e.catalog.Get(sess.TierSlug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, sess.TierSlug)
	}

	if recorded {
		// The record landed on a previous delivery but the ledger and
		// session effects did not; re-run them.
		e.logger.Info("resuming payment confirmation",
			"user_id", userID,
			"payment_ref", paymentRef,
		)
	} else {
		pay := &session.Payment{
			Entity:     types.NewEntity(),
			ID:         id.NewPaymentID(),
			UserID:     userID,
			TierSlug:   t.Slug,
			PaymentRef: paymentRef,
			Amount:     t.Price,
			SessionID:  sess.ID,
		}
		if err := e.store.RecordPayment(ctx, pay); err != nil {
			if IsPaymentError(err) {
				return e.duplicatePayment(userID, paymentRef), nil
			}
			return nil, err
		}
	}

	// Package purchases complete on payment alone: credit the balance
	// and terminate the session without an input join.
	if sess.IsPackage {
		ent, err := e.store.CommitDelta(ctx, userID, entitlement.AddCredits(t.PackageCredits))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerCommit, err)
		}

		sess.Settled = true
		sess.Method = entitlement.MethodPaid
		sess.PaymentRef = paymentRef
		if err := e.store.DeleteSession(ctx, userID); err != nil {
			// Credits are committed. Persist the settled marker so a
			// redelivery short-circuits instead of crediting again.
			sess.Touch()
			if pErr := e.store.PutSession(ctx, sess); pErr != nil {
				e.logger.Error("failed to clear settled package session",
					"user_id", userID,
					"payment_ref", paymentRef,
					"error", err,
				)
			}
		}

		e.plugins.EmitSettled(ctx, sess)
		e.plugins.EmitPackageCredited(ctx, ent, t.PackageCredits)

		e.logger.Info("package credited",
			"user_id", userID,
			"tier", t.Slug,
			"credits", t.PackageCredits,
			"balance", ent.Balance,
		)

		return &Outcome{
			CreditsAdded: t.PackageCredits,
			Entitlement:  ent,
		}, nil
	}

	if _, err := e.store.CommitDelta(ctx, userID, entitlement.RecordPurchase()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerCommit, err)
	}

	sess.Settled = true
	sess.Method = entitlement.MethodPaid
	sess.PaymentRef = paymentRef
	sess.Touch()
	if err := e.store.PutSession(ctx, sess); err != nil {
		return nil, err
	}
	e.plugins.EmitSettled(ctx, sess)

	return e.joinCheck(ctx, lock, sess)
}

// SubmitQuestion records the user's free-text question. Without an
// active session this is reported as "no active request" and nothing
// changes.
func (e *Engine) SubmitQuestion(ctx context.Context, userID, text string) (*Outcome, error) {
	if text == "" {
		return nil, ErrQuestionEmpty
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.store.GetSession(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	if sess.Dispatching {
		return nil, ErrSessionBusy
	}
	// Package sessions never collect a question.
	if sess.IsPackage {
		return nil, ErrNoActiveSession
	}

	sess.Question = &text
	sess.Touch()
	if err := e.store.PutSession(ctx, sess); err != nil {
		return nil, err
	}

	return e.joinCheck(ctx, lock, sess)
}

// ──────────────────────────────────────────────────
// Reporting
// ──────────────────────────────────────────────────

// Profile returns the user's entitlement and session snapshot.
func (e *Engine) Profile(ctx context.Context, userID string) (*Profile, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ent, err := e.store.GetEntitlement(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess, err := e.store.GetSession(ctx, userID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	return &Profile{
		Entitlement:    ent,
		Session:        sess,
		QuotaRemaining: e.policy.QuotaRemaining(ent),
	}, nil
}

// Report computes the operator funnel report over the whole ledger.
func (e *Engine) Report(ctx context.Context) (*stats.Report, error) {
	ents, err := e.store.ListEntitlements(ctx, entitlement.ListOpts{})
	if err != nil {
		return nil, err
	}
	return stats.Compute(ents, e.policy.QuickQuota), nil
}

// OrphanPayments lists settled payments that arrived with no session.
func (e *Engine) OrphanPayments(ctx context.Context, opts session.ListOpts) ([]*session.Payment, error) {
	return e.store.ListOrphanPayments(ctx, opts)
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// userLock returns the serialization lock for a user, creating it on
// first use. Locks are never removed; the table grows with the active
// user set, which is bounded in practice.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// duplicatePayment logs and builds the no-op outcome for a payment
// reference whose effects are already in place.
func (e *Engine) duplicatePayment(userID, paymentRef string) *Outcome {
	e.logger.Info("duplicate payment confirmation ignored",
		"user_id", userID,
		"payment_ref", paymentRef,
	)
	return &Outcome{Duplicate: true}
}

// recordOrphan durably records a payment that has no session to claim
// it, so the money is never silently dropped, then reports it.
func (e *Engine) recordOrphan(ctx context.Context, userID, paymentRef string) error {
	pay := &session.Payment{
		Entity:     types.NewEntity(),
		ID:         id.NewPaymentID(),
		UserID:     userID,
		PaymentRef: paymentRef,
		Orphan:     true,
	}
	if err := e.store.RecordPayment(ctx, pay); err != nil {
		if IsPaymentError(err) {
			// Already recorded; still an orphan.
			return ErrOrphanPayment
		}
		return err
	}

	e.plugins.EmitOrphanPayment(ctx, pay)
	e.logger.Error("orphan payment recorded",
		"user_id", userID,
		"payment_ref", paymentRef,
	)
	return ErrOrphanPayment
}

// sweepWorker purges sessions whose last activity predates the TTL.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Engine) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-e.sessionTTL)
	purged, err := e.store.PurgeSessions(ctx, cutoff)
	if err != nil {
		e.logger.Error("session sweep failed", "error", err)
		return
	}
	if len(purged) == 0 {
		return
	}

	e.plugins.EmitSessionsPurged(ctx, purged)
	e.logger.Info("purged stale sessions",
		"count", len(purged),
		"cutoff", cutoff,
	)
}

// nopDeliverer is the default delivery transport: it drops readings on
// the floor. Hosts wire a real transport via WithDeliverer.
type nopDeliverer struct{}

func (nopDeliverer) Deliver(context.Context, string, *reading.Reading) error { return nil }
