package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	arcana "github.com/xraph/arcana"
	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/session"
	arcanastore "github.com/xraph/arcana/store"
)

// compile-time interface check
var _ arcanastore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("arcana/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("arcana/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Entitlement Store ====================

func (s *Store) GetEntitlement(ctx context.Context, userID string) (*entitlement.Entitlement, error) {
	if err := s.ensureEntitlement(ctx, userID); err != nil {
		return nil, err
	}

	m := new(entitlementModel)
	err := s.pg.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromEntitlementModel(m), nil
}

func (s *Store) CommitDelta(ctx context.Context, userID string, d entitlement.Delta) (*entitlement.Entitlement, error) {
	if err := s.ensureEntitlement(ctx, userID); err != nil {
		return nil, err
	}

	t := now()
	q := s.pg.NewUpdate((*entitlementModel)(nil)).
		Set("updated_at = ?", t).
		Where("user_id = ?", userID)

	// Each op carries its precondition in the WHERE clause, so the
	// update is atomic even without the engine's per-user lock.
	switch d.Op {
	case entitlement.OpSpendBalance:
		q = q.Set("balance = balance - 1").Where("balance > 0")
	case entitlement.OpAddCredits:
		if d.Credits <= 0 {
			return nil, arcana.ErrInvalidInput
		}
		q = q.Set("balance = balance + ?", d.Credits).
			Set("total_purchases = total_purchases + 1")
	case entitlement.OpUseFreeTrial:
		q = q.Set("free_trial_used = TRUE").Where("free_trial_used = FALSE")
	case entitlement.OpUseQuickQuota:
		q = q.Set("quick_quota_used = quick_quota_used + 1")
		if d.Limit > 0 {
			q = q.Where("quick_quota_used < ?", d.Limit)
		}
	case entitlement.OpRecordPurchase:
		q = q.Set("total_purchases = total_purchases + 1")
	default:
		return nil, arcana.ErrInvalidInput
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		switch d.Op {
		case entitlement.OpSpendBalance:
			return nil, arcana.ErrInsufficientBalance
		case entitlement.OpUseFreeTrial:
			return nil, arcana.ErrTrialConsumed
		case entitlement.OpUseQuickQuota:
			return nil, arcana.ErrQuotaExceeded
		default:
			return nil, arcana.ErrNotFound
		}
	}

	return s.GetEntitlement(ctx, userID)
}

func (s *Store) ListEntitlements(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error) {
	var models []entitlementModel
	q := s.pg.NewSelect(&models)

	if opts.WithPurchases {
		q = q.Where("total_purchases > 0")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("user_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*entitlement.Entitlement, len(models))
	for i := range models {
		result[i] = fromEntitlementModel(&models[i])
	}
	return result, nil
}

// ensureEntitlement inserts the zero record for a first-seen user.
func (s *Store) ensureEntitlement(ctx context.Context, userID string) error {
	t := now()
	m := &entitlementModel{
		UserID:    userID,
		CreatedAt: t,
		UpdatedAt: t,
	}
	_, err := s.pg.NewInsert(m).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	return err
}

// ==================== Session Store ====================

func (s *Store) PutSession(ctx context.Context, sess *session.Session) error {
	m := toSessionModel(sess)
	_, err := s.pg.NewInsert(m).
		OnConflict("(user_id) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("tier_slug = EXCLUDED.tier_slug").
		Set("settled = EXCLUDED.settled").
		Set("method = EXCLUDED.method").
		Set("question = EXCLUDED.question").
		Set("is_package = EXCLUDED.is_package").
		Set("payment_ref = EXCLUDED.payment_ref").
		Set("dispatching = EXCLUDED.dispatching").
		Set("created_at = EXCLUDED.created_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetSession(ctx context.Context, userID string) (*session.Session, error) {
	m := new(sessionModel)
	err := s.pg.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, arcana.ErrSessionNotFound
		}
		return nil, err
	}
	return fromSessionModel(m)
}

func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	_, err := s.pg.NewDelete((*sessionModel)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (s *Store) PurgeSessions(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	var models []sessionModel
	err := s.pg.NewSelect(&models).
		Where("updated_at < ?", cutoff).
		OrderExpr("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}

	purged := make([]*session.Session, len(models))
	for i := range models {
		sess, err := fromSessionModel(&models[i])
		if err != nil {
			return nil, err
		}
		purged[i] = sess
	}

	if _, err := s.pg.NewDelete((*sessionModel)(nil)).
		Where("updated_at < ?", cutoff).
		Exec(ctx); err != nil {
		return nil, err
	}
	return purged, nil
}

// ==================== Payment Store ====================

func (s *Store) RecordPayment(ctx context.Context, p *session.Payment) error {
	m := toPaymentModel(p)
	res, err := s.pg.NewInsert(m).
		OnConflict("(payment_ref) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return arcana.ErrDuplicatePayment
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentRef string) (*session.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("payment_ref = ?", paymentRef).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, arcana.ErrNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) ListOrphanPayments(ctx context.Context, opts session.ListOpts) ([]*session.Payment, error) {
	var models []paymentModel
	q := s.pg.NewSelect(&models).Where("orphan = TRUE")

	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*session.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
