// Package mongo provides a MongoDB-backed store for Arcana using Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	arcana "github.com/xraph/arcana"
	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/session"
	arcanastore "github.com/xraph/arcana/store"
)

// Collection name constants.
const (
	colEntitlements = "arcana_entitlements"
	colSessions     = "arcana_sessions"
	colPayments     = "arcana_payments"
)

// compile-time interface check
var _ arcanastore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all Arcana collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("arcana/mongo: migrate %s indexes: %w", col, err)
		}
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

	var m entitlementModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("arcana/mongo: get entitlement: %w", err)
	}
	return fromEntitlementModel(&m), nil
}

func (s *Store) CommitDelta(ctx context.Context, userID string, d entitlement.Delta) (*entitlement.Entitlement, error) {
	if err := s.ensureEntitlement(ctx, userID); err != nil {
		return nil, err
	}

	filter := bson.M{"_id": userID}
	set := bson.M{"updated_at": now()}
	update := bson.M{"$set": set}

	// Each op carries its precondition in the filter, so the update is
	// atomic even without the engine's per-user lock.
	switch d.Op {
	case entitlement.OpSpendBalance:
		filter["balance"] = bson.M{"$gt": 0}
		update["$inc"] = bson.M{"balance": -1}
	case entitlement.OpAddCredits:
		if d.Credits <= 0 {
			return nil, arcana.ErrInvalidInput
		}
		update["$inc"] = bson.M{"balance": d.Credits, "total_purchases": 1}
	case entitlement.OpUseFreeTrial:
		filter["free_trial_used"] = false
		set["free_trial_used"] = true
	case entitlement.OpUseQuickQuota:
		if d.Limit > 0 {
			filter["quick_quota_used"] = bson.M{"$lt": d.Limit}
		}
		update["$inc"] = bson.M{"quick_quota_used": 1}
	case entitlement.OpRecordPurchase:
		update["$inc"] = bson.M{"total_purchases": 1}
	default:
		return nil, arcana.ErrInvalidInput
	}

	res, err := s.mdb.NewUpdate((*entitlementModel)(nil)).
		Filter(filter).
		SetUpdate(update).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("arcana/mongo: commit delta: %w", err)
	}
	if res.MatchedCount() == 0 {
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
	filter := bson.M{}
	if opts.WithPurchases {
		filter["total_purchases"] = bson.M{"$gt": 0}
	}

	var models []entitlementModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arcana/mongo: list entitlements: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("arcana/mongo: ensure entitlement: %w", err)
	}
	return nil
}

// ==================== Session Store ====================

func (s *Store) PutSession(ctx context.Context, sess *session.Session) error {
	m := toSessionModel(sess)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.UserID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":         m.UserID,
			"id":          m.ID,
			"tier_slug":   m.TierSlug,
			"settled":     m.Settled,
			"method":      m.Method,
			"question":    m.Question,
			"is_package":  m.IsPackage,
			"payment_ref": m.PaymentRef,
			"dispatching": m.Dispatching,
			"created_at":  m.CreatedAt,
			"updated_at":  m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("arcana/mongo: put session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, userID string) (*session.Session, error) {
	var m sessionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, arcana.ErrSessionNotFound
		}
		return nil, fmt.Errorf("arcana/mongo: get session: %w", err)
	}
	return fromSessionModel(&m)
}

func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	_, err := s.mdb.NewDelete((*sessionModel)(nil)).
		Filter(bson.M{"_id": userID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("arcana/mongo: delete session: %w", err)
	}
	return nil
}

func (s *Store) PurgeSessions(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	filter := bson.M{"updated_at": bson.M{"$lt": cutoff}}

	var models []sessionModel
	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "updated_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("arcana/mongo: purge sessions: %w", err)
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

	if _, err := s.mdb.NewDelete((*sessionModel)(nil)).
		Filter(filter).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("arcana/mongo: purge sessions: %w", err)
	}
	return purged, nil
}

// ==================== Payment Store ====================

func (s *Store) RecordPayment(ctx context.Context, p *session.Payment) error {
	m := toPaymentModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return arcana.ErrDuplicatePayment
		}
		return fmt.Errorf("arcana/mongo: record payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentRef string) (*session.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"payment_ref": paymentRef}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, arcana.ErrNotFound
		}
		return nil, fmt.Errorf("arcana/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListOrphanPayments(ctx context.Context, opts session.ListOpts) ([]*session.Payment, error) {
	filter := bson.M{"orphan": true}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}

	var models []paymentModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arcana/mongo: list orphan payments: %w", err)
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

func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all Arcana collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEntitlements: {
			{Keys: bson.D{{Key: "total_purchases", Value: -1}}},
		},
		colSessions: {
			{
				Keys:    bson.D{{Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "updated_at", Value: 1}}},
		},
		colPayments: {
			{
				Keys:    bson.D{{Key: "payment_ref", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "orphan", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}
