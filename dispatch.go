package arcana

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/arcana/id"
	"github.com/xraph/arcana/reading"
	"github.com/xraph/arcana/session"
	"github.com/xraph/arcana/types"
)

// joinCheck runs after either half of the join arrives. The caller
// must hold the user's lock. When both halves are present the session
// moves to Dispatching and the reading is produced exactly once.
func (e *Engine) joinCheck(ctx context.Context, lock *sync.Mutex, sess *session.Session) (*Outcome, error) {
	if !sess.Ready() {
		return &Outcome{
			Session:          sess,
			AwaitingQuestion: sess.AwaitingQuestion(),
			AwaitingPayment:  sess.AwaitingPayment(),
		}, nil
	}
	return e.dispatch(ctx, lock, sess)
}

// dispatch produces and delivers the reading for a completed session.
//
// The session is marked Dispatching and persisted before the lock is
// released, so redelivered events for this user bounce off
// ErrSessionBusy instead of re-triggering dispatch. The external
// generation and delivery calls then run without the lock: they may
// block on network I/O and must not stall other events.
//
// The session is deleted regardless of outcome. A failure after the
// entitlement was consumed is a permanent loss of that unit: retrying
// could double-deliver if the failure was on the delivery side.
func (e *Engine) dispatch(ctx context.Context, lock *sync.Mutex, sess *session.Session) (*Outcome, error) {
	sess.Dispatching = true
	sess.Touch()
	if err := e.store.PutSession(ctx, sess); err != nil {
		return nil, err
	}

	lock.Unlock()
	rd, genErr := e.produce(ctx, sess)
	lock.Lock()

	if err := e.store.DeleteSession(ctx, sess.UserID); err != nil {
		e.logger.Error("failed to clear dispatched session",
			"user_id", sess.UserID,
			"error", err,
		)
	}

	if genErr != nil {
		e.plugins.EmitDispatchFailed(ctx, sess, genErr)
		e.logger.Error("dispatch failed",
			"user_id", sess.UserID,
			"tier", sess.TierSlug,
			"method", sess.Method,
			"error", genErr,
		)
		return nil, genErr
	}

	e.plugins.EmitDispatched(ctx, rd)
	e.logger.Info("reading dispatched",
		"user_id", sess.UserID,
		"tier", sess.TierSlug,
		"method", sess.Method,
		"reading_id", rd.ID,
	)

	return &Outcome{
		Dispatched: true,
		Reading:    rd,
	}, nil
}

// produce draws the spread, generates the interpretation and delivers
// the reading. Runs without the user's lock.
func (e *Engine) produce(ctx context.Context, sess *session.Session) (*reading.Reading, error) {
	t, ok := e.catalog.Get(sess.TierSlug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, sess.TierSlug)
	}

	question := ""
	if sess.Question != nil {
		question = *sess.Question
	}

	e.rngMu.Lock()
	cards := reading.Draw(e.rng, t.Cards)
	e.rngMu.Unlock()

	spread := reading.Spread{
		TierName:  t.Name,
		Cards:     cards,
		Positions: t.Positions,
		Question:  question,
	}

	interpretation, err := e.generator.Generate(ctx, spread)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrDispatchFailed, err)
	}

	rd := &reading.Reading{
		Entity:         types.NewEntity(),
		ID:             id.NewReadingID(),
		UserID:         sess.UserID,
		TierSlug:       sess.TierSlug,
		Spread:         spread,
		Interpretation: interpretation,
	}

	if err := e.deliverer.Deliver(ctx, sess.UserID, rd); err != nil {
		return nil, fmt.Errorf("%w: deliver: %v", ErrDispatchFailed, err)
	}

	return rd, nil
}
