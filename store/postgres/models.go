package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/arcana/entitlement"
	"github.com/xraph/arcana/id"
	"github.com/xraph/arcana/session"
	"github.com/xraph/arcana/types"
)

// ==================== Entitlement models ====================

type entitlementModel struct {
	grove.BaseModel `grove:"table:arcana_entitlements"`

	UserID         string    `grove:"user_id,pk"`
	Balance        int       `grove:"balance"`
	TotalPurchases int       `grove:"total_purchases"`
	FreeTrialUsed  bool      `grove:"free_trial_used"`
	QuickQuotaUsed int       `grove:"quick_quota_used"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toEntitlementModel(e *entitlement.Entitlement) *entitlementModel {
	return &entitlementModel{
		UserID:         e.UserID,
		Balance:        e.Balance,
		TotalPurchases: e.TotalPurchases,
		FreeTrialUsed:  e.FreeTrialUsed,
		QuickQuotaUsed: e.QuickQuotaUsed,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromEntitlementModel(m *entitlementModel) *entitlement.Entitlement {
	return &entitlement.Entitlement{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:         m.UserID,
		Balance:        m.Balance,
		TotalPurchases: m.TotalPurchases,
		FreeTrialUsed:  m.FreeTrialUsed,
		QuickQuotaUsed: m.QuickQuotaUsed,
	}
}

// ==================== Session models ====================

type sessionModel struct {
	grove.BaseModel `grove:"table:arcana_sessions"`

	UserID      string    `grove:"user_id,pk"`
	ID          string    `grove:"id"`
	TierSlug    string    `grove:"tier_slug"`
	Settled     bool      `grove:"settled"`
	Method      string    `grove:"method"`
	Question    *string   `grove:"question"`
	IsPackage   bool      `grove:"is_package"`
	PaymentRef  string    `grove:"payment_ref"`
	Dispatching bool      `grove:"dispatching"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toSessionModel(s *session.Session) *sessionModel {
	return &sessionModel{
		UserID:      s.UserID,
		ID:          s.ID.String(),
		TierSlug:    s.TierSlug,
		Settled:     s.Settled,
		Method:      string(s.Method),
		Question:    s.Question,
		IsPackage:   s.IsPackage,
		PaymentRef:  s.PaymentRef,
		Dispatching: s.Dispatching,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromSessionModel(m *sessionModel) (*session.Session, error) {
	sessID, err := id.ParseSessionID(m.ID)
	if err != nil {
		return nil, err
	}

	return &session.Session{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          sessID,
		UserID:      m.UserID,
		TierSlug:    m.TierSlug,
		Settled:     m.Settled,
		Method:      entitlement.Method(m.Method),
		Question:    m.Question,
		IsPackage:   m.IsPackage,
		PaymentRef:  m.PaymentRef,
		Dispatching: m.Dispatching,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:arcana_payments"`

	ID             string    `grove:"id,pk"`
	UserID         string    `grove:"user_id"`
	TierSlug       string    `grove:"tier_slug"`
	PaymentRef     string    `grove:"payment_ref"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	SessionID      string    `grove:"session_id"`
	Orphan         bool      `grove:"orphan"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toPaymentModel(p *session.Payment) *paymentModel {
	return &paymentModel{
		ID:             p.ID.String(),
		UserID:         p.UserID,
		TierSlug:       p.TierSlug,
		PaymentRef:     p.PaymentRef,
		AmountCents:    p.Amount.Amount,
		AmountCurrency: p.Amount.Currency,
		SessionID:      p.SessionID.String(),
		Orphan:         p.Orphan,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*session.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}

	sessID := id.Nil
	if m.SessionID != "" {
		sessID, err = id.ParseSessionID(m.SessionID)
		if err != nil {
			return nil, err
		}
	}

	return &session.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         payID,
		UserID:     m.UserID,
		TierSlug:   m.TierSlug,
		PaymentRef: m.PaymentRef,
		Amount:     types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		SessionID:  sessID,
		Orphan:     m.Orphan,
	}, nil
}
