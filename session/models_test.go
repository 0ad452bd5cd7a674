package session

import (
	"testing"
	"time"

	"github.com/xraph/arcana/entitlement"
)

func TestSessionStates(t *testing.T) {
	question := "Should I take the job?"

	tests := []struct {
		name             string
		mutate           func(*Session)
		ready            bool
		awaitingPayment  bool
		awaitingQuestion bool
	}{
		{
			"fresh session awaits payment",
			func(s *Session) {},
			false, true, false,
		},
		{
			"settled session awaits question",
			func(s *Session) { s.Settled = true; s.Method = entitlement.MethodBalance },
			false, false, true,
		},
		{
			"question before settlement still awaits payment",
			func(s *Session) { s.Question = &question },
			false, true, false,
		},
		{
			"settled with question is ready",
			func(s *Session) { s.Settled = true; s.Question = &question },
			true, false, false,
		},
		{
			"settled package session awaits nothing",
			func(s *Session) { s.Settled = true; s.IsPackage = true },
			false, false, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("u1", "three-cards")
			tt.mutate(s)

			if got := s.Ready(); got != tt.ready {
				t.Errorf("Ready: got %v, want %v", got, tt.ready)
			}
			if got := s.AwaitingPayment(); got != tt.awaitingPayment {
				t.Errorf("AwaitingPayment: got %v, want %v", got, tt.awaitingPayment)
			}
			if got := s.AwaitingQuestion(); got != tt.awaitingQuestion {
				t.Errorf("AwaitingQuestion: got %v, want %v", got, tt.awaitingQuestion)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	s := New("u1", "one-card")
	if s.ID.IsNil() {
		t.Error("expected a session ID")
	}
	if s.UserID != "u1" || s.TierSlug != "one-card" {
		t.Errorf("unexpected session fields: %+v", s)
	}
	if s.Settled || s.Dispatching || s.Question != nil {
		t.Error("new session must be unsettled with no question")
	}
}

func TestExpiresAt(t *testing.T) {
	s := New("u1", "one-card")
	ttl := 24 * time.Hour
	want := s.UpdatedAt.Add(ttl)
	if got := s.ExpiresAt(ttl); !got.Equal(want) {
		t.Errorf("ExpiresAt: got %v, want %v", got, want)
	}
}
