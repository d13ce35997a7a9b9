// mailer.go
//
// MockMailer records outbound mail instead of sending it.
package testutil

import (
	"context"
	"sync"
	"time"
)

// SentMail is one message captured by MockMailer.
type SentMail struct {
	Kind      string // "welcome" or "password_reset"
	ToEmail   string
	FirstName string
	URL       string
	ExpiresIn time.Duration
	Vars      map[string]string
}

// MockMailer implements mail.Mailer for tests.
// Use *Err fields to make a send fail.
type MockMailer struct {
	WelcomeErr error
	ResetErr   error

	mu   sync.Mutex
	sent []SentMail
}

func (m *MockMailer) SendWelcome(_ context.Context, toEmail, firstName string) error {
	if m.WelcomeErr != nil {
		return m.WelcomeErr
	}
	m.mu.Lock()
	m.sent = append(m.sent, SentMail{Kind: "welcome", ToEmail: toEmail, FirstName: firstName})
	m.mu.Unlock()
	return nil
}

func (m *MockMailer) SendPasswordReset(_ context.Context, toEmail, resetURL string, expiresIn time.Duration, vars map[string]string) error {
	if m.ResetErr != nil {
		return m.ResetErr
	}
	m.mu.Lock()
	m.sent = append(m.sent, SentMail{Kind: "password_reset", ToEmail: toEmail, URL: resetURL, ExpiresIn: expiresIn, Vars: vars})
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every captured message, oldest first.
func (m *MockMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// Last returns the most recent message of the given kind, or nil.
func (m *MockMailer) Last(kind string) *SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			s := m.sent[i]
			return &s
		}
	}
	return nil
}
