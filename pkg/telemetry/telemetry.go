// Package telemetry records the lifetime of each public operation. Every
// started Event is stopped exactly once, whatever path the operation takes.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/idx"
)

// API names a public operation.
type API string

const (
	APISignInWithPassword      API = "sign_in_with_password"
	APISignInWithCode          API = "sign_in_with_code"
	APISignInSubmitCode        API = "sign_in_submit_code"
	APISignInSubmitPassword    API = "sign_in_submit_password"
	APISignInResendCode        API = "sign_in_resend_code"
	APISignInAfterSignUp       API = "sign_in_after_sign_up"
	APISignInAfterReset        API = "sign_in_after_reset_password"
	APISignUp                  API = "sign_up"
	APISignUpSubmitCode        API = "sign_up_submit_code"
	APISignUpSubmitPassword    API = "sign_up_submit_password"
	APISignUpSubmitAttributes  API = "sign_up_submit_attributes"
	APISignUpResendCode        API = "sign_up_resend_code"
	APIResetPassword           API = "reset_password"
	APIResetPasswordSubmitCode API = "reset_password_submit_code"
	APIResetPasswordSubmit     API = "reset_password_submit_password"
	APIResetPasswordResendCode API = "reset_password_resend_code"
	APIRefreshToken            API = "refresh_token"
	APISignOut                 API = "sign_out"
)

// Event is one operation in flight.
type Event struct {
	ID            idx.ID
	API           API
	CorrelationID string
	StartedAt     time.Time

	mu      sync.Mutex
	account string
	stopped atomic.Bool
}

// NewEvent returns an event started now.
func NewEvent(api API, correlationID string) *Event {
	return &Event{
		ID:            idx.New(),
		API:           api,
		CorrelationID: correlationID,
		StartedAt:     time.Now(),
	}
}

// SetAccount attaches the account the operation acted on.
func (e *Event) SetAccount(homeAccountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account = homeAccountID
}

// Account returns the attached account, if any.
func (e *Event) Account() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

// Stopped reports whether the event was stopped.
func (e *Event) Stopped() bool { return e.stopped.Load() }

// Duration is the time since the event started.
func (e *Event) Duration() time.Duration { return time.Since(e.StartedAt) }

// Telemetry receives operation start and stop notifications.
type Telemetry interface {
	Start(ctx context.Context, api API, correlationID string) *Event
	Stop(ctx context.Context, event *Event, err error)
}

// Stop forwards to t.Stop the first time it is called for event. Later
// calls are no-ops and report false.
func Stop(ctx context.Context, t Telemetry, event *Event, err error) bool {
	if event == nil || !event.stopped.CompareAndSwap(false, true) {
		return false
	}
	t.Stop(ctx, event, err)
	return true
}

// Nop discards everything.
type Nop struct{}

func (Nop) Start(_ context.Context, api API, correlationID string) *Event {
	return NewEvent(api, correlationID)
}

func (Nop) Stop(context.Context, *Event, error) {}

// Multi fans out to several implementations. The event from the first one
// is shared with the rest.
func Multi(ts ...Telemetry) Telemetry {
	if len(ts) == 0 {
		return Nop{}
	}
	return multi(ts)
}

type multi []Telemetry

func (m multi) Start(ctx context.Context, api API, correlationID string) *Event {
	event := m[0].Start(ctx, api, correlationID)
	for _, t := range m[1:] {
		if s, ok := t.(starter); ok {
			s.started(ctx, event)
		}
	}
	return event
}

func (m multi) Stop(ctx context.Context, event *Event, err error) {
	for _, t := range m {
		t.Stop(ctx, event, err)
	}
}

// starter is implemented by telemetry that wants to observe an event it
// did not create.
type starter interface {
	started(ctx context.Context, event *Event)
}
