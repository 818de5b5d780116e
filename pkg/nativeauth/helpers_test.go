package nativeauth_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth/nativeauthtest"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice@example.com"
	testPassword = "correct-horse-battery"
)

type harness struct {
	srv    *nativeauthtest.Server
	client *nativeauth.Client
	rec    *telemetry.Recorder
}

// newHarness starts a fake service and a client pointed at it. Every
// telemetry event must be stopped exactly once by the end of the test.
func newHarness(t *testing.T, opts nativeauthtest.Options, configure ...func(*nativeauth.Config)) *harness {
	t.Helper()

	srv := nativeauthtest.New(t, opts)
	rec := &telemetry.Recorder{}

	cfg := nativeauth.Config{
		ClientID:      srv.ClientID(),
		Authority:     srv.URL,
		HTTPClient:    srv.Client(),
		RetryInterval: time.Millisecond,
		PollInterval:  time.Millisecond,
		Telemetry:     rec,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	client, err := nativeauth.New(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	t.Cleanup(func() {
		require.True(t, rec.Balanced(), "every telemetry event is stopped exactly once")
	})

	return &harness{srv: srv, client: client, rec: rec}
}

func (h *harness) addUser(t *testing.T) {
	t.Helper()
	h.srv.AddUser(nativeauthtest.User{Username: testUsername, Password: testPassword, Name: "Alice"})
}

// signIn signs the test user in with their password.
func (h *harness) signIn(t *testing.T) *nativeauth.UserAccount {
	t.Helper()

	res, err := h.client.SignIn(t.Context(), nativeauth.SignInParameters{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	completed, ok := res.(*nativeauth.SignInCompleted)
	require.True(t, ok, "expected *SignInCompleted, got %T", res)
	return completed.Account
}

func requireAs[T any](t *testing.T, v any) T {
	t.Helper()
	out, ok := v.(T)
	require.True(t, ok, "expected %T, got %T", *new(T), v)
	return out
}
