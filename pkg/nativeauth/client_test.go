package nativeauth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth/nativeauthtest"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  nativeauth.Config
	}{
		{name: "missing client id", cfg: nativeauth.Config{Authority: "https://contoso.ciamlogin.com/contoso.onmicrosoft.com"}},
		{name: "missing authority", cfg: nativeauth.Config{ClientID: "client"}},
		{name: "relative authority", cfg: nativeauth.Config{ClientID: "client", Authority: "contoso"}},
		{
			name: "unknown challenge type",
			cfg: nativeauth.Config{
				ClientID:       "client",
				Authority:      "https://contoso.ciamlogin.com/contoso.onmicrosoft.com",
				ChallengeTypes: []nativeauth.ChallengeType{"carrier-pigeon"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := nativeauth.New(tt.cfg)
			require.ErrorIs(t, err, nativeauth.ErrInvalidConfig)
			require.Nil(t, client)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	client, err := nativeauth.New(nativeauth.Config{
		ClientID:  "client",
		Authority: "https://contoso.ciamlogin.com/contoso.onmicrosoft.com",
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	account, err := client.CurrentAccount(t.Context())
	require.NoError(t, err)
	require.Nil(t, account)
}

func TestFlowTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{}, func(cfg *nativeauth.Config) {
		cfg.FlowTimeout = 100 * time.Millisecond
		cfg.PollInterval = time.Hour
	})
	h.addUser(t)

	state := resetToPassword(t, h)

	start := time.Now()
	_, err := state.SubmitPassword(context.Background(), newPassword)
	require.Less(t, time.Since(start), time.Minute)

	var resetErr *nativeauth.ResetPasswordError
	require.ErrorAs(t, err, &resetErr)
	require.Equal(t, nativeauth.ResetPasswordGeneralError, resetErr.Type)
}

func TestLogsCarryCorrelationID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newHarness(t, nativeauthtest.Options{}, func(cfg *nativeauth.Config) {
		cfg.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	})
	h.addUser(t)
	h.srv.FailNext(nativeauthtest.Token, nativeauthtest.Unavailable())

	_, err := h.client.SignIn(t.Context(), nativeauth.SignInParameters{
		Username:      testUsername,
		Password:      testPassword,
		CorrelationID: "corr-logs",
	})
	require.NoError(t, err)

	var retried bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "retrying request" {
			retried = true
			require.Equal(t, "corr-logs", entry["correlation_id"])
			require.Equal(t, "sign_in_with_password", entry["api"])
		}
	}
	require.True(t, retried)
}
