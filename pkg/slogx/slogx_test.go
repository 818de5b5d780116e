package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskPII(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "user not found", "user not found"},
		{"email redacted", "AADSTS50034: user alice@contoso.com not found", "AADSTS50034: user a***@contoso.com not found"},
		{"several emails", "a@b.io and bob@c.org", "a***@b.io and b***@c.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MaskPII(tt.in))
		})
	}
}

func TestNewMasksPIIAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Service: "test", Level: "debug", Format: "json", Output: &buf, MaskPII: true})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	logger.Info("sign in started", "username", "alice@contoso.com", "error_description", "bad user bob@contoso.com")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "a***@contoso.com", line["username"])
	require.Equal(t, "bad user b***@contoso.com", line["error_description"])
	require.Equal(t, "test", line["service"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithContext(context.Background(), l)
	require.Equal(t, l, FromContext(ctx))
}

func TestTransportSetsRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := &http.Client{Transport: NewTransport(nil, logger)}

	resp, err := client.Get(srv.URL + "/signin/v1.0/initiate")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.NotEmpty(t, seen)
	require.Contains(t, buf.String(), `"path":"/signin/v1.0/initiate"`)
	require.Contains(t, buf.String(), `"status":204`)
}
