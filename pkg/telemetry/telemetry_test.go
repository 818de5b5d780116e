package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestStop_OnlyOnce(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	ctx := context.Background()
	event := rec.Start(ctx, APISignUp, "corr-1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Stop(ctx, rec, event, nil) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Len(t, rec.Stops(), 1)
	require.True(t, event.Stopped())
	require.True(t, rec.Balanced())
	require.False(t, Stop(ctx, rec, nil, nil))
}

func TestRecorder_Balanced(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	ctx := context.Background()
	a := rec.Start(ctx, APISignUp, "")
	_ = rec.Start(ctx, APIRefreshToken, "")
	Stop(ctx, rec, a, errors.New("x"))

	require.False(t, rec.Balanced())
	require.Len(t, rec.Starts(), 2)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewLogger(log)
	ctx := context.Background()

	event := l.Start(ctx, APISignInWithPassword, "corr-1")
	event.SetAccount("uid.utid")
	Stop(ctx, l, event, errors.New("user user@example.com not found"))

	out := buf.String()
	require.Contains(t, out, `"msg":"operation started"`)
	require.Contains(t, out, `"msg":"operation failed"`)
	require.Contains(t, out, `"account":"uid.utid"`)
	require.NotContains(t, out, "user@example.com")
}

func TestPrometheus(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	require.Error(t, err, "collectors register once per registry")

	ctx := context.Background()
	Stop(ctx, p, p.Start(ctx, APIRefreshToken, ""), nil)
	Stop(ctx, p, p.Start(ctx, APIRefreshToken, ""), errors.New("x"))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
		}
	}
	require.Equal(t, 2.0, values["nativeauth_operations_started_total"])
	require.Equal(t, 2.0, values["nativeauth_operations_finished_total"])
}

func TestMulti(t *testing.T) {
	t.Parallel()

	first, second := &Recorder{}, &Recorder{}
	m := Multi(first, second)
	ctx := context.Background()

	event := m.Start(ctx, APISignOut, "")
	Stop(ctx, m, event, nil)

	require.True(t, first.Balanced())
	require.True(t, second.Balanced())
	require.Same(t, first.Starts()[0], second.Starts()[0])

	_, ok := Multi().(Nop)
	require.True(t, ok)
}
