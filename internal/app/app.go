package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/cryptox"
	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/memory"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/redis"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// sealerInfo separates the cache encryption key from anything else
	// derived from the same key material.
	sealerInfo = "nativeauth token cache v1"
)

// Application owns the client and everything it needs for one CLI run.
type Application struct {
	cfg    Config
	logger *slog.Logger
	client *nativeauth.Client

	closers []func() error
	metrics *http.Server
}

// New wires the cache, telemetry and client from cfg. logOutput receives
// the structured log; it defaults to stderr.
func New(ctx context.Context, cfg Config, logOutput io.Writer) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "nativeauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOutput,
			MaskPII: cfg.Env != "dev",
		}),
	}

	cache, err := app.initCache(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	tel, err := app.initTelemetry()
	if err != nil {
		app.Close()
		return nil, err
	}

	challengeTypes := make([]nativeauth.ChallengeType, 0, len(cfg.ChallengeTypes))
	for _, t := range cfg.ChallengeTypes {
		challengeTypes = append(challengeTypes, nativeauth.ChallengeType(t))
	}

	limit := cfg.OutboundLimit
	client, err := nativeauth.New(nativeauth.Config{
		ClientID:        cfg.ClientID,
		Authority:       cfg.Authority,
		ChallengeTypes:  challengeTypes,
		RetryCount:      cfg.RetryCount,
		RetryInterval:   cfg.RetryInterval,
		PollMaxAttempts: cfg.PollMaxAttempts,
		FlowTimeout:     cfg.FlowTimeout,
		OutboundLimit:   &limit,
		Cache:           cache,
		Telemetry:       tel,
		Logger:          app.logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.client = client
	app.closers = append(app.closers, func() error { client.Close(); return nil })

	return app, nil
}

// Client is the configured native auth client.
func (app *Application) Client() *nativeauth.Client { return app.client }

// Close releases the cache and stops the metrics server. Errors are
// logged.
func (app *Application) Close() {
	if app.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.metrics.Shutdown(ctx); err != nil {
			app.logger.Error("metrics server shutdown failed", "error", err)
		}
		cancel()
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("error closing resource", "error", err)
		}
	}
	app.closers = nil
}

// initCache opens the configured store and wraps it in a sealer when key
// material is available.
func (app *Application) initCache(ctx context.Context) (*tokencache.Cache, error) {
	var store tokencache.Store
	switch app.cfg.CacheDriver {
	case "memory":
		store = memory.New(time.Minute)
	case "sqlite", "":
		s, err := sqlite.Open(app.cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		app.closers = append(app.closers, s.Close)
		store = s
	case "redis":
		s, err := redis.Dial(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		app.closers = append(app.closers, s.Close)
		store = s
	default:
		return nil, fmt.Errorf("unknown cache driver %q", app.cfg.CacheDriver)
	}

	material, err := cryptox.LoadKeyMaterial(app.cfg.CacheKeyFile)
	if err != nil {
		return nil, err
	}
	if material != nil {
		sealer, err := cryptox.NewSealer(material, sealerInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache encryption: %w", err)
		}
		store = tokencache.Sealed(store, sealer)
		app.logger.Debug("token cache encryption enabled")
	} else if app.cfg.CacheDriver != "memory" {
		app.logger.Warn("token cache is not encrypted, set NATIVEAUTH_CACHE_KEY_FILE to encrypt it")
	}

	app.logger.Debug("token cache ready", "driver", app.cfg.CacheDriver)
	return tokencache.New(store, app.cfg.ClientID), nil
}

// initTelemetry always logs operations; with MetricsAddr set it also
// counts them and serves /metrics until Close.
func (app *Application) initTelemetry() (telemetry.Telemetry, error) {
	logged := telemetry.NewLogger(app.logger)
	if app.cfg.MetricsAddr == "" {
		return logged, nil
	}

	reg := prometheus.NewRegistry()
	prom, err := telemetry.NewPrometheus(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	app.metrics = &http.Server{
		Addr:              app.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		if err := app.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server failed", "error", err)
		}
	}()
	app.logger.Info("serving metrics", "addr", app.cfg.MetricsAddr)

	return telemetry.Multi(logged, prom), nil
}
