package nativeauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/nativeauth/internal/transport"
	"github.com/aussiebroadwan/nativeauth/internal/validator"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
	"github.com/aussiebroadwan/nativeauth/pkg/slogx"
	"github.com/aussiebroadwan/nativeauth/pkg/telemetry"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/memory"
	"github.com/google/uuid"
)

// Client runs native authentication flows against one tenant. It is safe
// for concurrent use.
type Client struct {
	cfg         Config
	builder     *wire.Builder
	exec        *transport.Executor
	cache       Cache
	telemetry   telemetry.Telemetry
	log         *slog.Logger
	dispatcher  *Dispatcher
	ownsQueue   bool
	environment string

	now func() time.Time
}

// New validates cfg, applies defaults and returns a Client.
func New(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	builder, err := wire.NewBuilder(cfg.Authority, cfg.ClientID, cfg.domainChallengeTypes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var deviceAuth transport.DeviceAuthHandler
	if cfg.DeviceAuth != nil {
		deviceAuth = cfg.DeviceAuth
	}

	c := &Client{
		cfg:         cfg,
		builder:     builder,
		exec:        transport.NewExecutor(cfg.HTTPClient, deviceAuth),
		cache:       cfg.Cache,
		telemetry:   cfg.Telemetry,
		log:         cfg.Logger,
		dispatcher:  cfg.Dispatcher,
		environment: builder.Host(),
		now:         time.Now,
	}
	if c.cache == nil {
		c.cache = tokencache.New(memory.New(0), cfg.ClientID)
	}
	if c.dispatcher == nil {
		c.dispatcher = NewDispatcher(16)
		c.ownsQueue = true
	}
	return c, nil
}

// Close stops the dispatcher New created. Futures still resolve after
// Close and their OnComplete callbacks run on goroutines of their own.
func (c *Client) Close() {
	if c.ownsQueue {
		c.dispatcher.Close()
	}
}

func (c *Client) policy() transport.Policy {
	return transport.Policy{RetryCount: c.cfg.RetryCount, RetryInterval: c.cfg.RetryInterval}
}

// operation is one public call: its telemetry event, correlation id and
// deadline.
type operation struct {
	telemetry     telemetry.Telemetry
	event         *telemetry.Event
	correlationID string
	ctx           context.Context
	cancel        context.CancelFunc
}

// begin starts a telemetry event and binds the correlation id to the
// context logger. A blank correlationID gets a fresh one.
func (c *Client) begin(ctx context.Context, api telemetry.API, correlationID string) (context.Context, *operation) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	cancel := context.CancelFunc(func() {})
	if c.cfg.FlowTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.cfg.FlowTimeout)
	}
	ctx = slogx.WithContext(ctx, c.log.With("api", string(api)))
	ctx = slogx.WithCorrelationID(ctx, correlationID)

	return ctx, &operation{
		telemetry:     c.telemetry,
		event:         c.telemetry.Start(ctx, api, correlationID),
		correlationID: correlationID,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// end stops the event with err. Later calls are no-ops.
func (op *operation) end(err error) {
	telemetry.Stop(context.WithoutCancel(op.ctx), op.telemetry, op.event, err)
	op.cancel()
}

// persist caches a token response and returns the account it belongs to.
func (c *Client) persist(ctx context.Context, issued validator.TokenIssued, requested []string, account *tokencache.Account) (*UserAccount, error) {
	scopes := issued.Scopes
	if len(scopes) == 0 {
		scopes = requested
	}

	stored, err := c.cache.Persist(ctx, tokencache.PersistParams{
		Account:      account,
		Environment:  c.environment,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		IDToken:      issued.IDToken,
		ClientInfo:   issued.ClientInfo,
		Scopes:       scopes,
		ExpiresIn:    issued.ExpiresIn,
	})
	if err != nil {
		return nil, fmt.Errorf("persist tokens: %w", err)
	}

	idToken := issued.IDToken
	if idToken == "" {
		if cached, err := c.cache.IDToken(ctx, stored); err == nil {
			idToken = cached.Raw
		}
	}
	return c.userAccount(stored, idToken), nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
