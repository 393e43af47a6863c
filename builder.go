package goAuthClient

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goAuthClient/authapi"
	"github.com/MrEthical07/goAuthClient/guard"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/sessionstate"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/MrEthical07/goAuthClient/transport"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. A Builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config Config
	store  tokenstore.Store
	redis  redis.UniversalClient

	base      http.RoundTripper
	logger    *slog.Logger
	auditSink AuditSink
	navigator guard.Navigator

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the CRM backend base URL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithAllowedRoles replaces the login allow-list.
func (b *Builder) WithAllowedRoles(roles ...string) *Builder {
	b.config.Roles.Allowed = append([]string(nil), roles...)
	return b
}

// WithStore injects a token store, overriding Config.Store.
func (b *Builder) WithStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

// WithRedis injects the Redis client used when Config.Store.Kind is
// "redis". The caller keeps ownership of client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTransport sets the RoundTripper all requests finally go through.
// Defaults to http.DefaultTransport.
func (b *Builder) WithTransport(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

// WithLogger sets the logger used for warnings. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink. Audit must also be enabled in Config.
// Without one, enabled audit events go to the client logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithNavigator sets where redirect intents are delivered.
func (b *Builder) WithNavigator(nav guard.Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. It performs no
// I/O; Redis connections are opened lazily.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- ROLE ALLOW-LIST --------
	roles, err := permission.NewRoleManager(cfg.Roles.Allowed...)
	if err != nil {
		return nil, err
	}
	roles.Freeze()

	c := &Client{
		config:    cfg,
		logger:    b.logger,
		roles:     roles,
		state:     sessionstate.New(),
		navigator: b.navigator,
		metrics:   NewMetrics(cfg.Metrics),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	// -------- TOKEN VERIFICATION --------
	if cfg.JWT.VerifyKey != "" {
		verifier, err := newVerifier(cfg.JWT)
		if err != nil {
			return nil, err
		}
		c.verifier = verifier
	}

	// -------- TOKEN STORE --------
	store, owned, err := b.buildStore(cfg)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.ownedRedis = owned
	if e, ok := store.(tokenstore.Expiring); ok && e.Expires() {
		c.volatileStore = true
	}

	// -------- HTTP STACK --------
	base := b.base
	if base == nil {
		base = http.DefaultTransport
	}

	// Auth endpoints go straight to the base transport so a failing refresh
	// can never re-enter the refresh protocol.
	api, err := authapi.New(cfg.API.BaseURL, cfg.API.Endpoints, &http.Client{
		Transport: base,
		Timeout:   cfg.HTTP.Timeout,
	})
	if err != nil {
		return nil, err
	}
	c.api = api

	c.auth = transport.NewAuthenticator(transport.Config{
		Base:       base,
		Token:      c.AccessToken,
		Refresh:    c.refreshAccessToken,
		Logout:     c.endSession,
		Public:     api.Endpoints().Public(),
		RequestIDs: cfg.HTTP.RequestIDs,
		Hooks: transport.Hooks{
			Waiting:      func() { c.metricInc(MetricRefreshWaiter) },
			Replayed:     func() { c.metricInc(MetricRequestReplayed) },
			NetworkError: func(error) { c.metricInc(MetricNetworkError) },
		},
	})
	c.http = &http.Client{
		Transport: c.auth,
		Timeout:   cfg.HTTP.Timeout,
	}
	rest, err := transport.NewClient(c.http, cfg.API.BaseURL)
	if err != nil {
		return nil, err
	}
	c.rest = rest

	// -------- AUTHORIZATION --------
	c.decider = guard.NewDecider(c, guard.Config{
		AllowedRoles: roles.Roles(),
		TokenRoles:   c.tokenRoles,
		OnDecision:   c.observeDecision,
	})

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewLogSink(c.logger)
	}
	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	c.flows = c.buildFlowDeps()

	b.built = true

	return c, nil
}

func (b *Builder) buildStore(cfg Config) (tokenstore.Store, *redis.Client, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Store.Kind {
	case StoreFile:
		return tokenstore.NewFileStore(cfg.Store.Path), nil, nil
	case StoreRedis:
		rc := cfg.Store.Redis
		if b.redis != nil {
			return tokenstore.NewRedisStore(b.redis, rc.Prefix, rc.Namespace, rc.TTL), nil, nil
		}
		if rc.Addr == "" {
			return nil, nil, errors.New("redis store requires Store.Redis.Addr or WithRedis")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		return tokenstore.NewRedisStore(client, rc.Prefix, rc.Namespace, rc.TTL), client, nil
	default:
		return tokenstore.NewMemoryStore(), nil, nil
	}
}

func newVerifier(cfg JWTConfig) (*jwt.Manager, error) {
	jc := jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		Leeway:        cfg.Leeway,
	}
	if jc.SigningMethod == jwt.MethodHS256 {
		jc.PrivateKey = []byte(cfg.VerifyKey)
	} else {
		jc.PublicKey = []byte(cfg.VerifyKey)
	}
	return jwt.NewManager(jc)
}
