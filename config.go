package goAuthClient

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/authapi"
	"github.com/MrEthical07/goAuthClient/permission"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration. Build it with [DefaultConfig]
// or [LoadConfig] and hand it to [Builder.WithConfig].
//
// Durations in YAML are Go duration strings ("15s", "24h").
type Config struct {
	API     APIConfig     `yaml:"api"`
	Roles   RolesConfig   `yaml:"roles"`
	Store   StoreConfig   `yaml:"store"`
	JWT     JWTConfig     `yaml:"jwt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Guard   GuardConfig   `yaml:"guard"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the CRM backend.
type APIConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Endpoints authapi.Endpoints `yaml:"endpoints"`
}

/*
====================================
ROLES CONFIG
====================================
*/

// RolesConfig holds the application allow-list. A login succeeds only when
// at least one of the user's roles is listed; matching ignores case.
type RolesConfig struct {
	Allowed []string `yaml:"allowed"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreKind selects the token store backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

// StoreConfig selects and configures the token store. It is ignored when a
// store is injected with [Builder.WithStore].
type StoreConfig struct {
	Kind  StoreKind   `yaml:"kind"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis token store. Addr is not needed when a
// client is injected with [Builder.WithRedis].
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	// Namespace scopes the keys, typically one per tenant or workstation.
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig enables signature checks on access tokens before their role
// claims are trusted. With VerifyKey empty, claims are read unverified.
type JWTConfig struct {
	SigningMethod string `yaml:"signing_method"` // "ed25519" (default) or "hs256"
	// VerifyKey is an Ed25519 public key in PEM form, or the shared HS256
	// secret.
	VerifyKey string        `yaml:"verify_key"`
	Issuer    string        `yaml:"issuer"`
	Audience  string        `yaml:"audience"`
	Leeway    time.Duration `yaml:"leeway"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig configures the authenticated HTTP client.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	RequestIDs bool          `yaml:"request_ids"`
}

// GuardConfig names the pages the navigator is sent to.
type GuardConfig struct {
	SignInPath       string `yaml:"sign_in_path"`
	UnauthorizedPath string `yaml:"unauthorized_path"`
	// ReturnParam is the query parameter carrying the page to return to
	// after sign-in.
	ReturnParam string `yaml:"return_param"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Endpoints: authapi.DefaultEndpoints(),
		},
		Roles: RolesConfig{
			Allowed: append([]string(nil), permission.DefaultAllowedRoles...),
		},
		Store: StoreConfig{
			Kind: StoreMemory,
			Redis: RedisConfig{
				Prefix: "crm:auth",
			},
		},
		JWT: JWTConfig{
			SigningMethod: "ed25519",
		},
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			RequestIDs: true,
		},
		Guard: GuardConfig{
			SignInPath:       "/sign-in",
			UnauthorizedPath: "/unauthorized",
			ReturnParam:      "returnUrl",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Roles.Allowed = append([]string(nil), cfg.Roles.Allowed...)
	return out
}

// LoadConfig reads a YAML file on top of the defaults. Keys missing from
// the file keep their default values. The result is not validated; Build
// does that.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values Build cannot work with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("API BaseURL must be an absolute http or https URL")
	}
	if c.API.Endpoints.Login == "" || c.API.Endpoints.Refresh == "" {
		return errors.New("API Endpoints must name login and refresh paths")
	}

	if len(permission.Normalize(c.Roles.Allowed)) == 0 {
		return errors.New("Roles Allowed must list at least one role")
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("Store Path is required for the file store")
		}
	case StoreRedis:
		if c.Store.Redis.DB < 0 {
			return errors.New("Store Redis DB must be >= 0")
		}
		if c.Store.Redis.TTL < 0 {
			return errors.New("Store Redis TTL must be >= 0")
		}
	default:
		return fmt.Errorf("Store Kind %q is not supported", c.Store.Kind)
	}

	if c.JWT.VerifyKey != "" {
		switch c.JWT.SigningMethod {
		case "ed25519", "hs256":
		default:
			return errors.New("unsupported JWT signing method")
		}
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}

	if c.Guard.SignInPath == "" || c.Guard.UnauthorizedPath == "" {
		return errors.New("Guard SignInPath and UnauthorizedPath are required")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
