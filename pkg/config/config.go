// Package config loads the server configuration from a YAML file,
// overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/oidc"
	"github.com/zitadel/dynconfig/pkg/op"
)

const (
	// default port for the http server to run
	DefaultPort = "9998"

	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	Server            Server            `yaml:"server"`
	Storage           Storage           `yaml:"storage"`
	Registration      Registration      `yaml:"registration"`
	IdentityProviders IdentityProviders `yaml:"identity_providers"`
	// Providers are written to the provider store on startup.
	Providers []*idp.Record `yaml:"providers"`
}

type Server struct {
	Issuer          string   `yaml:"issuer"`
	Port            string   `yaml:"port"`
	AllowInsecure   bool     `yaml:"allow_insecure"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxBodySize     int64    `yaml:"max_body_size"`
}

type Storage struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

type Registration struct {
	GrantTypes          []string `yaml:"grant_types"`
	AuthMethods         []string `yaml:"auth_methods"`
	RefreshTokenPolicy  string   `yaml:"refresh_token_policy"`
	DefaultScopes       []string `yaml:"default_scopes"`
	AllowedRedirectURIs []string `yaml:"allowed_redirect_uris"`
	MaxRedirectURIs     int      `yaml:"max_redirect_uris"`
	// DiscoveryIssuer, if set, restricts auth methods to those the
	// authorization server at this issuer announces in its discovery document.
	DiscoveryIssuer string `yaml:"discovery_issuer"`
}

type IdentityProviders struct {
	CacheDuration Duration `yaml:"cache_duration"`
	FetchTimeout  Duration `yaml:"fetch_timeout"`
	StalePolicy   string   `yaml:"stale_policy"`
	CacheSize     int      `yaml:"cache_size"`
	PathPrefix    string   `yaml:"path_prefix"`
}

// Duration is a time.Duration written as string, e.g. "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func Default() *Config {
	return &Config{
		Server: Server{
			Port:            DefaultPort,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: Storage{
			Driver: DriverMemory,
		},
		IdentityProviders: IdentityProviders{
			CacheDuration: Duration(idp.DefaultTTL),
			FetchTimeout:  Duration(idp.DefaultFetchTimeout),
			StalePolicy:   idp.StaleStrict.String(),
			CacheSize:     idp.DefaultCacheSize,
		},
	}
}

// FromFile reads the YAML file at path over a copy of defaults.
func FromFile(path string, defaults *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := defaults.clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnvVars loads configuration parameters from environment variables.
// If there is no such variable defined, then use default values.
func FromEnvVars(defaults *Config) *Config {
	cfg := defaults.clone()
	if value, ok := os.LookupEnv("PORT"); ok {
		cfg.Server.Port = value
	}
	if value, ok := os.LookupEnv("ISSUER"); ok {
		cfg.Server.Issuer = value
	}
	if value, ok := os.LookupEnv("STORAGE_DRIVER"); ok {
		cfg.Storage.Driver = value
	}
	if value, ok := os.LookupEnv("STORAGE_DSN"); ok {
		cfg.Storage.DSN = value
	}
	if value, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Storage.RedisAddr = value
	}
	if value, ok := os.LookupEnv("ALLOWED_REDIRECT_URIS"); ok {
		cfg.Registration.AllowedRedirectURIs = strings.Split(value, ",")
	}
	return cfg
}

// Load reads the file at path, if not empty, over [Default] and applies the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = FromFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg = FromEnvVars(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) clone() *Config {
	if c == nil {
		return &Config{}
	}
	clone := *c
	clone.Registration.GrantTypes = append([]string(nil), c.Registration.GrantTypes...)
	clone.Registration.AuthMethods = append([]string(nil), c.Registration.AuthMethods...)
	clone.Registration.DefaultScopes = append([]string(nil), c.Registration.DefaultScopes...)
	clone.Registration.AllowedRedirectURIs = append([]string(nil), c.Registration.AllowedRedirectURIs...)
	if c.Providers != nil {
		clone.Providers = make([]*idp.Record, len(c.Providers))
		for i, r := range c.Providers {
			clone.Providers[i] = r.Clone()
		}
	}
	return &clone
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Issuer == "" {
		errs = append(errs, errors.New("server.issuer is required"))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the sqlite driver"))
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if _, err := c.ValidatorConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CacheOptions(); err != nil {
		errs = append(errs, err)
	}
	for i, r := range c.Providers {
		if r == nil || r.Scheme == "" || r.Type == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: scheme and type are required", i))
		}
	}
	return errors.Join(errs...)
}

// ValidatorConfig maps the registration section onto [op.ValidatorConfig].
func (c *Config) ValidatorConfig() (op.ValidatorConfig, error) {
	r := c.Registration
	policy, err := op.ParseRefreshTokenPolicy(r.RefreshTokenPolicy)
	if err != nil {
		return op.ValidatorConfig{}, fmt.Errorf("registration.refresh_token_policy: %w", err)
	}
	grants := make([]oidc.GrantType, len(r.GrantTypes))
	for i, g := range r.GrantTypes {
		grants[i] = oidc.GrantType(g)
	}
	methods := make([]oidc.AuthMethod, len(r.AuthMethods))
	for i, m := range r.AuthMethods {
		methods[i] = oidc.AuthMethod(m)
	}
	return op.ValidatorConfig{
		SupportedGrantTypes:  grants,
		SupportedAuthMethods: methods,
		RefreshTokenPolicy:   policy,
		DefaultScopes:        r.DefaultScopes,
		AllowedRedirectURIs:  r.AllowedRedirectURIs,
		MaxRedirectURIs:      r.MaxRedirectURIs,
	}, nil
}

// CacheOptions maps the identity_providers section onto [idp.CacheOption]s.
func (c *Config) CacheOptions() ([]idp.CacheOption, error) {
	p := c.IdentityProviders
	policy, err := idp.ParseStalePolicy(p.StalePolicy)
	if err != nil {
		return nil, fmt.Errorf("identity_providers.stale_policy: %w", err)
	}
	opts := []idp.CacheOption{idp.WithStalePolicy(policy)}
	if p.CacheDuration != 0 {
		opts = append(opts, idp.WithTTL(time.Duration(p.CacheDuration)))
	}
	if p.FetchTimeout != 0 {
		opts = append(opts, idp.WithFetchTimeout(time.Duration(p.FetchTimeout)))
	}
	if p.CacheSize != 0 {
		opts = append(opts, idp.WithSize(p.CacheSize))
	}
	return opts, nil
}
