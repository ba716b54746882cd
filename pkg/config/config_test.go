package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/oidc"
	"github.com/zitadel/dynconfig/pkg/op"
)

func TestFromEnvVars(t *testing.T) {
	for _, tc := range []struct {
		name     string
		env      map[string]string
		defaults *Config
		want     *Config
	}{
		{
			name: "no vars, no default values",
			env:  map[string]string{},
			want: &Config{},
		},
		{
			name: "no vars, only defaults",
			env:  map[string]string{},
			defaults: &Config{
				Server:  Server{Port: "6666", Issuer: "https://default.example"},
				Storage: Storage{Driver: DriverMemory},
			},
			want: &Config{
				Server:  Server{Port: "6666", Issuer: "https://default.example"},
				Storage: Storage{Driver: DriverMemory},
			},
		},
		{
			name: "overriding default values",
			env: map[string]string{
				"PORT":           "1234",
				"ISSUER":         "https://auth.example.com",
				"STORAGE_DRIVER": "redis",
				"STORAGE_DSN":    "unused",
				"REDIS_ADDR":     "localhost:6379",
			},
			defaults: &Config{
				Server:  Server{Port: "6666", Issuer: "https://default.example"},
				Storage: Storage{Driver: DriverMemory},
			},
			want: &Config{
				Server:  Server{Port: "1234", Issuer: "https://auth.example.com"},
				Storage: Storage{Driver: DriverRedis, DSN: "unused", RedisAddr: "localhost:6379"},
			},
		},
		{
			name: "multiple redirect uris",
			env: map[string]string{
				"ALLOWED_REDIRECT_URIS": "https://*.example.com/**,http://localhost:*/cb",
			},
			want: &Config{
				Registration: Registration{
					AllowedRedirectURIs: []string{"https://*.example.com/**", "http://localhost:*/cb"},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{"PORT", "ISSUER", "STORAGE_DRIVER", "STORAGE_DSN", "REDIS_ADDR", "ALLOWED_REDIRECT_URIS"} {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			got := FromEnvVars(tc.defaults)
			assert.Equal(t, tc.want.Server, got.Server)
			assert.Equal(t, tc.want.Storage, got.Storage)
			assert.Equal(t, tc.want.Registration.AllowedRedirectURIs, got.Registration.AllowedRedirectURIs)
		})
	}
}

const testFile = `
server:
  issuer: https://auth.example.com
  port: "8080"
  shutdown_timeout: 30s
storage:
  driver: sqlite
  dsn: file:dynconfig.db
registration:
  grant_types: [authorization_code, refresh_token]
  auth_methods: [client_secret_basic, private_key_jwt]
  refresh_token_policy: drop
  default_scopes: [openid]
  allowed_redirect_uris:
    - https://*.example.com/**
  max_redirect_uris: 5
identity_providers:
  cache_duration: 5m
  fetch_timeout: 2s
  stale_policy: best-effort
providers:
  - scheme: tenant-a
    type: oidc
    display_name: Tenant A
    enabled: true
    properties:
      authority: https://login.tenant-a.example.com
      client_id: dynconfig
      scope: [openid, email]
      use_pkce: false
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFromFile(t *testing.T) {
	cfg, err := FromFile(writeFile(t, testFile), Default())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Server{
		Issuer:          "https://auth.example.com",
		Port:            "8080",
		ShutdownTimeout: Duration(30 * time.Second),
	}, cfg.Server)
	assert.Equal(t, Storage{Driver: DriverSQLite, DSN: "file:dynconfig.db"}, cfg.Storage)
	assert.Equal(t, IdentityProviders{
		CacheDuration: Duration(5 * time.Minute),
		FetchTimeout:  Duration(2 * time.Second),
		StalePolicy:   "best-effort",
		CacheSize:     idp.DefaultCacheSize,
	}, cfg.IdentityProviders)
	assert.Equal(t, []*idp.Record{{
		Scheme:      "tenant-a",
		Type:        "oidc",
		DisplayName: "Tenant A",
		Enabled:     true,
		Properties: map[string]any{
			"authority": "https://login.tenant-a.example.com",
			"client_id": "dynconfig",
			"scope":     []any{"openid", "email"},
			"use_pkce":  false,
		},
	}}, cfg.Providers)

	vc, err := cfg.ValidatorConfig()
	require.NoError(t, err)
	assert.Equal(t, op.ValidatorConfig{
		SupportedGrantTypes:  []oidc.GrantType{oidc.GrantTypeCode, oidc.GrantTypeRefreshToken},
		SupportedAuthMethods: []oidc.AuthMethod{oidc.AuthMethodBasic, oidc.AuthMethodPrivateKeyJWT},
		RefreshTokenPolicy:   op.RefreshTokenDrop,
		DefaultScopes:        []string{"openid"},
		AllowedRedirectURIs:  []string{"https://*.example.com/**"},
		MaxRedirectURIs:      5,
	}, vc)

	opts, err := cfg.CacheOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 4)
}

func TestFromFile_errors(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	assert.Error(t, err)

	_, err = FromFile(writeFile(t, "identity_providers:\n  cache_duration: soon\n"), Default())
	assert.ErrorContains(t, err, "line 2")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr []string
	}{
		{
			name:   "valid",
			modify: func(c *Config) {},
		},
		{
			name: "everything wrong",
			modify: func(c *Config) {
				c.Server.Issuer = ""
				c.Storage.Driver = "postgres"
				c.Registration.RefreshTokenPolicy = "sometimes"
				c.IdentityProviders.StalePolicy = "lenient"
				c.Providers = []*idp.Record{{Scheme: "x"}}
			},
			wantErr: []string{
				"server.issuer is required",
				`unknown driver "postgres"`,
				"registration.refresh_token_policy",
				"identity_providers.stale_policy",
				"providers[0]",
			},
		},
		{
			name:    "sqlite without dsn",
			modify:  func(c *Config) { c.Storage.Driver = DriverSQLite },
			wantErr: []string{"storage.dsn"},
		},
		{
			name:    "redis without address",
			modify:  func(c *Config) { c.Storage.Driver = DriverRedis },
			wantErr: []string{"storage.redis_addr"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.Issuer = "https://auth.example.com"
			tt.modify(cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "7777")
	cfg, err := Load(writeFile(t, testFile))
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Server.Port)

	t.Setenv("STORAGE_DRIVER", "nope")
	_, err = Load(writeFile(t, testFile))
	assert.Error(t, err)
}
