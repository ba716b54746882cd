package oidcprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/idp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]any
		want    *Provider
		wantErr bool
	}{
		{
			name: "defaults",
			props: map[string]any{
				"authority": "https://login.example.com/",
				"client_id": "dyn",
				"ignored":   []int{1, 2},
			},
			want: &Provider{
				Name:         "tenant-a",
				DisplayName:  "Tenant A",
				Authority:    "https://login.example.com",
				ClientID:     "dyn",
				ResponseType: "id_token",
				Scopes:       []string{"openid"},
				UsePKCE:      true,
			},
		},
		{
			name: "all properties",
			props: map[string]any{
				"authority":                         "https://login.example.com/tenant",
				"client_id":                         "dyn",
				"client_secret":                     "secret",
				"response_type":                     "code",
				"scope":                             "openid profile email",
				"use_pkce":                          false,
				"get_claims_from_userinfo_endpoint": "true",
			},
			want: &Provider{
				Name:                          "tenant-a",
				DisplayName:                   "Tenant A",
				Authority:                     "https://login.example.com/tenant",
				ClientID:                      "dyn",
				ClientSecret:                  "secret",
				ResponseType:                  "code",
				Scopes:                        []string{"openid", "profile", "email"},
				GetClaimsFromUserInfoEndpoint: true,
			},
		},
		{
			name:    "missing authority and client id",
			props:   map[string]any{},
			wantErr: true,
		},
		{
			name:    "relative authority",
			props:   map[string]any{"authority": "/login", "client_id": "dyn"},
			wantErr: true,
		},
		{
			name:    "unsupported response type",
			props:   map[string]any{"authority": "https://login.example.com", "client_id": "dyn", "response_type": "token"},
			wantErr: true,
		},
		{
			name:    "wrong property type",
			props:   map[string]any{"authority": "https://login.example.com", "client_id": "dyn", "use_pkce": 1},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(&idp.Record{
				Scheme:      "tenant-a",
				Type:        TypeKey,
				DisplayName: "Tenant A",
				Enabled:     true,
				Properties:  tt.props,
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_scheme(t *testing.T) {
	props := map[string]any{"authority": "https://login.example.com", "client_id": "dyn"}
	for _, scheme := range []string{"tenant-a", "Tenant_A.1", "tenant~b"} {
		_, err := Decode(&idp.Record{Scheme: scheme, Type: TypeKey, Properties: props})
		assert.NoError(t, err, scheme)
	}
	for _, scheme := range []string{"", ".", "..", "../admin", "a/b", "/a", `a\b`, "a?b", "a#b", "a b", "a%2Fb", "ä"} {
		_, err := Decode(&idp.Record{Scheme: scheme, Type: TypeKey, Properties: props})
		assert.ErrorContains(t, err, "single unescaped path segment", scheme)
	}
}

func TestKind_BuildOptions_scheme(t *testing.T) {
	kind := Kind{PathPrefix: "/federation"}
	_, err := kind.BuildOptions(&Provider{Name: "../admin"})
	assert.Error(t, err)

	options, err := kind.BuildOptions(&Provider{Name: "tenant~b"})
	require.NoError(t, err)
	assert.Equal(t, "/federation/tenant~b/signin", options.(*Options).CallbackPath)

	factory := idp.NewOptionsFactory(func() *idp.Registry {
		reg := idp.NewRegistry()
		require.NoError(t, Register(reg, ""))
		return reg
	}())
	_, err = factory.Build(&idp.Record{
		Scheme:     "../admin",
		Type:       TypeKey,
		Enabled:    true,
		Properties: map[string]any{"authority": "https://login.example.com", "client_id": "dyn"},
	})
	assert.ErrorIs(t, err, idp.ErrInvalidProviderConfiguration)
}

func TestRegister(t *testing.T) {
	reg := idp.NewRegistry()
	require.NoError(t, Register(reg, ""))
	assert.ErrorIs(t, Register(reg, "/other"), idp.ErrDuplicateTypeKey)

	factory := idp.NewOptionsFactory(reg)
	options, err := factory.Build(&idp.Record{
		Scheme:  "tenant-a",
		Type:    TypeKey,
		Enabled: true,
		Properties: map[string]any{
			"authority": "https://login.example.com",
			"client_id": "dyn",
		},
	})
	require.NoError(t, err)
	require.IsType(t, &Options{}, options)
	o := options.(*Options)
	assert.Equal(t, "tenant-a", o.Scheme())
	assert.Equal(t, HandlerName, o.HandlerName())
	assert.Equal(t, "/federation/tenant-a/signin", o.CallbackPath)
	assert.Equal(t, "/federation/tenant-a/signout-callback", o.SignedOutCallbackPath)
	assert.Equal(t, "/federation/tenant-a/signout", o.RemoteSignOutPath)

	_, err = factory.Build(&idp.Record{Scheme: "tenant-b", Type: TypeKey})
	assert.ErrorIs(t, err, idp.ErrInvalidProviderConfiguration)
}

func TestKind_BuildOptions_unexpectedModel(t *testing.T) {
	_, err := Kind{}.BuildOptions(nil)
	assert.Error(t, err)
}

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		httphelper.MarshalJSON(w, map[string]any{
			"issuer":                                srv.URL,
			"authorization_endpoint":                srv.URL + "/authorize",
			"token_endpoint":                        srv.URL + "/oauth/token",
			"userinfo_endpoint":                     srv.URL + "/userinfo",
			"jwks_uri":                              srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOptions_NewHandler(t *testing.T) {
	srv := newDiscoveryServer(t)
	ctx := context.Background()

	t.Run("code flow with pkce", func(t *testing.T) {
		options := &Options{
			SchemeName:   "tenant-a",
			Authority:    srv.URL,
			ClientID:     "dyn",
			ResponseType: "code",
			Scopes:       []string{"openid", "profile"},
			UsePKCE:      true,
			CallbackPath: "/federation/tenant-a/signin",
		}
		h, err := options.NewHandler(ctx, "https://auth.example.com/", srv.Client())
		require.NoError(t, err)
		assert.Same(t, options, h.Options())

		cfg := h.OAuth2Config()
		assert.Equal(t, srv.URL+"/authorize", cfg.Endpoint.AuthURL)
		assert.Equal(t, srv.URL+"/oauth/token", cfg.Endpoint.TokenURL)
		assert.Equal(t, "https://auth.example.com/federation/tenant-a/signin", cfg.RedirectURL)

		u, err := url.Parse(h.AuthCodeURL("state1", "nonce1", "verifier-verifier-verifier-verifier-verifier"))
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "state1", q.Get("state"))
		assert.Equal(t, "nonce1", q.Get("nonce"))
		assert.Equal(t, "openid profile", q.Get("scope"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.Empty(t, q.Get("response_mode"))

		info, err := h.UserInfo(ctx, nil)
		assert.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("id_token flow", func(t *testing.T) {
		options := &Options{
			SchemeName:   "tenant-b",
			Authority:    srv.URL,
			ClientID:     "dyn",
			ResponseType: "id_token",
			Scopes:       []string{"openid"},
			UsePKCE:      true,
			CallbackPath: "/federation/tenant-b/signin",
		}
		h, err := options.NewHandler(ctx, "https://auth.example.com", srv.Client())
		require.NoError(t, err)

		u, err := url.Parse(h.AuthCodeURL("s", "n", "v"))
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "id_token", q.Get("response_type"))
		assert.Equal(t, "form_post", q.Get("response_mode"))
		assert.Empty(t, q.Get("code_challenge"))
	})

	t.Run("discovery failure", func(t *testing.T) {
		options := &Options{Authority: srv.URL + "/unknown", ClientID: "dyn"}
		_, err := options.NewHandler(ctx, "https://auth.example.com", srv.Client())
		assert.Error(t, err)
	})
}
