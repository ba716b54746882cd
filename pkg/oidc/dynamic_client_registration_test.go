package oidc

import (
	"encoding/json"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/muhlemmer/gu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/zitadel/dynconfig/pkg/internationalizedfield"
)

func TestClientRegistrationRequest_UnmarshalJSON(t *testing.T) {
	t.Run("grant types", func(t *testing.T) {
		marshalled := []byte(`
{
	"grant_types": [
		"authorization_code",
		"refresh_token",
		"client_credentials",
		"urn:ietf:params:oauth:grant-type:jwt-bearer",
		"urn:ietf:params:oauth:grant-type:token-exchange",
		"implicit",
		"urn:ietf:params:oauth:grant-type:device_code"
	]
}
`)
		var req ClientRegistrationRequest
		require.NoError(t, json.Unmarshal(marshalled, &req))
		assert.Equal(t, []GrantType{
			GrantTypeCode,
			GrantTypeRefreshToken,
			GrantTypeClientCredentials,
			GrantTypeBearer,
			GrantTypeTokenExchange,
			GrantTypeImplicit,
			GrantTypeDeviceCode,
		}, req.GrantTypes)
		assert.Empty(t, req.ExtraParameters)
	})

	t.Run("all members", func(t *testing.T) {
		marshalled := []byte(`
{
	"redirect_uris": ["https://client.example.org/callback", "https://client.example.org/callback2"],
	"client_name": "My Example",
	"client_name#ja-Jpan-JP": "クライアント名",
	"client_uri": "https://client.example.org",
	"token_endpoint_auth_method": "private_key_jwt",
	"jwks": {"keys": [{"kty": "oct", "k": "c2VjcmV0"}]},
	"scope": "openid email",
	"default_max_age": 3600,
	"software_id": "4NRB1-0XZABZI9E6-5SM3R",
	"software_version": 2.1
}
`)
		var req ClientRegistrationRequest
		require.NoError(t, json.Unmarshal(marshalled, &req))

		jpTag := language.MustParse("ja-Jpan-JP")
		assert.Equal(t, []string{"https://client.example.org/callback", "https://client.example.org/callback2"}, req.RedirectURIs)
		assert.Equal(t, "My Example", req.ClientName.Default())
		assert.Equal(t, "クライアント名", req.ClientName.Items[jpTag])
		assert.Equal(t, "https://client.example.org", req.ClientURI)
		assert.Equal(t, AuthMethodPrivateKeyJWT, req.TokenEndpointAuthMethod)
		assert.JSONEq(t, `{"keys": [{"kty": "oct", "k": "c2VjcmV0"}]}`, string(req.JWKS))
		assert.Equal(t, "openid email", req.Scope)
		assert.Equal(t, gu.Ptr[int64](3600), req.DefaultMaxAge)
		assert.Equal(t, map[string]any{
			"software_id":      "4NRB1-0XZABZI9E6-5SM3R",
			"software_version": json.Number("2.1"),
		}, req.ExtraParameters)
	})

	t.Run("null members are absent", func(t *testing.T) {
		var req ClientRegistrationRequest
		require.NoError(t, json.Unmarshal([]byte(`{"jwks": null, "default_max_age": null, "client_name": null, "scope": null}`), &req))
		assert.Nil(t, req.JWKS)
		assert.Nil(t, req.DefaultMaxAge)
		assert.True(t, req.ClientName.IsEmpty())
		assert.Empty(t, req.Scope)
	})

	t.Run("negative max age is kept for validation", func(t *testing.T) {
		var req ClientRegistrationRequest
		require.NoError(t, json.Unmarshal([]byte(`{"default_max_age": -1}`), &req))
		assert.Equal(t, gu.Ptr[int64](-1), req.DefaultMaxAge)
	})

	for _, maxAge := range []string{`1.5`, `"60"`, `1e30`, `true`} {
		t.Run("max age "+maxAge+" is kept for validation", func(t *testing.T) {
			var req ClientRegistrationRequest
			require.NoError(t, json.Unmarshal([]byte(`{"redirect_uris": ["https://app.example/cb"], "default_max_age": `+maxAge+`}`), &req))
			assert.Nil(t, req.DefaultMaxAge)
			assert.JSONEq(t, maxAge, string(req.InvalidDefaultMaxAge))
			assert.Equal(t, []string{"https://app.example/cb"}, req.RedirectURIs)

			data, err := json.Marshal(req)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"default_max_age":`+maxAge)
		})
	}

	errTests := []struct {
		name string
		data string
	}{
		{"not an object", `[]`},
		{"redirect uris type", `{"redirect_uris": "https://example.com"}`},
		{"client name type", `{"client_name": 1}`},
		{"client name tag", `{"client_name#???": "x"}`},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			var req ClientRegistrationRequest
			assert.Error(t, json.Unmarshal([]byte(tt.data), &req))
		})
	}
}

func TestClientRegistrationRequest_RoundTrip(t *testing.T) {
	in := `{
		"redirect_uris": ["https://app.example/cb"],
		"grant_types": ["authorization_code"],
		"token_endpoint_auth_method": "client_secret_post",
		"x_tenant": {"id": 12345678901234567890, "tags": ["a", "b"]},
		"policy_uri": "https://app.example/policy?x=1&y=2"
	}`
	var req ClientRegistrationRequest
	require.NoError(t, json.Unmarshal([]byte(in), &req))

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Contains(t, string(out), `12345678901234567890`)
}

func TestClientRegistrationResponse_MarshalJSON(t *testing.T) {
	name := internationalizedfield.New("client_name")
	name.Items[language.Und] = "App"
	name.Items[language.German] = "Anwendung"

	jwks := &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: []byte("secret"), KeyID: "k1", Algorithm: "HS256"}}}

	t.Run("secret client", func(t *testing.T) {
		got, err := json.Marshal(ClientRegistrationResponse{
			ClientID:                "client1",
			ClientSecret:            "s3cret",
			ClientIDIssuedAt:        1700000000,
			RedirectURIs:            []string{"https://app.example/cb"},
			GrantTypes:              []GrantType{GrantTypeCode},
			ClientName:              name,
			TokenEndpointAuthMethod: AuthMethodPost,
			Scope:                   SpaceDelimitedArray{"openid", "email"},
			DefaultMaxAge:           gu.Ptr[int64](0),
			ExtraParameters:         map[string]any{"software_id": "abc", "client_id": "spoofed"},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"client_id": "client1",
			"client_secret": "s3cret",
			"client_secret_expires_at": 0,
			"client_id_issued_at": 1700000000,
			"redirect_uris": ["https://app.example/cb"],
			"grant_types": ["authorization_code"],
			"client_name": "App",
			"client_name#de": "Anwendung",
			"token_endpoint_auth_method": "client_secret_post",
			"scope": "openid email",
			"default_max_age": 0,
			"software_id": "abc"
		}`, string(got))
	})

	t.Run("key client", func(t *testing.T) {
		got, err := json.Marshal(ClientRegistrationResponse{
			ClientID:                "client2",
			GrantTypes:              []GrantType{GrantTypeClientCredentials},
			ClientName:              internationalizedfield.New("client_name"),
			TokenEndpointAuthMethod: AuthMethodPrivateKeyJWT,
			JWKS:                    jwks,
		})
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(got, &m))
		assert.Equal(t, "client2", m["client_id"])
		assert.NotContains(t, m, "client_secret")
		assert.NotContains(t, m, "client_secret_expires_at")
		assert.NotContains(t, m, "client_name")
		assert.Contains(t, m, "jwks")
	})
}

func TestRegistrationErrorResponse(t *testing.T) {
	got, err := json.Marshal(RegistrationErrorResponse{
		ErrorType:   InvalidRedirectURI,
		Description: "1 client metadata member rejected",
		Errors: []RegistrationError{
			{Field: "redirect_uris[0]", Code: "invalid_redirect_uri", Message: "fragment not allowed"},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"error": "invalid_redirect_uri",
		"error_description": "1 client metadata member rejected",
		"errors": [{"field": "redirect_uris[0]", "code": "invalid_redirect_uri", "message": "fragment not allowed"}]
	}`, string(got))
}
