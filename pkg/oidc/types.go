package oidc

import (
	"strings"
)

type GrantType string

const (
	// GrantTypeCode defines the grant_type `authorization_code` used for the Token Request in the Authorization Code Flow
	GrantTypeCode GrantType = "authorization_code"

	// GrantTypeRefreshToken defines the grant_type `refresh_token` used for the Token Request in the Refresh Token Flow
	GrantTypeRefreshToken GrantType = "refresh_token"

	// GrantTypeClientCredentials defines the grant_type `client_credentials` used for the Token Request in the Client Credentials Token Flow
	GrantTypeClientCredentials GrantType = "client_credentials"

	// GrantTypeImplicit defines the grant type `implicit` used for implicit flows that skip the generation and exchange of an Authorization Code
	GrantTypeImplicit GrantType = "implicit"

	// GrantTypeBearer defines the grant_type `urn:ietf:params:oauth:grant-type:jwt-bearer` used for the JWT Authorization Grant
	GrantTypeBearer GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// GrantTypeTokenExchange defines the grant_type `urn:ietf:params:oauth:grant-type:token-exchange` used for the OAuth Token Exchange Grant
	GrantTypeTokenExchange GrantType = "urn:ietf:params:oauth:grant-type:token-exchange"

	// GrantTypeDeviceCode defines the grant_type `urn:ietf:params:oauth:grant-type:device_code` used for the Device Authorization Grant
	GrantTypeDeviceCode GrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// RequiresRedirect reports whether the grant type is driven through the
// authorization endpoint and therefore needs registered redirect URIs.
func (g GrantType) RequiresRedirect() bool {
	return g == GrantTypeCode || g == GrantTypeImplicit
}

type AuthMethod string

const (
	AuthMethodBasic         AuthMethod = "client_secret_basic"
	AuthMethodPost          AuthMethod = "client_secret_post"
	AuthMethodSecretJWT     AuthMethod = "client_secret_jwt"
	AuthMethodNone          AuthMethod = "none"
	AuthMethodPrivateKeyJWT AuthMethod = "private_key_jwt"
)

var AllAuthMethods = []AuthMethod{
	AuthMethodBasic, AuthMethodPost, AuthMethodSecretJWT, AuthMethodNone, AuthMethodPrivateKeyJWT,
}

// UsesSecret reports whether the method authenticates with a shared secret
// issued by the server.
func (a AuthMethod) UsesSecret() bool {
	return a == AuthMethodBasic || a == AuthMethodPost || a == AuthMethodSecretJWT
}

// RequiresKeys reports whether the method authenticates with the client's
// own key pair, which then has to be registered as jwks or jwks_uri.
func (a AuthMethod) RequiresKeys() bool {
	return a == AuthMethodPrivateKeyJWT
}

// SpaceDelimitedArray is a list that is encoded as a single space-delimited string.
type SpaceDelimitedArray []string

func (s SpaceDelimitedArray) String() string {
	return strings.Join(s, " ")
}

func (s SpaceDelimitedArray) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SpaceDelimitedArray) UnmarshalText(text []byte) error {
	*s = strings.Fields(string(text))
	return nil
}
