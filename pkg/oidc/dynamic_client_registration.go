package oidc

import (
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"github.com/zitadel/dynconfig/pkg/internationalizedfield"
)

const (
	memberRedirectURIs            = "redirect_uris"
	memberGrantTypes              = "grant_types"
	memberClientName              = "client_name"
	memberClientURI               = "client_uri"
	memberTokenEndpointAuthMethod = "token_endpoint_auth_method"
	memberJWKSURI                 = "jwks_uri"
	memberJWKS                    = "jwks"
	memberScope                   = "scope"
	memberDefaultMaxAge           = "default_max_age"
)

// ClientRegistrationRequest implements the client metadata of a
// [Client Registration Request] as accepted by the registration endpoint.
//
// Members which are not modelled here are kept verbatim in ExtraParameters,
// so they survive a decode and encode cycle unchanged.
//
// [Client Registration Request]: https://www.rfc-editor.org/rfc/rfc7591#section-3.1
type ClientRegistrationRequest struct {
	// RedirectURIs is an array of redirection URI strings for use in redirect-based flows
	// such as the authorization code and implicit flows.
	RedirectURIs []string

	// GrantTypes is an array of OAuth 2.0 grant type strings that the client can use at
	// the token endpoint. If omitted, the client will use only the "authorization_code" grant type.
	GrantTypes []GrantType

	// ClientName is the human-readable name of the client, optionally in
	// multiple languages ("client_name#ja-Jpan-JP").
	ClientName internationalizedfield.InternationalizedField

	// ClientURI is a URL string of a web page providing information about the client.
	ClientURI string

	// TokenEndpointAuthMethod is the requested authentication method for the token endpoint.
	TokenEndpointAuthMethod AuthMethod

	// JWKSURI references the client's JSON Web Key Set document.
	// It MUST NOT be present together with JWKS.
	JWKSURI string

	// JWKS is the client's JSON Web Key Set document value, kept raw so that
	// malformed key sets are reported by validation instead of decoding.
	JWKS json.RawMessage

	// Scope is a space-separated list of scope values the client can use when requesting access tokens.
	Scope string

	// DefaultMaxAge is the default maximum authentication age in seconds.
	DefaultMaxAge *int64

	// InvalidDefaultMaxAge holds a default_max_age value that is not an
	// integer, so that validation reports it with the other members.
	InvalidDefaultMaxAge json.RawMessage

	// ExtraParameters holds other extension parameters.
	ExtraParameters map[string]any
}

func (c *ClientRegistrationRequest) UnmarshalJSON(data []byte) error {
	*c = ClientRegistrationRequest{
		ClientName:      internationalizedfield.New(memberClientName),
		ExtraParameters: make(map[string]any),
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return fmt.Errorf("could not unmarshal raw data: %w", err)
	}

	for key, value := range rawMap {
		if c.ClientName.Matches(key) {
			if isNull(value) {
				continue
			}
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if err := c.ClientName.Set(key, name); err != nil {
				return err
			}
			continue
		}

		var dst any
		switch key {
		case memberRedirectURIs:
			dst = &c.RedirectURIs
		case memberGrantTypes:
			dst = &c.GrantTypes
		case memberClientURI:
			dst = &c.ClientURI
		case memberTokenEndpointAuthMethod:
			dst = &c.TokenEndpointAuthMethod
		case memberJWKSURI:
			dst = &c.JWKSURI
		case memberScope:
			dst = &c.Scope
		case memberDefaultMaxAge:
			if isNull(value) {
				continue
			}
			var maxAge int64
			if err := json.Unmarshal(value, &maxAge); err != nil {
				c.InvalidDefaultMaxAge = append(json.RawMessage(nil), value...)
				continue
			}
			c.DefaultMaxAge = &maxAge
			continue
		case memberJWKS:
			if !isNull(value) {
				c.JWKS = append(json.RawMessage(nil), value...)
			}
			continue
		default:
			// not modelled: keep it as an extension parameter.
			val, err := decodeValue(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			c.ExtraParameters[key] = val
			continue
		}
		if isNull(value) {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (c ClientRegistrationRequest) MarshalJSON() ([]byte, error) {
	res := make(map[string]any)
	if len(c.RedirectURIs) > 0 {
		res[memberRedirectURIs] = c.RedirectURIs
	}
	if len(c.GrantTypes) > 0 {
		res[memberGrantTypes] = c.GrantTypes
	}
	c.ClientName.AppendTo(res)
	if c.ClientURI != "" {
		res[memberClientURI] = c.ClientURI
	}
	if c.TokenEndpointAuthMethod != "" {
		res[memberTokenEndpointAuthMethod] = c.TokenEndpointAuthMethod
	}
	if c.JWKSURI != "" {
		res[memberJWKSURI] = c.JWKSURI
	}
	if len(c.JWKS) > 0 {
		res[memberJWKS] = c.JWKS
	}
	if c.Scope != "" {
		res[memberScope] = c.Scope
	}
	if c.DefaultMaxAge != nil {
		res[memberDefaultMaxAge] = *c.DefaultMaxAge
	} else if len(c.InvalidDefaultMaxAge) > 0 {
		res[memberDefaultMaxAge] = c.InvalidDefaultMaxAge
	}
	return mergeAndMarshal(res, c.ExtraParameters)
}

// ClientRegistrationResponse implements the
// [Client Information Response] returned after a successful registration.
//
// [Client Information Response]: https://www.rfc-editor.org/rfc/rfc7591#section-3.2.1
type ClientRegistrationResponse struct {
	ClientID              string
	ClientSecret          string
	ClientIDIssuedAt      int64
	ClientSecretExpiresAt int64

	RedirectURIs            []string
	GrantTypes              []GrantType
	ClientName              internationalizedfield.InternationalizedField
	ClientURI               string
	TokenEndpointAuthMethod AuthMethod
	JWKSURI                 string
	JWKS                    *jose.JSONWebKeySet
	Scope                   SpaceDelimitedArray
	DefaultMaxAge           *int64

	// ExtraParameters are echoed back to the client, see [ClientRegistrationRequest].
	ExtraParameters map[string]any
}

func (c ClientRegistrationResponse) MarshalJSON() ([]byte, error) {
	res := map[string]any{
		"client_id":                  c.ClientID,
		memberGrantTypes:             c.GrantTypes,
		memberTokenEndpointAuthMethod: c.TokenEndpointAuthMethod,
	}
	if c.ClientSecret != "" {
		res["client_secret"] = c.ClientSecret
		// REQUIRED if "client_secret" is issued, 0 means it never expires.
		res["client_secret_expires_at"] = c.ClientSecretExpiresAt
	}
	if c.ClientIDIssuedAt != 0 {
		res["client_id_issued_at"] = c.ClientIDIssuedAt
	}
	if len(c.RedirectURIs) > 0 {
		res[memberRedirectURIs] = c.RedirectURIs
	}
	c.ClientName.AppendTo(res)
	if c.ClientURI != "" {
		res[memberClientURI] = c.ClientURI
	}
	if c.JWKSURI != "" {
		res[memberJWKSURI] = c.JWKSURI
	}
	if c.JWKS != nil && len(c.JWKS.Keys) > 0 {
		res[memberJWKS] = c.JWKS
	}
	if len(c.Scope) > 0 {
		res[memberScope] = c.Scope.String()
	}
	if c.DefaultMaxAge != nil {
		res[memberDefaultMaxAge] = *c.DefaultMaxAge
	}
	return mergeAndMarshal(res, c.ExtraParameters)
}

// RegistrationErrorResponse implements the [Client Registration Error Response],
// extended by the full list of rejected members.
//
// [Client Registration Error Response]: https://www.rfc-editor.org/rfc/rfc7591#section-3.2.2
type RegistrationErrorResponse struct {
	ErrorType   errorType           `json:"error"`
	Description string              `json:"error_description,omitempty"`
	Errors      []RegistrationError `json:"errors,omitempty"`
}

// RegistrationError describes a single rejected client metadata member.
type RegistrationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
