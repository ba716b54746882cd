package op

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/zitadel/dynconfig/pkg/internationalizedfield"
	"github.com/zitadel/dynconfig/pkg/oidc"
)

// Client is the canonical configuration of a dynamically registered client,
// as produced by the [Validator] and persisted through a [ClientStore].
//
// Key material is either embedded (JWKS) or referenced (JWKSURI), never both.
type Client struct {
	ID           string
	SecretHash   []byte
	RedirectURIs []string
	GrantTypes   []oidc.GrantType
	AuthMethod   oidc.AuthMethod
	Name         internationalizedfield.InternationalizedField
	ClientURI    string
	JWKSURI      string
	JWKS         *jose.JSONWebKeySet
	Scopes       []string

	// DefaultMaxAge is the maximum authentication age applied when an
	// authorization request does not carry max_age. Nil means no limit.
	DefaultMaxAge *time.Duration

	// Extensions are the registration members that are not modelled, kept verbatim.
	Extensions map[string]any

	IssuedAt time.Time
}

func (c *Client) HasGrantType(grantType oidc.GrantType) bool {
	return slices.Contains(c.GrantTypes, grantType)
}

// IsPublic reports whether the client does not authenticate at the token endpoint.
func (c *Client) IsPublic() bool {
	return c.AuthMethod == oidc.AuthMethodNone
}

// Clone returns a deep copy of the client.
func (c *Client) Clone() *Client {
	if c == nil {
		return nil
	}
	clone := *c
	clone.SecretHash = slices.Clone(c.SecretHash)
	clone.RedirectURIs = slices.Clone(c.RedirectURIs)
	clone.GrantTypes = slices.Clone(c.GrantTypes)
	clone.Scopes = slices.Clone(c.Scopes)
	clone.Name = c.Name.Clone()
	clone.Extensions = oidc.CloneExtensions(c.Extensions)
	if c.JWKS != nil {
		clone.JWKS = &jose.JSONWebKeySet{Keys: slices.Clone(c.JWKS.Keys)}
	}
	if c.DefaultMaxAge != nil {
		maxAge := *c.DefaultMaxAge
		clone.DefaultMaxAge = &maxAge
	}
	return &clone
}

// Response builds the client information response.
// secret is the plain text client secret and only set directly after registration.
func (c *Client) Response(secret string) *oidc.ClientRegistrationResponse {
	res := &oidc.ClientRegistrationResponse{
		ClientID:                c.ID,
		ClientSecret:            secret,
		RedirectURIs:            c.RedirectURIs,
		GrantTypes:              c.GrantTypes,
		ClientName:              c.Name,
		ClientURI:               c.ClientURI,
		TokenEndpointAuthMethod: c.AuthMethod,
		JWKSURI:                 c.JWKSURI,
		JWKS:                    c.JWKS,
		Scope:                   c.Scopes,
		ExtraParameters:         c.Extensions,
	}
	if !c.IssuedAt.IsZero() {
		res.ClientIDIssuedAt = c.IssuedAt.Unix()
	}
	if c.DefaultMaxAge != nil {
		seconds := int64(c.DefaultMaxAge.Seconds())
		res.DefaultMaxAge = &seconds
	}
	return res
}

const memberClientName = "client_name"

// clientDocument is the JSON representation clients are stored in.
type clientDocument struct {
	ID            string              `json:"client_id"`
	SecretHash    []byte              `json:"secret_hash,omitempty"`
	RedirectURIs  []string            `json:"redirect_uris,omitempty"`
	GrantTypes    []oidc.GrantType    `json:"grant_types"`
	AuthMethod    oidc.AuthMethod     `json:"token_endpoint_auth_method"`
	Name          map[string]any      `json:"names,omitempty"`
	ClientURI     string              `json:"client_uri,omitempty"`
	JWKSURI       string              `json:"jwks_uri,omitempty"`
	JWKS          *jose.JSONWebKeySet `json:"jwks,omitempty"`
	Scopes        []string            `json:"scopes,omitempty"`
	DefaultMaxAge *int64              `json:"default_max_age,omitempty"`
	Extensions    map[string]any      `json:"extensions,omitempty"`
	IssuedAt      int64               `json:"issued_at,omitempty"`
}

// MarshalJSON encodes the client for storage, including the secret hash.
// Use [Client.Response] for documents sent to the client.
func (c Client) MarshalJSON() ([]byte, error) {
	doc := clientDocument{
		ID:           c.ID,
		SecretHash:   c.SecretHash,
		RedirectURIs: c.RedirectURIs,
		GrantTypes:   c.GrantTypes,
		AuthMethod:   c.AuthMethod,
		ClientURI:    c.ClientURI,
		JWKSURI:      c.JWKSURI,
		JWKS:         c.JWKS,
		Scopes:       c.Scopes,
		Extensions:   c.Extensions,
	}
	if !c.Name.IsEmpty() {
		doc.Name = make(map[string]any, len(c.Name.Items))
		c.Name.AppendTo(doc.Name)
	}
	if c.DefaultMaxAge != nil {
		seconds := int64(c.DefaultMaxAge.Seconds())
		doc.DefaultMaxAge = &seconds
	}
	if !c.IssuedAt.IsZero() {
		doc.IssuedAt = c.IssuedAt.Unix()
	}
	return json.Marshal(doc)
}

func (c *Client) UnmarshalJSON(data []byte) error {
	var doc clientDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	*c = Client{
		ID:           doc.ID,
		SecretHash:   doc.SecretHash,
		RedirectURIs: doc.RedirectURIs,
		GrantTypes:   doc.GrantTypes,
		AuthMethod:   doc.AuthMethod,
		Name:         internationalizedfield.New(memberClientName),
		ClientURI:    doc.ClientURI,
		JWKSURI:      doc.JWKSURI,
		JWKS:         doc.JWKS,
		Scopes:       doc.Scopes,
		Extensions:   doc.Extensions,
	}
	for key, value := range doc.Name {
		name, _ := value.(string)
		if err := c.Name.Set(key, name); err != nil {
			return err
		}
	}
	if doc.DefaultMaxAge != nil {
		if *doc.DefaultMaxAge < 0 || *doc.DefaultMaxAge > MaxDefaultMaxAge {
			return fmt.Errorf("client %s: default_max_age %d out of range", doc.ID, *doc.DefaultMaxAge)
		}
		maxAge := time.Duration(*doc.DefaultMaxAge) * time.Second
		c.DefaultMaxAge = &maxAge
	}
	if doc.IssuedAt != 0 {
		c.IssuedAt = time.Unix(doc.IssuedAt, 0).UTC()
	}
	return nil
}
