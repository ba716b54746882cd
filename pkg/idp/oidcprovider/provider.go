// Package oidcprovider implements the "oidc" identity provider type:
// upstream OpenID Connect providers configured as data.
package oidcprovider

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/zitadel/dynconfig/pkg/idp"
)

const (
	TypeKey     = "oidc"
	HandlerName = "oidc"

	DefaultPathPrefix   = "/federation"
	DefaultResponseType = "id_token"
	DefaultScope        = "openid"
)

// Record property names understood by this kind.
const (
	PropertyAuthority                     = "authority"
	PropertyClientID                      = "client_id"
	PropertyClientSecret                  = "client_secret"
	PropertyResponseType                  = "response_type"
	PropertyScope                         = "scope"
	PropertyUsePKCE                       = "use_pkce"
	PropertyGetClaimsFromUserInfoEndpoint = "get_claims_from_userinfo_endpoint"
)

var supportedResponseTypes = []string{
	"code",
	"id_token",
	"id_token token",
	"code id_token",
	"code token",
	"code id_token token",
}

// Provider is the typed model of an "oidc" record.
type Provider struct {
	Name         string
	DisplayName  string
	Authority    string
	ClientID     string
	ClientSecret string
	ResponseType string
	Scopes       []string
	UsePKCE      bool

	GetClaimsFromUserInfoEndpoint bool
}

func (p *Provider) Scheme() string {
	return p.Name
}

// Decode reads an "oidc" record. Unknown properties are ignored.
func Decode(record *idp.Record) (*Provider, error) {
	p := &Provider{
		Name:         record.Scheme,
		DisplayName:  record.DisplayName,
		ResponseType: DefaultResponseType,
		Scopes:       []string{DefaultScope},
		UsePKCE:      true,
	}
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(checkScheme(record.Scheme))

	authority, ok, err := record.String(PropertyAuthority)
	collect(err)
	if err == nil {
		if !ok {
			collect(fmt.Errorf("property %q is required", PropertyAuthority))
		} else if err := checkAuthority(authority); err != nil {
			collect(err)
		} else {
			p.Authority = strings.TrimSuffix(authority, "/")
		}
	}

	clientID, ok, err := record.String(PropertyClientID)
	collect(err)
	if err == nil && !ok {
		collect(fmt.Errorf("property %q is required", PropertyClientID))
	}
	p.ClientID = clientID

	p.ClientSecret, _, err = record.String(PropertyClientSecret)
	collect(err)

	responseType, ok, err := record.String(PropertyResponseType)
	collect(err)
	if ok {
		responseType = strings.Join(strings.Fields(responseType), " ")
		if !slices.Contains(supportedResponseTypes, responseType) {
			collect(fmt.Errorf("property %q: unsupported value %q", PropertyResponseType, responseType))
		}
		p.ResponseType = responseType
	}

	scopes, ok, err := record.Strings(PropertyScope)
	collect(err)
	if ok {
		p.Scopes = scopes
	}

	usePKCE, ok, err := record.Bool(PropertyUsePKCE)
	collect(err)
	if ok {
		p.UsePKCE = usePKCE
	}

	userInfo, _, err := record.Bool(PropertyGetClaimsFromUserInfoEndpoint)
	collect(err)
	p.GetClaimsFromUserInfoEndpoint = userInfo

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// checkScheme requires the scheme to be a single path segment, as it is
// joined into the callback paths.
func checkScheme(scheme string) error {
	if scheme == "" || scheme == "." || scheme == ".." || url.PathEscape(scheme) != scheme {
		return fmt.Errorf("scheme %q must be a single unescaped path segment", scheme)
	}
	return nil
}

func checkAuthority(authority string) error {
	u, err := url.Parse(authority)
	if err != nil {
		return fmt.Errorf("property %q: %w", PropertyAuthority, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("property %q: %q must be an absolute http(s) url", PropertyAuthority, authority)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("property %q: %q must not have a query or fragment", PropertyAuthority, authority)
	}
	return nil
}
