package oidcprovider

import (
	"fmt"
	"path"

	"github.com/zitadel/dynconfig/pkg/idp"
)

// Kind binds the "oidc" type key to the OpenID Connect handler.
type Kind struct {
	// PathPrefix under which the callback paths of every scheme are served.
	PathPrefix string
}

// Register adds the "oidc" provider type to reg.
// pathPrefix defaults to [DefaultPathPrefix].
func Register(reg *idp.Registry, pathPrefix string) error {
	if pathPrefix == "" {
		pathPrefix = DefaultPathPrefix
	}
	return reg.Register(TypeKey, Kind{PathPrefix: pathPrefix})
}

func (Kind) HandlerName() string {
	return HandlerName
}

func (Kind) DecodeProvider(record *idp.Record) (idp.Provider, error) {
	return Decode(record)
}

func (k Kind) BuildOptions(provider idp.Provider) (idp.HandlerOptions, error) {
	p, ok := provider.(*Provider)
	if !ok {
		return nil, fmt.Errorf("oidc: unexpected provider model %T", provider)
	}
	if err := checkScheme(p.Name); err != nil {
		return nil, err
	}
	prefix := k.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	base := path.Join("/", prefix, p.Name)
	return &Options{
		SchemeName:                    p.Name,
		DisplayName:                   p.DisplayName,
		Authority:                     p.Authority,
		ClientID:                      p.ClientID,
		ClientSecret:                  p.ClientSecret,
		ResponseType:                  p.ResponseType,
		Scopes:                        append([]string(nil), p.Scopes...),
		UsePKCE:                       p.UsePKCE,
		GetClaimsFromUserInfoEndpoint: p.GetClaimsFromUserInfoEndpoint,
		CallbackPath:                  base + "/signin",
		SignedOutCallbackPath:         base + "/signout-callback",
		RemoteSignOutPath:             base + "/signout",
	}, nil
}
