package oidcprovider

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Options configure the OpenID Connect handler of one scheme.
type Options struct {
	SchemeName   string
	DisplayName  string
	Authority    string
	ClientID     string
	ClientSecret string
	ResponseType string
	Scopes       []string
	UsePKCE      bool

	GetClaimsFromUserInfoEndpoint bool

	CallbackPath          string
	SignedOutCallbackPath string
	RemoteSignOutPath     string
}

func (o *Options) Scheme() string {
	return o.SchemeName
}

func (o *Options) HandlerName() string {
	return HandlerName
}

// Handler is an OpenID Connect client of an upstream provider, ready to
// start and complete sign-ins.
type Handler struct {
	options  *Options
	provider *gooidc.Provider
	oauth2   oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// NewHandler discovers the upstream provider at Authority.
// redirectBase is the external origin the callback paths are appended to.
// httpClient may be nil.
func (o *Options) NewHandler(ctx context.Context, redirectBase string, httpClient *http.Client) (*Handler, error) {
	if httpClient != nil {
		ctx = gooidc.ClientContext(ctx, httpClient)
	}
	provider, err := gooidc.NewProvider(ctx, o.Authority)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery of %s: %w", o.Authority, err)
	}
	return &Handler{
		options:  o,
		provider: provider,
		oauth2: oauth2.Config{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RedirectURL:  strings.TrimSuffix(redirectBase, "/") + o.CallbackPath,
			Endpoint:     provider.Endpoint(),
			Scopes:       o.Scopes,
		},
		verifier: provider.Verifier(&gooidc.Config{
			ClientID: o.ClientID,
		}),
	}, nil
}

func (h *Handler) Options() *Options {
	return h.options
}

func (h *Handler) OAuth2Config() oauth2.Config {
	return h.oauth2
}

// AuthCodeURL builds the authorization request. verifier is ignored unless PKCE is enabled.
func (h *Handler) AuthCodeURL(state, nonce, verifier string) string {
	opts := []oauth2.AuthCodeOption{
		gooidc.Nonce(nonce),
	}
	if h.options.ResponseType != "code" {
		opts = append(opts, oauth2.SetAuthURLParam("response_type", h.options.ResponseType))
	}
	if strings.Contains(h.options.ResponseType, "id_token") {
		opts = append(opts, oauth2.SetAuthURLParam("response_mode", "form_post"))
	}
	if h.options.UsePKCE && slices.Contains(strings.Fields(h.options.ResponseType), "code") {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return h.oauth2.AuthCodeURL(state, opts...)
}

// Verify checks a raw ID token issued by the upstream provider for this client.
func (h *Handler) Verify(ctx context.Context, rawIDToken string) (*gooidc.IDToken, error) {
	return h.verifier.Verify(ctx, rawIDToken)
}

// UserInfo fetches the user info claims when the scheme is configured for it.
// It returns nil, nil otherwise.
func (h *Handler) UserInfo(ctx context.Context, token *oauth2.Token) (*gooidc.UserInfo, error) {
	if !h.options.GetClaimsFromUserInfoEndpoint {
		return nil, nil
	}
	return h.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
}
