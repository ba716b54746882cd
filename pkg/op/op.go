package op

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/zitadel/dynconfig/internal/otel"
	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/oidc"
)

const (
	healthEndpoint            = "/healthz"
	readinessEndpoint         = "/ready"
	RegistrationEndpoint      = "/connect/register"
	IdentityProvidersEndpoint = "/identity-providers"
)

var (
	tracer = otel.Tracer("github.com/zitadel/dynconfig/pkg/op")

	defaultCORSOptions = cors.Options{
		AllowCredentials: true,
		AllowedHeaders: []string{
			"Origin",
			"Accept",
			"Accept-Language",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
		},
		ExposedHeaders: []string{
			"Location",
			"Content-Length",
		},
		AllowOriginFunc: func(_ string) bool {
			return true
		},
	}
)

// Provider serves the dynamic client registration endpoint and the
// identity provider listing of an authorization server.
type Provider struct {
	http.Handler

	issuer      IssuerFromRequest
	insecure    bool
	registrar   *Registrar
	clients     ClientReader
	resolver    *idp.Resolver
	probes      []ProbesFn
	middleware  []func(http.Handler) http.Handler
	corsOptions cors.Options
	maxBodySize int64
	logger      *slog.Logger
}

type Option func(o *Provider) error

// WithAllowInsecure allows the use of http (instead of https) for issuers
// this is not recommended for production use and violates the OIDC specification
func WithAllowInsecure() Option {
	return func(o *Provider) error {
		o.insecure = true
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Provider) error {
		o.logger = logger
		return nil
	}
}

// WithClientReader enables reading registered clients at
// GET /connect/register/{client_id}, authenticated with the client secret.
func WithClientReader(clients ClientReader) Option {
	return func(o *Provider) error {
		o.clients = clients
		return nil
	}
}

// WithIdentityProviders enables the /identity-providers endpoints.
func WithIdentityProviders(resolver *idp.Resolver) Option {
	return func(o *Provider) error {
		o.resolver = resolver
		return nil
	}
}

func WithProbes(probes ...ProbesFn) Option {
	return func(o *Provider) error {
		o.probes = append(o.probes, probes...)
		return nil
	}
}

func WithHTTPMiddleware(m ...func(http.Handler) http.Handler) Option {
	return func(o *Provider) error {
		o.middleware = append(o.middleware, m...)
		return nil
	}
}

func WithCORSOptions(opts cors.Options) Option {
	return func(o *Provider) error {
		o.corsOptions = opts
		return nil
	}
}

// WithMaxBodySize limits the size of registration request documents.
func WithMaxBodySize(n int64) Option {
	return func(o *Provider) error {
		o.maxBodySize = n
		return nil
	}
}

// NewProvider creates a Provider for issuer, registering clients through registrar.
func NewProvider(issuer string, registrar *Registrar, opts ...Option) (*Provider, error) {
	o := &Provider{
		registrar:   registrar,
		corsOptions: defaultCORSOptions,
		maxBodySize: httphelper.DefaultMaxBodySize,
	}
	for _, optFunc := range opts {
		if err := optFunc(o); err != nil {
			return nil, err
		}
	}
	o.logger = newLogger(o.logger)

	var err error
	o.issuer, err = StaticIssuer(issuer, o.insecure)
	if err != nil {
		return nil, err
	}
	o.createRouter()
	return o, nil
}

func (o *Provider) createRouter() {
	router := chi.NewRouter()
	router.Use(cors.New(o.corsOptions).Handler)
	router.Use(o.LogMiddleware())
	router.Use(NewIssuerInterceptor(o.issuer).Handler)
	router.Use(o.middleware...)
	router.Get(healthEndpoint, healthHandler)
	router.Get(readinessEndpoint, o.readyHandler)
	router.Get(oidc.DiscoveryEndpoint, o.discoveryHandler)
	router.Post(RegistrationEndpoint, o.registrationHandler)
	if o.clients != nil {
		router.Get(RegistrationEndpoint+"/{client_id}", o.clientReadHandler)
	}
	if o.resolver != nil {
		router.Get(IdentityProvidersEndpoint, o.schemesHandler)
		router.Get(IdentityProvidersEndpoint+"/{scheme}", o.resolveHandler)
	}
	o.Handler = router
}

func (o *Provider) IssuerFromRequest(r *http.Request) string {
	return o.issuer(r)
}

func (o *Provider) Logger() *slog.Logger {
	return o.logger
}

func (o *Provider) discoveryHandler(w http.ResponseWriter, r *http.Request) {
	validator := o.registrar.Validator()
	httphelper.MarshalJSON(w, &oidc.DiscoveryConfiguration{
		Issuer:                            IssuerFromContext(r.Context()),
		RegistrationEndpoint:              IssuerFromContext(r.Context()) + RegistrationEndpoint,
		ScopesSupported:                   validator.DefaultScopes(),
		GrantTypesSupported:               validator.SupportedGrantTypes(),
		TokenEndpointAuthMethodsSupported: validator.SupportedAuthMethods(),
	})
}

// registrationHandler handles [client registration requests].
//
// [client registration requests]: https://www.rfc-editor.org/rfc/rfc7591#section-3.1
func (o *Provider) registrationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "registrationHandler")
	r = r.WithContext(ctx)
	defer span.End()

	req := new(oidc.ClientRegistrationRequest)
	if err := httphelper.DecodeJSON(r, req, o.maxBodySize); err != nil {
		WriteError(w, r, oidc.ErrInvalidClientMetadata().WithDescription("malformed registration request").WithParent(err), o.logger)
		return
	}
	resp, err := o.registrar.Register(ctx, req)
	if err != nil {
		WriteError(w, r, err, o.logger)
		return
	}
	httphelper.MarshalJSONWithStatus(w, resp, http.StatusCreated)
}

// clientReadHandler handles [client read requests]. Instead of a registration
// access token, the client authenticates with its id and secret (basic auth).
// Clients without a secret cannot read their registration.
//
// [client read requests]: https://www.rfc-editor.org/rfc/rfc7592.html#section-2.1
func (o *Provider) clientReadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "clientReadHandler")
	r = r.WithContext(ctx)
	defer span.End()

	clientID := chi.URLParam(r, "client_id")
	id, secret, ok := r.BasicAuth()
	if !ok || id != clientID {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+strings.ReplaceAll(IssuerFromContext(ctx), `"`, "")+`"`)
		WriteError(w, r, oidc.ErrInvalidClient().WithDescription("client authentication required"), o.logger)
		return
	}
	client, err := o.clients.GetClient(ctx, clientID)
	if err != nil && !errors.Is(err, ErrClientNotFound) {
		WriteError(w, r, err, o.logger)
		return
	}
	if client == nil || !CheckSecret(client, secret) {
		WriteError(w, r, oidc.ErrInvalidClient().WithDescription("client authentication failed"), o.logger)
		return
	}
	httphelper.MarshalJSON(w, client.Response(""))
}

func (o *Provider) schemesHandler(w http.ResponseWriter, r *http.Request) {
	schemes, err := o.resolver.Schemes(r.Context())
	if err != nil {
		WriteError(w, r, err, o.logger)
		return
	}
	httphelper.MarshalJSON(w, schemes)
}

// ResolvedScheme is the public view of resolved handler options.
type ResolvedScheme struct {
	Scheme  string `json:"scheme"`
	Handler string `json:"handler"`
}

func (o *Provider) resolveHandler(w http.ResponseWriter, r *http.Request) {
	options, err := o.resolver.Resolve(r.Context(), chi.URLParam(r, "scheme"))
	if err != nil {
		WriteError(w, r, err, o.logger)
		return
	}
	httphelper.MarshalJSON(w, ResolvedScheme{
		Scheme:  options.Scheme(),
		Handler: options.HandlerName(),
	})
}
