package main

import (
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/xid"
	"golang.org/x/oauth2"

	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/idp/oidcprovider"
	"github.com/zitadel/dynconfig/pkg/oidc"
	"github.com/zitadel/dynconfig/pkg/op"
)

// federation starts sign-ins at the dynamically configured upstream providers.
// It only redirects to the upstream authorization endpoint: the example keeps
// no sessions, so the callback paths are not served and the generated state,
// nonce and PKCE verifier are discarded. A real deployment must store them
// and check them on the callback.
type federation struct {
	resolver     *idp.Resolver
	redirectBase string
	prefix       string
	logger       *slog.Logger
	// handlers are keyed by the resolved options pointer, which is rebuilt
	// when the provider record changes, so stale handlers are never hit.
	// Options the resolver did not cache, because the record was invalidated
	// during the fetch, are new on every request: each such request runs
	// discovery again and adds an entry that only LRU eviction removes.
	handlers *lru.Cache
}

func newFederation(resolver *idp.Resolver, redirectBase, prefix string, logger *slog.Logger) (*federation, error) {
	if prefix == "" {
		prefix = oidcprovider.DefaultPathPrefix
	}
	handlers, err := lru.New(100)
	if err != nil {
		return nil, err
	}
	return &federation{
		resolver:     resolver,
		redirectBase: redirectBase,
		prefix:       path.Join("/", prefix),
		logger:       logger,
		handlers:     handlers,
	}, nil
}

func (f *federation) routes() http.Handler {
	router := chi.NewRouter()
	router.Get("/{scheme}/challenge", f.challenge)
	return router
}

func (f *federation) challenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resolved, err := f.resolver.Resolve(ctx, chi.URLParam(r, "scheme"))
	if err != nil {
		op.WriteError(w, r, err, f.logger)
		return
	}
	options, ok := resolved.(*oidcprovider.Options)
	if !ok {
		op.WriteError(w, r, oidc.ErrInvalidRequest().WithDescription("scheme %s does not support challenges", resolved.Scheme()), f.logger)
		return
	}
	var handler *oidcprovider.Handler
	if cached, ok := f.handlers.Get(options); ok {
		handler = cached.(*oidcprovider.Handler)
	} else {
		handler, err = options.NewHandler(ctx, f.redirectBase, httphelper.DefaultHTTPClient)
		if err != nil {
			op.WriteError(w, r, oidc.ErrTemporarilyUnavailable().WithDescription("upstream provider unavailable").WithParent(err), f.logger)
			return
		}
		f.handlers.Add(options, handler)
	}
	http.Redirect(w, r, handler.AuthCodeURL(xid.New().String(), xid.New().String(), oauth2.GenerateVerifier()), http.StatusFound)
}
