package op

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type key int

const (
	issuerKey key = 0
)

// IssuerFromRequest returns the issuer of the server handling r.
type IssuerFromRequest func(r *http.Request) string

var ErrInvalidIssuer = errors.New("invalid issuer")

// StaticIssuer validates issuer, an absolute https url (http is allowed with
// allowInsecure) without query and fragment, and returns it for every request.
func StaticIssuer(issuer string, allowInsecure bool) (IssuerFromRequest, error) {
	u, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIssuer, err)
	}
	if u.Host == "" || (u.Scheme != "https" && !(allowInsecure && u.Scheme == "http")) {
		return nil, fmt.Errorf("%w: %q must be an absolute https url", ErrInvalidIssuer, issuer)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("%w: %q must not contain query or fragment", ErrInvalidIssuer, issuer)
	}
	issuer = strings.TrimSuffix(issuer, "/")
	return func(*http.Request) string {
		return issuer
	}, nil
}

type IssuerInterceptor struct {
	issuerFromRequest IssuerFromRequest
}

// NewIssuerInterceptor will set the issuer into the context
// by the provided IssuerFromRequest (e.g. returned from StaticIssuer)
func NewIssuerInterceptor(issuerFromRequest IssuerFromRequest) *IssuerInterceptor {
	return &IssuerInterceptor{
		issuerFromRequest: issuerFromRequest,
	}
}

func (i *IssuerInterceptor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i.setIssuerCtx(w, r, next)
	})
}

// IssuerFromContext reads the issuer from the context (set by an IssuerInterceptor)
// it will return an empty string if not found
func IssuerFromContext(ctx context.Context) string {
	ctxIssuer, _ := ctx.Value(issuerKey).(string)
	return ctxIssuer
}

// ContextWithIssuer returns a new context with issuer set to it.
func ContextWithIssuer(ctx context.Context, issuer string) context.Context {
	return context.WithValue(ctx, issuerKey, issuer)
}

func (i *IssuerInterceptor) setIssuerCtx(w http.ResponseWriter, r *http.Request, next http.Handler) {
	r = r.WithContext(ContextWithIssuer(r.Context(), i.issuerFromRequest(r)))
	next.ServeHTTP(w, r)
}
