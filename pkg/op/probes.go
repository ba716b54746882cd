package op

import (
	"context"
	"errors"
	"net/http"

	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/oidc"
)

type ProbesFn func(context.Context) error

// Pinger is implemented by stores that can check their backend connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyPinger returns a probe failing while p is unreachable.
func ReadyPinger(p Pinger) ProbesFn {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.New("no storage")
		}
		return p.Ping(ctx)
	}
}

type Status struct {
	Status string `json:"status,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ok(w)
}

func (o *Provider) readyHandler(w http.ResponseWriter, r *http.Request) {
	for _, probe := range o.probes {
		if err := probe(r.Context()); err != nil {
			WriteError(w, r, oidc.ErrTemporarilyUnavailable().WithDescription("not ready").WithParent(err), o.logger)
			return
		}
	}
	ok(w)
}

func ok(w http.ResponseWriter) {
	httphelper.MarshalJSON(w, Status{"ok"})
}
