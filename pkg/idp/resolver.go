package idp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Scheme describes an enabled identity provider for listing, e.g. on a login page.
type Scheme struct {
	Scheme      string `json:"scheme"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type"`
}

type resolvedOptions struct {
	version uint64
	options HandlerOptions
}

// Resolver provides the authentication handler options of a scheme.
// Options are built once per cached record and discarded with it.
type Resolver struct {
	cache   *Cache
	factory *OptionsFactory
	lister  Lister
	metrics *Metrics

	mu      sync.Mutex
	options map[string]resolvedOptions
}

// NewResolver creates a Resolver. lister may be nil, [Resolver.Schemes] then fails.
func NewResolver(cache *Cache, factory *OptionsFactory, lister Lister, metrics *Metrics) *Resolver {
	return &Resolver{
		cache:   cache,
		factory: factory,
		lister:  lister,
		metrics: metrics,
		options: make(map[string]resolvedOptions),
	}
}

func (r *Resolver) Resolve(ctx context.Context, scheme string) (_ HandlerOptions, err error) {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()
	defer func() {
		r.metrics.resolution(resolutionOutcome(err))
	}()

	entry, err := r.cache.get(ctx, scheme)
	if err != nil {
		return nil, err
	}
	if !entry.record.Enabled {
		return nil, fmt.Errorf("%w: scheme %q", ErrProviderDisabled, scheme)
	}

	r.mu.Lock()
	resolved, ok := r.options[scheme]
	r.mu.Unlock()
	if ok && entry.version != 0 && resolved.version == entry.version {
		return resolved.options, nil
	}

	options, err := r.factory.Build(entry.record.Clone())
	if err != nil {
		return nil, err
	}
	if entry.version != 0 {
		r.mu.Lock()
		if current, ok := r.options[scheme]; !ok || current.version < entry.version {
			r.options[scheme] = resolvedOptions{version: entry.version, options: options}
		}
		r.mu.Unlock()
	}
	return options, nil
}

// Schemes lists the enabled identity providers, sorted by scheme.
func (r *Resolver) Schemes(ctx context.Context) ([]Scheme, error) {
	ctx, span := tracer.Start(ctx, "Schemes")
	defer span.End()

	if r.lister == nil {
		return nil, fmt.Errorf("%w: store does not support listing", ErrStoreFailure)
	}
	records, err := r.lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	schemes := make([]Scheme, 0, len(records))
	for _, record := range records {
		if !record.Enabled {
			continue
		}
		schemes = append(schemes, Scheme{
			Scheme:      record.Scheme,
			DisplayName: record.DisplayName,
			Type:        record.Type,
		})
	}
	slices.SortFunc(schemes, func(a, b Scheme) int {
		return strings.Compare(a.Scheme, b.Scheme)
	})
	return schemes, nil
}

func resolutionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProviderDisabled):
		return "disabled"
	case errors.Is(err, ErrUnknownProviderType):
		return "unknown_type"
	case errors.Is(err, ErrInvalidProviderConfiguration):
		return "invalid"
	case errors.Is(err, ErrProviderResolutionTimeout):
		return "timeout"
	default:
		return "error"
	}
}
