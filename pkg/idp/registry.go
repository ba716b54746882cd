package idp

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Provider is the typed model of a stored [Record], decoded by its [ProviderKind].
type Provider interface {
	Scheme() string
}

// HandlerOptions are the options an authentication handler is constructed with.
type HandlerOptions interface {
	Scheme() string
	HandlerName() string
}

// ProviderKind implements one provider type, such as "oidc".
// It decodes records into its provider model and maps that model onto the
// options of its authentication handler. Implementations must be stateless.
type ProviderKind interface {
	// HandlerName names the authentication handler the options are meant for.
	HandlerName() string
	// DecodeProvider maps the record properties onto the provider model.
	// Properties the kind does not know are ignored.
	DecodeProvider(record *Record) (Provider, error)
	BuildOptions(provider Provider) (HandlerOptions, error)
}

// Binding is what a type key resolves to.
type Binding struct {
	TypeKey string
	Kind    ProviderKind
}

// Registry maps provider type keys to their [ProviderKind].
//
// It is populated during setup and then frozen, after which it is read-only
// and lookups do not synchronize.
type Registry struct {
	mu       sync.RWMutex
	frozen   atomic.Bool
	bindings map[string]Binding
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]Binding),
	}
}

func (r *Registry) Register(typeKey string, kind ProviderKind) error {
	if typeKey == "" || kind == nil {
		return fmt.Errorf("%w: type key %q", ErrInvalidBinding, typeKey)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrRegistryFrozen, typeKey)
	}
	if _, ok := r.bindings[typeKey]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTypeKey, typeKey)
	}
	r.bindings[typeKey] = Binding{TypeKey: typeKey, Kind: kind}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(typeKey string, kind ProviderKind) {
	if err := r.Register(typeKey, kind); err != nil {
		panic(err)
	}
}

// Freeze ends the setup phase. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

func (r *Registry) Resolve(typeKey string) (Binding, error) {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	b, ok := r.bindings[typeKey]
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownProviderType, typeKey)
	}
	return b, nil
}

// TypeKeys returns the registered type keys in sorted order.
func (r *Registry) TypeKeys() []string {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	keys := make([]string, 0, len(r.bindings))
	for k := range r.bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
