package idp

import (
	"fmt"
)

// OptionsFactory turns stored records into handler options using the
// [ProviderKind] bound to the record's type key. It has no side effects.
type OptionsFactory struct {
	registry *Registry
}

func NewOptionsFactory(registry *Registry) *OptionsFactory {
	return &OptionsFactory{registry: registry}
}

func (f *OptionsFactory) Build(record *Record) (HandlerOptions, error) {
	binding, err := f.registry.Resolve(record.Type)
	if err != nil {
		return nil, fmt.Errorf("scheme %q: %w", record.Scheme, err)
	}
	provider, err := binding.Kind.DecodeProvider(record)
	if err != nil {
		return nil, fmt.Errorf("%w: scheme %q: %w", ErrInvalidProviderConfiguration, record.Scheme, err)
	}
	options, err := binding.Kind.BuildOptions(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: scheme %q: %w", ErrInvalidProviderConfiguration, record.Scheme, err)
	}
	return options, nil
}
