package idp

import "errors"

var (
	// ErrInvalidBinding is returned when registering an empty type key or a nil kind.
	ErrInvalidBinding = errors.New("invalid provider type binding")
	// ErrDuplicateTypeKey is a setup error: a type key can only be bound once.
	ErrDuplicateTypeKey = errors.New("duplicate provider type key")
	// ErrRegistryFrozen is returned by registrations after the registry started serving.
	ErrRegistryFrozen = errors.New("provider type registry is frozen")
	// ErrUnknownProviderType means a provider references a type key the process does not support.
	ErrUnknownProviderType = errors.New("unknown provider type")

	ErrNotFound                     = errors.New("identity provider not found")
	ErrProviderDisabled             = errors.New("identity provider is disabled")
	ErrInvalidProviderConfiguration = errors.New("invalid identity provider configuration")

	// ErrProviderResolutionTimeout and ErrStoreFailure are transient:
	// the caller may retry.
	ErrProviderResolutionTimeout = errors.New("identity provider resolution timed out")
	ErrStoreFailure              = errors.New("identity provider store failure")
)
