package idp

import (
	"context"
)

// Store retrieves provider definitions.
// GetByScheme returns an error wrapping [ErrNotFound] for unknown schemes.
type Store interface {
	GetByScheme(ctx context.Context, scheme string) (*Record, error)
}

// Lister is implemented by stores which can enumerate their providers.
type Lister interface {
	List(ctx context.Context) ([]*Record, error)
}

// Writer is implemented by stores accepting administrative changes.
type Writer interface {
	Save(ctx context.Context, record *Record) error
	Delete(ctx context.Context, scheme string) error
}

// Invalidator drops cached state of a scheme.
type Invalidator interface {
	Invalidate(scheme string)
}

// NotifyingStore wraps a [Writer] so that every write invalidates the scheme,
// forcing the next resolution to read the store.
type NotifyingStore struct {
	writer      Writer
	invalidator Invalidator
}

func NewNotifyingStore(writer Writer, invalidator Invalidator) *NotifyingStore {
	return &NotifyingStore{
		writer:      writer,
		invalidator: invalidator,
	}
}

// Save writes the record and invalidates its scheme, also when the write failed
// as it may have been partially applied.
func (s *NotifyingStore) Save(ctx context.Context, record *Record) error {
	defer s.invalidator.Invalidate(record.Scheme)
	return s.writer.Save(ctx, record)
}

func (s *NotifyingStore) Delete(ctx context.Context, scheme string) error {
	defer s.invalidator.Invalidate(scheme)
	return s.writer.Delete(ctx, scheme)
}
