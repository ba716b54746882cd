// Package memory keeps clients and identity providers in maps.
// It is meant for tests and for seeding small deployments.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/op"
)

// ClientStore implements [op.ClientStore] and [op.ClientReader].
type ClientStore struct {
	lock    sync.RWMutex
	clients map[string]*op.Client
}

func NewClientStore() *ClientStore {
	return &ClientStore{
		clients: make(map[string]*op.Client),
	}
}

// Save stores a copy of client, under a new uuid unless client.ID is set.
func (s *ClientStore) Save(_ context.Context, client *op.Client) (string, error) {
	c := client.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clients[c.ID] = c
	return c.ID, nil
}

func (s *ClientStore) GetClient(_ context.Context, clientID string) (*op.Client, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", op.ErrClientNotFound, clientID)
	}
	return c.Clone(), nil
}

func (s *ClientStore) Ping(context.Context) error {
	return nil
}

// ProviderStore implements [idp.Store], [idp.Lister] and [idp.Writer].
type ProviderStore struct {
	lock    sync.RWMutex
	records map[string]*idp.Record
}

func NewProviderStore(records ...*idp.Record) *ProviderStore {
	s := &ProviderStore{
		records: make(map[string]*idp.Record, len(records)),
	}
	for _, r := range records {
		s.records[r.Scheme] = r.Clone()
	}
	return s
}

func (s *ProviderStore) GetByScheme(_ context.Context, scheme string) (*idp.Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	r, ok := s.records[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", idp.ErrNotFound, scheme)
	}
	return r.Clone(), nil
}

func (s *ProviderStore) List(context.Context) ([]*idp.Record, error) {
	s.lock.RLock()
	records := make([]*idp.Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r.Clone())
	}
	s.lock.RUnlock()
	slices.SortFunc(records, func(a, b *idp.Record) int {
		return strings.Compare(a.Scheme, b.Scheme)
	})
	return records, nil
}

func (s *ProviderStore) Save(_ context.Context, record *idp.Record) error {
	if record.Scheme == "" {
		return errors.New("scheme must not be empty")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.records[record.Scheme] = record.Clone()
	return nil
}

func (s *ProviderStore) Delete(_ context.Context, scheme string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.records[scheme]; !ok {
		return fmt.Errorf("%w: %s", idp.ErrNotFound, scheme)
	}
	delete(s.records, scheme)
	return nil
}
