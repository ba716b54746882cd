// Package redis stores clients and identity providers in Redis, which lets
// several instances share them. Writes to identity providers are announced
// on a channel so that every instance can drop its cached copy.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/op"
)

const (
	DefaultKeyPrefix    = "dynconfig:"
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// NewClient connects to the Redis server at addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})
}

type Option func(*options)

type options struct {
	prefix string
}

// WithKeyPrefix namespaces all keys, e.g. per tenant.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func newOptions(opts []Option) options {
	o := options{prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ClientStore implements [op.ClientStore] and [op.ClientReader].
type ClientStore struct {
	client redis.UniversalClient
	prefix string
}

func NewClientStore(client redis.UniversalClient, opts ...Option) *ClientStore {
	o := newOptions(opts)
	return &ClientStore{client: client, prefix: o.prefix}
}

func (s *ClientStore) key(id string) string {
	return s.prefix + "client:" + id
}

func (s *ClientStore) Save(ctx context.Context, client *op.Client) (string, error) {
	c := client.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal client: %w", err)
	}
	if err := s.client.Set(ctx, s.key(c.ID), doc, 0).Err(); err != nil {
		return "", fmt.Errorf("store client: %w", err)
	}
	return c.ID, nil
}

func (s *ClientStore) GetClient(ctx context.Context, clientID string) (*op.Client, error) {
	doc, err := s.client.Get(ctx, s.key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", op.ErrClientNotFound, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	client := new(op.Client)
	if err := json.Unmarshal(doc, client); err != nil {
		return nil, fmt.Errorf("unmarshal client %s: %w", clientID, err)
	}
	return client, nil
}

func (s *ClientStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ProviderStore implements [idp.Store], [idp.Lister] and [idp.Writer].
// Records are JSON documents, their schemes are kept in a set for listing.
type ProviderStore struct {
	client redis.UniversalClient
	prefix string
}

func NewProviderStore(client redis.UniversalClient, opts ...Option) *ProviderStore {
	o := newOptions(opts)
	return &ProviderStore{client: client, prefix: o.prefix}
}

func (s *ProviderStore) key(scheme string) string {
	return s.prefix + "idp:" + scheme
}

func (s *ProviderStore) schemesKey() string {
	return s.prefix + "idp-schemes"
}

// Channel is where changed schemes are published.
func (s *ProviderStore) Channel() string {
	return s.prefix + "idp-changes"
}

func (s *ProviderStore) GetByScheme(ctx context.Context, scheme string) (*idp.Record, error) {
	doc, err := s.client.Get(ctx, s.key(scheme)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", idp.ErrNotFound, scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("get identity provider: %w", err)
	}
	return unmarshalRecord(scheme, doc)
}

func unmarshalRecord(scheme string, doc []byte) (*idp.Record, error) {
	record := new(idp.Record)
	if err := json.Unmarshal(doc, record); err != nil {
		return nil, fmt.Errorf("unmarshal identity provider %s: %w", scheme, err)
	}
	return record, nil
}

func (s *ProviderStore) List(ctx context.Context) ([]*idp.Record, error) {
	schemes, err := s.client.SMembers(ctx, s.schemesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list identity providers: %w", err)
	}
	if len(schemes) == 0 {
		return nil, nil
	}
	slices.Sort(schemes)
	keys := make([]string, len(schemes))
	for i, scheme := range schemes {
		keys[i] = s.key(scheme)
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get identity providers: %w", err)
	}
	records := make([]*idp.Record, 0, len(docs))
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			// removed between SMEMBERS and MGET
			continue
		}
		record, err := unmarshalRecord(schemes[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Save stores record and publishes its scheme on [ProviderStore.Channel].
func (s *ProviderStore) Save(ctx context.Context, record *idp.Record) error {
	if record.Scheme == "" {
		return errors.New("scheme must not be empty")
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal identity provider: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(record.Scheme), doc, 0)
		pipe.SAdd(ctx, s.schemesKey(), record.Scheme)
		pipe.Publish(ctx, s.Channel(), record.Scheme)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store identity provider: %w", err)
	}
	return nil
}

// Delete removes scheme and publishes it on [ProviderStore.Channel].
func (s *ProviderStore) Delete(ctx context.Context, scheme string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(scheme))
		pipe.SRem(ctx, s.schemesKey(), scheme)
		pipe.Publish(ctx, s.Channel(), scheme)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete identity provider: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", idp.ErrNotFound, scheme)
	}
	return nil
}

func (s *ProviderStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Watch invalidates every scheme published on [ProviderStore.Channel] until
// ctx is done. ready, if not nil, is closed once the subscription is active.
func (s *ProviderStore) Watch(ctx context.Context, invalidator idp.Invalidator, logger *slog.Logger, ready chan<- struct{}) error {
	sub := s.client.Subscribe(ctx, s.Channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Channel(), err)
	}
	if ready != nil {
		close(ready)
	}
	logger.InfoContext(ctx, "watching identity provider changes", "channel", s.Channel())

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("identity provider change subscription closed")
			}
			scheme := strings.TrimSpace(msg.Payload)
			if scheme == "" {
				continue
			}
			logger.DebugContext(ctx, "identity provider changed", "scheme", scheme)
			invalidator.Invalidate(scheme)
		}
	}
}
