// Package storagetest holds the behavior every client and identity provider
// store implementation has to show.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/muhlemmer/gu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/internationalizedfield"
	"github.com/zitadel/dynconfig/pkg/oidc"
	"github.com/zitadel/dynconfig/pkg/op"
)

type ClientStore interface {
	op.ClientStore
	op.ClientReader
	op.Pinger
}

type ProviderStore interface {
	idp.Store
	idp.Lister
	idp.Writer
}

func Client(t *testing.T) *op.Client {
	t.Helper()
	name := internationalizedfield.New("client_name")
	require.NoError(t, name.Set("client_name", "App"))
	require.NoError(t, name.Set("client_name#de", "Anwendung"))
	return &op.Client{
		SecretHash:    []byte("$2a$04$hash"),
		RedirectURIs:  []string{"https://app.example/cb"},
		GrantTypes:    []oidc.GrantType{oidc.GrantTypeCode},
		AuthMethod:    oidc.AuthMethodBasic,
		Name:          name,
		Scopes:        []string{"openid"},
		DefaultMaxAge: gu.Ptr(time.Hour),
		Extensions:    map[string]any{"software_id": "abc"},
		IssuedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// RunClientStore checks Save, GetClient and Ping of store.
func RunClientStore(t *testing.T, store ClientStore) {
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	client := Client(t)
	id, err := store.Save(ctx, client)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Empty(t, client.ID, "Save must not modify its argument")

	got, err := store.GetClient(ctx, id)
	require.NoError(t, err)
	want := client.Clone()
	want.ID = id
	assert.Equal(t, want, got)

	got.RedirectURIs[0] = "https://evil.example/cb"
	again, err := store.GetClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, again)

	other, err := store.Save(ctx, client)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	fixed := Client(t)
	fixed.ID = "fixed"
	id, err = store.Save(ctx, fixed)
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = store.GetClient(ctx, "unknown")
	assert.ErrorIs(t, err, op.ErrClientNotFound)
}

// RunProviderStore checks the read and write operations of store, which must be empty.
func RunProviderStore(t *testing.T, store ProviderStore) {
	ctx := context.Background()

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	b := &idp.Record{Scheme: "b", Type: "oidc", Enabled: true, Properties: map[string]any{
		"authority": "https://login.b.example.com",
		"scope":     []any{"openid", "email"},
	}}
	a := &idp.Record{Scheme: "a", Type: "oidc", DisplayName: "A"}
	require.NoError(t, store.Save(ctx, b))
	require.NoError(t, store.Save(ctx, a))
	assert.Error(t, store.Save(ctx, &idp.Record{Type: "oidc"}))

	got, err := store.GetByScheme(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	records, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*idp.Record{a, b}, records)

	b.Enabled = false
	require.NoError(t, store.Save(ctx, b))
	got, err = store.GetByScheme(ctx, "b")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.GetByScheme(ctx, "b")
	assert.ErrorIs(t, err, idp.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "b"), idp.ErrNotFound)
}
