package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/storage/storagetest"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestClientStore(t *testing.T) {
	storagetest.RunClientStore(t, NewClientStore(setupTestDB(t)))
}

func TestProviderStore(t *testing.T) {
	storagetest.RunProviderStore(t, NewProviderStore(setupTestDB(t)))
}

func TestOpen_memory(t *testing.T) {
	for _, dsn := range []string{":memory:", "file::memory:", "file:" + t.Name() + "?mode=memory&cache=shared"} {
		t.Run(dsn, func(t *testing.T) {
			ctx := context.Background()
			db, err := Open(ctx, dsn)
			require.NoError(t, err)
			defer db.Close()
			assert.Equal(t, 1, db.Stats().MaxOpenConnections)

			// concurrent users share the one database the tables were created in
			var g errgroup.Group
			for i := 0; i < 8; i++ {
				scheme := fmt.Sprintf("idp-%d", i)
				g.Go(func() error {
					return NewProviderStore(db).Save(ctx, &idp.Record{Scheme: scheme, Type: "oidc"})
				})
			}
			require.NoError(t, g.Wait())
			records, err := NewProviderStore(db).List(ctx)
			require.NoError(t, err)
			assert.Len(t, records, 8)

			_, err = NewClientStore(db).Save(ctx, storagetest.Client(t))
			require.NoError(t, err)
		})
	}
}

func TestInMemory(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"", true},
		{":memory:", true},
		{"file::memory:", true},
		{"file::memory:?cache=shared", true},
		{"file:test?mode=memory&cache=shared", true},
		{"file:test?cache=shared&mode=memory", true},
		{"dynconfig.db", false},
		{"file:dynconfig.db?mode=rwc", false},
		{"/var/lib/memory.db", false},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, inMemory(tt.dsn))
		})
	}
}

func TestOpen_reopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "dynconfig.db")

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, NewProviderStore(db).Save(ctx, &idp.Record{Scheme: "a", Type: "oidc", Enabled: true}))
	id, err := NewClientStore(db).Save(ctx, storagetest.Client(t))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	record, err := NewProviderStore(db).GetByScheme(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, &idp.Record{Scheme: "a", Type: "oidc", Enabled: true}, record)

	client, err := NewClientStore(db).GetClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "App", client.Name.Default())
}

func TestProviderStore_corruptProperties(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, err := db.ExecContext(ctx, `INSERT INTO identity_providers (scheme, type, properties) VALUES ('x', 'oidc', 'not json')`)
	require.NoError(t, err)

	_, err = NewProviderStore(db).GetByScheme(ctx, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, idp.ErrNotFound)
}
