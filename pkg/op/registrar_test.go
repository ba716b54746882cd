package op_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zitadel/dynconfig/pkg/oidc"
	"github.com/zitadel/dynconfig/pkg/op"
	"github.com/zitadel/dynconfig/pkg/op/mock"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistrar(t *testing.T, store op.ClientStore, opts ...op.RegistrarOption) *op.Registrar {
	t.Helper()
	opts = append([]op.RegistrarOption{
		op.WithBcryptCost(bcrypt.MinCost),
		op.WithRegistrarClock(func() time.Time { return testNow }),
		op.WithSecretGenerator(func() (string, error) { return "s3cret", nil }),
	}, opts...)
	return op.NewRegistrar(newValidator(t, op.ValidatorConfig{}), store, opts...)
}

func TestRegistrar_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("secret client", func(t *testing.T) {
		store := mock.NewMockClientStore(gomock.NewController(t))
		var saved *op.Client
		store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *op.Client) (string, error) {
			saved = c.Clone()
			return "client-1", nil
		})
		resp, err := newTestRegistrar(t, store).Register(ctx, parseRequest(t, `{
			"redirect_uris": ["https://app.example/cb"],
			"token_endpoint_auth_method": "client_secret_post",
			"software_id": "abc"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "client-1", resp.ClientID)
		assert.Equal(t, "s3cret", resp.ClientSecret)
		assert.Equal(t, testNow.Unix(), resp.ClientIDIssuedAt)
		assert.Equal(t, "abc", resp.ExtraParameters["software_id"])

		require.NotNil(t, saved)
		assert.NotContains(t, string(saved.SecretHash), "s3cret")
		assert.True(t, op.CheckSecret(saved, "s3cret"))
		assert.False(t, op.CheckSecret(saved, "other"))
		assert.Equal(t, testNow, saved.IssuedAt)
	})
	t.Run("key client gets no secret", func(t *testing.T) {
		store := mock.NewMockClientStore(gomock.NewController(t))
		store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *op.Client) (string, error) {
			assert.Empty(t, c.SecretHash)
			return "client-2", nil
		})
		registrar := newTestRegistrar(t, store, op.WithSecretGenerator(func() (string, error) {
			t.Error("secret generated for private_key_jwt client")
			return "", nil
		}))
		resp, err := registrar.Register(ctx, parseRequest(t, `{
			"grant_types": ["client_credentials"],
			"jwks_uri": "https://app.example/jwks"
		}`))
		require.NoError(t, err)
		assert.Equal(t, oidc.AuthMethodPrivateKeyJWT, resp.TokenEndpointAuthMethod)
		assert.Empty(t, resp.ClientSecret)
		assert.False(t, op.CheckSecret(&op.Client{}, ""))
	})
	t.Run("rejected", func(t *testing.T) {
		store := mock.NewMockClientStore(gomock.NewController(t))
		_, err := newTestRegistrar(t, store).Register(ctx, parseRequest(t, `{"redirect_uris": ["https://app.example/cb#x"]}`))
		var rejected *op.RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, op.CodeInvalidRedirectURI, rejected.Errors[0].Code)
		assert.NotErrorIs(t, err, op.ErrPersistence)
	})
	t.Run("persistence failure", func(t *testing.T) {
		store := mock.NewMockClientStore(gomock.NewController(t))
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))
		_, err := newTestRegistrar(t, store).Register(ctx, parseRequest(t, `{"redirect_uris": ["https://app.example/cb"]}`))
		assert.ErrorIs(t, err, op.ErrPersistence)
		var rejected *op.RejectedError
		assert.False(t, errors.As(err, &rejected))
	})
	t.Run("secret generation failure", func(t *testing.T) {
		store := mock.NewMockClientStore(gomock.NewController(t))
		registrar := newTestRegistrar(t, store, op.WithSecretGenerator(func() (string, error) {
			return "", errors.New("no entropy")
		}))
		_, err := registrar.Register(ctx, parseRequest(t, `{"redirect_uris": ["https://app.example/cb"]}`))
		assert.Error(t, err)
	})
}

func TestRandomSecret(t *testing.T) {
	a, err := op.RandomSecret()
	require.NoError(t, err)
	b, err := op.RandomSecret()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
