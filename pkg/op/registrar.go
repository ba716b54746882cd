package op

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zitadel/dynconfig/pkg/oidc"
)

// ErrPersistence is returned when an accepted client could not be saved.
// It is a server failure, unlike [*RejectedError].
var ErrPersistence = errors.New("failed to persist client")

// RejectedError is returned by [Registrar.Register] when validation rejected the request.
type RejectedError struct {
	Errors ValidationErrors
}

func (e *RejectedError) Error() string {
	return "registration rejected: " + e.Errors.Error()
}

// SecretGenerator returns a new plain text client secret.
type SecretGenerator func() (string, error)

// RandomSecret returns 32 random bytes, base64url encoded.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Registrar registers clients: it validates requests and persists accepted clients.
type Registrar struct {
	validator  *Validator
	store      ClientStore
	secret     SecretGenerator
	now        func() time.Time
	bcryptCost int
	logger     *slog.Logger
}

type RegistrarOption func(*Registrar)

func WithSecretGenerator(gen SecretGenerator) RegistrarOption {
	return func(r *Registrar) {
		r.secret = gen
	}
}

func WithRegistrarClock(now func() time.Time) RegistrarOption {
	return func(r *Registrar) {
		r.now = now
	}
}

// WithBcryptCost sets the cost for hashing client secrets, [bcrypt.DefaultCost] by default.
func WithBcryptCost(cost int) RegistrarOption {
	return func(r *Registrar) {
		r.bcryptCost = cost
	}
}

func WithRegistrarLogger(logger *slog.Logger) RegistrarOption {
	return func(r *Registrar) {
		r.logger = logger
	}
}

func NewRegistrar(validator *Validator, store ClientStore, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		validator:  validator,
		store:      store,
		secret:     RandomSecret,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validator returns the validator requests are checked with.
func (r *Registrar) Validator() *Validator {
	return r.validator
}

// Register validates req and saves the resulting client.
// Validation failures are returned as [*RejectedError] and leave the store untouched.
// For clients authenticating with a client secret, the response carries the
// plain text secret, while only its hash is stored.
func (r *Registrar) Register(ctx context.Context, req *oidc.ClientRegistrationRequest) (*oidc.ClientRegistrationResponse, error) {
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	outcome, err := r.validator.ValidateRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	var client *Client
	switch o := outcome.(type) {
	case Rejected:
		return nil, &RejectedError{Errors: o.Errors}
	case Accepted:
		client = o.Client
	default:
		return nil, fmt.Errorf("unexpected validation outcome %T", outcome)
	}

	var secret string
	if client.AuthMethod.UsesSecret() {
		secret, err = r.secret()
		if err != nil {
			return nil, fmt.Errorf("generate client secret: %w", err)
		}
		client.SecretHash, err = bcrypt.GenerateFromPassword([]byte(secret), r.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash client secret: %w", err)
		}
	}
	client.IssuedAt = r.now().UTC().Truncate(time.Second)

	client.ID, err = r.store.Save(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	r.logger.InfoContext(ctx, "client registered",
		"client_id", client.ID,
		"auth_method", client.AuthMethod,
		"grant_types", client.GrantTypes,
	)
	return client.Response(secret), nil
}

// CheckSecret reports whether secret matches the hash stored for client.
func CheckSecret(client *Client, secret string) bool {
	if len(client.SecretHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(client.SecretHash, []byte(secret)) == nil
}
