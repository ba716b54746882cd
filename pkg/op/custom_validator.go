package op

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/oidc"
)

// CustomRegistrationValidator applies deployment specific policy to a registration.
//
// It is called exactly once per request, and only after every built-in check
// passed, so draft is structurally sound. raw is the request as received,
// including its extension members.
// Implementations may return a modified client, which replaces draft, or
// validation errors, which reject the registration. A nil client keeps draft.
// A non-nil error signals that the policy could not be evaluated at all.
type CustomRegistrationValidator interface {
	Validate(ctx context.Context, draft *Client, raw *oidc.ClientRegistrationRequest) (*Client, ValidationErrors, error)
}

type CustomValidatorFunc func(ctx context.Context, draft *Client, raw *oidc.ClientRegistrationRequest) (*Client, ValidationErrors, error)

func (f CustomValidatorFunc) Validate(ctx context.Context, draft *Client, raw *oidc.ClientRegistrationRequest) (*Client, ValidationErrors, error) {
	return f(ctx, draft, raw)
}

// NopCustomValidator accepts every draft unchanged.
type NopCustomValidator struct{}

func (NopCustomValidator) Validate(_ context.Context, draft *Client, _ *oidc.ClientRegistrationRequest) (*Client, ValidationErrors, error) {
	return draft, nil, nil
}

// ChainCustomValidators runs validators in order, each one receiving the
// client returned by its predecessor. The chain stops at the first validator
// returning errors.
func ChainCustomValidators(validators ...CustomRegistrationValidator) CustomRegistrationValidator {
	return CustomValidatorFunc(func(ctx context.Context, draft *Client, raw *oidc.ClientRegistrationRequest) (*Client, ValidationErrors, error) {
		for _, v := range validators {
			next, errs, err := v.Validate(ctx, draft, raw)
			if err != nil || len(errs) > 0 {
				return nil, errs, err
			}
			if next != nil {
				draft = next
			}
		}
		return draft, nil, nil
	})
}

// DiscoveryAuthMethodValidator checks the registered token endpoint auth method
// against token_endpoint_auth_methods_supported of the live discovery document
// at issuer, instead of a static list.
type DiscoveryAuthMethodValidator struct {
	Issuer     string
	HTTPClient *http.Client
}

func (d *DiscoveryAuthMethodValidator) Validate(ctx context.Context, draft *Client, _ *oidc.ClientRegistrationRequest) (*Client, ValidationErrors, error) {
	ctx, span := tracer.Start(ctx, "DiscoveryAuthMethodValidator")
	defer span.End()

	config := new(oidc.DiscoveryConfiguration)
	if err := httphelper.GetJSON(ctx, d.HTTPClient, d.Issuer+oidc.DiscoveryEndpoint, config); err != nil {
		return nil, nil, fmt.Errorf("discovery of %s: %w", d.Issuer, err)
	}
	supported := config.TokenEndpointAuthMethodsSupported
	if len(supported) == 0 {
		// OpenID Connect Discovery 1.0, section 3: defaults to client_secret_basic.
		supported = []oidc.AuthMethod{oidc.AuthMethodBasic}
	}
	if !slices.Contains(supported, draft.AuthMethod) {
		var errs ValidationErrors
		errs.add("token_endpoint_auth_method", CodeUnsupportedAuthMethod, "auth method %q is not offered by %s", draft.AuthMethod, d.Issuer)
		return nil, errs, nil
	}
	return draft, nil, nil
}
