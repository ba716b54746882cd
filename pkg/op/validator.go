package op

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/zitadel/dynconfig/pkg/oidc"
)

// Error codes of a [ValidationError].
const (
	CodeInvalidRedirectURI     = "invalid_redirect_uri"
	CodeUnsupportedGrantType   = "unsupported_grant_type"
	CodeConflictingKeyMaterial = "conflicting_key_material"
	CodeMissingKeyMaterial     = "missing_key_material"
	CodeInvalidKeyMaterial     = "invalid_key_material"
	CodeUnsupportedAuthMethod  = "unsupported_auth_method"
	CodeInvalidScope           = "invalid_scope"
	CodeInvalidMaxAge          = "invalid_max_age"
	CodeInvalidClientURI       = "invalid_client_uri"
)

// MaxDefaultMaxAge is the largest accepted default_max_age in seconds.
const MaxDefaultMaxAge = math.MaxInt32

// ValidationError rejects a single registration member.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Field, e.Code, e.Message)
}

// ValidationErrors is the ordered list of everything that was wrong with a registration request.
// It is returned as data, never as the error of [Validator.ValidateRequest].
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v *ValidationErrors) add(field, code, format string, args ...any) {
	*v = append(*v, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Outcome of a registration validation: either [Accepted] or [Rejected].
type Outcome interface {
	isOutcome()
}

type Accepted struct {
	Client *Client
}

type Rejected struct {
	Errors ValidationErrors
}

func (Accepted) isOutcome() {}
func (Rejected) isOutcome() {}

// ErrCustomValidator wraps infrastructure failures of a [CustomRegistrationValidator].
var ErrCustomValidator = errors.New("custom registration validator failed")

// RefreshTokenPolicy decides about a refresh_token grant registered without
// authorization_code or client_credentials, the only grants that can issue a refresh token.
type RefreshTokenPolicy int

const (
	// RefreshTokenReject rejects the registration with unsupported_grant_type.
	RefreshTokenReject RefreshTokenPolicy = iota
	// RefreshTokenDrop removes the refresh_token grant from the client.
	RefreshTokenDrop
	// RefreshTokenAllow keeps it.
	RefreshTokenAllow
)

func (p RefreshTokenPolicy) String() string {
	switch p {
	case RefreshTokenReject:
		return "reject"
	case RefreshTokenDrop:
		return "drop"
	case RefreshTokenAllow:
		return "allow"
	default:
		return fmt.Sprintf("RefreshTokenPolicy(%d)", int(p))
	}
}

func ParseRefreshTokenPolicy(s string) (RefreshTokenPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return RefreshTokenReject, nil
	case "drop":
		return RefreshTokenDrop, nil
	case "allow":
		return RefreshTokenAllow, nil
	default:
		return 0, fmt.Errorf("unknown refresh token policy %q", s)
	}
}

var (
	DefaultSupportedGrantTypes = []oidc.GrantType{
		oidc.GrantTypeCode,
		oidc.GrantTypeClientCredentials,
		oidc.GrantTypeRefreshToken,
	}
	DefaultSupportedAuthMethods = []oidc.AuthMethod{
		oidc.AuthMethodBasic,
		oidc.AuthMethodPost,
		oidc.AuthMethodPrivateKeyJWT,
		oidc.AuthMethodNone,
	}
)

const DefaultMaxRedirectURIs = 10

type ValidatorConfig struct {
	SupportedGrantTypes  []oidc.GrantType
	SupportedAuthMethods []oidc.AuthMethod
	RefreshTokenPolicy   RefreshTokenPolicy

	// DefaultScopes are assigned when the request does not carry a scope.
	DefaultScopes []string

	// AllowedRedirectURIs are glob patterns (see [CompileGlob]) every
	// registered redirect URI must match. Empty allows all.
	AllowedRedirectURIs []string
	MaxRedirectURIs     int
}

// Validator turns untrusted registration requests into canonical clients.
// It holds no request state and is safe for concurrent use.
type Validator struct {
	grantTypes  []oidc.GrantType
	authMethods []oidc.AuthMethod
	refreshPol  RefreshTokenPolicy
	scopes      []string
	allowList   redirectAllowList
	maxRedirect int
	custom      CustomRegistrationValidator
	logger      *slog.Logger
}

type ValidatorOption func(*Validator)

// WithCustomValidator sets the deployment specific hook, see [CustomRegistrationValidator].
func WithCustomValidator(custom CustomRegistrationValidator) ValidatorOption {
	return func(v *Validator) {
		if custom != nil {
			v.custom = custom
		}
	}
}

func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

func NewValidator(config ValidatorConfig, opts ...ValidatorOption) (*Validator, error) {
	allowList, err := compileRedirectAllowList(config.AllowedRedirectURIs)
	if err != nil {
		return nil, err
	}
	v := &Validator{
		grantTypes:  config.SupportedGrantTypes,
		authMethods: config.SupportedAuthMethods,
		refreshPol:  config.RefreshTokenPolicy,
		scopes:      slices.Clone(config.DefaultScopes),
		allowList:   allowList,
		maxRedirect: config.MaxRedirectURIs,
		custom:      NopCustomValidator{},
		logger:      slog.Default(),
	}
	if len(v.grantTypes) == 0 {
		v.grantTypes = DefaultSupportedGrantTypes
	}
	if len(v.authMethods) == 0 {
		v.authMethods = DefaultSupportedAuthMethods
	}
	if v.maxRedirect <= 0 {
		v.maxRedirect = DefaultMaxRedirectURIs
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// SupportedGrantTypes returns the grant types clients may register.
func (v *Validator) SupportedGrantTypes() []oidc.GrantType {
	return slices.Clone(v.grantTypes)
}

// SupportedAuthMethods returns the token endpoint authentication methods clients may register.
func (v *Validator) SupportedAuthMethods() []oidc.AuthMethod {
	return slices.Clone(v.authMethods)
}

// DefaultScopes returns the scopes assigned to clients registering without a scope.
func (v *Validator) DefaultScopes() []string {
	return slices.Clone(v.scopes)
}

// ValidateRequest runs the built-in checks over req and, if all of them pass,
// the custom hook exactly once. Every built-in check runs, so a rejection
// lists all offending members.
//
// The returned error is only set when the custom hook failed to execute.
func (v *Validator) ValidateRequest(ctx context.Context, req *oidc.ClientRegistrationRequest) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "ValidateRequest")
	defer span.End()

	var (
		errs   ValidationErrors
		client = &Client{
			Name:       req.ClientName.Clone(),
			Extensions: oidc.CloneExtensions(req.ExtraParameters),
		}
	)
	if client.Extensions == nil {
		client.Extensions = make(map[string]any)
	}

	var grantErrs ValidationErrors
	client.GrantTypes = v.validateGrantTypes(req.GrantTypes, &grantErrs)
	client.RedirectURIs = v.validateRedirectURIs(req.RedirectURIs, client.GrantTypes, &errs)
	errs = append(errs, grantErrs...)

	client.JWKSURI, client.JWKS = validateKeyMaterial(req, &errs)
	client.AuthMethod = v.validateAuthMethod(req.TokenEndpointAuthMethod, client.JWKSURI != "" || client.JWKS != nil, &errs)
	client.Scopes = v.validateScope(req.Scope, &errs)
	client.DefaultMaxAge = validateMaxAge(req.DefaultMaxAge, req.InvalidDefaultMaxAge, &errs)
	client.ClientURI = validateClientURI(req.ClientURI, &errs)

	if len(errs) > 0 {
		v.logger.DebugContext(ctx, "registration request rejected", "errors", len(errs))
		return Rejected{Errors: errs}, nil
	}

	hooked, customErrs, err := v.custom.Validate(ctx, client, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCustomValidator, err)
	}
	if len(customErrs) > 0 {
		v.logger.DebugContext(ctx, "registration request rejected by custom validator", "errors", len(customErrs))
		return Rejected{Errors: customErrs}, nil
	}
	if hooked != nil {
		client = hooked
	}
	return Accepted{Client: client}, nil
}

func (v *Validator) validateGrantTypes(requested []oidc.GrantType, errs *ValidationErrors) []oidc.GrantType {
	if len(requested) == 0 {
		// RFC 7591, section 2: defaults to authorization_code if omitted.
		requested = []oidc.GrantType{oidc.GrantTypeCode}
	}
	grants := make([]oidc.GrantType, 0, len(requested))
	for i, grant := range requested {
		if !slices.Contains(v.grantTypes, grant) {
			errs.add(fmt.Sprintf("grant_types[%d]", i), CodeUnsupportedGrantType, "grant type %q is not supported", grant)
			continue
		}
		if !slices.Contains(grants, grant) {
			grants = append(grants, grant)
		}
	}
	if !slices.Contains(grants, oidc.GrantTypeRefreshToken) ||
		slices.Contains(grants, oidc.GrantTypeCode) ||
		slices.Contains(grants, oidc.GrantTypeClientCredentials) {
		return grants
	}
	switch v.refreshPol {
	case RefreshTokenDrop:
		grants = slices.DeleteFunc(grants, func(g oidc.GrantType) bool { return g == oidc.GrantTypeRefreshToken })
		if len(grants) == 0 && len(*errs) == 0 {
			errs.add("grant_types", CodeUnsupportedGrantType, "no usable grant type left after removing refresh_token")
		}
	case RefreshTokenAllow:
	default:
		errs.add("grant_types", CodeUnsupportedGrantType, "refresh_token requires authorization_code or client_credentials")
	}
	return grants
}

func (v *Validator) validateRedirectURIs(uris []string, grants []oidc.GrantType, errs *ValidationErrors) []string {
	requiresRedirect := slices.ContainsFunc(grants, oidc.GrantType.RequiresRedirect)
	if len(uris) == 0 {
		if requiresRedirect {
			errs.add("redirect_uris", CodeInvalidRedirectURI, "at least one redirect uri is required for the requested grant types")
		}
		return nil
	}
	if len(uris) > v.maxRedirect {
		errs.add("redirect_uris", CodeInvalidRedirectURI, "at most %d redirect uris are allowed", v.maxRedirect)
		return nil
	}
	normalized := make([]string, 0, len(uris))
	for i, raw := range uris {
		field := fmt.Sprintf("redirect_uris[%d]", i)
		uri, err := normalizeRedirectURI(raw)
		if err != nil {
			errs.add(field, CodeInvalidRedirectURI, "%v", err)
			continue
		}
		if !v.allowList.allows(uri) {
			errs.add(field, CodeInvalidRedirectURI, "redirect uri %q is not allowed", raw)
			continue
		}
		if !slices.Contains(normalized, uri) {
			normalized = append(normalized, uri)
		}
	}
	return normalized
}

func normalizeRedirectURI(raw string) (string, error) {
	if strings.Contains(raw, "#") {
		return "", fmt.Errorf("redirect uri %q must not contain a fragment", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("redirect uri %q is malformed", raw)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("redirect uri %q must be absolute", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return "", fmt.Errorf("redirect uri %q must have a host", raw)
	}
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}

func validateKeyMaterial(req *oidc.ClientRegistrationRequest, errs *ValidationErrors) (string, *jose.JSONWebKeySet) {
	hasURI, hasSet := req.JWKSURI != "", len(req.JWKS) > 0
	if hasURI && hasSet {
		errs.add("jwks", CodeConflictingKeyMaterial, "jwks and jwks_uri must not both be present")
		return "", nil
	}
	if hasURI {
		if err := checkHTTPURL(req.JWKSURI); err != nil {
			errs.add("jwks_uri", CodeInvalidKeyMaterial, "jwks_uri %v", err)
			return "", nil
		}
		return req.JWKSURI, nil
	}
	if !hasSet {
		return "", nil
	}
	keySet := new(jose.JSONWebKeySet)
	if err := json.Unmarshal(req.JWKS, keySet); err != nil {
		errs.add("jwks", CodeInvalidKeyMaterial, "jwks is not a valid key set: %v", err)
		return "", nil
	}
	if len(keySet.Keys) == 0 {
		errs.add("jwks", CodeInvalidKeyMaterial, "jwks must contain at least one key")
		return "", nil
	}
	valid := true
	for i, key := range keySet.Keys {
		if !key.Valid() || !key.IsPublic() {
			errs.add(fmt.Sprintf("jwks.keys[%d]", i), CodeInvalidKeyMaterial, "key %q must be a valid public key", key.KeyID)
			valid = false
		}
	}
	if !valid {
		return "", nil
	}
	return "", keySet
}

func (v *Validator) validateAuthMethod(requested oidc.AuthMethod, hasKeys bool, errs *ValidationErrors) oidc.AuthMethod {
	method := requested
	if method == "" {
		method = oidc.AuthMethodBasic
		if hasKeys {
			method = oidc.AuthMethodPrivateKeyJWT
		}
	}
	if !slices.Contains(v.authMethods, method) {
		errs.add("token_endpoint_auth_method", CodeUnsupportedAuthMethod, "auth method %q is not supported", method)
		return method
	}
	if method.RequiresKeys() && !hasKeys && !hasFieldError(*errs, "jwks", "jwks_uri") {
		errs.add("token_endpoint_auth_method", CodeMissingKeyMaterial, "auth method %q requires jwks or jwks_uri", method)
	}
	return method
}

func hasFieldError(errs ValidationErrors, fields ...string) bool {
	return slices.ContainsFunc(errs, func(e ValidationError) bool {
		for _, f := range fields {
			if e.Field == f || strings.HasPrefix(e.Field, f+".") || strings.HasPrefix(e.Field, f+"[") {
				return true
			}
		}
		return false
	})
}

func (v *Validator) validateScope(scope string, errs *ValidationErrors) []string {
	var scopes []string
	for _, token := range strings.Split(scope, " ") {
		if token == "" {
			continue
		}
		if !isScopeToken(token) {
			errs.add("scope", CodeInvalidScope, "scope token %q contains invalid characters", token)
			continue
		}
		if !slices.Contains(scopes, token) {
			scopes = append(scopes, token)
		}
	}
	if len(scopes) == 0 {
		return slices.Clone(v.scopes)
	}
	return scopes
}

// isScopeToken reports whether s is a scope-token as of RFC 6749, section 3.3:
// %x21 / %x23-5B / %x5D-7E, which is printable ASCII without space, '"' and '\'.
func isScopeToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e || c == '"' || c == '\\' {
			return false
		}
	}
	return true
}

func validateMaxAge(maxAge *int64, invalid json.RawMessage, errs *ValidationErrors) *time.Duration {
	if len(invalid) > 0 {
		errs.add("default_max_age", CodeInvalidMaxAge, "default_max_age must be an integer, got %s", invalid)
		return nil
	}
	if maxAge == nil {
		return nil
	}
	if *maxAge < 0 {
		errs.add("default_max_age", CodeInvalidMaxAge, "default_max_age must not be negative")
		return nil
	}
	if *maxAge > MaxDefaultMaxAge {
		errs.add("default_max_age", CodeInvalidMaxAge, "default_max_age must not exceed %d seconds", MaxDefaultMaxAge)
		return nil
	}
	d := time.Duration(*maxAge) * time.Second
	return &d
}

func validateClientURI(raw string, errs *ValidationErrors) string {
	if raw == "" {
		return ""
	}
	if err := checkHTTPURL(raw); err != nil {
		errs.add("client_uri", CodeInvalidClientURI, "client_uri %v", err)
		return ""
	}
	return raw
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is malformed", raw)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%q must be an absolute http(s) url", raw)
	}
	if u.Fragment != "" {
		return fmt.Errorf("%q must not contain a fragment", raw)
	}
	return nil
}
