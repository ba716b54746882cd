package op

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zitadel/logging"

	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/oidc"
)

// WriteError writes err as a JSON error response and logs it.
//
// A [*RejectedError] becomes a 400 registration error response listing every
// validation error. An [oidc.Error] is written as is, with a status matching
// its type. Any other error is written as server_error.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	logger = requestLogger(r.Context(), logger)

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		resp := registrationErrorResponse(rejected.Errors)
		logger.WarnContext(r.Context(), "registration rejected", "errors", rejected.Errors)
		httphelper.MarshalJSONWithStatus(w, resp, http.StatusBadRequest)
		return
	}

	e := oidc.DefaultToServerError(toOIDCError(err), err.Error())
	logger.Log(r.Context(), e.LogLevel(), "request error", "oidc_error", e)
	if e.ErrorType == oidc.ServerError {
		// internals stay in the log
		e = oidc.ErrServerError().WithDescription("internal server error")
	}
	httphelper.MarshalJSONWithStatus(w, e, errorStatus(e))
}

func toOIDCError(err error) error {
	switch {
	case errors.Is(err, ErrClientNotFound), errors.Is(err, idp.ErrNotFound), errors.Is(err, idp.ErrProviderDisabled):
		return oidc.ErrNotFound().WithDescription("%s", err.Error()).WithParent(err)
	case errors.Is(err, idp.ErrProviderResolutionTimeout), errors.Is(err, idp.ErrStoreFailure):
		return oidc.ErrTemporarilyUnavailable().WithDescription("%s", err.Error()).WithParent(err)
	}
	return err
}

func errorStatus(e *oidc.Error) int {
	switch e.ErrorType {
	case oidc.ServerError:
		return http.StatusInternalServerError
	case oidc.TemporarilyUnavailable:
		return http.StatusServiceUnavailable
	case oidc.InvalidClient:
		return http.StatusUnauthorized
	case oidc.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// registrationErrorResponse picks invalid_redirect_uri when only redirect uris
// were rejected and invalid_client_metadata otherwise.
func registrationErrorResponse(errs ValidationErrors) *oidc.RegistrationErrorResponse {
	errorType := oidc.InvalidRedirectURI
	details := make([]oidc.RegistrationError, 0, len(errs))
	for _, e := range errs {
		if e.Code != CodeInvalidRedirectURI {
			errorType = oidc.InvalidClientMetadata
		}
		details = append(details, oidc.RegistrationError{
			Field:   e.Field,
			Code:    e.Code,
			Message: e.Message,
		})
	}
	if len(errs) == 0 {
		errorType = oidc.InvalidClientMetadata
	}
	return &oidc.RegistrationErrorResponse{
		ErrorType:   errorType,
		Description: errs.Error(),
		Errors:      details,
	}
}

func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := logging.FromContext(ctx); ok {
		return logger
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
