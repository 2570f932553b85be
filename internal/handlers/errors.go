package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/labsy/internal/models"
	pkghttp "github.com/BradenHooton/labsy/pkg/http"
	"github.com/getsentry/sentry-go"
)

// respondError maps a service error to its HTTP response. Services wrap sentinels as
// "sentinel: user message"; the user message is sent when present, fallback otherwise.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, messageFor(err, models.ErrNotFound, fallback))
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, messageFor(err, models.ErrConflict, fallback))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid or expired token")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, messageFor(err, models.ErrForbidden, "You are not allowed to perform this action"))
	case errors.Is(err, models.ErrAccountSuspended):
		pkghttp.WriteError(w, http.StatusForbidden, "account_suspended", "Account is suspended")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteError(w, http.StatusForbidden, "account_inactive", "Account is not active")
	case errors.Is(err, models.ErrEmailNotVerified):
		pkghttp.WriteError(w, http.StatusForbidden, "email_not_verified", "Email address must be verified")
	case errors.Is(err, models.ErrEmailMismatch):
		pkghttp.WriteError(w, http.StatusBadRequest, "email_mismatch", "Email does not match the signed-in identity")
	case errors.Is(err, models.ErrInvalidRole):
		pkghttp.WriteBadRequest(w, messageFor(err, models.ErrInvalidRole, "Operation is not available for this role"))
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, messageFor(err, models.ErrBadRequest, fallback))
	case errors.Is(err, models.ErrPayloadTooLarge):
		pkghttp.WritePayloadTooLarge(w, messageFor(err, models.ErrPayloadTooLarge, "File is too large"))
	case errors.Is(err, models.ErrUnsupportedMediaType):
		pkghttp.WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type",
			messageFor(err, models.ErrUnsupportedMediaType, "File type is not supported"))
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this response.
		pkghttp.WriteError(w, 499, "request_cancelled", "Request was cancelled")
	default:
		reportError(r, err)
		pkghttp.WriteInternalError(w, "An unexpected error occurred")
	}
}

// messageFor returns the text after "sentinel: " when err wraps sentinel with a message.
func messageFor(err, sentinel error, fallback string) string {
	prefix := sentinel.Error() + ": "
	if msg := err.Error(); strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return fallback
}

func reportError(r *http.Request, err error) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("route", r.Method+" "+r.URL.Path)
		hub.CaptureException(err)
	})
}
