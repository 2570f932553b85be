package middleware

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorReporting attaches a Sentry hub to every request and reports panics.
// Panics are re-raised so chi's Recoverer still writes the 500 response.
func ErrorReporting() func(http.Handler) http.Handler {
	sentryHandler := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})

	return func(next http.Handler) http.Handler {
		tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
				hub.Scope().SetTag("request_id", middleware.GetReqID(r.Context()))
			}
			next.ServeHTTP(w, r)
		})
		return sentryHandler.Handle(tagged)
	}
}
