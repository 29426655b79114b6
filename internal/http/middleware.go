package http

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-mesh/internal/logging"
	"github.com/goliatone/go-mesh/internal/session"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID tags every request with an id, reusing a sane incoming
// X-Request-ID, and attaches it to the logging fields of the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logging.ContextWithFields(r.Context(), map[string]any{"request_id": id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Sessions attaches the visitor session. Without a store every request gets
// a throwaway session so downstream code can always rely on one.
func Sessions(store *session.Store) func(http.Handler) http.Handler {
	if store != nil {
		return store.Middleware
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.FromContext(r.Context()) == nil {
				r = r.WithContext(session.WithSession(r.Context(), session.New()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Language applies a ?lang= query parameter to the active language of the
// session.
func Language(languages LanguageSetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if languages != nil {
				if code := strings.TrimSpace(r.URL.Query().Get("lang")); code != "" {
					languages.SetLanguage(r.Context(), code)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
