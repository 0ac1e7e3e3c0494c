package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/PoojiKatru/local-business-finder/pkg/logger"
)

const (
	// SessionHeader carries the opaque visitor session id.
	SessionHeader = "X-Session-ID"
	// SessionCookie is accepted when the header is absent.
	SessionCookie = "lb_session"
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Session resolves the caller's session id from the X-Session-ID header or
// the lb_session cookie and stores it in the request context. Malformed ids
// are ignored. When mint is true and no id is present a fresh one is issued
// and echoed back in the response header.
func Session(mint bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					id = c.Value
				}
			}
			if !sessionPattern.MatchString(id) {
				id = ""
			}
			if id == "" && mint {
				id = uuid.NewString()
			}
			if id != "" {
				w.Header().Set(SessionHeader, id)
				r = r.WithContext(logger.WithSessionID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
