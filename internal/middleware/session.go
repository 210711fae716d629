package middleware

import (
	"net/http"

	"essenza-be/internal/auth"
	"essenza-be/internal/logger"
	"essenza-be/internal/utils"
)

// Session makes sure every browser carries an anonymous session id, which
// keys the guest cart until the buyer logs in.
func Session(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := auth.ExtractSessionID(r)
			if sid == "" {
				sid = auth.NewSessionID()
				auth.SetSessionCookie(w, sid, secure)
			}

			ctx := utils.SetSessionContext(r.Context(), sid)
			ctx = logger.WithSessionID(ctx, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
