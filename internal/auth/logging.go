// logging.go -- Request-scoped slog helpers.
//
// Every line carries the chi request id, client ip, method and path, plus
// the caller's user id once RequireAuth has run.
package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

func reqAttrs(r *http.Request) []any {
	attrs := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"ip", r.RemoteAddr,
		"method", r.Method,
		"path", r.URL.Path,
		"user_agent", r.UserAgent(),
	}
	if u, ok := UserFromContext(r.Context()); ok {
		attrs = append(attrs, "caller_id", u.ID)
	}
	return attrs
}

func logInfo(r *http.Request, msg string, args ...any) {
	slog.Info(msg, append(reqAttrs(r), args...)...)
}

func logWarn(r *http.Request, msg string, args ...any) {
	slog.Warn(msg, append(reqAttrs(r), args...)...)
}

func logError(r *http.Request, msg string, args ...any) {
	slog.Error(msg, append(reqAttrs(r), args...)...)
}
