package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/auth"
	"github.com/dmitrijs2005/lostfound/internal/server/metrics"
)

type contextKeySession struct{}

// SessionFromContext returns the session attached by the gate, or nil.
func SessionFromContext(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(contextKeySession{}).(*auth.Session)
	return s
}

func withSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, contextKeySession{}, s)
}

func sessionCookieValue(r *http.Request) string {
	c, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// RequireSession rejects requests without a valid session. An invalid or
// revoked session cookie is cleared in the same response.
func RequireSession(svc AuthService, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := middleware.GetReqID(ctx)

			session, err := svc.Authenticate(ctx, sessionCookieValue(r))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(withSession(ctx, session)))
			case errors.Is(err, common.ErrNotAuthenticated):
				logger.Debug(ctx, "unauthenticated request", "path", r.URL.Path, "request_id", requestID)
				writeError(w, http.StatusUnauthorized, "Not authenticated")
			case errors.Is(err, common.ErrInvalidSession):
				logger.Warn(ctx, "invalid session cookie", "path", r.URL.Path, "error", err, "request_id", requestID)
				http.SetCookie(w, svc.ClearCookie())
				writeError(w, http.StatusUnauthorized, "Invalid session")
			default:
				logger.Error(ctx, "failed to resolve session", "error", err, "request_id", requestID)
				writeError(w, http.StatusInternalServerError, "Something went wrong")
			}
		})
	}
}

// OptionalSession attaches the session when one is present and valid. A
// missing or unusable session lets the request through anonymously; an
// unusable cookie is cleared on the way.
func OptionalSession(svc AuthService, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			value := sessionCookieValue(r)
			if value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := svc.Authenticate(ctx, value)
			switch {
			case err == nil:
				ctx = withSession(ctx, session)
			case auth.IsSessionError(err):
				logger.Debug(ctx, "ignoring unusable session cookie", "path", r.URL.Path, "error", err)
				http.SetCookie(w, svc.ClearCookie())
			default:
				logger.Error(ctx, "failed to resolve session", "error", err, "request_id", middleware.GetReqID(ctx))
				writeError(w, http.StatusInternalServerError, "Something went wrong")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs each request once it completes and records its latency.
func RequestLogger(logger logging.Logger, mtr *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			mtr.ObserveRequest(r.Method, route, status, elapsed)
			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// LimitBody caps request bodies at n bytes. A non-positive n disables the cap.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
