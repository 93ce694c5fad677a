// internal/portal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/metrics"
	"agritour-certification/internal/models"
	"agritour-certification/internal/session"
)

// recoverer turns a panic into a 500 envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("Handler panicked", map[string]interface{}{
					"panic":     fmt.Sprint(rec),
					"path":      r.URL.Path,
					"requestId": middleware.GetReqID(r.Context()),
				})
				writeError(w, s.logger, errors.NewInternalError(fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument records request counts and latency by route pattern, so path
// parameters do not explode the label set.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// authenticate binds the bearer token's session to the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, s.logger, errors.NewSessionInvalidError("missing bearer token"))
			return
		}

		sc := session.NewContext(s.deps.Sessions)
		if err := sc.Init(r.Context(), token); err != nil {
			writeError(w, s.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithContext(r.Context(), sc)))
	})
}

func (s *Server) requireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := requireUser(r, role); err != nil {
				writeError(w, s.logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireUser(r *http.Request, role models.Role) (models.User, error) {
	sc, ok := session.FromContext(r.Context())
	if !ok {
		return models.User{}, errors.NewSessionInvalidError("not signed in")
	}
	return sc.Require(role)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
