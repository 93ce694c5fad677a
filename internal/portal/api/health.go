// internal/portal/api/health.go
package api

import (
	"context"
	"net/http"
	"time"

	"agritour-certification/internal/assessment/catalog"
)

const checkTimeout = 2 * time.Second

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", map[string]string{"status": "up"})
}

// ready reports every dependency probe plus the catalog state. Any failure makes
// the whole service unready.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(s.deps.Checks)+1)
	healthy := true

	for name, check := range s.deps.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			healthy = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	if s.deps.Catalog != nil {
		state := s.deps.Catalog.State().State
		results["catalog"] = string(state)
		if state != catalog.StateLoaded {
			healthy = false
		}
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, Response{Message: "not ready", Data: results})
		return
	}
	writeSuccess(w, http.StatusOK, "ready", results)
}
