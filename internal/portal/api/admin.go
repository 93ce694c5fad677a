// internal/portal/api/admin.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/models"
	"agritour-certification/internal/review"
	"agritour-certification/internal/workers/data-access/query-elasticsearch/queries"
)

// dashboardParams reads the list filters from the query string.
func dashboardParams(r *http.Request) (queries.DashboardParams, error) {
	q := r.URL.Query()
	p := queries.DashboardParams{
		City:     q.Get("city"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"year", &p.Year},
		{"from", &p.From},
		{"size", &p.Size},
	}
	for _, f := range ints {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, errors.NewInvalidFilterFormatError(f.name + " must be a number")
		}
		*f.dst = v
	}
	return p, nil
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	p, err := dashboardParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	res, err := s.deps.Search.SearchApplications(r.Context(), p)
	if err != nil {
		writeError(w, s.logger, errors.NewSearchQueryFailedError(queries.QueryApplicationDashboard, err))
		return
	}
	writeSuccess(w, http.StatusOK, "Applications", res)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Reviews.Application(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Application", s.withDownloadLinks(r.Context(), detail))
}

// withDownloadLinks returns a copy of detail whose evidence files carry signed links.
// A file that cannot be signed is listed without one.
func (s *Server) withDownloadLinks(ctx context.Context, detail *review.Detail) *review.Detail {
	if s.deps.Downloads == nil || detail == nil || detail.Application == nil || detail.Application.Form == nil {
		return detail
	}
	app := *detail.Application
	app.Form = detail.Application.Form.Clone()
	out := *detail
	out.Application = &app

	sign := func(files []models.Attachment) {
		for i := range files {
			if files[i].ObjectKey == "" {
				continue
			}
			u, err := s.deps.Downloads.DownloadURL(ctx, files[i], downloadLinkTTL)
			if err != nil {
				s.logger.Warn("Failed to sign evidence link", map[string]interface{}{
					"applicationId": app.ID,
					"objectKey":     files[i].ObjectKey,
					"error":         err.Error(),
				})
				continue
			}
			files[i].DownloadURL = u
		}
	}
	sign(app.Form.Documents)
	for id, a := range app.Form.Answers {
		sign(a.Attachments)
		app.Form.Answers[id] = a
	}
	return &out
}

func (s *Server) saveScores(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r, models.RoleAdmin)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req scoresRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	detail, err := s.deps.Reviews.SaveScores(r.Context(), chi.URLParam(r, "id"), user.ID, req.Scores)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Scores saved", detail)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r, models.RoleAdmin)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req decisionRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	res, err := s.deps.Reviews.Decide(r.Context(), chi.URLParam(r, "id"), user.ID, models.Decision(req.Decision), req.Note)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Decision recorded", res)
}
