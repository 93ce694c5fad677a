// internal/portal/api/server.go
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
	"agritour-certification/internal/portal/wizard"
	"agritour-certification/internal/review"
	"agritour-certification/internal/session"
	"agritour-certification/internal/workers/data-access/query-elasticsearch/queries"
)

const (
	defaultMaxUploadBytes = 32 << 20
	downloadLinkTTL       = 15 * time.Minute
)

// Wizards hands out the live wizard of an applicant.
type Wizards interface {
	Open(ctx context.Context, applicantID string) (*wizard.Wizard, error)
	Forget(applicantID string)
}

type Reviews interface {
	Application(ctx context.Context, id string) (*review.Detail, error)
	SaveScores(ctx context.Context, id, reviewerID string, inputs []review.ScoreInput) (*review.Detail, error)
	Decide(ctx context.Context, id, reviewerID string, decision models.Decision, note string) (*review.DecisionResult, error)
}

// Downloads signs evidence links for reviewers.
type Downloads interface {
	DownloadURL(ctx context.Context, att models.Attachment, expiry time.Duration) (string, error)
}

type Searcher interface {
	SearchApplications(ctx context.Context, p queries.DashboardParams) (*queries.QueryResult, error)
}

type CatalogState interface {
	State() catalog.Snapshot
}

// Check is one readiness probe, such as a database ping.
type Check func(ctx context.Context) error

type Dependencies struct {
	Sessions  *session.Service
	Wizards   Wizards
	Reviews   Reviews
	Downloads Downloads
	Search    Searcher
	Catalog   CatalogState
	Checks    map[string]Check
}

type Server struct {
	cfg    config.HTTPConfig
	deps   Dependencies
	logger logger.Logger
}

func NewServer(cfg config.HTTPConfig, deps Dependencies, log logger.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "portal-api"}),
	}
}

// Prefix is the versioned API root, "/api/v1" by default.
func (s *Server) Prefix() string {
	prefix := strings.Trim(s.cfg.EndpointPrefix, "/")
	if prefix == "" {
		prefix = "api"
	}
	version := strings.Trim(s.cfg.Version, "/")
	if version == "" {
		version = "v1"
	}
	return fmt.Sprintf("/%s/%s", prefix, version)
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(middleware.RequestID)
	r.Use(s.recoverer)
	r.Use(s.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.MaxRequestsPerSecond > 0 {
		r.Use(httprate.LimitByIP(s.cfg.MaxRequestsPerSecond, time.Second))
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(s.Prefix(), func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", s.sendOTP)
			r.Post("/verify-otp", s.verifyOTP)
			r.With(s.authenticate).Post("/logout", s.logout)
		})

		r.Route("/wizard", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/sections", s.wizardSections)
			r.Get("/form", s.wizardForm)
			r.Put("/basic-info", s.updateBasicInfo)
			r.Put("/answers/{questionID}/score", s.setScore)
			r.Put("/answers/{questionID}/note", s.setNote)
			r.Post("/answers/{questionID}/attachments", s.addAttachments)
			r.Delete("/answers/{questionID}/attachments/{index}", s.removeAttachment)
			r.Post("/documents", s.addDocuments)
			r.Put("/checklist/{itemID}", s.setChecklist)
			r.Put("/confirm", s.setConfirmed)
			r.Get("/summary", s.summary)
			r.Post("/draft", s.saveDraft)
			r.Delete("/draft", s.resetDraft)
			r.Post("/submit", s.submit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authenticate, s.requireRole(models.RoleAdmin))
			r.Get("/applications", s.listApplications)
			r.Get("/applications/{id}", s.getApplication)
			r.Put("/applications/{id}/scores", s.saveScores)
			r.Post("/applications/{id}/decision", s.decide)
		})
	})
	return r
}
