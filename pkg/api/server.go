// Package api exposes the PromptX bridge over HTTP. Every response is a JSON
// envelope of the form {"code":0,"msg":"success","data":...}; failures carry
// the HTTP status in code.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/promptx-bridge/pkg/audit"
	"github.com/jllopis/promptx-bridge/pkg/prompt"
	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditStore enables GET /api/promptx/audit.
func WithAuditStore(store audit.Store) Option {
	return func(s *Server) {
		s.audit = store
	}
}

// WithMetrics counts request errors by code.
func WithMetrics(m *telemetry.ToolMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server serves the bridge endpoints.
type Server struct {
	svc      *promptx.Service
	renderer *prompt.Renderer
	audit    audit.Store
	metrics  *telemetry.ToolMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New builds a Server. svc may be nil when no PromptX connection is
// configured; role endpoints then answer 500.
func New(svc *promptx.Service, renderer *prompt.Renderer, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		renderer: renderer,
		logger:   slog.Default(),
		tracer:   otel.Tracer("promptx-bridge/api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = prompt.NewRenderer(prompt.DefaultCandidates, prompt.WithLogger(s.logger))
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/promptx", func(r chi.Router) {
		r.Use(cors)

		r.Get("/status", s.handleStatus)
		r.Get("/roles", s.handleRoles)
		r.Post("/roles/{roleID}/activate", s.handleActivate)
		r.Post("/roles/{roleID}/recall", s.handleRecall)
		r.Post("/roles/{roleID}/remember", s.handleRemember)
		r.Post("/generate-prompt", s.handleGeneratePrompt)
		r.Get("/template", s.handleTemplate)
		r.Post("/template/reload", s.handleTemplateReload)
		r.Get("/audit", s.handleAudit)
	})
	return r
}
