// Package server exposes the generation operations over HTTP for local
// tooling and automation.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lumagen/lumagen/internal/api"
	"github.com/lumagen/lumagen/internal/assets"
	"github.com/lumagen/lumagen/internal/config"
	"github.com/lumagen/lumagen/internal/errs"
	"github.com/rs/zerolog"
)

type Server struct {
	config  *config.Config
	logger  zerolog.Logger
	service *assets.Service
}

func NewServer(cfg *config.Config, logger zerolog.Logger, service *assets.Service) *Server {
	return &Server{
		config:  cfg,
		logger:  logger,
		service: service,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.HealthCheck)
	r.Get("/api/config", s.HandleConfig)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.HandleGenerate)
		r.Post("/generate/batch", s.HandleGenerateBatch)
		r.Post("/describe", s.HandleDescribe)
	})

	return r
}

// Middleware

func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("ip", r.RemoteAddr).
			Msg("request")
	})
}

// Handlers

func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"base_url":   s.config.BaseURL,
		"output_dir": s.config.OutputDir,
		"api_key":    s.config.RedactedAPIKey(),
	})
}

type generateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Style          string `json:"style"`
	Resolution     string `json:"resolution"`
	AspectRatio    string `json:"aspect_ratio"`
	NumImages      int    `json:"num_images"`
	Seed           *int   `json:"seed"`
}

type batchRequest struct {
	Prompts []string `json:"prompts"`
	generateRequest
}

type describeRequest struct {
	Image string `json:"image"`
}

func (s *Server) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.New(errs.KindFormat, "invalid JSON body"))
		return
	}

	apiReq, err := req.toAPI()
	if err != nil {
		s.writeError(w, err)
		return
	}

	paths, err := s.service.Generate(r.Context(), apiReq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

func (s *Server) HandleGenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.New(errs.KindFormat, "invalid JSON body"))
		return
	}

	apiReq, err := req.toAPI()
	if err != nil {
		s.writeError(w, err)
		return
	}

	paths, err := s.service.GenerateBatch(r.Context(), req.Prompts, apiReq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

func (s *Server) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.New(errs.KindFormat, "invalid JSON body"))
		return
	}
	if req.Image == "" {
		s.writeError(w, errs.New(errs.KindFormat, "image reference is required"))
		return
	}

	texts, err := s.service.Describe(r.Context(), req.Image)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"descriptions": texts})
}

func (r generateRequest) toAPI() (apiReq api.GenerateRequest, err error) {
	style, ok := api.ParseStyle(r.Style)
	if !ok {
		return apiReq, errs.Newf(errs.KindFormat, "unknown style %q", r.Style)
	}
	resolution, ok := api.ParseResolution(r.Resolution)
	if !ok {
		return apiReq, errs.Newf(errs.KindFormat, "unknown resolution %q", r.Resolution)
	}
	aspect, ok := api.ParseAspectRatio(r.AspectRatio)
	if !ok {
		return apiReq, errs.Newf(errs.KindFormat, "unknown aspect ratio %q", r.AspectRatio)
	}

	apiReq.Prompt = r.Prompt
	apiReq.NegativePrompt = r.NegativePrompt
	apiReq.Style = style
	apiReq.Resolution = resolution
	apiReq.AspectRatio = aspect
	apiReq.NumImages = r.NumImages
	apiReq.Seed = r.Seed
	return apiReq, nil
}

// Error responses

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError maps the tagged error kinds onto HTTP statuses. Rejected input
// (format, security, DNS, content) is the caller's fault; upstream failures
// surface as bad gateway.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	var tagged *errs.Error
	if errors.As(err, &tagged) {
		code = tagged.Kind.String()
		switch tagged.Kind {
		case errs.KindFormat, errs.KindSecurity, errs.KindResolution:
			status = http.StatusBadRequest
		case errs.KindContent:
			status = http.StatusUnprocessableEntity
		case errs.KindUpstream:
			status = http.StatusBadGateway
		}
	}

	s.logger.Warn().Err(err).Int("status", status).Msg("request failed")

	var body errorBody
	body.Error.Code = code
	body.Error.Message = err.Error()
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
