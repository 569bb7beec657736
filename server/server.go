// Package server exposes the quiz service over HTTP and a websocket that
// streams pipeline progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xhad/wikiquiz/internal/models"
	"github.com/xhad/wikiquiz/pkg/llm"
	"github.com/xhad/wikiquiz/pkg/quiz"
	"github.com/xhad/wikiquiz/pkg/scraper"
	"github.com/xhad/wikiquiz/pkg/store"
	"go.uber.org/zap"
)

// QuizService is the part of quiz.Service the HTTP layer needs.
type QuizService interface {
	GenerateQuizWithProgress(ctx context.Context, url string, progress quiz.ProgressFunc) (*models.GenerateResult, error)
	ListQuizzes(ctx context.Context) ([]models.QuizSummary, error)
	GetQuiz(ctx context.Context, id int64) (*models.QuizDetail, error)
}

type Config struct {
	FrontendOrigin string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

type Server struct {
	config  Config
	service QuizService
	log     *zap.Logger
}

type generateRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func New(service QuizService, config Config) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{config: config, service: service, log: log}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	if s.config.FrontendOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.config.FrontendOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/generate-quiz", s.handleGenerate)
	r.Get("/generate-quiz/{id}", s.handleGetQuiz)
	r.Get("/quizzes", s.handleListQuizzes)
	r.Get("/quizzes/{id}", s.handleGetQuiz)
	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "request body must be JSON with a url field"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "url is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	result, err := s.service.GenerateQuizWithProgress(ctx, req.URL, func(stage string) {
		s.log.Debug("pipeline stage", zap.String("url", req.URL), zap.String("stage", stage))
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.ListQuizzes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "quiz id must be a positive integer"})
		return
	}

	detail, err := s.service.GetQuiz(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// statusClientClosedRequest reports a request abandoned by its client.
const statusClientClosedRequest = 499

// statusFor maps service errors onto HTTP status codes and client-safe messages.
// Context errors are checked first since fetch and generation errors wrap them.
func statusFor(err error) (int, string) {
	var invalid *scraper.InvalidURLError
	var fetchErr *scraper.FetchError
	var genErr *llm.GenerationError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "quiz generation timed out"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "request cancelled"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "quiz not found"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, fetchErr.Error()
	case errors.As(err, &genErr):
		return http.StatusBadGateway, genErr.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	switch {
	case status == statusClientClosedRequest:
		s.log.Info("request cancelled by client", zap.Error(err))
	case status >= http.StatusInternalServerError:
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Detail: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
