// Package http provides the HTTP server infrastructure.
// Outermost layer: routes, templates, middleware.
package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
	"github.com/0xcro3dile/graphrag-web/internal/domain/usecases"
	"github.com/0xcro3dile/graphrag-web/internal/metrics"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// validationMessage is flashed when a submission is rejected.
const validationMessage = "Please enter a question and choose a dataset."

// FlashStore carries one-shot messages across a redirect.
type FlashStore interface {
	Add(w http.ResponseWriter, r *http.Request, flash entities.Flash) error
	Pop(w http.ResponseWriter, r *http.Request) ([]entities.Flash, error)
}

// Options tunes the server.
type Options struct {
	Addr    string
	Methods []string // Offered in the method dropdown
	// WriteTimeout bounds a whole response. Zero means no limit,
	// which a GraphRAG run without a query timeout needs.
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Server is the HTTP server for the question form and JSON API.
type Server struct {
	ask       *usecases.AskUseCase
	flashes   FlashStore
	metrics   *metrics.Metrics
	templates *template.Template
	opts      Options
	logger    *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(ask *usecases.AskUseCase, flashes FlashStore, m *metrics.Metrics, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if len(opts.Methods) == 0 {
		opts.Methods = []string{entities.DefaultMethod}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Server{
		ask:       ask,
		flashes:   flashes,
		metrics:   m,
		templates: tmpl,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static files
	staticContent, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	// UI
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleAsk)
	mux.HandleFunc("POST /ask", s.handleAsk)

	// API
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/datasets", s.handleDatasets)
	mux.HandleFunc("POST /api/ask", s.handleAPIAsk)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.loggingMiddleware(corsMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info("graphrag-web server starting", "addr", s.opts.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutting down server", "error", err)
		}
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// pageData feeds templates/index.html.
type pageData struct {
	Datasets []entities.Dataset
	Methods  []string
	Flashes  []entities.Flash
	Answered bool
	Answer   string
	Failed   bool
	Ask      string
	Chosen   string
	Method   string
	Duration time.Duration
}

// handleIndex renders the empty form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	datasets := s.ask.Datasets(r.Context())
	s.metrics.Datasets.Set(float64(len(datasets)))

	s.render(w, r, pageData{
		Datasets: datasets,
		Methods:  s.opts.Methods,
		Method:   entities.DefaultMethod,
	})
}

// handleAsk answers a submitted form, or bounces back to it with a warning.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}

	req := entities.QueryRequest{
		Question:   r.PostFormValue("question"),
		DatasetKey: r.PostFormValue("dataset"),
		Method:     r.PostFormValue("method"),
	}

	result, err := s.ask.Ask(r.Context(), req)
	if errors.Is(err, entities.ErrInvalidRequest) {
		s.metrics.ObserveQuery(metrics.OutcomeRejected, s.methodLabel(req.Normalize().Method), 0)
		if ferr := s.flashes.Add(w, r, entities.Flash{Category: "danger", Message: validationMessage}); ferr != nil {
			s.logger.Warn("storing flash", "error", ferr)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	s.observe(result)
	s.metrics.Datasets.Set(float64(len(result.Datasets)))

	s.render(w, r, pageData{
		Datasets: result.Datasets,
		Methods:  s.methodsWith(result.Request.Method),
		Answered: true,
		Answer:   result.Answer,
		Failed:   result.Failed,
		Ask:      result.Request.Question,
		Chosen:   result.Request.DatasetKey,
		Method:   result.Request.Method,
		Duration: result.Duration.Round(time.Millisecond),
	})
}

// render executes the page into a buffer so template errors become a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, data pageData) {
	flashes, err := s.flashes.Pop(w, r)
	if err != nil {
		s.logger.Warn("reading flashes", "error", err)
	}
	data.Flashes = flashes

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// askPayload is the JSON body of POST /api/ask.
type askPayload struct {
	Question string `json:"question"`
	Dataset  string `json:"dataset"`
	Method   string `json:"method"`
}

// answerPayload is the JSON response of POST /api/ask.
type answerPayload struct {
	Answer     string `json:"answer"`
	Failed     bool   `json:"failed"`
	Dataset    string `json:"dataset"`
	Method     string `json:"method"`
	DurationMS int64  `json:"duration_ms"`
}

// handleAPIAsk is the JSON variant of handleAsk.
func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var in askPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	req := entities.QueryRequest{Question: in.Question, DatasetKey: in.Dataset, Method: in.Method}
	result, err := s.ask.Ask(r.Context(), req)
	if errors.Is(err, entities.ErrInvalidRequest) {
		s.metrics.ObserveQuery(metrics.OutcomeRejected, s.methodLabel(req.Normalize().Method), 0)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage})
		return
	}
	if err != nil {
		s.logger.Error("answering question", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.observe(result)
	writeJSON(w, http.StatusOK, answerPayload{
		Answer:     result.Answer,
		Failed:     result.Failed,
		Dataset:    result.Request.DatasetKey,
		Method:     result.Request.Method,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// handleDatasets returns the current listing.
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := s.ask.Datasets(r.Context())
	s.metrics.Datasets.Set(float64(len(datasets)))
	writeJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}

// historyItem is one entry of GET /api/history.
type historyItem struct {
	ID         string    `json:"id"`
	AskedAt    time.Time `json:"asked_at"`
	Dataset    string    `json:"dataset"`
	Method     string    `json:"method"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Failed     bool      `json:"failed"`
	DurationMS int64     `json:"duration_ms"`
}

// handleHistory lists recent questions when history is enabled.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.ask.HistoryEnabled() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := s.ask.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	items := make([]historyItem, len(entries))
	for i, e := range entries {
		items[i] = historyItem{
			ID:         e.ID,
			AskedAt:    e.AskedAt,
			Dataset:    e.DatasetKey,
			Method:     e.Method,
			Question:   e.Question,
			Answer:     e.Answer,
			Failed:     e.Failed,
			DurationMS: e.Duration.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) observe(result *entities.QueryResult) {
	outcome := metrics.OutcomeAnswered
	if result.Failed {
		outcome = metrics.OutcomeFailed
	}
	s.metrics.ObserveQuery(outcome, s.methodLabel(result.Request.Method), result.Duration)
}

// methodLabel keeps metric cardinality bounded to the configured methods.
func (s *Server) methodLabel(method string) string {
	if slices.Contains(s.opts.Methods, method) {
		return method
	}
	return "other"
}

// methodsWith returns the dropdown choices, keeping a submitted method selectable.
func (s *Server) methodsWith(method string) []string {
	if slices.Contains(s.opts.Methods, method) {
		return s.opts.Methods
	}
	return append(slices.Clone(s.opts.Methods), method)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("rendering page", "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
