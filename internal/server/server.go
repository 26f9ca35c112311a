// Package server exposes dependency analysis over an HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentpm/modgraph/pkg/analysis"
	"github.com/agentpm/modgraph/pkg/errors"
	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/pipeline"
	"github.com/agentpm/modgraph/pkg/store"
)

// Server handles analysis requests for one project root and serves
// persisted runs.
type Server struct {
	root   string
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
}

// New assembles a server. The runner's cache makes repeated report requests
// cheap; the store may be nil, which disables the runs endpoints' writes.
func New(root string, runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{root: root, runner: runner, store: st, logger: logger}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReport analyzes the configured project root and returns the report.
// ?refresh=1 bypasses the report cache.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.Options{
		Root:    s.root,
		Refresh: r.URL.Query().Get("refresh") == "1",
	}
	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Report)
}

// handleAnalyze runs the pipeline with caller-supplied options. The request
// body is a pipeline.Options document; ?save=1 also persists the run.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decoding request"))
		return
	}
	if opts.Root == "" {
		opts.Root = s.root
	}

	save := r.URL.Query().Get("save") == "1"
	if save {
		opts.IncludeGraph = true
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := analyzeResponse{
		Report:    result.Report,
		Document:  result.Document,
		Malformed: result.Malformed,
		CacheHit:  result.CacheInfo.ReportHit,
	}

	if save && s.store != nil {
		run := store.NewRun(opts.Root, result.Report, result.Document)
		if err := s.store.Save(r.Context(), run); err != nil {
			s.writeError(w, err)
			return
		}
		resp.RunID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "no store configured"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidFormat, "invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), r.URL.Query().Get("root"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "no store configured"))
		return
	}
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// analyzeResponse is the POST /api/analyze payload.
type analyzeResponse struct {
	Report    *analysis.Report `json:"report"`
	Document  *graph.Document  `json:"document,omitempty"`
	Malformed []string         `json:"malformed,omitempty"`
	CacheHit  bool             `json:"cache_hit"`
	RunID     string           `json:"run_id,omitempty"`
}

// apiError is the JSON error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidIdentifier:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeRunNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeResourceExceeded:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		status = http.StatusNotImplemented
	}

	s.logger.Error("request failed", "code", code, "err", err)

	var body apiError
	body.Error.Code = string(code)
	if body.Error.Code == "" {
		body.Error.Code = string(errors.ErrCodeInternal)
	}
	body.Error.Message = errors.UserMessage(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
