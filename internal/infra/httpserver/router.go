package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/acoustic-health/internal/application/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/application/history"
	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/domain/gauge"
	"github.com/bryanwahyu/acoustic-health/internal/middleware"
)

const (
	DefaultMaxUpload = 50 << 20
	multipartMemory  = 8 << 20
)

// Options configures the HTTP surface. Zero values disable the optional pieces.
type Options struct {
	MaxUploadBytes int64
	APIKeys        map[string]string
	CORSOrigins    []string
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.Metrics
	HealthCheckers map[string]middleware.HealthChecker
	Logger         *slog.Logger
}

type Router struct {
	analysisSvc *appanalysis.Service
	historySvc  *history.Service
	maxUpload   int64
	logger      *slog.Logger
}

func NewRouter(analysisSvc *appanalysis.Service, historySvc *history.Service, opts Options) http.Handler {
	r := &Router{
		analysisSvc: analysisSvc,
		historySvc:  historySvc,
		maxUpload:   opts.MaxUploadBytes,
		logger:      opts.Logger,
	}
	if r.maxUpload <= 0 {
		r.maxUpload = DefaultMaxUpload
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(r.logger))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	if len(opts.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.HealthCheckers))
	mux.Get("/live", middleware.LivenessHandler)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	mux.Get("/v1/machine-types", r.wrap(r.handleMachineTypes))
	mux.Get("/v1/gauge", r.wrap(r.handleGauge))

	mux.Route("/v1/{user}", func(rt chi.Router) {
		rt.Use(middleware.RequireUser)
		if opts.RateLimiter != nil {
			rt.Use(middleware.RateLimit(opts.RateLimiter))
		}
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleHistory))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/trend", r.wrap(r.handleTrend))
		rt.Get("/failures", r.wrap(r.handleFailures))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a status for errors raised by the handlers themselves.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			r.writeErr(w, err)
		}
	}
}

func (r *Router) writeErr(w http.ResponseWriter, err error) {
	var (
		he  *httpError
		ve  *domain.ValidationError
		ae  *domain.ArtifactStoreError
		ce  *domain.ClassifierError
		pe  *domain.PersistenceError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &he):
		writeJSON(w, he.status, map[string]any{"error": he.msg})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &mbe):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
			"error": fmt.Sprintf("upload exceeds %d bytes", mbe.Limit),
		})
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "classifier quota exceeded"})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "classification failed", "detail": ce.Err.Error()})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "audio upload failed", "detail": ae.Err.Error()})
	case errors.As(err, &pe):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       "analysis computed but not saved",
			"result_lost": true,
			"result":      pe.Result,
		})
	default:
		r.logger.Error("unhandled request error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /v1/{user}/analyses
// multipart/form-data: file (audio), machine_type
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	user := chi.URLParam(req, "user")

	if req.ContentLength > r.maxUpload {
		return &http.MaxBytesError{Limit: r.maxUpload}
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return &httpError{status: http.StatusBadRequest, msg: "expected multipart/form-data body: " + err.Error()}
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return &domain.ValidationError{Field: "file", Reason: "is required"}
	}
	if err != nil {
		return &httpError{status: http.StatusBadRequest, msg: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	rec, err := r.analysisSvc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		UserID:      user,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		MachineType: middleware.SanitizeString(req.FormValue("machine_type")),
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"result": rec.View(),
		"record": rec,
		"gauge":  gauge.Render(rec.HealthScore, 0),
	})
	return nil
}

// GET /v1/{user}/analyses?q=&risk=&limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	risk, err := domain.ParseRiskFilter(q.Get("risk"))
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := r.historySvc.Search(req.Context(), history.Query{
		UserID: chi.URLParam(req, "user"),
		Text:   middleware.SanitizeString(q.Get("q")),
		Risk:   risk,
		Limit:  middleware.ValidateLimit(limit),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{user}/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	summary, err := r.analysisSvc.Summary(req.Context(), chi.URLParam(req, "user"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

// GET /v1/{user}/trend?days=7
func (r *Router) handleTrend(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	points, err := r.analysisSvc.Trend(req.Context(), chi.URLParam(req, "user"), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, points)
	return nil
}

// GET /v1/{user}/failures?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analysisSvc.Orphans(req.Context(), chi.URLParam(req, "user"), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		writeJSON(w, http.StatusOK, []any{})
		return nil
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/gauge?score=85&size=200
func (r *Router) handleGauge(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	score, err := strconv.Atoi(q.Get("score"))
	if err != nil {
		return &domain.ValidationError{Field: "score", Reason: "must be an integer"}
	}
	var size float64
	if s := q.Get("size"); s != "" {
		if size, err = strconv.ParseFloat(s, 64); err != nil {
			return &domain.ValidationError{Field: "size", Reason: "must be a number"}
		}
	}
	writeJSON(w, http.StatusOK, gauge.Render(score, size))
	return nil
}

// GET /v1/machine-types
func (r *Router) handleMachineTypes(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, domain.MachineTypes())
	return nil
}
