package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/brief-service/internal/adapters/http/openapi"
	"github.com/kirillkom/brief-service/internal/config"
	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
	"github.com/kirillkom/brief-service/internal/observability/metrics"
)

const (
	serviceName      = "api"
	maxJSONBodyBytes = 1 << 20
)

type Router struct {
	cfg       config.Config
	intake    ports.JobIntake
	worker    ports.JobWorker
	jobs      ports.JobReader
	chat      ports.BriefChatter
	metrics   *metrics.HTTPServerMetrics
	validator *openapi.Validator
}

func NewRouter(
	cfg config.Config,
	intake ports.JobIntake,
	worker ports.JobWorker,
	jobs ports.JobReader,
	chat ports.BriefChatter,
) *Router {
	validator, err := openapi.NewValidator(context.Background())
	if err != nil {
		// The document is embedded at build time.
		panic(fmt.Sprintf("httpadapter: %v", err))
	}
	return &Router{
		cfg:       cfg,
		intake:    intake,
		worker:    worker,
		jobs:      jobs,
		chat:      chat,
		validator: validator,
	}
}

// WithMetrics enables Prometheus instrumentation and the /metrics endpoint.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.yaml", rt.openAPIDocument)
	mux.HandleFunc("/upload", rt.uploadDocument)
	mux.HandleFunc("/status", rt.getJobStatus)
	mux.HandleFunc("/chat", rt.askAboutBrief)
	mux.HandleFunc("/worker/run", rt.runWorker)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = rt.validationMiddleware(mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = corsMiddleware(newCORSPolicy(
		rt.cfg.CORSAllowedOrigins,
		rt.cfg.CORSAllowedMethods,
		rt.cfg.CORSAllowedHeaders,
		rt.cfg.CORSMaxAge,
	), handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// validationMiddleware rejects requests that do not match the OpenAPI
// document before they reach a handler. JSON bodies are capped first.
func (rt *Router) validationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path != "/upload" {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		matched, err := rt.validator.Validate(r)
		if err != nil {
			if isBodyTooLarge(err) {
				writeClientError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if matched {
				writeClientError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeClientError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Document())
}

// jobView is the wire form of a job. Brief and error render as null when unset.
type jobView struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	Status    domain.JobStatus `json:"status"`
	Brief     *string          `json:"brief"`
	Error     *string          `json:"error"`
	PageCount *int             `json:"page_count"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func newJobView(job *domain.Job) *jobView {
	if job == nil {
		return nil
	}
	view := &jobView{
		ID:        job.ID,
		Filename:  job.Filename,
		Status:    job.Status,
		PageCount: job.PageCount,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Brief != "" {
		brief := job.Brief
		view.Brief = &brief
	}
	if job.Error != "" {
		message := job.Error
		view.Error = &message
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
